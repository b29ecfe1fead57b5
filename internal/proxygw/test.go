package proxygw

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// TestResult reports one proxy connectivity check.
type TestResult struct {
	IP      string `json:"ip"`
	Latency int64  `json:"latency"`
	Status  string `json:"status"`
}

// Test performs a round trip through the proxy against testURL (expected
// to answer httpbin-style {"origin": "<ip>"}) and reports the exit IP and
// latency.
func (g *Gateway) Test(p *types.Proxy, testURL string) *TestResult {
	start := time.Now()
	fail := func(err error) *TestResult {
		g.logger.WithError(err).WithField("proxy", fmt.Sprintf("%s:%d", p.Host, p.Port)).Error("Proxy test failed")
		return &TestResult{Latency: time.Since(start).Milliseconds(), Status: "failed"}
	}

	eg := g.ForProxy(p)
	resp, err := eg.Client.Get(testURL)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body struct {
		Origin string `json:"origin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fail(err)
	}

	latency := time.Since(start).Milliseconds()
	g.logger.WithField("proxy", fmt.Sprintf("%s:%d", p.Host, p.Port)).
		WithField("ip", body.Origin).
		WithField("latency_ms", latency).
		Info("Proxy test succeeded")
	return &TestResult{IP: body.Origin, Latency: latency, Status: "active"}
}
