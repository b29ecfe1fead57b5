package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/keh4l/outlook-mail-manager/internal/proxygw"
	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// ScopeProfile selects which capability set a token exchange requests.
type ScopeProfile string

const (
	// ProfileGraph requests the Graph default scope; the granted scope
	// string decides whether the REST mail API is usable.
	ProfileGraph ScopeProfile = "graph"
	// ProfileIMAP requests the Outlook IMAP scope.
	ProfileIMAP ScopeProfile = "imap"
)

func (p ScopeProfile) scope() string {
	if p == ProfileIMAP {
		return "offline_access https://outlook.office.com/IMAP.AccessAsUser.All"
	}
	return "https://graph.microsoft.com/.default offline_access"
}

// Broker exchanges stored refresh tokens for short-lived access tokens at
// the identity provider. It persists nothing itself; writing back a
// rotated refresh token is the coordinator's job.
type Broker struct {
	endpoint string
	logger   *logrus.Logger
}

// NewBroker creates a broker against the given token endpoint.
func NewBroker(endpoint string, logger *logrus.Logger) *Broker {
	return &Broker{endpoint: endpoint, logger: logger}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

// Exchange performs one refresh-token grant through the given egress. The
// returned TokenResult carries a rotated refresh token when the provider
// issued one; the old token may already be invalid at that point, so the
// caller must persist the new one before any further exchange.
func (b *Broker) Exchange(ctx context.Context, clientID, refreshToken string, profile ScopeProfile, eg *proxygw.Egress) (*types.TokenResult, error) {
	form := url.Values{
		"client_id":     {clientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {profile.scope()},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := eg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &types.TokenExchangeError{
			Profile: string(profile),
			Status:  resp.StatusCode,
			Body:    string(body),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	result := &types.TokenResult{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresIn:    tr.ExpiresIn,
	}
	if profile == ProfileGraph {
		result.HasMailScope = strings.Contains(tr.Scope, "Mail.Read")
	}

	b.logger.WithFields(logrus.Fields{
		"profile":        string(profile),
		"has_mail_scope": result.HasMailScope,
		"rotated":        tr.RefreshToken != "" && tr.RefreshToken != refreshToken,
	}).Info("Token refreshed")

	return result, nil
}
