package proxygw

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/keh4l/outlook-mail-manager/pkg/types"
)

// Mode identifies the egress strategy an account's traffic takes.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModeSocks5 Mode = "socks5"
	ModeHTTP   Mode = "http"
)

// Egress bundles what the protocol clients need to reach the network: an
// HTTP client for the token endpoint and Graph, and a dialer for raw IMAP
// TCP.
type Egress struct {
	Mode   Mode
	Client *http.Client
	Dialer proxy.Dialer
}

// ProxyLookup is the slice of the proxy store the gateway needs.
type ProxyLookup interface {
	GetByID(id int64) (*types.Proxy, error)
	GetDefault() (*types.Proxy, error)
}

// Gateway resolves proxy identifiers to egress strategies. Resolution
// never fails: anything unusable degrades to a direct connection.
type Gateway struct {
	proxies ProxyLookup
	timeout time.Duration
	logger  *logrus.Logger
}

// NewGateway creates a gateway over the proxy store. timeout bounds every
// HTTP call made through a resolved egress.
func NewGateway(proxies ProxyLookup, timeout time.Duration, logger *logrus.Logger) *Gateway {
	return &Gateway{proxies: proxies, timeout: timeout, logger: logger}
}

// Resolve picks the egress for an optional proxy id. A nil id selects the
// configured default proxy; no default means direct.
func (g *Gateway) Resolve(proxyID *int64) *Egress {
	var p *types.Proxy
	var err error
	if proxyID != nil {
		p, err = g.proxies.GetByID(*proxyID)
	} else {
		p, err = g.proxies.GetDefault()
	}
	if err != nil {
		g.logger.WithError(err).Warn("Proxy lookup failed, using direct connection")
	}
	if p == nil {
		return g.direct()
	}
	return g.ForProxy(p)
}

// ForProxy builds the egress for a concrete proxy descriptor.
func (g *Gateway) ForProxy(p *types.Proxy) *Egress {
	switch p.Type {
	case "socks5":
		eg, err := g.socks5(p)
		if err != nil {
			g.logger.WithError(err).WithField("proxy", p.Host).Warn("SOCKS5 setup failed, using direct connection")
			return g.direct()
		}
		return eg
	case "http":
		return g.httpForward(p)
	default:
		g.logger.WithField("type", p.Type).Warn("Unknown proxy type, using direct connection")
		return g.direct()
	}
}

func (g *Gateway) direct() *Egress {
	return &Egress{
		Mode:   ModeDirect,
		Client: &http.Client{Timeout: g.timeout},
		Dialer: &net.Dialer{Timeout: g.timeout},
	}
}

// proxyURL renders the proxy endpoint as a URL, URL-encoding any
// credentials. The result is never logged.
func proxyURL(scheme string, p *types.Proxy) *url.URL {
	u := &url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
	}
	if p.Username != "" && p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

func (g *Gateway) socks5(p *types.Proxy) (*Egress, error) {
	dialer, err := proxy.FromURL(proxyURL("socks5", p), &net.Dialer{Timeout: g.timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to build SOCKS5 dialer: %w", err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
	}
	return &Egress{
		Mode:   ModeSocks5,
		Client: &http.Client{Timeout: g.timeout, Transport: transport},
		Dialer: dialer,
	}, nil
}

func (g *Gateway) httpForward(p *types.Proxy) *Egress {
	u := proxyURL("http", p)
	transport := &http.Transport{Proxy: http.ProxyURL(u)}
	return &Egress{
		Mode:   ModeHTTP,
		Client: &http.Client{Timeout: g.timeout, Transport: transport},
		Dialer: newConnectDialer(u, g.timeout),
	}
}
