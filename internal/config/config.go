package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   string

	// Identity provider and mail endpoints. Overridable for tests and for
	// sovereign-cloud tenants.
	TokenEndpoint string
	GraphBaseURL  string
	IMAPHost      string
	IMAPPort      int

	// Bounded timeout applied to every egress network call.
	HTTPTimeout time.Duration

	// DefaultPageSize is the message count fetched when the caller does not
	// pass a limit, and the page size used for degraded cache reads.
	DefaultPageSize int

	// ProxyTestURL is the endpoint used to verify proxy connectivity.
	ProxyTestURL string
}

// Load reads configuration from environment variables (prefix OMM_) with
// sane defaults for the public Microsoft cloud.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("omm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("db_path", "./data/outlook.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("token_endpoint", "https://login.microsoftonline.com/consumers/oauth2/v2.0/token")
	v.SetDefault("graph_base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("imap_host", "outlook.office365.com")
	v.SetDefault("imap_port", 993)
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("default_page_size", 50)
	v.SetDefault("proxy_test_url", "https://httpbin.org/ip")

	cfg := &Config{
		ListenAddr:      v.GetString("listen_addr"),
		DBPath:          v.GetString("db_path"),
		LogLevel:        v.GetString("log_level"),
		TokenEndpoint:   v.GetString("token_endpoint"),
		GraphBaseURL:    v.GetString("graph_base_url"),
		IMAPHost:        v.GetString("imap_host"),
		IMAPPort:        v.GetInt("imap_port"),
		HTTPTimeout:     v.GetDuration("http_timeout"),
		DefaultPageSize: v.GetInt("default_page_size"),
		ProxyTestURL:    v.GetString("proxy_test_url"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.IMAPPort < 1 || c.IMAPPort > 65535 {
		return fmt.Errorf("invalid imap_port: %d", c.IMAPPort)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > 1000 {
		return fmt.Errorf("default_page_size must be between 1 and 1000")
	}
	return nil
}
