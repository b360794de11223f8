package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the configuration for the inbound frontend
type ServerConfig struct {
	FrontendType   string
	ListenAddress  string
	MaxURLLength   int
	RequestTimeout time.Duration
	AllowedOrigins []string
	RateLimit      RateLimitConfig
}

// RateLimitConfig is a token bucket definition
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// VerifierConfig represents the verification pipeline configuration
type VerifierConfig struct {
	Freshness      time.Duration
	TrustedDomains []string
	BlockedDomains []string
}

// ThreatLookupConfig represents the configuration for Google Safe Browsing
type ThreatLookupConfig struct {
	Enabled       bool
	APIKey        string
	Endpoint      string
	ClientID      string
	ClientVersion string
	Timeout       time.Duration
	FailPolicy    string
	RateLimit     RateLimitConfig
}

// ProbeConfig represents the connectivity probe configuration
type ProbeConfig struct {
	Enabled              bool
	Timeout              time.Duration
	UserAgent            string
	DNSResolver          string
	AllowPrivateNetworks bool
}

// CacheConfig represents the verification cache configuration
type CacheConfig struct {
	Type        string
	Enabled     bool
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// RefreshConfig represents the background re-verification configuration
type RefreshConfig struct {
	Enabled  bool
	Interval time.Duration
	URLs     []string
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.request_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		FrontendType:   c.GetString("server.frontend_type"),
		ListenAddress:  c.GetString("server.listen_address"),
		MaxURLLength:   c.GetInt("server.max_url_length"),
		RequestTimeout: timeout,
		AllowedOrigins: c.GetStringSlice("server.allowed_origins"),
		RateLimit: RateLimitConfig{
			RPS:   c.GetFloat64("server.rate_limit.rps"),
			Burst: c.GetInt("server.rate_limit.burst"),
		},
	}, nil
}

// GetVerifier returns the verifier configuration
func (c *Config) GetVerifier() (VerifierConfig, error) {
	freshness, err := c.GetDuration("verifier.freshness")
	if err != nil {
		return VerifierConfig{}, err
	}
	if freshness <= 0 {
		return VerifierConfig{}, fmt.Errorf("verifier.freshness must be positive, got %s", freshness)
	}
	return VerifierConfig{
		Freshness:      freshness,
		TrustedDomains: c.GetStringSlice("verifier.trusted_domains"),
		BlockedDomains: c.GetStringSlice("verifier.blocked_domains"),
	}, nil
}

// GetThreatLookup returns the threat lookup configuration
func (c *Config) GetThreatLookup() (ThreatLookupConfig, error) {
	timeout, err := c.GetDuration("threat_lookup.timeout")
	if err != nil {
		return ThreatLookupConfig{}, err
	}
	return ThreatLookupConfig{
		Enabled:       c.GetBool("threat_lookup.enabled"),
		APIKey:        c.GetString("threat_lookup.api_key"),
		Endpoint:      c.GetString("threat_lookup.endpoint"),
		ClientID:      c.GetString("threat_lookup.client_id"),
		ClientVersion: c.GetString("threat_lookup.client_version"),
		Timeout:       timeout,
		FailPolicy:    c.GetString("threat_lookup.fail_policy"),
		RateLimit: RateLimitConfig{
			RPS:   c.GetFloat64("threat_lookup.rate_limit.rps"),
			Burst: c.GetInt("threat_lookup.rate_limit.burst"),
		},
	}, nil
}

// GetProbe returns the connectivity probe configuration
func (c *Config) GetProbe() (ProbeConfig, error) {
	timeout, err := c.GetDuration("probe.timeout")
	if err != nil {
		return ProbeConfig{}, err
	}
	return ProbeConfig{
		Enabled:              c.GetBool("probe.enabled"),
		Timeout:              timeout,
		UserAgent:            c.GetString("probe.user_agent"),
		DNSResolver:          c.GetString("probe.dns_resolver"),
		AllowPrivateNetworks: c.GetBool("probe.allow_private_networks"),
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:        c.GetString("cache.type"),
		Enabled:     c.GetBool("cache.enabled"),
		SQLitePath:  c.GetString("cache.sqlite_path"),
		MySQLDSN:    c.GetString("cache.mysql_dsn"),
		PostgresDSN: c.GetString("cache.postgres_dsn"),
	}
}

// GetRefresh returns the refresh scheduler configuration
func (c *Config) GetRefresh() (RefreshConfig, error) {
	interval, err := c.GetDuration("refresh.interval")
	if err != nil {
		return RefreshConfig{}, err
	}
	return RefreshConfig{
		Enabled:  c.GetBool("refresh.enabled"),
		Interval: interval,
		URLs:     c.GetStringSlice("refresh.urls"),
	}, nil
}
