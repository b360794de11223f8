package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	verifier, err := cfg.GetVerifier()
	if err != nil {
		t.Fatalf("GetVerifier: %v", err)
	}
	if verifier.Freshness != 12*time.Hour {
		t.Errorf("freshness = %s, want 12h", verifier.Freshness)
	}

	lookup, err := cfg.GetThreatLookup()
	if err != nil {
		t.Fatalf("GetThreatLookup: %v", err)
	}
	if lookup.FailPolicy != "open" || lookup.Timeout != 5*time.Second || lookup.ClientVersion != "1.0.0" {
		t.Errorf("threat lookup defaults = %+v", lookup)
	}

	probe, err := cfg.GetProbe()
	if err != nil {
		t.Fatalf("GetProbe: %v", err)
	}
	if !probe.Enabled || probe.Timeout != 5*time.Second || probe.DNSResolver != "" || probe.AllowPrivateNetworks {
		t.Errorf("probe defaults = %+v", probe)
	}

	server, err := cfg.GetServer()
	if err != nil {
		t.Fatalf("GetServer: %v", err)
	}
	if server.FrontendType != "http" || server.MaxURLLength != 2048 || server.RateLimit.Burst != 10 {
		t.Errorf("server defaults = %+v", server)
	}

	// The daemon keeps verdicts across restarts by default
	if c := cfg.GetCache(); c.Type != "sqlite" || !c.Enabled || c.SQLitePath == "" {
		t.Errorf("cache defaults = %+v", c)
	}
	if d, err := cfg.GetDuration("cache.cleanup_frequency"); err != nil || d != time.Hour {
		t.Errorf("cleanup frequency = %s, err = %v", d, err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("URL_VERIFIER_VERIFIER_FRESHNESS", "1h")
	t.Setenv("URL_VERIFIER_CACHE_TYPE", "memory")
	t.Setenv("GOOGLE_SAFE_BROWSING_API_KEY", "from-conventional-name")

	cfg := NewFromViper(NewEmptyViper())

	verifier, err := cfg.GetVerifier()
	if err != nil {
		t.Fatalf("GetVerifier: %v", err)
	}
	if verifier.Freshness != time.Hour {
		t.Errorf("freshness = %s, want 1h", verifier.Freshness)
	}
	if cfg.GetCache().Type != "memory" {
		t.Errorf("cache type = %q", cfg.GetCache().Type)
	}

	lookup, _ := cfg.GetThreatLookup()
	if lookup.APIKey != "from-conventional-name" {
		t.Errorf("api key = %q", lookup.APIKey)
	}
}

func TestPrefixedAPIKeyWins(t *testing.T) {
	t.Setenv("URL_VERIFIER_THREAT_LOOKUP_API_KEY", "prefixed")
	t.Setenv("GOOGLE_SAFE_BROWSING_API_KEY", "conventional")

	lookup, _ := NewFromViper(NewEmptyViper()).GetThreatLookup()
	if lookup.APIKey != "prefixed" {
		t.Errorf("api key = %q, want prefixed", lookup.APIKey)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
verifier:
  freshness: 30m
  trusted_domains:
    - example.org
threat_lookup:
  fail_policy: closed
cache:
  type: postgres
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}

	verifier, err := cfg.GetVerifier()
	if err != nil {
		t.Fatalf("GetVerifier: %v", err)
	}
	if verifier.Freshness != 30*time.Minute || len(verifier.TrustedDomains) != 1 {
		t.Errorf("verifier = %+v", verifier)
	}
	lookup, _ := cfg.GetThreatLookup()
	if lookup.FailPolicy != "closed" {
		t.Errorf("fail policy = %q", lookup.FailPolicy)
	}
	if cfg.GetCache().Type != "postgres" {
		t.Errorf("cache type = %q", cfg.GetCache().Type)
	}
}

func TestNewFromMissingFile(t *testing.T) {
	if _, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("verifier.freshness", "soon")
	if _, err := NewFromViper(v).GetVerifier(); err == nil {
		t.Fatal("expected error for invalid freshness")
	}

	v.Set("verifier.freshness", "0s")
	if _, err := NewFromViper(v).GetVerifier(); err == nil {
		t.Fatal("expected error for zero freshness")
	}
}
