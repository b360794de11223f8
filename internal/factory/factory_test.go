package factory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/url-verifier/internal/adapters/frontend"
	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/core"
	"github.com/mikey/url-verifier/internal/utils"
	"go.uber.org/zap/zaptest"
)

func newConfig(values map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCacheFactory(t *testing.T) {
	logger := zaptest.NewLogger(t)

	repo, err := NewCacheFactory(newConfig(map[string]any{"cache.type": "memory"}), logger).CreateCacheRepository()
	if err != nil || repo == nil {
		t.Fatalf("memory: repo=%v err=%v", repo, err)
	}

	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	repo, err = NewCacheFactory(newConfig(map[string]any{"cache.type": "sqlite", "cache.sqlite_path": path}), logger).CreateCacheRepository()
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if stopper, ok := repo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	if _, err := NewCacheFactory(newConfig(map[string]any{"cache.type": "redis"}), logger).CreateCacheRepository(); err == nil {
		t.Fatal("expected error for unsupported cache type")
	}
}

func TestDefaultCacheSurvivesRestart(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := newConfig(map[string]any{"cache.sqlite_path": filepath.Join(t.TempDir(), "verifications.db")})
	if cfg.GetCache().Type != "sqlite" {
		t.Fatalf("default cache type = %q, want sqlite", cfg.GetCache().Type)
	}

	record := &core.VerificationRecord{
		URL:         "https://demo.example",
		IsVerified:  true,
		IsSafe:      true,
		RiskLevel:   core.RiskLow,
		Reason:      "No issues found",
		LastChecked: time.Now().UTC(),
	}

	first, err := NewCacheFactory(cfg, logger).CreateCacheRepository()
	if err != nil {
		t.Fatalf("first CreateCacheRepository: %v", err)
	}
	if err := first.Set(context.Background(), record); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if stopper, ok := first.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	second, err := NewCacheFactory(cfg, logger).CreateCacheRepository()
	if err != nil {
		t.Fatalf("second CreateCacheRepository: %v", err)
	}
	if stopper, ok := second.(interface{ Stop() }); ok {
		defer stopper.Stop()
	}

	got, err := second.Get(context.Background(), record.URL)
	if err != nil {
		t.Fatalf("Get after restart: %v", err)
	}
	if !got.IsSafe || got.Reason != record.Reason {
		t.Fatalf("record after restart = %+v", got)
	}
}

func TestCacheFactoryBadCleanupFrequency(t *testing.T) {
	f := NewCacheFactory(newConfig(map[string]any{
		"cache.type":              "memory",
		"cache.cleanup_frequency": "often",
	}), zaptest.NewLogger(t))
	if _, err := f.CreateCacheRepository(); err == nil {
		t.Fatal("expected error for unparseable cleanup frequency")
	}
}

func TestCacheFactoryFreshness(t *testing.T) {
	f := NewCacheFactory(newConfig(map[string]any{"verifier.freshness": "0s"}), zaptest.NewLogger(t))
	if _, err := f.GetFreshness(); err == nil {
		t.Fatal("expected error for zero freshness")
	}
}

func TestThreatLookupFactoryDisabled(t *testing.T) {
	f := NewThreatLookupFactory(newConfig(map[string]any{"threat_lookup.enabled": false}), zaptest.NewLogger(t))
	client, err := f.CreateThreatLookupClient()
	if err != nil {
		t.Fatalf("CreateThreatLookupClient: %v", err)
	}
	if client != nil {
		t.Fatalf("client = %v, want nil", client)
	}
}

func TestThreatLookupFactoryFailPolicy(t *testing.T) {
	f := NewThreatLookupFactory(newConfig(map[string]any{"threat_lookup.fail_policy": "closed"}), zaptest.NewLogger(t))
	policy, err := f.GetFailPolicy()
	if err != nil || policy != core.FailClosed {
		t.Fatalf("policy=%v err=%v", policy, err)
	}
}

func TestProbeFactoryDisabled(t *testing.T) {
	prober, err := NewProbeFactory(newConfig(map[string]any{"probe.enabled": false}), zaptest.NewLogger(t)).CreateConnectivityProber()
	if err != nil || prober != nil {
		t.Fatalf("prober=%v err=%v", prober, err)
	}
}

func TestClassifierFactoryUsesConfiguredDomains(t *testing.T) {
	cfg := newConfig(map[string]any{
		"verifier.trusted_domains": []string{"intranet.example"},
		"verifier.blocked_domains": []string{"evil.example"},
	})
	classifier, err := NewClassifierFactory(cfg, zaptest.NewLogger(t)).CreateReputationClassifier()
	if err != nil {
		t.Fatalf("CreateReputationClassifier: %v", err)
	}

	a, err := classifier.Classify("https://wiki.intranet.example/")
	if err != nil || a.Verdict != core.ReputationTrusted {
		t.Errorf("trusted: %+v err=%v", a, err)
	}
	a, err = classifier.Classify("https://evil.example/")
	if err != nil || a.Verdict != core.ReputationMalicious {
		t.Errorf("blocked: %+v err=%v", a, err)
	}
}

func TestFrontendFactory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tp := utils.NewTextProcessor(logger)

	fe, err := NewFrontendFactory(newConfig(map[string]any{"server.frontend_type": "http"}), logger, nil, tp).CreateFrontend()
	if err != nil {
		t.Fatalf("http: %v", err)
	}
	if _, ok := fe.(*frontend.HTTPFrontend); !ok {
		t.Errorf("frontend = %T", fe)
	}

	fe, err = NewFrontendFactory(newConfig(map[string]any{"server.frontend_type": "cli"}), logger, nil, tp).CreateFrontend()
	if err != nil {
		t.Fatalf("cli: %v", err)
	}
	if _, ok := fe.(*frontend.CliFrontend); !ok {
		t.Errorf("frontend = %T", fe)
	}

	if _, err := NewFrontendFactory(newConfig(map[string]any{"server.frontend_type": "smtp"}), logger, nil, tp).CreateFrontend(); err == nil {
		t.Error("expected error for unsupported frontend")
	}
}

func TestTextProcessorFactory(t *testing.T) {
	tp := NewTextProcessorFactory(zaptest.NewLogger(t)).CreateTextProcessor()

	const raw = "https://demo.example/path?q=1"
	if err := tp.ValidateInput(raw, 2048); err != nil {
		t.Fatalf("ValidateInput: %v", err)
	}
	if err := tp.ValidateInput("   ", 2048); !errors.Is(err, utils.ErrEmptyURL) {
		t.Errorf("blank input err = %v, want ErrEmptyURL", err)
	}
	if err := tp.ValidateInput(raw, 10); !errors.Is(err, utils.ErrURLTooLong) {
		t.Errorf("long input err = %v, want ErrURLTooLong", err)
	}
}
