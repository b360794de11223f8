package factory

import (
	"github.com/mikey/url-verifier/internal/adapters/safebrowsing"
	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ThreatLookupFactory creates threat lookup clients
type ThreatLookupFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewThreatLookupFactory creates a new threat lookup factory
func NewThreatLookupFactory(cfg *config.Config, logger *zap.Logger) *ThreatLookupFactory {
	return &ThreatLookupFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateThreatLookupClient creates a Safe Browsing client. It returns a nil
// client when lookups are disabled, which makes the pipeline skip the stage.
func (f *ThreatLookupFactory) CreateThreatLookupClient() (core.ThreatLookupClient, error) {
	lookupCfg, err := f.cfg.GetThreatLookup()
	if err != nil {
		return nil, err
	}

	if !lookupCfg.Enabled {
		f.logger.Info("Threat lookup disabled")
		return nil, nil
	}

	var limiter *rate.Limiter
	if lookupCfg.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(lookupCfg.RateLimit.RPS), max(lookupCfg.RateLimit.Burst, 1))
	}

	factory := safebrowsing.NewFactory(
		lookupCfg.APIKey,
		lookupCfg.Endpoint,
		lookupCfg.ClientID,
		lookupCfg.ClientVersion,
		lookupCfg.Timeout,
		limiter,
		f.logger,
	)
	return factory.CreateThreatLookupClient()
}

// GetFailPolicy returns the configured fail policy
func (f *ThreatLookupFactory) GetFailPolicy() (core.FailPolicy, error) {
	return core.ParseFailPolicy(f.cfg.GetString("threat_lookup.fail_policy"))
}
