package factory

import (
	"github.com/mikey/url-verifier/internal/adapters/probe"
	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

// ProbeFactory creates connectivity probers
type ProbeFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewProbeFactory creates a new probe factory
func NewProbeFactory(cfg *config.Config, logger *zap.Logger) *ProbeFactory {
	return &ProbeFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateConnectivityProber creates a prober, or nil when probing is disabled
func (f *ProbeFactory) CreateConnectivityProber() (core.ConnectivityProber, error) {
	probeCfg, err := f.cfg.GetProbe()
	if err != nil {
		return nil, err
	}

	if !probeCfg.Enabled {
		f.logger.Info("Connectivity probe disabled")
		return nil, nil
	}

	factory := probe.NewFactory(
		probeCfg.Timeout,
		probeCfg.UserAgent,
		probeCfg.DNSResolver,
		probeCfg.AllowPrivateNetworks,
		f.logger,
	)
	return factory.CreateConnectivityProber(), nil
}
