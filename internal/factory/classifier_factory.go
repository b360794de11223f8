package factory

import (
	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/core"
	"github.com/mikey/url-verifier/internal/rules"
	"go.uber.org/zap"
)

// ClassifierFactory creates reputation classifiers
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReputationClassifier creates a classifier over the built-in rule set
// extended with the configured trusted and blocked domains
func (f *ClassifierFactory) CreateReputationClassifier() (core.ReputationClassifier, error) {
	verifierCfg, err := f.cfg.GetVerifier()
	if err != nil {
		return nil, err
	}

	return rules.NewClassifier(
		rules.DefaultRuleSet(),
		verifierCfg.TrustedDomains,
		verifierCfg.BlockedDomains,
		f.logger,
	), nil
}
