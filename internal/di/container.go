package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/core"
	"github.com/mikey/url-verifier/internal/factory"
	"github.com/mikey/url-verifier/internal/logging"
	"github.com/mikey/url-verifier/internal/ports"
	"github.com/mikey/url-verifier/internal/scheduler"
	"github.com/mikey/url-verifier/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideVerification(container); err != nil {
		return nil, err
	}

	// Register frontend
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) (ports.Frontend, error) {
		return f.CreateFrontend()
	}); err != nil {
		return nil, err
	}

	// Register refresh scheduler, nil when disabled
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.VerificationService,
		logger *zap.Logger,
	) (*scheduler.RefreshScheduler, error) {
		refreshCfg, err := cfg.GetRefresh()
		if err != nil {
			return nil, err
		}
		if !refreshCfg.Enabled {
			return nil, nil
		}
		return scheduler.NewRefreshScheduler(service, refreshCfg.URLs, refreshCfg.Interval, logger), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideVerification registers the pipeline stages, the cache and the
// verification service. It expects *config.Config and *zap.Logger to be provided.
func provideVerification(container *dig.Container) error {
	// Register factories
	for _, constructor := range []any{
		factory.NewTextProcessorFactory,
		factory.NewClassifierFactory,
		factory.NewThreatLookupFactory,
		factory.NewProbeFactory,
		factory.NewCacheFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register pipeline stages
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.ReputationClassifier, error) {
		return f.CreateReputationClassifier()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ThreatLookupFactory) (core.ThreatLookupClient, error) {
		return f.CreateThreatLookupClient()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ProbeFactory) (core.ConnectivityProber, error) {
		return f.CreateConnectivityProber()
	}); err != nil {
		return err
	}

	// Register composer
	if err := container.Provide(func(
		classifier core.ReputationClassifier,
		lookup core.ThreatLookupClient,
		prober core.ConnectivityProber,
		f *factory.ThreatLookupFactory,
		logger *zap.Logger,
	) (*core.Composer, error) {
		policy, err := f.GetFailPolicy()
		if err != nil {
			return nil, err
		}
		return core.NewComposer(classifier, lookup, prober, policy, logger), nil
	}); err != nil {
		return err
	}

	// Register cache repository, nil when caching is disabled
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		if !f.IsCacheEnabled() {
			return nil, nil
		}
		return f.CreateCacheRepository()
	}); err != nil {
		return err
	}

	// Register verification service
	return container.Provide(func(
		composer *core.Composer,
		cache core.CacheRepository,
		f *factory.CacheFactory,
		logger *zap.Logger,
	) (*core.VerificationService, error) {
		freshness, err := f.GetFreshness()
		if err != nil {
			return nil, err
		}
		return core.NewVerificationService(composer, cache, logger, f.IsCacheEnabled(), freshness), nil
	})
}
