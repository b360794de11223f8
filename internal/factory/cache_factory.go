package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/url-verifier/internal/adapters/cache"
	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheCfg := f.cfg.GetCache()

	switch cacheCfg.Type {
	case "memory":
		// Records are evicted once they fall out of the freshness window
		maxAge, err := f.GetFreshness()
		if err != nil {
			return nil, err
		}
		cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
		if err != nil {
			return nil, err
		}
		return cache.NewMemoryCache(f.logger, maxAge, cleanupFreq), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger)
	case "mysql":
		return cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger)
	case "postgres":
		return cache.NewPostgresCache(cacheCfg.PostgresDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// GetFreshness returns the configured freshness window
func (f *CacheFactory) GetFreshness() (time.Duration, error) {
	verifierCfg, err := f.cfg.GetVerifier()
	if err != nil {
		return 0, err
	}
	return verifierCfg.Freshness, nil
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetCache().Enabled
}
