package probe

import (
	"time"

	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of Prober
type Factory struct {
	timeout      time.Duration
	userAgent    string
	resolver     string
	allowPrivate bool
	logger       *zap.Logger
}

// NewFactory creates a new factory for Prober instances
func NewFactory(timeout time.Duration, userAgent, resolver string, allowPrivate bool, logger *zap.Logger) *Factory {
	return &Factory{
		timeout:      timeout,
		userAgent:    userAgent,
		resolver:     resolver,
		allowPrivate: allowPrivate,
		logger:       logger,
	}
}

// CreateConnectivityProber creates a new Prober
func (f *Factory) CreateConnectivityProber() core.ConnectivityProber {
	return NewProber(f.timeout, f.userAgent, f.resolver, f.allowPrivate, f.logger)
}
