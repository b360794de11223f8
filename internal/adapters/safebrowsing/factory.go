package safebrowsing

import (
	"time"

	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Factory creates new instances of LookupClient
type Factory struct {
	apiKey        string
	endpoint      string
	clientID      string
	clientVersion string
	timeout       time.Duration
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewFactory creates a new factory for LookupClient instances
func NewFactory(
	apiKey string,
	endpoint string,
	clientID string,
	clientVersion string,
	timeout time.Duration,
	limiter *rate.Limiter,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		apiKey:        apiKey,
		endpoint:      endpoint,
		clientID:      clientID,
		clientVersion: clientVersion,
		timeout:       timeout,
		limiter:       limiter,
		logger:        logger,
	}
}

// CreateThreatLookupClient creates a new LookupClient
func (f *Factory) CreateThreatLookupClient() (core.ThreatLookupClient, error) {
	return NewLookupClient(
		f.apiKey,
		f.endpoint,
		f.clientID,
		f.clientVersion,
		f.timeout,
		f.limiter,
		f.logger,
	)
}
