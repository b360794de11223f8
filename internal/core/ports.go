package core

import (
	"context"
)

// ReputationClassifier produces a preliminary verdict from the URL alone
type ReputationClassifier interface {
	// Classify evaluates the exact submitted URL. It returns ErrInvalidURL when the input cannot be parsed.
	Classify(rawURL string) (ReputationAssessment, error)
}

// ThreatLookupClient defines the interface for external threat intelligence services
type ThreatLookupClient interface {
	// Lookup checks a URL against the threat lists. It never fails: unavailability is reported in the result.
	Lookup(ctx context.Context, rawURL string) ThreatLookupResult
}

// ConnectivityProber observes the live behaviour of a target URL
type ConnectivityProber interface {
	// Probe issues a lightweight request against the URL
	Probe(ctx context.Context, rawURL string) ProbeResult
}

// CacheRepository defines the interface for persisting verification records
type CacheRepository interface {
	// Get retrieves the stored record for an exact URL
	Get(ctx context.Context, url string) (*VerificationRecord, error)

	// Set upserts a record keyed by its URL
	Set(ctx context.Context, record *VerificationRecord) error
}
