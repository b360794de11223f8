package ports

import (
	"context"

	"github.com/mikey/url-verifier/internal/core"
)

// Frontend defines the interface for surfaces that accept URLs for verification
type Frontend interface {
	// ProcessURL verifies a single submitted URL and returns its record
	ProcessURL(ctx context.Context, rawURL string) (*core.VerificationRecord, error)

	// Start starts the frontend
	Start() error

	// Stop stops the frontend
	Stop() error
}
