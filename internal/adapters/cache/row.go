package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/url-verifier/internal/core"
)

// ErrNotFound is returned when a cache entry is not found
var ErrNotFound = core.ErrCacheMiss

// tableName is shared by every SQL backend
const tableName = "url_verifications"

// record columns in storage form. Timestamps are stored as RFC 3339 text with
// nanoseconds so a stored record reads back exactly as it was written.
type row struct {
	URL            string
	IsVerified     bool
	IsSafe         bool
	RiskLevel      string
	Reason         string
	SecurityChecks string
	LastChecked    string
}

func toRow(record *core.VerificationRecord) (row, error) {
	checks, err := json.Marshal(record.SecurityChecks)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode security checks: %w", err)
	}
	return row{
		URL:            record.URL,
		IsVerified:     record.IsVerified,
		IsSafe:         record.IsSafe,
		RiskLevel:      string(record.RiskLevel),
		Reason:         record.Reason,
		SecurityChecks: string(checks),
		LastChecked:    record.LastChecked.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (r row) toRecord() (*core.VerificationRecord, error) {
	var checks core.SecurityChecks
	if err := json.Unmarshal([]byte(r.SecurityChecks), &checks); err != nil {
		return nil, fmt.Errorf("failed to decode security checks: %w", err)
	}
	lastChecked, err := time.Parse(time.RFC3339Nano, r.LastChecked)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_checked timestamp: %w", err)
	}
	return &core.VerificationRecord{
		URL:            r.URL,
		IsVerified:     r.IsVerified,
		IsSafe:         r.IsSafe,
		RiskLevel:      core.RiskLevel(r.RiskLevel),
		Reason:         r.Reason,
		SecurityChecks: checks,
		LastChecked:    lastChecked.UTC(),
	}, nil
}
