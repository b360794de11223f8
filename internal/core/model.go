package core

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidURL is returned when a submitted URL cannot be parsed
var ErrInvalidURL = errors.New("invalid URL format")

const (
	// PassedReason is the reason recorded when no risk factor triggered
	PassedReason = "Security checks passed, including threat intelligence lookup"

	// UnavailableReason is the reason recorded when the pipeline itself failed
	UnavailableReason = "Verification service unavailable"

	// InvalidURLReason is the reason recorded for unparseable input
	InvalidURLReason = "Invalid URL format"
)

// RiskLevel is the ordered severity of a verdict
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
	// RiskUnknown is only used for records produced when verification could not run.
	// It ranks with RiskHigh: unknown is never proven safe.
	RiskUnknown RiskLevel = "unknown"
)

// Severity returns the numeric rank of the risk level
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh, RiskUnknown:
		return 2
	default:
		return 0
	}
}

// MaxRisk returns the more severe of two risk levels
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// Check names one of the sub-checks recorded in SecurityChecks
type Check int

const (
	CheckBasicSafety Check = iota
	CheckDomainReputation
	CheckContentAnalysis
	CheckCertificateValid
	CheckGoogleSafeBrowsing
)

// SecurityChecks holds the itemized sub-check results of a verification
type SecurityChecks struct {
	BasicSafety        bool `json:"basicSafety"`
	DomainReputation   bool `json:"domainReputation"`
	ContentAnalysis    bool `json:"contentAnalysis"`
	CertificateValid   bool `json:"certificateValid"`
	GoogleSafeBrowsing bool `json:"googleSafeBrowsing"`
}

// PassingChecks returns a SecurityChecks value with every check passed
func PassingChecks() SecurityChecks {
	return SecurityChecks{
		BasicSafety:        true,
		DomainReputation:   true,
		ContentAnalysis:    true,
		CertificateValid:   true,
		GoogleSafeBrowsing: true,
	}
}

// Fail marks a single check as failed
func (s *SecurityChecks) Fail(c Check) {
	switch c {
	case CheckBasicSafety:
		s.BasicSafety = false
	case CheckDomainReputation:
		s.DomainReputation = false
	case CheckContentAnalysis:
		s.ContentAnalysis = false
	case CheckCertificateValid:
		s.CertificateValid = false
	case CheckGoogleSafeBrowsing:
		s.GoogleSafeBrowsing = false
	}
}

// VerificationRecord is the persisted verdict for one exact URL
type VerificationRecord struct {
	URL            string         `json:"url"`
	IsVerified     bool           `json:"isVerified"`
	IsSafe         bool           `json:"isSafe"`
	RiskLevel      RiskLevel      `json:"riskLevel"`
	Reason         string         `json:"reason"`
	SecurityChecks SecurityChecks `json:"securityChecks"`
	LastChecked    time.Time      `json:"lastChecked"`
}

// IsFresh reports whether the record was produced within the window ending at now.
// A record stamped in the future is never fresh.
func (r *VerificationRecord) IsFresh(now time.Time, window time.Duration) bool {
	age := now.Sub(r.LastChecked)
	return age >= 0 && age < window
}

// RiskFactor is one triggered contribution to a verdict
type RiskFactor struct {
	Description string
	Severity    RiskLevel
	Fails       []Check
}

// FoldFactors computes the severity, sub-checks and reason for a list of factors.
// Severity is the maximum over all factors, starting from low.
func FoldFactors(factors []RiskFactor) (RiskLevel, SecurityChecks, string) {
	level := RiskLow
	checks := PassingChecks()
	descriptions := make([]string, 0, len(factors))

	for _, f := range factors {
		level = MaxRisk(level, f.Severity)
		for _, c := range f.Fails {
			checks.Fail(c)
		}
		if f.Description != "" {
			descriptions = append(descriptions, f.Description)
		}
	}

	reason := PassedReason
	if len(descriptions) > 0 {
		reason = strings.Join(descriptions, ", ")
	}
	return level, checks, reason
}

// IsSafeVerdict applies the safety invariant to a composed level and check set
func IsSafeVerdict(level RiskLevel, checks SecurityChecks) bool {
	return level.Severity() < RiskHigh.Severity() &&
		checks.BasicSafety &&
		checks.DomainReputation &&
		checks.GoogleSafeBrowsing
}

// ReputationVerdict is the outcome class of the reputation classifier
type ReputationVerdict int

const (
	// ReputationNeutral means deeper checks must run
	ReputationNeutral ReputationVerdict = iota
	// ReputationTrusted is a terminal safe verdict
	ReputationTrusted
	// ReputationMalicious is a terminal unsafe verdict
	ReputationMalicious
)

// ReputationAssessment is the classifier output consumed by the composer
type ReputationAssessment struct {
	Verdict ReputationVerdict
	// Reason is set for terminal verdicts
	Reason  string
	Factors []RiskFactor
	// InternalTarget marks loopback and private network hosts, which are never probed
	InternalTarget bool
}

// ThreatLookupResult is the outcome of an external threat intelligence lookup
type ThreatLookupResult struct {
	IsSafe  bool
	Threats []string
	// Unavailable is set when the lookup could not be performed and the result was failed open
	Unavailable bool
}

// ProbeErrorKind classifies a connectivity probe failure
type ProbeErrorKind string

const (
	ProbeErrorNone    ProbeErrorKind = ""
	ProbeErrorTimeout ProbeErrorKind = "timeout"
	ProbeErrorNetwork ProbeErrorKind = "network"
)

// ProbeResult is the outcome of a connectivity probe
type ProbeResult struct {
	StatusOK                  bool
	StatusCode                int
	FinalURL                  string
	RedirectedToDifferentHost bool
	ErrorKind                 ProbeErrorKind
	Detail                    string
}

// Status is the display state derived from a record
type Status string

const (
	StatusSafe    Status = "safe"
	StatusUnsafe  Status = "unsafe"
	StatusUnknown Status = "unknown"
)

// StatusOf maps a record to its display state. Unknown is never rendered as safe.
func StatusOf(r *VerificationRecord) Status {
	if r == nil || !r.IsVerified || r.RiskLevel == RiskUnknown {
		return StatusUnknown
	}
	if r.IsSafe {
		return StatusSafe
	}
	return StatusUnsafe
}

// UnavailableRecord builds the record returned when verification could not complete
func UnavailableRecord(url string, now time.Time) *VerificationRecord {
	return &VerificationRecord{
		URL:         url,
		IsVerified:  false,
		IsSafe:      false,
		RiskLevel:   RiskUnknown,
		Reason:      UnavailableReason,
		LastChecked: now,
	}
}
