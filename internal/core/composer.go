package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FailPolicy decides how an unavailable threat lookup affects the verdict
type FailPolicy string

const (
	// FailOpen proceeds as if no threat was reported. The unavailability is logged only.
	FailOpen FailPolicy = "open"
	// FailClosed records the unavailability as a high severity risk factor
	FailClosed FailPolicy = "closed"
)

// ParseFailPolicy converts a configuration value into a FailPolicy
func ParseFailPolicy(s string) (FailPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FailOpen):
		return FailOpen, nil
	case string(FailClosed):
		return FailClosed, nil
	default:
		return "", fmt.Errorf("unsupported threat lookup fail policy: %s", s)
	}
}

// Composer runs the ordered checks for one URL and merges them into a record.
//
// Stage order: reputation (scheme, patterns, domain lists), threat lookup,
// connectivity probe, merge. The reputation stage may end the run with a
// trusted or malicious verdict and a threat match ends it as unsafe. Lookup and
// prober are optional; a nil stage is skipped.
type Composer struct {
	classifier ReputationClassifier
	lookup     ThreatLookupClient
	prober     ConnectivityProber
	failPolicy FailPolicy
	logger     *zap.Logger
	now        func() time.Time
}

// NewComposer creates a new verdict composer
func NewComposer(
	classifier ReputationClassifier,
	lookup ThreatLookupClient,
	prober ConnectivityProber,
	failPolicy FailPolicy,
	logger *zap.Logger,
) *Composer {
	return &Composer{
		classifier: classifier,
		lookup:     lookup,
		prober:     prober,
		failPolicy: failPolicy,
		logger:     logger,
		now:        time.Now,
	}
}

// Compose verifies a URL. An error is only returned when the caller's context
// ended before the run completed; partial results are discarded in that case.
func (c *Composer) Compose(ctx context.Context, rawURL string) (*VerificationRecord, error) {
	assessment, err := c.classifier.Classify(rawURL)
	if err != nil {
		if errors.Is(err, ErrInvalidURL) {
			c.logger.Debug("Rejected unparseable URL", zap.String("url", rawURL), zap.Error(err))
			return c.invalidRecord(rawURL), nil
		}
		return nil, fmt.Errorf("reputation check failed: %w", err)
	}

	switch assessment.Verdict {
	case ReputationTrusted:
		c.logger.Debug("Trusted domain short circuit", zap.String("url", rawURL))
		return c.record(rawURL, true, RiskLow, PassingChecks(), assessment.Reason), nil
	case ReputationMalicious:
		_, checks, _ := FoldFactors(assessment.Factors)
		c.logger.Debug("Malicious reputation short circuit",
			zap.String("url", rawURL),
			zap.String("reason", assessment.Reason))
		return c.record(rawURL, false, RiskHigh, checks, assessment.Reason), nil
	}

	factors := assessment.Factors

	if c.lookup != nil {
		result := c.lookup.Lookup(ctx, rawURL)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("threat lookup interrupted: %w", err)
		}

		if !result.IsSafe {
			_, checks, _ := FoldFactors(factors)
			checks.Fail(CheckGoogleSafeBrowsing)
			reason := fmt.Sprintf("Google Safe Browsing detected threats: %s", strings.Join(result.Threats, ", "))
			c.logger.Info("Threat match", zap.String("url", rawURL), zap.Strings("threats", result.Threats))
			return c.record(rawURL, false, RiskHigh, checks, reason), nil
		}

		if result.Unavailable && c.failPolicy == FailClosed {
			factors = append(factors, RiskFactor{
				Description: "Threat lookup unavailable",
				Severity:    RiskHigh,
				Fails:       []Check{CheckGoogleSafeBrowsing},
			})
		}
	}

	if c.prober != nil && assessment.InternalTarget {
		c.logger.Debug("Skipping probe of internal target", zap.String("url", rawURL))
	} else if c.prober != nil {
		result := c.prober.Probe(ctx, rawURL)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("connectivity probe interrupted: %w", err)
		}
		factors = append(factors, probeFactors(result)...)
	}

	level, checks, reason := FoldFactors(factors)
	return c.record(rawURL, IsSafeVerdict(level, checks), level, checks, reason), nil
}

// probeFactors converts a probe observation into advisory risk factors.
// Probe failures never raise the severity.
func probeFactors(result ProbeResult) []RiskFactor {
	var factors []RiskFactor

	switch result.ErrorKind {
	case ProbeErrorTimeout:
		return append(factors, RiskFactor{
			Description: "Request timeout",
			Severity:    RiskLow,
			Fails:       []Check{CheckContentAnalysis},
		})
	case ProbeErrorNetwork:
		return append(factors, RiskFactor{
			Description: "Network connectivity issue",
			Severity:    RiskLow,
			Fails:       []Check{CheckContentAnalysis},
		})
	}

	switch {
	case result.StatusCode >= 500:
		factors = append(factors, RiskFactor{
			Description: fmt.Sprintf("Server error: %d", result.StatusCode),
			Severity:    RiskMedium,
		})
	case result.StatusCode >= 400:
		factors = append(factors, RiskFactor{
			Description: fmt.Sprintf("HTTP error: %d", result.StatusCode),
			Severity:    RiskMedium,
		})
	}

	if result.RedirectedToDifferentHost {
		factors = append(factors, RiskFactor{
			Description: "Redirects to different domain",
			Severity:    RiskMedium,
		})
	}

	return factors
}

func (c *Composer) record(rawURL string, safe bool, level RiskLevel, checks SecurityChecks, reason string) *VerificationRecord {
	if reason == "" {
		reason = PassedReason
	}
	if level.Severity() >= RiskHigh.Severity() {
		safe = false
	}
	return &VerificationRecord{
		URL:            rawURL,
		IsVerified:     true,
		IsSafe:         safe,
		RiskLevel:      level,
		Reason:         reason,
		SecurityChecks: checks,
		LastChecked:    c.now().UTC(),
	}
}

func (c *Composer) invalidRecord(rawURL string) *VerificationRecord {
	return &VerificationRecord{
		URL:            rawURL,
		IsVerified:     true,
		IsSafe:         false,
		RiskLevel:      RiskHigh,
		Reason:         InvalidURLReason,
		SecurityChecks: SecurityChecks{},
		LastChecked:    c.now().UTC(),
	}
}
