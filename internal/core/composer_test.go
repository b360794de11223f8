package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestComposer(t *testing.T, classifier ReputationClassifier, lookup ThreatLookupClient, prober ConnectivityProber, policy FailPolicy) *Composer {
	t.Helper()
	c := NewComposer(classifier, lookup, prober, policy, zaptest.NewLogger(t))
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func neutral(factors ...RiskFactor) *fakeClassifier {
	return &fakeClassifier{assessment: ReputationAssessment{Verdict: ReputationNeutral, Factors: factors}}
}

func TestComposeTrustedSkipsExternalCalls(t *testing.T) {
	classifier := &fakeClassifier{assessment: ReputationAssessment{
		Verdict: ReputationTrusted,
		Reason:  "Known trusted domain (development: github.com)",
	}}
	lookup := &fakeLookup{}
	prober := &fakeProber{}

	record, err := newTestComposer(t, classifier, lookup, prober, FailOpen).Compose(context.Background(), "https://github.com/user/repo")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if !record.IsSafe || record.RiskLevel != RiskLow || record.SecurityChecks != PassingChecks() {
		t.Errorf("record = %+v", record)
	}
	if !strings.Contains(record.Reason, "trusted") {
		t.Errorf("reason = %q", record.Reason)
	}
	if lookup.calls != 0 || prober.calls != 0 {
		t.Errorf("external calls made: lookup=%d probe=%d", lookup.calls, prober.calls)
	}
}

func TestComposeMaliciousIgnoresLookup(t *testing.T) {
	classifier := &fakeClassifier{assessment: ReputationAssessment{
		Verdict: ReputationMalicious,
		Reason:  "Known malicious domain detected: grabify",
		Factors: []RiskFactor{{Description: "Known malicious domain detected: grabify", Severity: RiskHigh, Fails: []Check{CheckDomainReputation}}},
	}}
	lookup := &fakeLookup{}
	prober := &fakeProber{result: ProbeResult{StatusOK: true, StatusCode: 200}}

	record, err := newTestComposer(t, classifier, lookup, prober, FailOpen).Compose(context.Background(), "https://grabify.link/x")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if record.IsSafe || record.RiskLevel != RiskHigh || record.SecurityChecks.DomainReputation {
		t.Errorf("record = %+v", record)
	}
	if record.Reason != "Known malicious domain detected: grabify" {
		t.Errorf("reason = %q", record.Reason)
	}
	if lookup.calls != 0 || prober.calls != 0 {
		t.Errorf("external calls made: lookup=%d probe=%d", lookup.calls, prober.calls)
	}
}

func TestComposeInvalidURL(t *testing.T) {
	classifier := &fakeClassifier{err: fmt.Errorf("%w: missing scheme", ErrInvalidURL)}

	record, err := newTestComposer(t, classifier, &fakeLookup{}, &fakeProber{}, FailOpen).Compose(context.Background(), "not a url")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if !record.IsVerified || record.IsSafe || record.RiskLevel != RiskHigh {
		t.Errorf("record = %+v", record)
	}
	if record.Reason != InvalidURLReason {
		t.Errorf("reason = %q", record.Reason)
	}
	if record.SecurityChecks != (SecurityChecks{}) {
		t.Errorf("checks = %+v, want all false", record.SecurityChecks)
	}
}

func TestComposeScenarios(t *testing.T) {
	tests := []struct {
		name   string
		lookup ThreatLookupResult
		probe  ProbeResult
		safe   bool
		level  RiskLevel
		reason string
		checks SecurityChecks
	}{
		{
			name:   "clean",
			lookup: ThreatLookupResult{IsSafe: true},
			probe:  ProbeResult{StatusOK: true, StatusCode: 200},
			safe:   true,
			level:  RiskLow,
			reason: PassedReason,
			checks: PassingChecks(),
		},
		{
			name:   "threat match",
			lookup: ThreatLookupResult{IsSafe: false, Threats: []string{"MALWARE"}},
			probe:  ProbeResult{StatusOK: true, StatusCode: 200},
			safe:   false,
			level:  RiskHigh,
			reason: "Google Safe Browsing detected threats: MALWARE",
			checks: SecurityChecks{BasicSafety: true, DomainReputation: true, ContentAnalysis: true, CertificateValid: true},
		},
		{
			name:   "probe timeout",
			lookup: ThreatLookupResult{IsSafe: true},
			probe:  ProbeResult{ErrorKind: ProbeErrorTimeout},
			safe:   true,
			level:  RiskLow,
			reason: "Request timeout",
			checks: SecurityChecks{BasicSafety: true, DomainReputation: true, CertificateValid: true, GoogleSafeBrowsing: true},
		},
		{
			name:   "probe network failure",
			lookup: ThreatLookupResult{IsSafe: true},
			probe:  ProbeResult{ErrorKind: ProbeErrorNetwork},
			safe:   true,
			level:  RiskLow,
			reason: "Network connectivity issue",
			checks: SecurityChecks{BasicSafety: true, DomainReputation: true, CertificateValid: true, GoogleSafeBrowsing: true},
		},
		{
			name:   "client error",
			lookup: ThreatLookupResult{IsSafe: true},
			probe:  ProbeResult{StatusCode: 404},
			safe:   true,
			level:  RiskMedium,
			reason: "HTTP error: 404",
			checks: PassingChecks(),
		},
		{
			name:   "server error with redirect",
			lookup: ThreatLookupResult{IsSafe: true},
			probe:  ProbeResult{StatusCode: 503, RedirectedToDifferentHost: true},
			safe:   true,
			level:  RiskMedium,
			reason: "Server error: 503, Redirects to different domain",
			checks: PassingChecks(),
		},
		{
			name:   "lookup unavailable fails open",
			lookup: ThreatLookupResult{IsSafe: true, Unavailable: true},
			probe:  ProbeResult{StatusOK: true, StatusCode: 200},
			safe:   true,
			level:  RiskLow,
			reason: PassedReason,
			checks: PassingChecks(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.lookup
			lookup := &fakeLookup{result: func(context.Context) ThreatLookupResult { return result }}
			prober := &fakeProber{result: tt.probe}

			record, err := newTestComposer(t, neutral(), lookup, prober, FailOpen).Compose(context.Background(), "https://totally-unknown-demo.example/app")
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}

			if record.IsSafe != tt.safe || record.RiskLevel != tt.level {
				t.Errorf("safe=%v level=%s, want safe=%v level=%s", record.IsSafe, record.RiskLevel, tt.safe, tt.level)
			}
			if record.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", record.Reason, tt.reason)
			}
			if record.SecurityChecks != tt.checks {
				t.Errorf("checks = %+v, want %+v", record.SecurityChecks, tt.checks)
			}
			if !record.IsVerified {
				t.Error("record should be verified")
			}
		})
	}
}

func TestComposeThreatMatchStopsBeforeProbe(t *testing.T) {
	lookup := &fakeLookup{result: func(context.Context) ThreatLookupResult {
		return ThreatLookupResult{IsSafe: false, Threats: []string{"MALWARE", "SOCIAL_ENGINEERING"}}
	}}
	prober := &fakeProber{}
	classifier := neutral(RiskFactor{Description: "Unencrypted HTTP connection", Severity: RiskMedium})

	record, err := newTestComposer(t, classifier, lookup, prober, FailOpen).Compose(context.Background(), "http://unknown.example")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if prober.calls != 0 {
		t.Errorf("probe called %d times after threat match", prober.calls)
	}
	if record.Reason != "Google Safe Browsing detected threats: MALWARE, SOCIAL_ENGINEERING" {
		t.Errorf("reason = %q", record.Reason)
	}
	if record.SecurityChecks.GoogleSafeBrowsing || record.IsSafe {
		t.Errorf("record = %+v", record)
	}
}

func TestComposeFailClosed(t *testing.T) {
	lookup := &fakeLookup{result: func(context.Context) ThreatLookupResult {
		return ThreatLookupResult{IsSafe: true, Unavailable: true}
	}}

	record, err := newTestComposer(t, neutral(), lookup, &fakeProber{result: ProbeResult{StatusOK: true, StatusCode: 200}}, FailClosed).
		Compose(context.Background(), "https://unknown.example")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if record.IsSafe || record.RiskLevel != RiskHigh || record.SecurityChecks.GoogleSafeBrowsing {
		t.Errorf("record = %+v", record)
	}
	if record.Reason != "Threat lookup unavailable" {
		t.Errorf("reason = %q", record.Reason)
	}
}

func TestComposeSeverityIsMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		factors []RiskFactor
		probe   ProbeResult
		want    RiskLevel
	}{
		{"medium survives clean probe", []RiskFactor{{Description: "Unusual port: 8443", Severity: RiskMedium}}, ProbeResult{StatusOK: true, StatusCode: 200}, RiskMedium},
		{"high survives probe timeout", []RiskFactor{{Description: "Suspicious file path or parameters", Severity: RiskHigh, Fails: []Check{CheckContentAnalysis}}}, ProbeResult{ErrorKind: ProbeErrorTimeout}, RiskHigh},
		{"high survives http error", []RiskFactor{{Description: "Contains phishing-related keywords", Severity: RiskHigh}}, ProbeResult{StatusCode: 404}, RiskHigh},
		{"medium then low order", []RiskFactor{{Description: "a", Severity: RiskMedium}, {Description: "b", Severity: RiskLow}}, ProbeResult{StatusOK: true, StatusCode: 200}, RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := newTestComposer(t, neutral(tt.factors...), &fakeLookup{}, &fakeProber{result: tt.probe}, FailOpen).
				Compose(context.Background(), "https://unknown.example")
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if record.RiskLevel != tt.want {
				t.Errorf("level = %s, want %s", record.RiskLevel, tt.want)
			}
			if record.RiskLevel == RiskHigh && record.IsSafe {
				t.Error("high risk record must not be safe")
			}
		})
	}
}

func TestComposeIsIdempotent(t *testing.T) {
	classifier := neutral(RiskFactor{Description: "Unencrypted HTTP connection", Severity: RiskMedium})
	c := NewComposer(classifier, &fakeLookup{}, &fakeProber{result: ProbeResult{StatusCode: 404}}, FailOpen, zaptest.NewLogger(t))

	first, err := c.Compose(context.Background(), "http://unknown.example")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	second, err := c.Compose(context.Background(), "http://unknown.example")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if first.IsSafe != second.IsSafe || first.RiskLevel != second.RiskLevel ||
		first.SecurityChecks != second.SecurityChecks || first.Reason != second.Reason {
		t.Fatalf("verdicts differ: %+v vs %+v", first, second)
	}
}

func TestComposeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lookup := &fakeLookup{result: func(context.Context) ThreatLookupResult {
		cancel()
		return ThreatLookupResult{IsSafe: true, Unavailable: true}
	}}
	prober := &fakeProber{}

	record, err := newTestComposer(t, neutral(), lookup, prober, FailOpen).Compose(ctx, "https://unknown.example")
	if err == nil {
		t.Fatalf("expected error, got record %+v", record)
	}
	if prober.calls != 0 {
		t.Errorf("probe ran after cancellation")
	}
}

func TestComposeWithoutOptionalStages(t *testing.T) {
	record, err := newTestComposer(t, neutral(), nil, nil, FailOpen).Compose(context.Background(), "https://unknown.example")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !record.IsSafe || record.Reason != PassedReason {
		t.Fatalf("record = %+v", record)
	}
}

func TestParseFailPolicy(t *testing.T) {
	for in, want := range map[string]FailPolicy{"": FailOpen, "open": FailOpen, " Closed ": FailClosed} {
		got, err := ParseFailPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseFailPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFailPolicy("sometimes"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestComposeSkipsProbeForInternalTarget(t *testing.T) {
	classifier := neutral(RiskFactor{
		Description: "Suspicious URL pattern detected (raw IP address)",
		Severity:    RiskHigh,
		Fails:       []Check{CheckBasicSafety},
	})
	classifier.assessment.InternalTarget = true
	prober := &fakeProber{result: ProbeResult{StatusCode: 404}}

	record, err := newTestComposer(t, classifier, &fakeLookup{}, prober, FailOpen).Compose(context.Background(), "http://169.254.169.254/latest/meta-data")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if prober.calls != 0 {
		t.Fatalf("probe calls = %d, want 0", prober.calls)
	}
	if record.IsSafe || record.RiskLevel != RiskHigh {
		t.Errorf("record = %+v", record)
	}
	if strings.Contains(record.Reason, "HTTP error") {
		t.Errorf("reason leaks probe outcome: %q", record.Reason)
	}
}
