package rules

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"unicode"

	"github.com/mikey/url-verifier/internal/core"
	"github.com/mikey/url-verifier/internal/whitelist"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

// Classifier implements core.ReputationClassifier over a RuleSet
type Classifier struct {
	rules   *RuleSet
	trusted []*whitelist.Checker
	blocked *whitelist.Checker
	logger  *zap.Logger
}

// NewClassifier creates a classifier. Extra trusted and blocked domains are
// exact-or-suffix matches added on top of the rule set.
func NewClassifier(rules *RuleSet, extraTrusted, extraBlocked []string, logger *zap.Logger) *Classifier {
	if rules == nil {
		rules = DefaultRuleSet()
	}

	trusted := make([]*whitelist.Checker, 0, len(rules.TrustedOrder)+1)
	for _, category := range rules.TrustedOrder {
		trusted = append(trusted, whitelist.NewChecker(category, rules.TrustedDomains[category], logger))
	}
	if len(extraTrusted) > 0 {
		trusted = append(trusted, whitelist.NewChecker(CategoryConfigured, extraTrusted, logger))
	}

	logger.Info("Initialized reputation classifier",
		zap.String("rules_version", rules.Version),
		zap.Int("trusted_lists", len(trusted)),
		zap.Int("blocked_domains", len(extraBlocked)))

	return &Classifier{
		rules:   rules,
		trusted: trusted,
		blocked: whitelist.NewChecker("blocked", extraBlocked, logger),
		logger:  logger,
	}
}

// Classify evaluates the reputation steps in order. Trusted and malicious
// domains end the evaluation with a terminal verdict.
func (c *Classifier) Classify(rawURL string) (core.ReputationAssessment, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return core.ReputationAssessment{}, fmt.Errorf("%w: %v", core.ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return core.ReputationAssessment{}, fmt.Errorf("%w: missing scheme", core.ErrInvalidURL)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		reason := fmt.Sprintf("Unsupported or dangerous protocol: %s", scheme)
		return core.ReputationAssessment{
			Verdict: core.ReputationMalicious,
			Reason:  reason,
			Factors: []core.RiskFactor{{
				Description: reason,
				Severity:    core.RiskHigh,
				Fails:       []core.Check{core.CheckBasicSafety},
			}},
		}, nil
	}

	host := whitelist.NormalizeHost(u.Hostname())
	if host == "" {
		return core.ReputationAssessment{}, fmt.Errorf("%w: missing host", core.ErrInvalidURL)
	}
	fullURL := strings.ToLower(rawURL)

	var factors []core.RiskFactor

	if scheme == "http" {
		factors = append(factors, core.RiskFactor{
			Description: "Unencrypted HTTP connection",
			Severity:    core.RiskMedium,
		})
	}

	if name, ok := c.matchShape(host, fullURL); ok {
		factors = append(factors, core.RiskFactor{
			Description: fmt.Sprintf("Suspicious URL pattern detected (%s)", name),
			Severity:    core.RiskHigh,
			Fails:       []core.Check{core.CheckBasicSafety},
		})
	}

	if token, ok := c.rules.MatchMaliciousDomain(host); ok {
		return c.malicious(fmt.Sprintf("Known malicious domain detected: %s", token), factors), nil
	}
	if domain, ok := c.blocked.Match(host); ok {
		return c.malicious(fmt.Sprintf("Blocked domain: %s", domain), factors), nil
	}

	for _, list := range c.trusted {
		if domain, ok := list.Match(host); ok {
			return core.ReputationAssessment{
				Verdict: core.ReputationTrusted,
				Reason:  fmt.Sprintf("Known trusted domain (%s: %s)", list.Name(), domain),
			}, nil
		}
	}

	if c.rules.MatchPhishing(fullURL) {
		factors = append(factors, core.RiskFactor{
			Description: "Contains phishing-related keywords",
			Severity:    core.RiskHigh,
			Fails:       []core.Check{core.CheckContentAnalysis},
		})
	}

	_, isIP := parseIP(host)
	if !isIP && strings.Count(host, ".")+1 > c.rules.MaxHostLabels {
		factors = append(factors, core.RiskFactor{
			Description: "Suspicious subdomain structure",
			Severity:    core.RiskMedium,
		})
	}

	factors = append(factors, c.homographFactors(host)...)

	if port := u.Port(); !c.rules.PortAllowed(port) {
		factors = append(factors, core.RiskFactor{
			Description: fmt.Sprintf("Unusual port: %s", port),
			Severity:    core.RiskMedium,
		})
	}

	if c.rules.MatchSuspiciousPath(strings.ToLower(u.EscapedPath()), strings.ToLower(u.RawQuery)) {
		factors = append(factors, core.RiskFactor{
			Description: "Suspicious file path or parameters",
			Severity:    core.RiskHigh,
			Fails:       []core.Check{core.CheckContentAnalysis},
		})
	}

	return core.ReputationAssessment{
		Verdict:        core.ReputationNeutral,
		Factors:        factors,
		InternalTarget: c.rules.IsInternalHost(host),
	}, nil
}

func (c *Classifier) malicious(reason string, factors []core.RiskFactor) core.ReputationAssessment {
	factors = append(factors, core.RiskFactor{
		Description: reason,
		Severity:    core.RiskHigh,
		Fails:       []core.Check{core.CheckDomainReputation},
	})
	return core.ReputationAssessment{
		Verdict: core.ReputationMalicious,
		Reason:  reason,
		Factors: factors,
	}
}

// matchShape checks the declarative shape rules and then the abuse TLD list
func (c *Classifier) matchShape(host, fullURL string) (string, bool) {
	if name, ok := c.rules.MatchShape(host, fullURL); ok {
		return name, true
	}

	if _, isIP := parseIP(host); isIP {
		return "", false
	}
	ascii := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		ascii = converted
	}
	if suffix, _ := publicsuffix.PublicSuffix(ascii); c.rules.IsAbuseTLD(suffix) {
		return "abuse-prone TLD ." + suffix, true
	}
	return "", false
}

// homographFactors inspects the display form of the hostname. Punycode labels
// are decoded first so encoded lookalikes are judged like raw ones.
func (c *Classifier) homographFactors(host string) []core.RiskFactor {
	display := host
	if strings.Contains(host, "xn--") {
		if converted, err := idna.Lookup.ToUnicode(host); err == nil && converted != "" {
			display = converted
		}
	}
	if isASCII(display) {
		return nil
	}

	description := "Contains non-ASCII characters (potential homograph attack)"
	if hasMixedScript(display) {
		description = "Contains mixed-script characters (potential homograph attack)"
	}
	factors := []core.RiskFactor{{
		Description: description,
		Severity:    core.RiskHigh,
		Fails:       []core.Check{core.CheckDomainReputation},
	}}

	// Compatibility forms such as fullwidth letters fold to ASCII under NFKC
	folded := strings.ToLower(norm.NFKC.String(display))
	if folded != display && isASCII(folded) {
		for _, list := range c.trusted {
			if domain, ok := list.Match(folded); ok {
				factors = append(factors, core.RiskFactor{
					Description: fmt.Sprintf("Imitates trusted domain %s", domain),
					Severity:    core.RiskHigh,
					Fails:       []core.Check{core.CheckDomainReputation},
				})
				break
			}
		}
	}

	return factors
}

func parseIP(host string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(host)
	return addr, err == nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// hasMixedScript reports whether letters from more than one script appear in the host
func hasMixedScript(host string) bool {
	scripts := make(map[string]struct{})
	for _, r := range host {
		script := scriptOf(r)
		if script == "" {
			continue
		}
		scripts[script] = struct{}{}
		if len(scripts) >= 2 {
			return true
		}
	}
	return false
}

func scriptOf(r rune) string {
	switch {
	case unicode.In(r, unicode.Latin):
		return "latin"
	case unicode.In(r, unicode.Cyrillic):
		return "cyrillic"
	case unicode.In(r, unicode.Greek):
		return "greek"
	case unicode.In(r, unicode.Armenian):
		return "armenian"
	case unicode.In(r, unicode.Hiragana), unicode.In(r, unicode.Katakana), unicode.In(r, unicode.Han):
		return "cjk"
	default:
		return ""
	}
}
