package rules

import (
	"net/netip"
	"regexp"
	"slices"
	"strings"
)

// Target selects the part of a URL a shape pattern is evaluated against
type Target int

const (
	// TargetHost evaluates the lowercased hostname
	TargetHost Target = iota
	// TargetURL evaluates the lowercased full URL string
	TargetURL
)

// ShapeRule is a named malicious URL-shape pattern
type ShapeRule struct {
	Name    string
	Target  Target
	Pattern *regexp.Regexp
}

// Trusted domain categories
const (
	CategoryDevelopment = "development"
	CategoryBlockchain  = "blockchain"
	CategoryGeneral     = "general"
	CategoryConfigured  = "configured"
)

// RuleSet is the versioned pattern data used by the classifier.
// It holds no state; extend it by editing DefaultRuleSet or through configuration.
type RuleSet struct {
	Version string

	// ShapeRules flag URL shapes commonly used to disguise a destination
	ShapeRules []ShapeRule
	// PrivateNetworks flag IP literal hosts that point into local networks
	PrivateNetworks []netip.Prefix
	// AbuseTLDs are public suffixes with a high share of abusive registrations
	AbuseTLDs []string

	// PhishingBrands and PhishingPressure must both match the full URL
	PhishingBrands   *regexp.Regexp
	PhishingPressure *regexp.Regexp

	// MaliciousDomains are matched against the hostname. Tokens containing a dot
	// match whole labels so that t.co does not hit reddit.com; other tokens match
	// anywhere in the hostname.
	MaliciousDomains []string

	// TrustedDomains maps a category name to exact-or-suffix hostname matches
	TrustedDomains map[string][]string
	// TrustedOrder is the order categories are consulted in
	TrustedOrder []string

	// MaxHostLabels is the largest label count not considered suspicious
	MaxHostLabels int
	AllowedPorts  []string

	// SuspiciousExtensions is evaluated against the path only
	SuspiciousExtensions *regexp.Regexp
	// SuspiciousPaths are evaluated against the escaped path and query
	SuspiciousPaths []*regexp.Regexp
}

// DefaultRuleSet returns the built-in rule data
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Version: "2024.1",
		ShapeRules: []ShapeRule{
			{Name: "URL shortener", Target: TargetHost, Pattern: regexp.MustCompile(`(^|\.)(bit\.ly|tinyurl\.com|t\.co|goo\.gl|ow\.ly|is\.gd)$`)},
			{Name: "raw IP address", Target: TargetHost, Pattern: regexp.MustCompile(`^[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}$`)},
			{Name: "local hostname", Target: TargetHost, Pattern: regexp.MustCompile(`(^|\.)localhost$`)},
			{Name: "punycode", Target: TargetHost, Pattern: regexp.MustCompile(`(^|\.)xn--`)},
			{Name: "non-ASCII hostname", Target: TargetHost, Pattern: regexp.MustCompile(`[^\x00-\x7F]`)},
			{Name: "repeated separators", Target: TargetURL, Pattern: regexp.MustCompile(`-{3,}|_{3,}`)},
		},
		PrivateNetworks: []netip.Prefix{
			netip.MustParsePrefix("0.0.0.0/32"),
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("127.0.0.0/8"),
			netip.MustParsePrefix("169.254.0.0/16"),
			netip.MustParsePrefix("172.16.0.0/12"),
			netip.MustParsePrefix("192.168.0.0/16"),
			netip.MustParsePrefix("::/128"),
			netip.MustParsePrefix("::1/128"),
			netip.MustParsePrefix("fc00::/7"),
			netip.MustParsePrefix("fe80::/10"),
		},
		AbuseTLDs: []string{"tk", "ml", "ga", "cf"},

		PhishingBrands:   regexp.MustCompile(`(?i)paypal|amazon|microsoft|google|apple|facebook|twitter`),
		PhishingPressure: regexp.MustCompile(`(?i)bank|secure|login|verify|account|suspended|urgent|immediate|expires|limited|offer`),

		MaliciousDomains: []string{
			"tempmail", "guerrillamail", "mailinator", "10minutemail",
			"spam4", "maildrop", "throwaway", "guerrillamailblock",
			"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "is.gd",
			"grabify", "iplogger", "blasze", "yip.su", "bmwforum",
		},

		TrustedDomains: map[string][]string{
			CategoryDevelopment: {
				"github.com", "github.io", "gitlab.com", "bitbucket.org",
				"vercel.app", "vercel.com", "netlify.app", "netlify.com",
				"heroku.com", "herokuapp.com", "surge.sh", "now.sh",
				"firebase.com", "firebaseapp.com", "web.app",
				"pages.dev", "workers.dev", "cloudflare.com",
				"replit.com", "repl.co", "glitch.com", "glitch.me",
				"codesandbox.io", "stackblitz.com", "codepen.io",
			},
			CategoryBlockchain: {
				"etherscan.io", "bscscan.com", "polygonscan.com",
				"arbiscan.io", "optimistic.etherscan.io",
				"monad.xyz", "monadlabs.xyz", "testnet.monad.xyz",
				"metamask.io", "uniswap.org", "compound.finance",
				"opensea.io", "rarible.com", "foundation.app",
			},
			CategoryGeneral: {
				"youtube.com", "youtu.be", "vimeo.com", "twitch.tv",
				"discord.gg", "discord.com", "telegram.org", "t.me",
				"twitter.com", "x.com", "reddit.com", "medium.com",
				"notion.so", "gitbook.io", "docs.google.com",
			},
		},
		TrustedOrder: []string{CategoryDevelopment, CategoryBlockchain, CategoryGeneral},

		MaxHostLabels: 3,
		AllowedPorts:  []string{"80", "443", "8080", "3000", "5000", "8000"},

		SuspiciousExtensions: regexp.MustCompile(`(?i)\.(exe|bat|cmd|scr|pif|com|jar|zip|rar)$`),
		SuspiciousPaths: []*regexp.Regexp{
			regexp.MustCompile(`(?i)/admin|/wp-admin|/phpmyadmin`),
			regexp.MustCompile(`(?i)\.\.|%2e%2e|%2f|%5c`),
		},
	}
}

// MatchShape returns the name of the first shape rule matching the host or URL
func (r *RuleSet) MatchShape(host, fullURL string) (string, bool) {
	for _, rule := range r.ShapeRules {
		subject := host
		if rule.Target == TargetURL {
			subject = fullURL
		}
		if rule.Pattern.MatchString(subject) {
			return rule.Name, true
		}
	}

	if addr, err := netip.ParseAddr(host); err == nil && r.IsPrivateAddr(addr) {
		return "private network address", true
	}

	return "", false
}

// IsPrivateAddr reports whether the address lies in one of the private networks
func (r *RuleSet) IsPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range r.PrivateNetworks {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// IsInternalHost reports whether the host names the local machine or is an IP
// literal inside a private network
func (r *RuleSet) IsInternalHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && r.IsPrivateAddr(addr)
}

// IsAbuseTLD reports whether the public suffix is on the abuse list
func (r *RuleSet) IsAbuseTLD(suffix string) bool {
	return slices.Contains(r.AbuseTLDs, strings.ToLower(suffix))
}

// MatchMaliciousDomain returns the malicious token found in the hostname
func (r *RuleSet) MatchMaliciousDomain(host string) (string, bool) {
	bounded := "." + host + "."
	for _, token := range r.MaliciousDomains {
		token = strings.ToLower(token)
		if strings.Contains(token, ".") {
			if strings.Contains(bounded, "."+token+".") {
				return token, true
			}
			continue
		}
		if strings.Contains(host, token) {
			return token, true
		}
	}
	return "", false
}

// MatchPhishing reports whether the URL pairs a brand with pressure vocabulary
func (r *RuleSet) MatchPhishing(fullURL string) bool {
	return r.PhishingBrands.MatchString(fullURL) && r.PhishingPressure.MatchString(fullURL)
}

// PortAllowed reports whether an explicit port is on the allow-list
func (r *RuleSet) PortAllowed(port string) bool {
	return port == "" || slices.Contains(r.AllowedPorts, port)
}

// MatchSuspiciousPath reports whether the path or query carries a suspicious pattern
func (r *RuleSet) MatchSuspiciousPath(path, query string) bool {
	if r.SuspiciousExtensions.MatchString(path) {
		return true
	}
	subject := path
	if query != "" {
		subject += "?" + query
	}
	for _, pattern := range r.SuspiciousPaths {
		if pattern.MatchString(subject) {
			return true
		}
	}
	return false
}
