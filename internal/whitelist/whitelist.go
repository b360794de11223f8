package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker matches hostnames against a list of domains.
// A hostname matches a domain when it equals it or is one of its subdomains.
type Checker struct {
	name    string
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new domain list checker
func NewChecker(name string, domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase, no trailing dot)
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := NormalizeHost(domain)
		if d == "" {
			continue
		}
		normalizedDomains = append(normalizedDomains, d)
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Debug("Initialized domain list checker",
			zap.String("list", name),
			zap.Int("domains", len(normalizedDomains)))
	}

	return &Checker{
		name:    name,
		domains: normalizedDomains,
		logger:  logger,
	}
}

// Name returns the list name the checker was built with
func (c *Checker) Name() string {
	return c.name
}

// Len returns the number of domains in the list
func (c *Checker) Len() int {
	return len(c.domains)
}

// Match returns the listed domain the hostname falls under
func (c *Checker) Match(hostname string) (string, bool) {
	if len(c.domains) == 0 {
		return "", false
	}

	host := NormalizeHost(hostname)
	if host == "" {
		return "", false
	}

	for _, listed := range c.domains {
		if host == listed || strings.HasSuffix(host, "."+listed) {
			if c.logger != nil {
				c.logger.Debug("Hostname matched domain list",
					zap.String("list", c.name),
					zap.String("hostname", host),
					zap.String("domain", listed))
			}
			return listed, true
		}
	}

	return "", false
}

// IsListed reports whether the hostname is on the list
func (c *Checker) IsListed(hostname string) bool {
	_, ok := c.Match(hostname)
	return ok
}

// NormalizeHost lowercases a hostname and strips surrounding whitespace and a trailing dot
func NormalizeHost(host string) string {
	clean := strings.TrimSpace(host)
	clean = strings.TrimSuffix(clean, ".")
	return strings.ToLower(clean)
}
