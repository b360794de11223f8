package safebrowsing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	sb "google.golang.org/api/safebrowsing/v4"
)

// ErrMissingAPIKey is reported when no API key is configured
var ErrMissingAPIKey = errors.New("safe browsing API key not configured")

// ThreatTypes are the threat categories requested on every lookup
var ThreatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
	"THREAT_TYPE_UNSPECIFIED",
}

// LookupClient is an implementation of the ThreatLookupClient interface using
// the Google Safe Browsing v4 Lookup API.
//
// Lookups fail open: a missing key, an exhausted quota, a timeout or any
// transport or API error yields a safe result flagged Unavailable, and the
// condition is logged at warn level. The composer's fail policy decides what an
// unavailable lookup means for the verdict.
type LookupClient struct {
	service       *sb.Service
	clientID      string
	clientVersion string
	timeout       time.Duration
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewLookupClient creates a new Safe Browsing client. An empty apiKey yields a
// client that reports every lookup as unavailable.
func NewLookupClient(
	apiKey string,
	endpoint string,
	clientID string,
	clientVersion string,
	timeout time.Duration,
	limiter *rate.Limiter,
	logger *zap.Logger,
) (*LookupClient, error) {
	c := &LookupClient{
		clientID:      clientID,
		clientVersion: clientVersion,
		timeout:       timeout,
		limiter:       limiter,
		logger:        logger,
	}

	if apiKey == "" {
		logger.Warn("Safe Browsing API key not configured, threat lookups will fail open")
		return c, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	service, err := sb.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Safe Browsing client: %w", err)
	}
	c.service = service

	return c, nil
}

// Lookup checks a URL against the Safe Browsing threat lists
func (c *LookupClient) Lookup(ctx context.Context, rawURL string) core.ThreatLookupResult {
	threats, err := c.find(ctx, rawURL)
	if err != nil {
		c.logger.Warn("Threat lookup unavailable, failing open",
			zap.String("url", rawURL),
			zap.Error(err))
		return core.ThreatLookupResult{IsSafe: true, Unavailable: true}
	}

	if len(threats) > 0 {
		return core.ThreatLookupResult{IsSafe: false, Threats: threats}
	}
	return core.ThreatLookupResult{IsSafe: true}
}

func (c *LookupClient) find(ctx context.Context, rawURL string) ([]string, error) {
	if c.service == nil {
		return nil, ErrMissingAPIKey
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("lookup quota exhausted: %w", err)
		}
	}

	req := &sb.GoogleSecuritySafebrowsingV4FindThreatMatchesRequest{
		Client: &sb.GoogleSecuritySafebrowsingV4ClientInfo{
			ClientId:      c.clientID,
			ClientVersion: c.clientVersion,
		},
		ThreatInfo: &sb.GoogleSecuritySafebrowsingV4ThreatInfo{
			ThreatTypes:      ThreatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries: []*sb.GoogleSecuritySafebrowsingV4ThreatEntry{
				{Url: rawURL},
			},
		},
	}

	start := time.Now()
	resp, err := c.service.ThreatMatches.Find(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("threatMatches.find failed: %w", err)
	}

	threats := make([]string, 0, len(resp.Matches))
	seen := make(map[string]struct{}, len(resp.Matches))
	for _, match := range resp.Matches {
		if match == nil || match.ThreatType == "" {
			continue
		}
		if _, ok := seen[match.ThreatType]; ok {
			continue
		}
		seen[match.ThreatType] = struct{}{}
		threats = append(threats, match.ThreatType)
	}

	c.logger.Debug("Threat lookup completed",
		zap.String("url", rawURL),
		zap.Strings("threats", threats),
		zap.Duration("duration", time.Since(start)))

	return threats, nil
}
