package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/miekg/dns"
	"github.com/mikey/url-verifier/internal/core"
	"go.uber.org/zap"
)

var (
	// errNXDomain is returned by the DNS pre-check when the host does not exist
	errNXDomain = errors.New("NXDOMAIN")
	// errInternalAddress is returned when a connection would reach a local network
	errInternalAddress = errors.New("refusing to connect to internal address")
)

// Prober is an implementation of the ConnectivityProber interface. It issues a
// HEAD request against the target and follows redirects. Targets rejecting HEAD
// are retried with a one byte ranged GET.
type Prober struct {
	client       *http.Client
	dns          *dns.Client
	resolver     string
	userAgent    string
	timeout      time.Duration
	allowPrivate bool
	logger       *zap.Logger
}

// NewProber creates a new connectivity prober. When resolver is set
// (host:port), hostnames are resolved against it before the HTTP request so
// unregistered domains fail fast. Unless allowPrivate is set, connections to
// loopback, private and link-local addresses are refused, including those
// reached through a redirect.
func NewProber(timeout time.Duration, userAgent, resolver string, allowPrivate bool, logger *zap.Logger) *Prober {
	p := &Prober{
		dns:          &dns.Client{Net: "udp"},
		resolver:     resolver,
		userAgent:    userAgent,
		timeout:      timeout,
		allowPrivate: allowPrivate,
		logger:       logger,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   p.dialControl,
	}
	transport.DialContext = dialer.DialContext
	p.client = &http.Client{Transport: transport}

	return p
}

// dialControl runs after name resolution, so it sees the address actually dialled
func (p *Prober) dialControl(network, address string, _ syscall.RawConn) error {
	if p.allowPrivate {
		return nil
	}
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("unexpected dial address %q: %w", address, err)
	}
	addr := addrPort.Addr().Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
		return fmt.Errorf("%s: %w", addr, errInternalAddress)
	}
	return nil
}

// Probe checks that the URL answers and where it ends up
func (p *Prober) Probe(ctx context.Context, rawURL string) core.ProbeResult {
	target, err := url.Parse(rawURL)
	if err != nil {
		return core.ProbeResult{ErrorKind: core.ProbeErrorNetwork, Detail: err.Error()}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if p.resolver != "" {
		if err := p.resolve(ctx, target.Hostname()); err != nil {
			return p.failure(rawURL, err)
		}
	}

	resp, err := p.do(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		resp.Body.Close()
		p.logger.Debug("Target rejected HEAD, retrying with ranged GET",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode))
		resp, err = p.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		return p.failure(rawURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	final := resp.Request.URL
	result := core.ProbeResult{
		StatusOK:                  resp.StatusCode >= 200 && resp.StatusCode < 400,
		StatusCode:                resp.StatusCode,
		FinalURL:                  final.String(),
		RedirectedToDifferentHost: !strings.EqualFold(final.Hostname(), target.Hostname()),
	}

	p.logger.Debug("Probe completed",
		zap.String("url", rawURL),
		zap.Int("status", result.StatusCode),
		zap.String("final_url", result.FinalURL))

	return result
}

func (p *Prober) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	return p.client.Do(req)
}

// resolve asks the configured resolver for an A record. Only a definitive
// NXDOMAIN or a transport failure is reported.
func (p *Prober) resolve(ctx context.Context, host string) error {
	if host == "" {
		return nil
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := p.dns.ExchangeContext(ctx, msg, p.resolver)
	if err != nil {
		return fmt.Errorf("dns query for %s failed: %w", host, err)
	}
	if resp.Rcode == dns.RcodeNameError {
		return fmt.Errorf("%s: %w", host, errNXDomain)
	}
	return nil
}

func (p *Prober) failure(rawURL string, err error) core.ProbeResult {
	kind := core.ProbeErrorNetwork
	if isTimeout(err) {
		kind = core.ProbeErrorTimeout
	}

	p.logger.Debug("Probe failed",
		zap.String("url", rawURL),
		zap.String("kind", string(kind)),
		zap.Error(err))

	return core.ProbeResult{ErrorKind: kind, Detail: err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
