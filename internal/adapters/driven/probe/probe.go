// Package probe implements the listing availability probe over HTTP.
package probe

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Verify interface compliance at compile time.
var _ driven.StatusProbe = (*HTTPProbe)(nil)

// connection pooling limits for probing a single host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// DefaultUserAgent identifies probes to the listing host.
const DefaultUserAgent = "appwatch/1.0"

// Config configures an HTTPProbe.
type Config struct {
	// Timeout bounds each probe. Zero selects domain.DefaultProbeTimeout.
	Timeout time.Duration

	// RequestsPerSecond paces probes. Zero or less disables pacing.
	RequestsPerSecond float64

	// UserAgent is sent with every probe. Empty selects DefaultUserAgent.
	UserAgent string
}

// maxRedirects bounds the same-host redirect chain a probe follows.
const maxRedirects = 5

// HTTPProbe checks whether a listing page exists with a single HEAD request.
//
// Timeouts are applied per request via context, not as a client-wide
// timeout. Nothing is cached. Redirects are followed only while they stay on
// the listing host; a 3xx pointing elsewhere is itself taken as proof the
// listing exists.
type HTTPProbe struct {
	client    *http.Client
	timeout   time.Duration
	limiter   *pacer
	userAgent string
}

// New creates an HTTPProbe.
func New(cfg Config) *HTTPProbe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultProbeTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPProbe{
		client: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
			CheckRedirect: sameHostRedirects,
		},
		timeout:   timeout,
		limiter:   newPacer(cfg.RequestsPerSecond),
		userAgent: userAgent,
	}
}

// Probe classifies the listing at url. It never returns an error: transport
// failures, timeouts and unexpected status codes are all unavailable.
//
// ctx only bounds the wait for a pacing slot. Once the request is sent it
// runs to completion or to the probe timeout, whichever comes first.
func (p *HTTPProbe) Probe(ctx context.Context, url string) domain.ProbeOutcome {
	if err := p.limiter.Wait(ctx); err != nil {
		logger.Debug("probe %s: pacing: %v", url, err)
		return domain.OutcomeUnavailable
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		logger.Debug("probe %s: failed to create request: %v", url, err)
		return domain.OutcomeUnavailable
	}
	req.Header.Set("Cache-Control", "no-cache, no-store, max-age=0")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Debug("probe %s: timed out after %s", url, time.Since(start))
		} else {
			logger.Debug("probe %s: request failed: %v", url, err)
		}
		return domain.OutcomeUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		logger.Warn("probe %s: rate limited by host, pausing probes", url)
		p.limiter.Backoff(retryAfter)
	}

	outcome := Classify(resp.StatusCode)
	logger.Debug("probe %s: HTTP %d -> %s (%s)", url, resp.StatusCode, outcome, time.Since(start))
	return outcome
}

// sameHostRedirects follows redirects that stay on the original host and
// stops at the first one that leaves it, returning that 3xx as the answer.
func sameHostRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects || req.URL.Host != via[0].URL.Host {
		return http.ErrUseLastResponse
	}
	return nil
}

// Close releases idle connections.
func (p *HTTPProbe) Close() {
	if p == nil || p.client == nil {
		return
	}
	if transport, ok := p.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// Classify maps an HTTP status code to a probe outcome.
func Classify(statusCode int) domain.ProbeOutcome {
	switch {
	case statusCode >= 200 && statusCode < 400:
		return domain.OutcomeLive
	case statusCode == http.StatusNotFound:
		return domain.OutcomeRemoved
	default:
		return domain.OutcomeUnavailable
	}
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
