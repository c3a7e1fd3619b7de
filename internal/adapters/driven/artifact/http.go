package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure HTTPFetcher implements the interface.
var _ driven.ArtifactFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher downloads artifacts from a docs site.
type HTTPFetcher struct {
	base    *url.URL
	client  *http.Client
	limiter *RateLimiter
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithRateLimit replaces the default request throttle.
func WithRateLimit(cfg RateLimitConfig) HTTPOption {
	return func(f *HTTPFetcher) {
		f.limiter = NewRateLimiter(cfg)
	}
}

// NewHTTPFetcher creates a fetcher resolving locations against baseURL.
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) (*HTTPFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", domain.ErrInvalidInput, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url must be http(s), got %q", domain.ErrInvalidInput, baseURL)
	}

	f := &HTTPFetcher{
		base:    base,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: NewRateLimiter(DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Resolve returns the URL of location. Relative locations resolve against
// the base URL's path; root-relative ones against its host.
func (f *HTTPFetcher) Resolve(location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: location %q: %v", domain.ErrInvalidInput, location, err)
	}
	return f.base.ResolveReference(ref), nil
}

// Open requests the artifact at location. The size is the response's
// Content-Length, or -1 when the server does not send one.
func (f *HTTPFetcher) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	target, err := f.Resolve(location)
	if err != nil {
		return nil, 0, err
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", target, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		logger.Debug("artifact: GET %s (%d bytes)", target, resp.ContentLength)
		return resp.Body, resp.ContentLength, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("%s: %w", target, domain.ErrArtifactNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		_ = resp.Body.Close()
		f.limiter.RecordRetryAfter(retryAfter(resp.Header.Get("Retry-After")))
		return nil, 0, fmt.Errorf("fetch %s: rate limited", target)
	default:
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("fetch %s: unexpected status %s", target, resp.Status)
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
