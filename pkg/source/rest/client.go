// Package rest implements [source.Source] over the lab dashboard HTTP API.
//
// Responses are cached through a [cache.Cache] keyed by method, URL and
// body. Transient failures (network errors, 5xx, 429) are retried with
// exponential backoff before surfacing as errors.ErrCodeNetwork or
// errors.ErrCodeTimeout.
//
// The API has no list endpoint for node kinds, so [Client.ListEntities]
// reconstructs material, action, analysis and measurement entities from the
// complete graph. Actors are not exposed over HTTP at all.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/labgraph/pkg/cache"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/httputil"
	"github.com/matzehuels/labgraph/pkg/observability"
)

const (
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 31 * time.Second

	// DefaultCacheTTL is how long responses stay cached.
	DefaultCacheTTL = 5 * time.Minute

	// RequestIDHeader carries a per-request id for correlating client and
	// server logs.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 4 << 10
)

// Options configures a [Client].
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:8895/api".
	BaseURL string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Cache stores responses. Nil disables caching.
	Cache cache.Cache

	// CacheTTL is the lifetime of cached responses. Zero means DefaultCacheTTL.
	CacheTTL time.Duration

	// Keyer derives cache keys. Nil means cache.NewDefaultKeyer().
	Keyer cache.Keyer

	// Refresh skips cache reads; fresh responses are still written back.
	Refresh bool

	// Headers are added to every request.
	Headers map[string]string

	// Logger receives debug records for each request. Nil means log.Default().
	Logger *log.Logger

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Attempts and RetryDelay tune retries. Zero means 3 attempts starting
	// at one second. A Retry-After header on 429 and 5xx responses
	// stretches the wait, up to 30 seconds.
	Attempts   int
	RetryDelay time.Duration
}

// Client talks to the dashboard API. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	refresh bool
	headers map[string]string
	logger  *log.Logger
	retry   httputil.Policy
}

// New validates opts and returns a client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "rest source: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "rest source: invalid base URL %q", opts.BaseURL)
	}

	c := &Client{
		base:    base,
		http:    opts.HTTPClient,
		cache:   opts.Cache,
		keyer:   opts.Keyer,
		ttl:     opts.CacheTTL,
		refresh: opts.Refresh,
		headers: opts.Headers,
		logger:  opts.Logger,
		retry:   httputil.DefaultPolicy(),
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	if c.keyer == nil {
		c.keyer = cache.NewDefaultKeyer()
	}
	if c.ttl == 0 {
		c.ttl = DefaultCacheTTL
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if opts.Attempts > 0 {
		c.retry.Attempts = opts.Attempts
	}
	if opts.RetryDelay > 0 {
		c.retry.Delay = opts.RetryDelay
	}
	logger := c.logger
	c.retry.OnRetry = func(attempt int, wait time.Duration, err error) {
		logger.Warn("retrying request", "attempt", attempt, "wait", wait, "err", err)
	}
	return c, nil
}

// Close releases the response cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = c.base.Path + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	return u.String()
}

// getJSON fetches url and decodes the response into v.
func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	data, err := c.cached(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return decode(endpoint, data, v)
}

// postJSON posts body as JSON and decodes the response into v.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode request body")
	}
	data, err := c.cached(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return err
	}
	return decode(endpoint, data, v)
}

func decode(endpoint string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode response from %s", endpoint)
	}
	return nil
}

// cached returns the raw response body, from the cache when possible.
// Only successful responses are stored.
func (c *Client) cached(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	key := c.keyer.HTTPKey(method, endpoint, body)
	if !c.refresh {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			observability.Cache().OnCacheHit(ctx, "http")
			return data, nil
		} else if err != nil {
			c.logger.Debug("cache read failed", "key", key, "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}

	var data []byte
	err := c.retry.Do(ctx, func() error {
		var err error
		data, err = c.doRequest(ctx, method, endpoint, body)
		return err
	})
	if err != nil {
		if errors.GetCode(err) == "" && stderrors.Is(err, context.DeadlineExceeded) {
			return nil, timeoutOrCanceled(err, endpoint)
		}
		return nil, err
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Debug("cache write failed", "key", key, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "http", len(data))
	}
	return data, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	host, path := req.URL.Host, req.URL.Path
	observability.HTTP().OnRequest(ctx, method, host, path)
	c.logger.Debug("request", "method", method, "url", endpoint, "id", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, method, host, path, err)
		return nil, classifyTransportError(ctx, err, endpoint)
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp, endpoint); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read response from %s", endpoint))
	}
	return data, nil
}

func classifyTransportError(ctx context.Context, err error, endpoint string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return timeoutOrCanceled(ctxErr, endpoint)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return httputil.Retryable(errors.Wrap(errors.ErrCodeTimeout, err, "request to %s timed out", endpoint))
	}
	return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "request to %s failed", endpoint))
}

func timeoutOrCanceled(ctxErr error, endpoint string) error {
	if stderrors.Is(ctxErr, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, ctxErr, "request to %s", endpoint)
	}
	return ctxErr
}

// apiError is the error body the dashboard returns with 4xx responses.
type apiError struct {
	Status string `json:"status"`
	Errors any    `json:"errors"`
}

func checkStatus(resp *http.Response, endpoint string) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s: %s", endpoint, errorMessage(resp))
	case code == http.StatusBadRequest:
		// The dashboard answers 400 for unknown and malformed ids alike.
		msg := errorMessage(resp)
		if isMissing(msg) {
			return errors.New(errors.ErrCodeNotFound, "%s", msg)
		}
		return errors.New(errors.ErrCodeInvalidInput, "%s: %s", endpoint, msg)
	case code == http.StatusTooManyRequests || code >= 500:
		wait := httputil.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return httputil.RetryAfter(errors.New(errors.ErrCodeNetwork, "%s: status %d", endpoint, code), wait)
	default:
		return errors.New(errors.ErrCodeNetwork, "%s: status %d", endpoint, code)
	}
}

func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body apiError
	if json.Unmarshal(data, &body) == nil && body.Errors != nil {
		return fmt.Sprint(body.Errors)
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}

// isMissing matches the "No <kind> found with id ..." messages.
func isMissing(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.HasPrefix(msg, "no ") && strings.Contains(msg, " found")
}
