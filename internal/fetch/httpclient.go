package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrHTTPStatus is returned when an upstream answers with a non-200 status
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrRateLimit is returned when an API reports an exhausted rate limit
	ErrRateLimit = errors.New("API rate limit exceeded")
	// ErrRequestTimeout is returned when a request times out
	ErrRequestTimeout = errors.New("request timeout")
)

// DefaultUserAgent identifies requests; crates.io rejects anonymous clients
const DefaultUserAgent = "shaft-meta (+https://github.com/shaftpkg/shaft-meta)"

// Options configures the HTTP client.
type Options struct {
	// Timeout is the timeout for each individual request
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a 5xx, 429 or transport error
	MaxRetries int
	// BaseDelay is the delay before the first retry, doubled on each further retry
	BaseDelay time.Duration
	// MaxDelay caps the retry delay
	MaxDelay time.Duration
	// RequestsPerSecond paces all requests made through the client; 0 means unlimited
	RequestsPerSecond float64
	// UserAgent is sent with every request
	UserAgent string
}

// DefaultOptions returns options with no retries and no pacing.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		BaseDelay: 1 * time.Second,
		MaxDelay:  4 * time.Second,
		UserAgent: DefaultUserAgent,
	}
}

// Client is the HTTP client shared by every fetch source.
// It is safe for concurrent use.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	// sleep waits between retries; tests replace it to record delays
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client from the given options.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	c := &Client{
		http:  &http.Client{Timeout: opts.Timeout},
		opts:  opts,
		sleep: sleepContext,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// SetHTTPClient sets a custom underlying HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.http = client
}

// SetSleepFunc replaces the function used to wait between retries.
func (c *Client) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	c.sleep = fn
}

// Options returns the client's configuration.
func (c *Client) Options() Options {
	return c.opts
}

// Do executes req, retrying transient failures up to MaxRetries times.
// The response of the final attempt is returned whatever its status.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		final := attempt >= c.opts.MaxRetries
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			if isTimeoutError(err) {
				err = fmt.Errorf("%w: %v", ErrRequestTimeout, err)
			}
			if final {
				return nil, err
			}
			continue
		}

		if final || !shouldRetry(resp.StatusCode) {
			return resp, nil
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// Get performs a GET request with the given extra headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.Do(ctx, req)
}

// Fetch performs a GET request and returns the body of a 200 response.
// Any other status fails with ErrHTTPStatus, or ErrRateLimit when the
// upstream reports an exhausted quota.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	resp, err := c.Get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, url); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	limited := resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests
	if limited && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return fmt.Errorf("%w: resets at %s", ErrRateLimit, resetTime(resp.Header.Get("X-RateLimit-Reset")))
	}
	return fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, url)
}

// resetTime renders the X-RateLimit-Reset epoch seconds, or the raw header
func resetTime(header string) string {
	secs, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return header
	}
	return time.Unix(secs, 0).Format(time.RFC3339)
}

// maxBackoffShift bounds the doubling so the delay cannot overflow
const maxBackoffShift = 30

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay
func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	shift := min(attempt-1, maxBackoffShift)
	delay := c.opts.BaseDelay << shift
	if delay < c.opts.BaseDelay || (c.opts.MaxDelay > 0 && delay > c.opts.MaxDelay) {
		delay = c.opts.MaxDelay
	}
	return delay
}

// shouldRetry reports whether a status is worth another attempt
func shouldRetry(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
