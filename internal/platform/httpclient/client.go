// Package httpclient provides an instrumented HTTP client with bounded
// retries, used for outbound calls such as alert delivery.
package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"time"
)

// Client wraps http.Client with logging and retries. Its Do method satisfies
// the single-method client interfaces of outbound SDKs.
type Client struct {
	hc          *stdhttp.Client
	log         *slog.Logger
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets the logger used by the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries enables retries with exponential backoff.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.baseBackoff = backoff
		}
	}
}

// WithMaxBackoff limits backoff growth.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) { c.maxBackoff = d }
}

// WithTransport sets a custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// New creates a configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConnsPerHost = 16
	tr.IdleConnTimeout = 90 * time.Second

	c := &Client{
		hc:          &stdhttp.Client{Timeout: 15 * time.Second, Transport: tr},
		log:         slog.Default(),
		baseBackoff: 200 * time.Millisecond,
		maxBackoff:  5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends the request, retrying transient failures when the request body is
// replayable. The response body of a discarded attempt is drained so the
// connection can be reused.
func (c *Client) Do(req *stdhttp.Request) (*stdhttp.Response, error) {
	ctx := req.Context()
	backoff := c.baseBackoff

	var resp *stdhttp.Response
	var err error
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err = c.hc.Do(req)
		elapsed := time.Since(start)

		delay, retryable := retryInfo(resp, err)
		if !retryable || attempt >= c.retries || !replayable(req) {
			if err != nil {
				c.log.Warn("http request failed",
					slog.String("url", req.URL.Redacted()),
					slog.Duration("elapsed", elapsed),
					slog.Any("err", err))
			}
			return resp, err
		}

		if delay <= 0 {
			delay = backoff
			backoff *= 2
			if c.maxBackoff > 0 && backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}
		c.log.Debug("retrying http request",
			slog.String("url", req.URL.Redacted()),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		if req.Body != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			req.Body = body
		}
	}
}

func replayable(req *stdhttp.Request) bool {
	return req.Body == nil || req.GetBody != nil
}

// retryInfo reports whether the attempt should be retried and an optional
// server-mandated delay.
func retryInfo(resp *stdhttp.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, isRetryableError(err)
	}
	switch {
	case resp.StatusCode == 429 || resp.StatusCode == 503:
		delay := retryAfter(resp.Header.Get("Retry-After"))
		drainAndClose(resp.Body)
		return delay, true
	case resp.StatusCode >= 500 || resp.StatusCode == 408:
		drainAndClose(resp.Body)
		return 0, true
	default:
		return 0, false
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		if ne, ok := ue.Err.(net.Error); ok && ne.Timeout() {
			return true
		}
		var dnsErr *net.DNSError
		if errors.As(ue.Err, &dnsErr) && dnsErr.IsTemporary {
			return true
		}
		var oe *net.OpError
		if errors.As(ue.Err, &oe) {
			return true
		}
	}
	return false
}

// retryAfter parses a Retry-After header value, either seconds or a date.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}
