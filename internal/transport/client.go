// Package transport issues JSON requests against the backend under test and
// exposes typed helpers over the raw response body.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"diagflow/internal/platform/metrics"
	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/platform/sentinel"
)

// AuthMode selects how the session token is attached to a request.
type AuthMode int

const (
	AuthNone AuthMode = iota
	// AuthBearer sends "Authorization: Bearer <token>".
	AuthBearer
	// AuthRaw sends the token as the entire Authorization header value.
	AuthRaw
)

func (m AuthMode) String() string {
	switch m {
	case AuthBearer:
		return "bearer"
	case AuthRaw:
		return "raw"
	default:
		return "none"
	}
}

// Request describes one backend call.
type Request struct {
	// Name labels the endpoint in logs and metrics. Defaults to Path.
	Name   string
	Method string
	// BaseURL overrides the client's base URL for hosts such as the brand service.
	BaseURL string
	Path    string
	Auth    AuthMode
	Token   string
	Body    any
}

func (r Request) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Path
}

// Doer executes backend calls. Flow steps depend on this rather than *Client.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Client is the HTTP implementation of Doer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	retryMax   uint64
	retryDelay time.Duration
	breaker    *breaker
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRetry retries network failures and 5xx responses up to max extra
// attempts with a constant delay. Zero disables retrying.
func WithRetry(max uint64, delay time.Duration) Option {
	return func(c *Client) {
		c.retryMax = max
		c.retryDelay = delay
	}
}

// WithCircuitBreaker fails calls fast once threshold consecutive calls could
// not reach the backend, until cooldown has passed.
func WithCircuitBreaker(threshold int, cooldown time.Duration) Option {
	return func(c *Client) {
		c.breaker = newBreaker(threshold, cooldown)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var errRetryableStatus = errors.New("retryable status")

// Do sends the request. A non-nil error means no usable response was
// obtained; status checks are left to the caller via Response.Expect.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Auth != AuthNone && req.Token == "" {
		return nil, dErrors.Newf(dErrors.CodeContextMissing, "%s %s requires a session token", req.Method, req.Path)
	}

	base := c.baseURL
	if req.BaseURL != "" {
		base = req.BaseURL
	}
	target, err := url.JoinPath(base, req.Path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "build request url")
	}

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "encode request body")
		}
	}

	if c.breaker != nil && !c.breaker.allow() {
		return nil, dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeInternal,
			req.Method+" "+req.Path+": circuit open")
	}

	var last *Response
	attempt := 0
	op := func() (*Response, error) {
		attempt++
		if attempt > 1 && c.metrics != nil {
			c.metrics.IncrementRetries(req.label())
		}
		resp, err := c.send(ctx, req, target, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		last = resp
		if resp.Status >= http.StatusInternalServerError {
			return nil, errRetryableStatus
		}
		return resp, nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), c.retryMax), ctx)
	resp, err := backoff.RetryNotifyWithData(op, b, func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "retrying backend call",
			"endpoint", req.label(),
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		if errors.Is(err, errRetryableStatus) && last != nil {
			c.recordReachable()
			return last, nil
		}
		if ctx.Err() == nil {
			c.recordUnreachable(ctx, req)
		}
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err),
			dErrors.CodeInternal, req.Method+" "+req.Path)
	}
	c.recordReachable()
	return resp, nil
}

func (c *Client) recordReachable() {
	if c.breaker != nil {
		c.breaker.success()
	}
}

func (c *Client) recordUnreachable(ctx context.Context, req Request) {
	if c.breaker == nil {
		return
	}
	if c.breaker.failure() {
		c.logger.WarnContext(ctx, "backend unreachable, circuit opened",
			"endpoint", req.label(),
			"cooldown", c.breaker.cooldown,
		)
	}
}

func (c *Client) send(ctx context.Context, req Request, target string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	switch req.Auth {
	case AuthBearer:
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	case AuthRaw:
		httpReq.Header.Set("Authorization", req.Token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req, "error", start)
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.observe(req, "error", start)
		return nil, err
	}
	c.observe(req, strconv.Itoa(httpResp.StatusCode), start)

	c.logger.DebugContext(ctx, "backend call",
		"endpoint", req.label(),
		"method", req.Method,
		"auth", req.Auth.String(),
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	return &Response{
		Method: req.Method,
		Path:   req.Path,
		Status: httpResp.StatusCode,
		Body:   raw,
	}, nil
}

func (c *Client) observe(req Request, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveRequest(req.label(), status, time.Since(start).Seconds())
}
