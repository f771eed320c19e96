package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 10 << 20

// Client implements ports.Gateway over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	onCall  func(context.Context, *domain.GatewayEvent)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. A zero limit disables limiting.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCallHook reports every round trip, e.g. to metrics.
func WithCallHook(fn func(context.Context, *domain.GatewayEvent)) Option {
	return func(c *Client) {
		c.onCall = fn
	}
}

// New creates a Client for the API rooted at baseURL (e.g. "https://host/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the request. TFA challenges are returned as regular responses
// whatever their status code; any other non-2xx reply is a *domain.TransportError.
func (c *Client) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportError{StatusText: "rate limited", Err: err}
		}
	}

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpRes, err := c.http.Do(httpReq)
	if err != nil {
		c.report(ctx, req, 0, time.Since(start), true)
		c.logger.Warn("gateway call failed", "method", httpReq.Method, "path", req.Path, "error", err)
		return nil, &domain.TransportError{StatusText: "network error", Err: err}
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes))
	if err != nil {
		c.report(ctx, req, httpRes.StatusCode, time.Since(start), true)
		return nil, &domain.TransportError{StatusCode: httpRes.StatusCode, StatusText: "failed to read response", Err: err}
	}

	res := &ports.Response{StatusCode: httpRes.StatusCode, Body: body}
	ok := httpRes.StatusCode >= 200 && httpRes.StatusCode < 300
	c.report(ctx, req, httpRes.StatusCode, time.Since(start), !ok)
	c.logger.Debug("gateway call", "method", httpReq.Method, "path", req.Path, "status", httpRes.StatusCode)

	if ok || res.Challenged() {
		return res, nil
	}
	return nil, &domain.TransportError{
		StatusCode:    httpRes.StatusCode,
		StatusText:    http.StatusText(httpRes.StatusCode),
		ServerMessage: res.Message(),
	}
}

func (c *Client) build(ctx context.Context, req ports.Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", req.Token)
	}
	return httpReq, nil
}

func (c *Client) report(ctx context.Context, req ports.Request, status int, d time.Duration, isErr bool) {
	if c.onCall == nil {
		return
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	c.onCall(ctx, &domain.GatewayEvent{
		Timestamp:  time.Now(),
		Method:     method,
		Endpoint:   req.Path,
		StatusCode: status,
		Duration:   d,
		IsError:    isErr,
	})
}
