// Package http executes Cabinet API requests with bearer authentication and
// bounded retries of transient gateway failures.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
	"github.com/kaleido-biosciences/cabinet-client/internal/retry"
	"github.com/kaleido-biosciences/cabinet-client/pkg/cabinet"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "cabinet-client-go"

// Request is one logical API call. Path is either an absolute URL or a
// path relative to the client's base URL, including any query string.
type Request struct {
	Method  string
	Path    string
	Body    interface{}
	Headers map[string]string
}

// Response is the final response of a logical call.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Attempts   int
}

// Client executes requests through an authenticating transport, retrying
// statuses the policy marks retryable.
type Client struct {
	baseURL    string
	transport  http.RoundTripper
	policy     retry.Policy
	timeout    time.Duration
	userAgent  string
	logger     cabinet.Logger
	debug      bool
	httpClient *retryablehttp.Client
	auth       *AuthTransport
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger cabinet.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every attempt and response when a logger is set.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithTimeout bounds each individual attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithTransport replaces the underlying round tripper. Authentication is
// still layered on top of it.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// NewClient creates a client for the API rooted at baseURL. A nil tokens
// sends every request without credentials.
func NewClient(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:   cabinet.NormalizeBaseURI(baseURL),
		policy:    retry.DefaultPolicy(),
		timeout:   constants.DefaultHTTPTimeout,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = cleanhttp.DefaultPooledTransport()
	}

	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}

	c.auth = NewAuthTransport(c.baseURL, tokens, c.transport)

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Transport: c.auth, Timeout: c.timeout}
	retryClient.RetryMax = c.policy.MaxAttempts - 1
	retryClient.RetryWaitMin = c.policy.Interval
	retryClient.RetryWaitMax = c.policy.Interval
	retryClient.Backoff = c.backoff
	retryClient.CheckRetry = c.checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	if c.logger != nil && c.debug {
		retryClient.Logger = leveledLogger{logger: c.logger}
		retryClient.RequestLogHook = c.logAttempt
		retryClient.ResponseLogHook = c.logResponse
	}

	c.httpClient = retryClient

	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Policy returns the retry policy in effect.
func (c *Client) Policy() retry.Policy {
	return c.policy
}

// Do executes req. Non-2xx outcomes return both the response and an error:
// *cabinet.HTTPError when the status was not retryable, and
// *cabinet.RetriesExhaustedError when every attempt returned a retryable
// status. Transport and credential failures abort without a response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	target := c.resolve(req.Path)

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	machine := retry.NewMachine(c.policy)

	httpReq, err := retryablehttp.NewRequestWithContext(retry.WithMachine(ctx, machine), req.Method, target, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if machine.State() == retry.Aborted && machine.Err() != nil {
			return nil, machine.Err()
		}

		return nil, fmt.Errorf("%s %s: %w", req.Method, target, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
		Attempts:   machine.Attempts(),
	}

	switch machine.State() {
	case retry.Done:
		return response, nil
	case retry.Exhausted:
		c.warn("Retries exhausted", map[string]interface{}{
			"method":   req.Method,
			"url":      target,
			"attempts": response.Attempts,
			"status":   resp.StatusCode,
		})

		return response, &cabinet.RetriesExhaustedError{
			Method:     req.Method,
			URL:        target,
			Attempts:   response.Attempts,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	default:
		return response, cabinet.NewHTTPError(req.Method, target, resp.StatusCode, respBody)
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	return c.baseURL + strings.TrimPrefix(path, "/")
}

// checkRetry defers every decision to the request's retry machine.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	machine, ok := retry.MachineFromContext(ctx)
	if !ok {
		return false, err
	}

	if err != nil {
		machine.Abort(err)

		return false, nil
	}

	if ctx.Err() != nil {
		machine.Abort(ctx.Err())

		return false, ctx.Err()
	}

	if machine.Observe(resp.StatusCode) != retry.Attempting {
		return false, nil
	}

	c.warn("Retrying request", map[string]interface{}{
		"method":  resp.Request.Method,
		"url":     resp.Request.URL.String(),
		"status":  resp.StatusCode,
		"attempt": machine.Attempts(),
	})

	return true, nil
}

func (c *Client) backoff(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return c.policy.Interval
}

func (c *Client) logAttempt(_ retryablehttp.Logger, req *http.Request, attempt int) {
	c.logger.Debug("HTTP Request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"attempt": attempt + 1,
	})
}

func (c *Client) logResponse(_ retryablehttp.Logger, resp *http.Response) {
	c.logger.Debug("HTTP Response", map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	})
}

func (c *Client) warn(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		return data, nil
	}
}
