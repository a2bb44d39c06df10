package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"order-gateway/internal/logger"
	"order-gateway/internal/types"
)

// Client is the HTTP client shared by the REST broker adapters.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	useLogging bool
}

func (c *Client) logDebug(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.DebugSkip(ctx, 1, msg, args...)
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.WarnSkip(ctx, 1, msg, args...)
	}
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBaseURL sets the base URL for all requests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHTTPClient replaces the underlying *http.Client. The configured
// timeout is kept unless the given client sets its own.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if hc.Timeout == 0 {
			hc.Timeout = c.httpClient.Timeout
		}
		c.httpClient = hc
	}
}

// WithLogging enables request/response logging
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request represents an HTTP request configuration
type Request struct {
	Method  string
	URL     string
	Body    any
	Headers map[string]string
	ctx     context.Context
}

// Response is a completed HTTP exchange. Error statuses are returned as
// responses, not errors, so callers can pass the broker's code through.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// NewRequest creates a new request
func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

// WithContext sets the context for the request
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// WithBody sets the request body (will be JSON encoded)
func (r *Request) WithBody(body any) *Request {
	r.Body = body
	return r
}

// WithHeaders sets several request-specific headers
func (r *Request) WithHeaders(h map[string]string) *Request {
	for k, v := range h {
		r.Headers[k] = v
	}
	return r
}

// Do executes the request once. Only failures to reach the server or read
// its answer are returned as errors, typed as transport failures.
func (c *Client) Do(req *Request) (*Response, error) {
	op := req.Method + " " + req.URL
	url := c.baseURL + req.URL

	var (
		bodyReader io.Reader
		jsonBody   []byte
	)
	if req.Body != nil {
		var err error
		jsonBody, err = json.Marshal(req.Body)
		if err != nil {
			return nil, types.InputError(op, err, fmt.Sprintf("failed to marshal request body: %v", err))
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(req.ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, types.TransportError(op, fmt.Errorf("failed to create HTTP request: %w", err))
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if logger.IsDebugEnabled() && jsonBody != nil {
		c.logDebug(req.ctx, "HTTP Request", "method", req.Method, "url", url, "body", string(jsonBody))
	} else {
		c.logDebug(req.ctx, "HTTP Request", "method", req.Method, "url", url)
	}

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logWarn(req.ctx, "HTTP request failed", "method", req.Method, "url", url, "error", err)
		return nil, types.TransportError(op, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, types.TransportError(op, fmt.Errorf("failed to read response body: %w", err))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}

	c.logDebug(req.ctx, "HTTP Response",
		"method", req.Method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(startTime),
		"bodySize", len(body))

	if !resp.OK() {
		c.logWarn(req.ctx, "HTTP error response",
			"method", req.Method,
			"url", url,
			"status", resp.StatusCode,
			"body", resp.String())
	}
	return resp, nil
}

// GET performs a GET request
func (c *Client) GET(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(NewRequest(http.MethodGet, url).WithContext(ctx).WithHeaders(headers))
}

// POST performs a POST request
func (c *Client) POST(ctx context.Context, url string, body any, headers map[string]string) (*Response, error) {
	return c.Do(NewRequest(http.MethodPost, url).WithContext(ctx).WithBody(body).WithHeaders(headers))
}

// PUT performs a PUT request
func (c *Client) PUT(ctx context.Context, url string, body any, headers map[string]string) (*Response, error) {
	return c.Do(NewRequest(http.MethodPut, url).WithContext(ctx).WithBody(body).WithHeaders(headers))
}

// DELETE performs a DELETE request
func (c *Client) DELETE(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(NewRequest(http.MethodDelete, url).WithContext(ctx).WithHeaders(headers))
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ParseJSON decodes the body into v. A body that is not JSON is reported as
// a malformed broker payload.
func (r *Response) ParseJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &types.Error{
			Kind:    types.KindBroker,
			Code:    r.StatusCode,
			Message: fmt.Sprintf("failed to parse JSON response: %v", err),
			Err:     types.ErrMalformedPayload,
		}
	}
	return nil
}

// String returns the response body as a string
func (r *Response) String() string {
	return string(r.Body)
}
