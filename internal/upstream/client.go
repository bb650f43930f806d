// Package upstream holds the shared HTTP plumbing for every external service
// the gateway calls, and the decoder that turns their failures into a
// message and status for API callers.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/mrz1836/cashgate/internal/metrics"
)

const (
	// defaultTimeout is the default HTTP request timeout.
	defaultTimeout = 30 * time.Second

	// maxBodySize caps how much of an upstream response is read.
	maxBodySize = 16 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the logging surface used by upstream clients.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options contains optional configuration shared by upstream clients.
type Options struct {
	// BaseURL is the upstream root; paths are appended to it.
	BaseURL string

	// Timeout bounds each call when HTTPClient is not supplied.
	Timeout time.Duration

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient Doer

	// Username and Password enable basic auth.
	Username string
	Password string

	// Throttle paces outbound calls. Nil disables pacing.
	Throttle *Throttle

	// Logger receives debug and error lines.
	Logger Logger
}

// Client is a JSON-over-HTTP client for a single named upstream.
type Client struct {
	name     string
	baseURL  string
	http     Doer
	username string
	password string
	throttle *Throttle
	logger   Logger
}

// NewClient creates a client for the named upstream.
func NewClient(name string, opts *Options) *Client {
	c := &Client{
		name:   name,
		logger: nopLogger{},
	}

	if opts == nil {
		opts = &Options{}
	}

	c.baseURL = opts.BaseURL
	if c.baseURL != "" && !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	c.username = opts.Username
	c.password = opts.Password
	c.throttle = opts.Throttle

	if opts.HTTPClient != nil {
		c.http = opts.HTTPClient
	} else {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}

	if opts.Logger != nil {
		c.logger = opts.Logger
	}

	return c
}

// Name returns the upstream name used in metrics and logs.
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the upstream root with a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON issues GET baseURL+path?query and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil, out)
}

// PostJSON issues POST baseURL+path with a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", c.name, err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, payload, out)
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte, out any) error {
	if err := c.throttle.Wait(ctx, c.name); err != nil {
		return fmt.Errorf("waiting for %s: %w", c.name, err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Debug("%s %s %s", c.name, method, redact(target))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.Global.RecordUpstreamCall(c.name, time.Since(start), err)
		c.logger.Error("%s %s failed: %v", c.name, method, err)
		return fmt.Errorf("%s request: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		metrics.Global.RecordUpstreamCall(c.name, time.Since(start), err)
		return fmt.Errorf("reading %s response: %w", c.name, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := c.statusError(resp.StatusCode, data)
		metrics.Global.RecordUpstreamCall(c.name, time.Since(start), statusErr)
		return statusErr
	}
	metrics.Global.RecordUpstreamCall(c.name, time.Since(start), nil)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", c.name, err)
	}
	return nil
}

// statusError builds an *RPCError when the body is a JSON-RPC error
// envelope, an *HTTPError otherwise.
func (c *Client) statusError(status int, body []byte) error {
	var envelope struct {
		Error *RPCError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error
	}
	return &HTTPError{Upstream: c.name, Status: status, Body: body}
}

// redact strips credentials from a URL before logging it.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.User == nil {
		return target
	}
	u.User = nil
	return u.String()
}
