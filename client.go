// client.go
// ----------
// The client.go file contains the core Client struct and its methods. This
// is the main entry point of the package for users.
//
// Key functionalities include:
// - Initializing the client with NewClient()
// - Making requests via Do() and the method shorthands Get/Post/Patch/Put/Delete
// - Driving multi-page listings via Paginate()
//
// The Client relies on a RateLimitState and a RequestExecutor to handle
// rate limiting and retries, ensuring consistent behavior across all tools
// that share it.
package methodmcp

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production Method REST endpoint.
const DefaultBaseURL = "https://rest.method.me/api/v1"

// Client is the resilient access layer over the Method CRM REST API. One
// client (and its rate limit state) is shared by every tool handler in the
// process.
type Client struct {
	baseURL  string
	creds    CredentialProvider
	limits   *RateLimitState
	executor *RequestExecutor
	logger   *zap.Logger
}

// Option customizes a Client at construction time.
type Option func(*options)

type options struct {
	transport Transport
	policy    RetryPolicy
	timeout   time.Duration
	perMinute int
	logger    *zap.Logger
}

// WithTransport replaces the HTTP transport; tests use this to inject a
// scripted one.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRequestsPerMinute overrides the minute-window budget.
func WithRequestsPerMinute(n int) Option {
	return func(o *options) { o.perMinute = n }
}

// WithLogger attaches a logger; logs are debug-level except for failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewClient builds a client for the given base URL and credentials. It
// fails with a ConfigurationError when either is missing.
func NewClient(baseURL string, creds CredentialProvider, opts ...Option) (*Client, *Failure) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, &Failure{
			Kind:       ErrConfiguration,
			Message:    "API base URL is not configured",
			Suggestion: "Set METHOD_API_BASE_URL (default: " + DefaultBaseURL + ").",
		}
	}
	if creds == nil {
		return nil, &Failure{
			Kind:       ErrConfiguration,
			Message:    "no authentication credentials configured",
			Suggestion: "Set METHOD_API_KEY, or METHOD_CLIENT_ID and METHOD_CLIENT_SECRET for OAuth2.",
		}
	}

	o := options{policy: DefaultRetryPolicy(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.transport == nil {
		o.transport = NewHTTPTransport(baseURL, o.timeout)
	}

	limits := NewRateLimitState(o.perMinute)
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		creds:    creds,
		limits:   limits,
		executor: NewRequestExecutor(o.transport, creds, limits, o.policy, o.logger),
		logger:   o.logger,
	}, nil
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RateLimits exposes the shared rate limit state, mainly for diagnostics.
func (c *Client) RateLimits() *RateLimitState {
	return c.limits
}

// Do executes one logical operation end to end: rate-limit wait, retries,
// and classification collapse into a single OperationResult.
func (c *Client) Do(ctx context.Context, spec *RequestSpec) OperationResult {
	return c.do(ctx, spec, Classify)
}

// DoRaw is Do for endpoints whose success body is not JSON (binary file
// downloads, quoted-string URL responses). The payload stays in Raw.
func (c *Client) DoRaw(ctx context.Context, spec *RequestSpec) OperationResult {
	return c.do(ctx, spec, ClassifyRaw)
}

func (c *Client) do(ctx context.Context, spec *RequestSpec, classify func(*Response) OperationResult) OperationResult {
	opID := uuid.NewString()
	c.logger.Debug("operation start",
		zap.String("op_id", opID),
		zap.String("method", spec.Method),
		zap.String("path", spec.Path),
		zap.String("scheme", c.creds.Scheme()))

	resp, failure := c.executor.Execute(ctx, spec)
	if failure != nil {
		c.logger.Debug("operation failed before classification",
			zap.String("op_id", opID),
			zap.String("kind", string(failure.Kind)),
			zap.String("message", failure.Message))
		return FailErr(failure)
	}

	result := classify(resp)
	if !result.Ok() {
		c.logger.Debug("operation failed",
			zap.String("op_id", opID),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(result.Err.Kind)))
	} else {
		c.logger.Debug("operation succeeded",
			zap.String("op_id", opID),
			zap.Int("status", resp.StatusCode))
	}
	return result
}

// Get issues a GET against the given relative path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) OperationResult {
	return c.Do(ctx, &RequestSpec{Method: "GET", Path: path, Query: query})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body []byte) OperationResult {
	return c.Do(ctx, &RequestSpec{Method: "POST", Path: path, Body: body})
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body []byte) OperationResult {
	return c.Do(ctx, &RequestSpec{Method: "PATCH", Path: path, Body: body})
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body []byte) OperationResult {
	return c.Do(ctx, &RequestSpec{Method: "PUT", Path: path, Body: body})
}

// Delete issues a DELETE against the given relative path.
func (c *Client) Delete(ctx context.Context, path string) OperationResult {
	return c.Do(ctx, &RequestSpec{Method: "DELETE", Path: path})
}
