// transport.go
// -------------
// The real Transport: builds the absolute URL, copies headers, sends via
// net/http, and normalizes the response. Everything above it (retry,
// rate limiting, classification) is transport-agnostic so tests can swap in
// a scripted implementation.
package methodmcp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPTransport executes requests against a Method API base URL.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTransport returns a transport for the given base URL. A trailing
// slash on the base URL is tolerated.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Execute sends one request and returns the normalized response. Response
// header keys come back lower-cased.
func (t *HTTPTransport) Execute(ctx context.Context, spec *RequestSpec) (*Response, error) {
	fullURL := t.BaseURL + "/" + strings.TrimLeft(spec.Path, "/")
	if len(spec.Query) > 0 {
		fullURL += "?" + spec.Query.Encode()
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, spec.Method, fullURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range spec.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(spec.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Header))
	for k, vals := range resp.Header {
		if len(vals) > 0 {
			headers[lowerASCII(k)] = vals[0]
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Data:       data,
	}, nil
}
