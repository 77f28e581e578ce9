// mock/mock_transport.go
// -----------------------
// A scriptable Transport for tests. Responses are served from a queue, or
// synthesized by the rate-limit knobs when the queue is empty, matching the
// shapes the Method API actually produces.
package mock

import (
	"context"
	"sync"

	methodmcp "github.com/methodcrm/method-mcp"
)

// Transport implements methodmcp.Transport with scripted behavior.
type Transport struct {
	mu sync.Mutex

	// Script is consumed front to back; each entry answers one request.
	Script []Step

	// RequestsUntilRateLimit makes the transport start answering 429 after
	// that many requests; ShouldReturn429Always short-circuits everything.
	RequestsUntilRateLimit int
	ShouldReturn429Always  bool
	RetryAfter             string // Retry-After header value on synthesized 429s

	calls int
	specs []*methodmcp.RequestSpec
}

// Step is one scripted exchange: a response or a transport-level error.
type Step struct {
	Response *methodmcp.Response
	Err      error
}

// Execute serves the next scripted step, or a synthesized response.
func (m *Transport) Execute(ctx context.Context, spec *methodmcp.RequestSpec) (*methodmcp.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.specs = append(m.specs, spec)

	if len(m.Script) > 0 {
		step := m.Script[0]
		m.Script = m.Script[1:]
		return step.Response, step.Err
	}

	if m.ShouldReturn429Always || (m.RequestsUntilRateLimit > 0 && m.calls > m.RequestsUntilRateLimit) {
		headers := map[string]string{}
		if m.RetryAfter != "" {
			headers["retry-after"] = m.RetryAfter
		}
		return &methodmcp.Response{
			StatusCode: 429,
			Headers:    headers,
			Data:       []byte(`{"error":{"message":"Rate limited"}}`),
		}, nil
	}

	return &methodmcp.Response{
		StatusCode: 200,
		Headers:    map[string]string{},
		Data:       []byte(`{"success":true}`),
	}, nil
}

// Calls returns how many requests the transport has served.
func (m *Transport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Spec returns the i-th request the transport saw, or nil.
func (m *Transport) Spec(i int) *methodmcp.RequestSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.specs) {
		return nil
	}
	return m.specs[i]
}

// JSON builds a 200 step with the given body.
func JSON(body string) Step {
	return Step{Response: &methodmcp.Response{
		StatusCode: 200,
		Headers:    map[string]string{"content-type": "application/json"},
		Data:       []byte(body),
	}}
}

// Status builds a step with the given status and body.
func Status(code int, body string) Step {
	return Step{Response: &methodmcp.Response{
		StatusCode: code,
		Headers:    map[string]string{},
		Data:       []byte(body),
	}}
}

// StatusWithHeaders builds a step with explicit headers. Header keys must
// already be lower case, as the real transport normalizes them.
func StatusWithHeaders(code int, headers map[string]string, body string) Step {
	return Step{Response: &methodmcp.Response{
		StatusCode: code,
		Headers:    headers,
		Data:       []byte(body),
	}}
}

// Errs builds a transport-failure step.
func Errs(err error) Step {
	return Step{Err: err}
}
