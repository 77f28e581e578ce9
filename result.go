// result.go
// ----------
// The two-variant outcome type returned for every logical operation. One or
// many HTTP attempts collapse into exactly one OperationResult; a Failure is
// returned as a value, never thrown across the client boundary.
package methodmcp

import "fmt"

// ErrorKind is the fixed taxonomy of failure categories. Every failure the
// client produces carries one of these.
type ErrorKind string

const (
	ErrAuthenticationFailed ErrorKind = "AuthenticationFailed"
	ErrPermissionDenied     ErrorKind = "PermissionDenied"
	ErrNotFound             ErrorKind = "NotFound"
	ErrValidation           ErrorKind = "ValidationError"
	ErrRateLimitExceeded    ErrorKind = "RateLimitExceeded"
	ErrTransientFailure     ErrorKind = "TransientFailure"
	ErrMalformedResponse    ErrorKind = "MalformedResponse"
	ErrConfiguration        ErrorKind = "ConfigurationError"
)

// Failure is the error variant of an OperationResult. Message describes what
// went wrong; Suggestion tells the caller what to do about it.
type Failure struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`

	// RetryAfterSecs is set for rate-limit failures when the server told us
	// how long to wait.
	RetryAfterSecs int `json:"retry_after_secs,omitempty"`

	// StatusCode is the HTTP status that produced the failure, 0 for
	// local failures (validation, configuration, transport).
	StatusCode int `json:"status_code,omitempty"`
}

func (f *Failure) Error() string {
	if f.Suggestion != "" {
		return fmt.Sprintf("%s: %s\nSuggestion: %s", f.Kind, f.Message, f.Suggestion)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Retryable reports whether the executor may retry this failure locally.
func (f *Failure) Retryable() bool {
	return f.Kind == ErrRateLimitExceeded || f.Kind == ErrTransientFailure
}

// Pagination is the continuation metadata attached to list results.
// Total is nil when the API does not report an overall count.
type Pagination struct {
	Total      *int `json:"total"`
	Count      int  `json:"count"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	HasMore    bool `json:"has_more"`
	NextOffset *int `json:"next_offset"`
}

// OperationResult is a tagged union: exactly one of Payload (with Err nil)
// or Err is meaningful. Raw keeps the undecoded body for callers that need
// it (binary downloads, verbatim re-rendering).
type OperationResult struct {
	Payload any
	Raw     []byte
	Page    *Pagination
	Err     *Failure

	// Headers is populated for raw (non-JSON) operations where response
	// metadata such as Content-Type matters to the caller.
	Headers map[string]string
}

// Ok reports whether the result is the success variant.
func (r OperationResult) Ok() bool {
	return r.Err == nil
}

// Succeed builds a success result.
func Succeed(payload any, raw []byte) OperationResult {
	return OperationResult{Payload: payload, Raw: raw}
}

// Fail builds a failure result.
func Fail(kind ErrorKind, message, suggestion string) OperationResult {
	return OperationResult{Err: &Failure{Kind: kind, Message: message, Suggestion: suggestion}}
}

// FailErr wraps an already-built Failure.
func FailErr(f *Failure) OperationResult {
	return OperationResult{Err: f}
}
