// classifier.go
// --------------
// Converts a raw HTTP response into an OperationResult. Status ranges and
// body-embedded error codes map onto the fixed error taxonomy, and every
// failure carries an actionable suggestion so an agent knows what to do
// next. A success body that fails to decode is itself a failure
// (MalformedResponse); no parse error ever escapes raw.
package methodmcp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/methodcrm/method-mcp/internal"
)

// Classify maps a response to a result, decoding 2xx bodies as JSON.
func Classify(resp *Response) OperationResult {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return classifySuccess(resp)
	}
	return FailErr(classifyError(resp))
}

// ClassifyRaw is Classify for endpoints that return non-JSON bodies
// (file downloads, quoted-string URLs). 2xx payloads stay as raw bytes.
func ClassifyRaw(resp *Response) OperationResult {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result := Succeed(nil, resp.Data)
		result.Headers = resp.Headers
		return result
	}
	return FailErr(classifyError(resp))
}

func classifySuccess(resp *Response) OperationResult {
	// 204 No Content: the operation worked and there is nothing to decode.
	if resp.StatusCode == 204 || len(resp.Data) == 0 {
		return Succeed(map[string]any{}, nil)
	}

	var payload any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return FailErr(&Failure{
			Kind:       ErrMalformedResponse,
			Message:    fmt.Sprintf("Method API returned status %d but the body is not valid JSON: %v", resp.StatusCode, err),
			Suggestion: "This is likely a transient API problem; retry the request. Report it if it persists.",
			StatusCode: resp.StatusCode,
		})
	}
	return Succeed(payload, resp.Data)
}

func classifyError(resp *Response) *Failure {
	detail := apiErrorMessage(resp.Data)

	switch {
	case resp.StatusCode == 400 || resp.StatusCode == 422:
		return &Failure{
			Kind:       ErrValidation,
			Message:    withDetail("validation failed", detail),
			Suggestion: "Check that all required fields are provided and have valid values; review the Method API parameter requirements.",
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == 401:
		return &Failure{
			Kind:       ErrAuthenticationFailed,
			Message:    "authentication failed: the API key or access token is invalid or expired",
			Suggestion: "Check that METHOD_API_KEY is correctly set. If using OAuth2, refresh the expired token.",
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == 403:
		return &Failure{
			Kind:       ErrPermissionDenied,
			Message:    withDetail("permission denied", detail),
			Suggestion: "The account lacks permission for this operation. Check your role (e.g. Admin for API key management) and that the resource belongs to your account.",
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == 404:
		return &Failure{
			Kind:       ErrNotFound,
			Message:    withDetail("resource not found", detail),
			Suggestion: "Verify the table name, record ID, or file ID. Use the list/query tools to find the correct identifier.",
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == 429:
		f := &Failure{
			Kind:       ErrRateLimitExceeded,
			Message:    "rate limit exceeded (100 requests/minute or daily limit reached)",
			Suggestion: "Wait before making more requests. Method limits: 100 req/min per account, 5,000-25,000 daily depending on licenses.",
			StatusCode: resp.StatusCode,
		}
		if d := internal.ParseRetryAfter(resp.Header("Retry-After"), time.Now()); d > 0 {
			f.RetryAfterSecs = internal.Seconds(d)
			f.Suggestion = fmt.Sprintf("Wait %d seconds before making more requests.", f.RetryAfterSecs)
		}
		return f
	case resp.StatusCode == 503:
		return &Failure{
			Kind:       ErrTransientFailure,
			Message:    "Method API service temporarily unavailable",
			Suggestion: "The API is under maintenance or high load. Wait a few minutes and retry.",
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &Failure{
			Kind:       ErrTransientFailure,
			Message:    withDetail(fmt.Sprintf("Method API server error (%d)", resp.StatusCode), detail),
			Suggestion: "This is a temporary server issue. Wait a moment and retry; check the Method status page if it persists.",
			StatusCode: resp.StatusCode,
		}
	default:
		return &Failure{
			Kind:       ErrValidation,
			Message:    withDetail(fmt.Sprintf("API request failed with status %d", resp.StatusCode), detail),
			Suggestion: "Check your input parameters and try again.",
			StatusCode: resp.StatusCode,
		}
	}
}

// apiErrorMessage digs the human message out of a Method error body, which
// comes as {"error":{"message":...}} or occasionally {"message":...}.
func apiErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return envelope.Message
}

func withDetail(msg, detail string) string {
	if detail == "" {
		return msg
	}
	return msg + ": " + detail
}
