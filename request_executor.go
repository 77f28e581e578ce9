// request_executor.go
// --------------------
// The RequestExecutor issues one HTTP request with bounded automatic retry,
// exponential backoff, and rate-limit honoring. The retry loop is an
// explicit state machine (attempting -> waiting -> attempting -> exhausted
// or succeeded) so the control flow reads the same whether the caller is a
// blocking tool handler or something driven by an event loop.
//
// Status handling:
//   - transport error, 429, 5xx: eligible for retry under the policy
//   - 401/403: capability failures, never retried
//   - 404 and other 4xx: terminal for this request
//
// A Retry-After header seen on 429/5xx is stored in the shared
// RateLimitState so concurrent operations also stop sending doomed
// requests.
package methodmcp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/methodcrm/method-mcp/internal"
)

type executorState int

const (
	stateAttempting executorState = iota
	stateWaiting
	stateSucceeded
	stateExhausted
)

// RequestExecutor drives the attempt/wait loop for one logical request at a
// time. It holds no per-request state, so a single executor is shared by
// all operations of a client.
type RequestExecutor struct {
	transport Transport
	creds     CredentialProvider
	limits    *RateLimitState
	policy    RetryPolicy
	logger    *zap.Logger

	clock func() time.Time // test hook
}

// NewRequestExecutor wires an executor to its transport, credentials, and
// the shared rate limit state.
func NewRequestExecutor(transport Transport, creds CredentialProvider, limits *RateLimitState, policy RetryPolicy, logger *zap.Logger) *RequestExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestExecutor{
		transport: transport,
		creds:     creds,
		limits:    limits,
		policy:    policy.withDefaults(),
		logger:    logger,
		clock:     time.Now,
	}
}

// Execute runs the request to completion: a raw response the classifier can
// inspect, or a Failure when the attempts were exhausted or the request
// could never be sent. Non-retryable HTTP statuses come back as responses,
// not failures; mapping them is the classifier's job.
func (re *RequestExecutor) Execute(ctx context.Context, spec *RequestSpec) (*Response, *Failure) {
	headers, err := re.creds.Headers()
	if err != nil {
		return nil, &Failure{
			Kind:       ErrConfiguration,
			Message:    fmt.Sprintf("authentication is not configured: %v", err),
			Suggestion: "Set METHOD_API_KEY (or METHOD_CLIENT_ID and METHOD_CLIENT_SECRET) in the environment and restart.",
		}
	}

	attempt := 0
	var lastRetryAfter time.Duration
	var lastFailure *Failure
	state := stateAttempting

	for {
		switch state {
		case stateAttempting:
			// Honor the shared budget before sending a doomed request.
			// This is the only voluntary suspension point besides the
			// network I/O itself.
			if delay := re.limits.Delay(); delay > 0 {
				re.logger.Debug("rate limit wait before send",
					zap.Duration("delay", delay),
					zap.String("path", spec.Path))
				if f := re.sleep(ctx, delay); f != nil {
					return nil, f
				}
			}

			attempt++
			sendSpec := withAuthHeaders(spec, headers)
			re.limits.RecordSend()
			resp, err := re.transport.Execute(ctx, sendSpec)
			if err != nil {
				if ctx.Err() != nil {
					return nil, cancelled(ctx)
				}
				re.logger.Debug("transport failure",
					zap.Int("attempt", attempt),
					zap.String("path", spec.Path),
					zap.Error(err))
				lastFailure = &Failure{
					Kind:       ErrTransientFailure,
					Message:    fmt.Sprintf("request to Method API failed: %v", err),
					Suggestion: "Check your network connection and that METHOD_API_BASE_URL is correct, then try again.",
				}
				state = re.nextState(attempt)
				continue
			}

			if resp.StatusCode == 429 || resp.StatusCode >= 500 {
				retryAfter := internal.ParseRetryAfter(resp.Header("Retry-After"), re.clock())
				if retryAfter > 0 {
					lastRetryAfter = retryAfter
					re.limits.SetRetryAfter(retryAfter)
				}
				re.logger.Debug("retryable status",
					zap.Int("attempt", attempt),
					zap.Int("status", resp.StatusCode),
					zap.Duration("retry_after", retryAfter))
				lastFailure = exhaustionFailure(resp.StatusCode, lastRetryAfter, re.policy.MaxAttempts)
				state = re.nextState(attempt)
				continue
			}

			// Success or a terminal client error; either way the loop is
			// done and the classifier takes over.
			if attempt > 1 {
				re.logger.Debug("request succeeded after retries",
					zap.Int("attempts", attempt),
					zap.String("path", spec.Path))
			}
			return resp, nil

		case stateWaiting:
			delay := re.policy.Delay(attempt + 1)
			if lastRetryAfter > delay {
				delay = lastRetryAfter
			}
			re.logger.Debug("backing off before retry",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			if f := re.sleep(ctx, delay); f != nil {
				return nil, f
			}
			lastRetryAfter = 0
			state = stateAttempting

		case stateExhausted:
			return nil, lastFailure
		}
	}
}

// nextState decides whether an eligible failure gets another attempt.
func (re *RequestExecutor) nextState(attempt int) executorState {
	if attempt < re.policy.MaxAttempts {
		return stateWaiting
	}
	return stateExhausted
}

// sleep waits for d or until the context is cancelled. Abandoning the wait
// is safe: RateLimitState writes are single-field and idempotent.
func (re *RequestExecutor) sleep(ctx context.Context, d time.Duration) *Failure {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return cancelled(ctx)
	case <-t.C:
		return nil
	}
}

func cancelled(ctx context.Context) *Failure {
	msg := "operation was cancelled"
	if ctx.Err() == context.DeadlineExceeded {
		msg = "operation timed out"
	}
	return &Failure{
		Kind:       ErrTransientFailure,
		Message:    msg,
		Suggestion: "Retry the operation, or raise its timeout if it keeps expiring.",
	}
}

// exhaustionFailure builds the failure reported when retries run out on a
// 429 or 5xx.
func exhaustionFailure(status int, retryAfter time.Duration, attempts int) *Failure {
	if status == 429 {
		f := &Failure{
			Kind:       ErrRateLimitExceeded,
			Message:    fmt.Sprintf("rate limit exceeded after %d attempts (Method allows 100 requests/minute per account)", attempts),
			Suggestion: "Wait before making more requests. Method limits: 100 req/min, 5,000-25,000 daily depending on licenses.",
			StatusCode: status,
		}
		if retryAfter > 0 {
			f.RetryAfterSecs = internal.Seconds(retryAfter)
			f.Suggestion = fmt.Sprintf("Wait %d seconds before making more requests.", f.RetryAfterSecs)
		}
		return f
	}
	f := &Failure{
		Kind:       ErrTransientFailure,
		Message:    fmt.Sprintf("Method API returned %d after %d attempts", status, attempts),
		Suggestion: "This is a temporary server issue. Wait a moment and retry; check the Method status page if it persists.",
		StatusCode: status,
	}
	if retryAfter > 0 {
		f.RetryAfterSecs = internal.Seconds(retryAfter)
	}
	return f
}

// withAuthHeaders copies the spec with credential headers layered under any
// caller-supplied ones. The input spec is never mutated.
func withAuthHeaders(spec *RequestSpec, auth map[string]string) *RequestSpec {
	out := *spec
	merged := make(map[string]string, len(auth)+len(spec.Headers))
	for k, v := range auth {
		merged[k] = v
	}
	for k, v := range spec.Headers {
		merged[k] = v
	}
	out.Headers = merged
	return &out
}
