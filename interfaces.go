package methodmcp

import "context"

// Transport sends a single prepared request and returns the raw response.
// Implementations do not retry and do not interpret status codes; both are
// the RequestExecutor's job. The stock implementation is HTTPTransport; the
// mock package provides a scriptable one for tests.
type Transport interface {
	Execute(ctx context.Context, spec *RequestSpec) (*Response, error)
}

// CredentialProvider resolves the header(s) for the active authentication
// scheme. The provider is selected once at startup and does not change
// mid-process. Headers returns an error when no usable credential is
// configured; the executor surfaces that as a ConfigurationError failure.
type CredentialProvider interface {
	Headers() (map[string]string, error)

	// Scheme identifies the active variant, e.g. "api_key" or
	// "client_credentials". Used only for logging.
	Scheme() string
}
