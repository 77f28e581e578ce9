// auth/auth.go
// -------------
// Credential providers for the Method API. Two schemes are supported:
//
//   - API key: the recommended scheme. The key rides in the Authorization
//     header as "APIKey <key>".
//   - OAuth2 client credentials: machine-to-machine token exchange against
//     the Method token endpoint. Tokens are fetched lazily and refreshed by
//     the oauth2 token source; the JWT exp claim is decoded as an extra
//     guard against handing out an already-expired token.
//
// The active provider is selected once at startup; it never changes
// mid-process.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenURL is Method's OAuth2 token endpoint.
const DefaultTokenURL = "https://rest.method.me/oauth/token"

// ErrNoCredentials is returned by Select when nothing usable is configured.
var ErrNoCredentials = errors.New(
	"no authentication credentials found: set METHOD_API_KEY (recommended), or METHOD_CLIENT_ID and METHOD_CLIENT_SECRET for OAuth2")

// APIKey authenticates with a static Method API key.
type APIKey struct {
	key string
}

// NewAPIKey validates and wraps an API key.
func NewAPIKey(key string) (*APIKey, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("API key cannot be empty")
	}
	return &APIKey{key: key}, nil
}

// Headers returns the APIKey authorization header.
func (a *APIKey) Headers() (map[string]string, error) {
	return map[string]string{
		"Authorization": "APIKey " + a.key,
		"Content-Type":  "application/json",
	}, nil
}

// Scheme identifies the provider variant.
func (a *APIKey) Scheme() string { return "api_key" }

// ClientCredentials authenticates via the OAuth2 client-credentials grant.
type ClientCredentials struct {
	source oauth2.TokenSource

	mu    sync.Mutex
	token *oauth2.Token

	clock func() time.Time // test hook
}

// NewClientCredentials builds a provider against the given token endpoint.
// tokenURL defaults to the production Method endpoint when empty.
func NewClientCredentials(clientID, clientSecret, tokenURL string) (*ClientCredentials, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, errors.New("both client ID and client secret are required for OAuth2")
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return &ClientCredentials{
		source: cfg.TokenSource(context.Background()),
		clock:  time.Now,
	}, nil
}

// Headers fetches (or reuses) an access token and returns the Bearer
// header. A cached token is discarded once its JWT exp claim has passed,
// even when the token response omitted expires_in.
func (c *ClientCredentials) Headers() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && !c.token.Valid() {
		c.token = nil
	}
	if c.token != nil && jwtExpired(c.token.AccessToken, c.clock()) {
		c.token = nil
	}
	if c.token == nil {
		tok, err := c.source.Token()
		if err != nil {
			return nil, fmt.Errorf("token exchange failed: %w", err)
		}
		c.token = tok
	}

	return map[string]string{
		"Authorization": "Bearer " + c.token.AccessToken,
		"Content-Type":  "application/json",
	}, nil
}

// Scheme identifies the provider variant.
func (c *ClientCredentials) Scheme() string { return "client_credentials" }

// jwtExpired reports whether the access token is a JWT with an exp claim
// in the past. Opaque (non-JWT) tokens count as not expired; the server
// will reject them with a 401 if they are.
func jwtExpired(accessToken string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return time.Unix(int64(exp), 0).Before(now)
}

// Settings carries the credential-related configuration consumed by Select.
type Settings struct {
	APIKey       string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Select picks the credential provider for this process: API key first,
// then OAuth2 client credentials, else ErrNoCredentials.
func Select(s Settings) (Provider, error) {
	if strings.TrimSpace(s.APIKey) != "" {
		return NewAPIKey(s.APIKey)
	}
	if strings.TrimSpace(s.ClientID) != "" && strings.TrimSpace(s.ClientSecret) != "" {
		return NewClientCredentials(s.ClientID, s.ClientSecret, s.TokenURL)
	}
	return nil, ErrNoCredentials
}

// Provider matches methodmcp.CredentialProvider without importing it, so
// the auth package stays a leaf.
type Provider interface {
	Headers() (map[string]string, error)
	Scheme() string
}
