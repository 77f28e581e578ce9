package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewAPIKey_RejectsEmpty(t *testing.T) {
	for _, key := range []string{"", "   "} {
		_, err := NewAPIKey(key)
		assert.Error(t, err)
	}
}

func TestAPIKey_Headers(t *testing.T) {
	a, err := NewAPIKey("  sk-123  ")
	require.NoError(t, err)

	headers, err := a.Headers()
	require.NoError(t, err)
	assert.Equal(t, "APIKey sk-123", headers["Authorization"])
	assert.Equal(t, "application/json", headers["Content-Type"])
	assert.Equal(t, "api_key", a.Scheme())
}

func TestNewClientCredentials_RequiresBoth(t *testing.T) {
	_, err := NewClientCredentials("id", "", "")
	assert.Error(t, err)
	_, err = NewClientCredentials("", "secret", "")
	assert.Error(t, err)
}

// staticSource hands out a fixed token without any network round-trip.
type staticSource struct {
	token *oauth2.Token
	calls int
}

func (s *staticSource) Token() (*oauth2.Token, error) {
	s.calls++
	return s.token, nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	signed, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestClientCredentials_ReusesValidToken(t *testing.T) {
	src := &staticSource{token: &oauth2.Token{
		AccessToken: signedToken(t, time.Now().Add(time.Hour)),
		Expiry:      time.Now().Add(time.Hour),
	}}
	c := &ClientCredentials{source: src, clock: time.Now}

	for i := 0; i < 3; i++ {
		headers, err := c.Headers()
		require.NoError(t, err)
		assert.Contains(t, headers["Authorization"], "Bearer ")
	}
	assert.Equal(t, 1, src.calls, "a valid token must be reused, not re-fetched")
}

func TestClientCredentials_RefreshesWhenJWTExpires(t *testing.T) {
	// Token response without expires_in: oauth2 considers it always valid,
	// so only the exp claim can catch the expiry.
	src := &staticSource{token: &oauth2.Token{
		AccessToken: signedToken(t, time.Now().Add(30*time.Minute)),
	}}
	now := time.Now()
	c := &ClientCredentials{source: src, clock: func() time.Time { return now }}

	_, err := c.Headers()
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	now = now.Add(time.Hour)
	_, err = c.Headers()
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "an expired JWT must trigger a new token exchange")
}

func TestJWTExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, jwtExpired(signedToken(t, now.Add(-time.Minute)), now))
	assert.False(t, jwtExpired(signedToken(t, now.Add(time.Minute)), now))
	assert.False(t, jwtExpired("opaque-token", now), "non-JWT tokens are left to the server to reject")
}

func TestSelect(t *testing.T) {
	p, err := Select(Settings{APIKey: "sk-123", ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "api_key", p.Scheme(), "API key wins when both schemes are configured")

	p, err = Select(Settings{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "client_credentials", p.Scheme())

	_, err = Select(Settings{})
	assert.ErrorIs(t, err, ErrNoCredentials)
}
