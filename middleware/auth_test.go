package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"watchparty/core"
	"watchparty/handlers/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T, hit *bool) http.Handler {
	return AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		claims, ok := ClaimsFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u1", claims.Subject)
	}))
}

func TestAuthJWTAcceptsValidBearer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	auth.InitAuth()

	token, err := auth.CreateJWT(&core.User{ID: "u1", Name: "Alice"})
	require.NoError(t, err)

	hit := false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedHandler(t, &hit).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestAuthJWTRejectsBadRequests(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	auth.InitAuth()

	cases := map[string]string{
		"no header":   "",
		"not bearer":  "Basic dXNlcjpwYXNz",
		"malformed":   "Bearer",
		"bogus token": "Bearer not.a.jwt",
	}
	for name, header := range cases {
		hit := false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		protectedHandler(t, &hit).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.False(t, hit, name)
	}
}

func TestClaimsFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := ClaimsFrom(req.Context())
	assert.False(t, ok)
}
