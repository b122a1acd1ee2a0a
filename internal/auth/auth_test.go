package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questlog/internal/identity"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("secret")
	token, err := j.Sign(identity.Actor{ID: "u-1", Role: identity.RoleDirector})
	require.NoError(t, err)

	actor, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", actor.ID)
	assert.Equal(t, identity.RoleDirector, actor.Role)
}

func TestJWTRejectsForeignSecretAndExpiry(t *testing.T) {
	token, err := NewJWT("secret").Sign(identity.Actor{ID: "u-1", Role: identity.RolePlayer})
	require.NoError(t, err)

	_, err = NewJWT("other").Verify(token)
	assert.Error(t, err)

	late := NewJWT("secret")
	late.now = func() time.Time { return time.Now().Add(tokenTTL + time.Hour) }
	_, err = late.Verify(token)
	assert.Error(t, err)
}

func TestJWTRejectsUnknownRole(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWT("secret").Verify(token)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, ComparePassword(hash, "correct horse"))
	assert.False(t, ComparePassword(hash, "wrong horse"))
}

func TestMiddleware(t *testing.T) {
	j := NewJWT("secret")
	var seen identity.Actor
	h := RequireAuth(j)(RequireDirector(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer nope"))

	playerToken, err := j.Sign(identity.Actor{ID: "p", Role: identity.RolePlayer})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+playerToken))

	directorToken, err := j.Sign(identity.Actor{ID: "d", Role: identity.RoleDirector})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do("Bearer "+directorToken))
	assert.Equal(t, "d", seen.ID)
}
