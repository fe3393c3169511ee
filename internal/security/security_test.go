package security

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("testPassword123")
	require.NoError(t, err)
	assert.NotEqual(t, "testPassword123", hash)

	hash2, err := HashPassword("testPassword123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2, "salted hashes should differ")

	assert.True(t, CheckPassword("testPassword123", hash))
	assert.False(t, CheckPassword("wrongPassword", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestKidTokens(t *testing.T) {
	tokens := NewKidTokens("secret", time.Hour)

	token, expires, err := tokens.Issue(7, 3, "Ada")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.KidID)
	assert.EqualValues(t, 3, claims.FamilyID)
	assert.Equal(t, "Ada", claims.Name)
	assert.NotEmpty(t, claims.ID)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewKidTokens("other", time.Hour).Verify(token)
		assert.ErrorIs(t, err, ErrInvalidKidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewKidTokens("secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, _, err := past.Issue(7, 3, "Ada")
		require.NoError(t, err)
		_, err = tokens.Verify(old)
		assert.ErrorIs(t, err, ErrInvalidKidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidKidToken)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "keys are independent")

	assert.Zero(t, rl.Cleanup())
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", GetClientIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.3")
	assert.Equal(t, "203.0.113.9", GetClientIP(r))
}

func TestCookies(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	c := CreateSessionCookie(r, SessionCookie, "abc", time.Now().Add(time.Hour))
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)

	r.TLS = &tls.ConnectionState{}
	assert.True(t, CreateDeleteCookie(r, SessionCookie).Secure)
	assert.Equal(t, -1, CreateDeleteCookie(r, SessionCookie).MaxAge)
}
