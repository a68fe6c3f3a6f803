package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "storefront")
	token, claims, err := issuer.GenerateToken("01HZX", "admin", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, claims.SessionID())

	parsed, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "01HZX", parsed.UserID)
	assert.Equal(t, "admin", parsed.Role)
	assert.Equal(t, claims.SessionID(), parsed.SessionID())

	// 每次登录的会话 id 不同
	_, other, err := issuer.GenerateToken("01HZX", "admin", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, claims.SessionID(), other.SessionID())
}

func TestTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	token, _, err := NewTokenIssuer("a", "storefront").GenerateToken("u1", "normal", time.Hour)
	require.NoError(t, err)
	_, err = NewTokenIssuer("b", "storefront").ValidateToken(token)
	assert.Error(t, err)

	expired, _, err := NewTokenIssuer("a", "storefront").GenerateToken("u1", "normal", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = NewTokenIssuer("a", "storefront").ValidateToken(expired)
	assert.Error(t, err)
}

func TestBearerAndSignature(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", BearerToken("Bearer abc.def.ghi"))
	assert.Equal(t, "", BearerToken("Basic xyz"))
	assert.Equal(t, "", BearerToken(""))

	sig, err := ExtractSignature("abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "ghi", sig)
	_, err = ExtractSignature("abc")
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NoError(t, CheckPasswordHash("hunter22", hash))
	assert.ErrorIs(t, CheckPasswordHash("wrong", hash), ErrInvalidCredentials)
	_, err = HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	_, err = HashPassword("")
	assert.Error(t, err)
}
