package security

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	require.NoError(t, err)

	token, err := issuer.Issue("user-1", "jane@example.com")
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Nil(t, claims.ExpiresAt)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret")
	other, _ := NewTokenIssuer("other-secret")

	token, _ := other.Issue("user-1", "jane@example.com")
	_, err := issuer.Parse(token)
	assert.Error(t, err)

	_, err = issuer.Parse("garbage")
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "user-1", Email: "jane@example.com"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(none)
	assert.Error(t, err)
}

func TestParseRequiresUserClaims(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "jane@example.com"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("")
	assert.Error(t, err)
}
