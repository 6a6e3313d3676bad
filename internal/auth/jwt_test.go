package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret")

	token, err := issuer.GenerateUserToken("operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := NewIssuer("right-secret").GenerateUserToken("operator")
	require.NoError(t, err)

	_, err = NewIssuer("wrong-secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	_, err := NewIssuer("secret").ValidateToken("not.a.token")
	assert.Error(t, err)
}
