package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	m := NewTokenManager("secret-key")

	token, err := m.Generate("64f0c1e2a3b4c5d6e7f80912", "priya@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "64f0c1e2a3b4c5d6e7f80912", claims["user_id"])
	assert.Equal(t, "priya@example.com", claims["email"])
	assert.NotZero(t, claims["exp"])
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").Generate("id", "a@example.com")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewTokenManager("secret").Verify("not.a.token")
	assert.Error(t, err)
}
