package crypto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewTokenIsUUID(t *testing.T) {
	first := NewToken()
	second := NewToken()

	_, err := uuid.Parse(first)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestHashTokenIsStable(t *testing.T) {
	token := "7f0c1c5e-8d4b-4c1b-9f0e-2a1d3c4b5a69"

	digest := HashToken(token)
	require.Len(t, digest, 64)
	require.Equal(t, digest, HashToken("  "+token+"\n"))
	require.NotEqual(t, digest, HashToken(token+"x"))
	require.NotContains(t, digest, token)
}

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret(48)
	require.NoError(t, err)
	require.Len(t, secret, 64)

	_, err = GenerateSecret(0)
	require.Error(t, err)
}
