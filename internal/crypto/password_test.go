package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "Sup3rSecret", hash)

	require.True(t, VerifyPassword(hash, "Sup3rSecret"))
	require.False(t, VerifyPassword(hash, "wrong"))
	require.False(t, VerifyPassword("not-a-hash", "Sup3rSecret"))
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(16)
	require.NoError(t, err)
	require.Len(t, a, 32)

	b, err := RandomHex(16)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
