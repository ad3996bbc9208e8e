package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewFieldCodecKeySize(t *testing.T) {
	_, err := NewFieldCodec("too-short")
	require.ErrorIs(t, err, ErrKeySize)

	_, err = NewFieldCodec(testKey)
	require.NoError(t, err)
}

func TestFieldCodecRoundTrip(t *testing.T) {
	codec, err := NewFieldCodec(testKey)
	require.NoError(t, err)

	for _, plain := range []string{"Ada", "Lovelace", "+34 600 123 456", "ñandú", strings.Repeat("x", 100)} {
		enc, err := codec.Encrypt(plain)
		require.NoError(t, err)
		require.NotEqual(t, plain, enc)
		require.Contains(t, enc, ":")

		dec, err := codec.Decrypt(enc)
		require.NoError(t, err)
		require.Equal(t, plain, dec)
	}
}

func TestFieldCodecEmptyPassthrough(t *testing.T) {
	codec, err := NewFieldCodec(testKey)
	require.NoError(t, err)

	enc, err := codec.Encrypt("")
	require.NoError(t, err)
	require.Empty(t, enc)

	dec, err := codec.Decrypt("")
	require.NoError(t, err)
	require.Empty(t, dec)
}

func TestFieldCodecFreshIVPerCall(t *testing.T) {
	codec, err := NewFieldCodec(testKey)
	require.NoError(t, err)

	a, err := codec.Encrypt("Ada")
	require.NoError(t, err)
	b, err := codec.Encrypt("Ada")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestFieldCodecMalformedInput(t *testing.T) {
	codec, err := NewFieldCodec(testKey)
	require.NoError(t, err)

	bad := []string{
		"no-separator",
		"zz:zz",                            // not hex
		"00112233:0011",                    // short iv
		strings.Repeat("00", 16) + ":0011", // truncated block
		strings.Repeat("00", 16) + ":",     // empty payload
	}
	for _, enc := range bad {
		_, err := codec.Decrypt(enc)
		require.ErrorIs(t, err, ErrCiphertext, enc)
	}
}

func TestFieldCodecWrongKey(t *testing.T) {
	a, err := NewFieldCodec(testKey)
	require.NoError(t, err)
	b, err := NewFieldCodec("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	enc, err := a.Encrypt("Ada")
	require.NoError(t, err)

	dec, err := b.Decrypt(enc)
	if err == nil {
		require.NotEqual(t, "Ada", dec)
	}
}
