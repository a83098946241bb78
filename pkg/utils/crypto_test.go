package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretCodec_RoundTrip(t *testing.T) {
	codec, err := NewSecretCodec("process-wide-key")
	require.NoError(t, err)

	for _, plaintext := range []string{"", "shh", "EAAG-page-token", "ünïcödé ✓", string(make([]byte, 4096))} {
		sealed, err := codec.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, sealed)

		opened, err := codec.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestSecretCodec_FreshNoncePerCall(t *testing.T) {
	codec, err := NewSecretCodec("k")
	require.NoError(t, err)

	a, err := codec.Encrypt("tok")
	require.NoError(t, err)
	b, err := codec.Encrypt("tok")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSecretCodec_WrongKeyFails(t *testing.T) {
	k1, err := NewSecretCodec("key-one")
	require.NoError(t, err)
	k2, err := NewSecretCodec("key-two")
	require.NoError(t, err)

	sealed, err := k1.Encrypt("shh")
	require.NoError(t, err)

	opened, err := k2.Decrypt(sealed)
	assert.Empty(t, opened)

	var decodeErr *CredentialDecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestSecretCodec_CorruptCiphertext(t *testing.T) {
	codec, err := NewSecretCodec("k")
	require.NoError(t, err)

	sealed, err := codec.Encrypt("shh")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	cases := map[string]string{
		"not base64": "%%%not-base64%%%",
		"too short":  base64.StdEncoding.EncodeToString([]byte("abc")),
		"tampered":   base64.StdEncoding.EncodeToString(raw),
		"plaintext":  "shh",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decrypt(input)
			var decodeErr *CredentialDecodeError
			require.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestNewSecretCodec_EmptyKey(t *testing.T) {
	_, err := NewSecretCodec("")
	assert.Error(t, err)
}
