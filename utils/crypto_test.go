package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey()
	enc, err := Encrypt([]byte("smtp-secret"), key)
	require.NoError(t, err)
	assert.True(t, len(enc) > 4 && enc[:4] == "enc:")

	dec, err := Decrypt(enc, key)
	require.NoError(t, err)
	assert.Equal(t, "smtp-secret", dec)
}

func TestDecryptPassesThroughPlaintext(t *testing.T) {
	// Configs saved before encryption was enabled have raw passwords.
	dec, err := Decrypt("legacy-password", testKey())
	require.NoError(t, err)
	assert.Equal(t, "legacy-password", dec)
}

func TestEncryptRejectsBadKeyLength(t *testing.T) {
	_, err := Encrypt([]byte("x"), []byte("short"))
	assert.Error(t, err)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	enc, err := Encrypt([]byte("secret"), testKey())
	require.NoError(t, err)

	other := bytes.Repeat([]byte{0x7f}, 32)
	_, err = Decrypt(enc, other)
	assert.Error(t, err)
}

func TestGenerateAPIKeyToken(t *testing.T) {
	a, err := GenerateAPIKeyToken()
	require.NoError(t, err)
	b, err := GenerateAPIKeyToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
