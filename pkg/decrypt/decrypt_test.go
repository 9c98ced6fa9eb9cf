package decrypt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("the blob's raw bytes go here")

	blob, err := Encrypt(plaintext)
	require.NoError(t, err)
	require.Greater(t, len(blob), keySize)

	decoded, err := Decrypt(blob)
	require.NoError(t, err)
	require.Equal(t, plaintext, decoded)
}

func TestDecryptWithKeyRoundTrip(t *testing.T) {
	plaintext := []byte("shellcode bytes")

	blob, err := Encrypt(plaintext)
	require.NoError(t, err)

	key := blob[len(blob)-keySize:]
	ciphertext := blob[:len(blob)-keySize]

	decoded, err := DecryptWithKey(ciphertext, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, decoded)
}

func TestDecryptRejectsShortBlob(t *testing.T) {
	_, err := Decrypt([]byte("short"))
	require.Error(t, err)
}
