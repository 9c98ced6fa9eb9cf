// Package decrypt implements the at-rest encryption that cmd/scrun's
// -encrypted flag reads and cmd/picgen's packBlob can write (picgen's
// command line never turns that encryption on): AES-GCM with the key
// appended to the ciphertext rather than carried alongside it, so a
// blob file on disk is one opaque byte stream with no header a
// signature scanner could key on. Grounded on the teacher's
// pkg/decrypt/decrypt.go, extended with the encrypt half picgen needs
// (the teacher only ever consumed pre-encrypted payloads).
package decrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const keySize = 32 // AES-256

// Decrypt reverses Encrypt's trailing-key layout: the last keySize
// bytes of blob are the AES-256 key, and everything before that is
// nonce||ciphertext||tag under AES-GCM.
func Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < keySize {
		return nil, fmt.Errorf("decrypt: blob too short to contain a trailing key")
	}

	key := blob[len(blob)-keySize:]
	encrypted := blob[:len(blob)-keySize]

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(encrypted) < nonceSize+aesGCM.Overhead() {
		return nil, fmt.Errorf("decrypt: blob too short for nonce and tag")
	}

	nonce := encrypted[:nonceSize]
	ciphertext := encrypted[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// DecryptWithKey is Decrypt's counterpart for callers that already have
// the key out-of-band (cmd/scrun's -key flag) instead of a trailing key,
// so the key never has to round-trip through the blob file at all.
func DecryptWithKey(blob, key []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(blob) < nonceSize+aesGCM.Overhead() {
		return nil, fmt.Errorf("decrypt: blob too short for nonce and tag")
	}

	nonce := blob[:nonceSize]
	ciphertext := blob[nonceSize:]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// Encrypt produces the trailing-key layout Decrypt expects: a fresh
// random 256-bit key and nonce, AES-GCM seal, then the key appended.
func Encrypt(plaintext []byte) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("decrypt: generating key: %w", err)
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("decrypt: generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, plaintext, nil)
	return append(ciphertext, key...), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("decrypt: creating AES cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("decrypt: creating GCM: %w", err)
	}
	return aesGCM, nil
}
