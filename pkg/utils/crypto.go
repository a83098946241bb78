package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// CredentialDecodeError is returned when stored ciphertext cannot be turned
// back into plaintext, either because it is corrupt or because it was sealed
// with a different key.
type CredentialDecodeError struct {
	Err error
}

func (e *CredentialDecodeError) Error() string {
	return fmt.Sprintf("credential decode failed: %v", e.Err)
}

func (e *CredentialDecodeError) Unwrap() error {
	return e.Err
}

// SecretCodec seals credential strings with AES-256-GCM. The stored form is
// base64(nonce || ciphertext).
type SecretCodec struct {
	aead cipher.AEAD
}

func NewSecretCodec(keyMaterial string) (*SecretCodec, error) {
	if keyMaterial == "" {
		return nil, errors.New("encryption key is empty")
	}

	// Any configured secret maps to a 32 byte key.
	key := sha256.Sum256([]byte(keyMaterial))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &SecretCodec{aead: aesGCM}, nil
}

func (c *SecretCodec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SecretCodec) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &CredentialDecodeError{Err: err}
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", &CredentialDecodeError{Err: errors.New("ciphertext too short")}
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &CredentialDecodeError{Err: err}
	}

	return string(plaintext), nil
}
