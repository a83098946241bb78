package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordIterations = 100_000
	passwordKeyLen     = 32
)

// HashPassword returns "salt$hash" using PBKDF2-SHA256.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := pbkdf2.Key([]byte(password), salt, passwordIterations, passwordKeyLen, sha256.New)
	return base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(hash), nil
}

func CheckPassword(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}

	saltStr, hashStr, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltStr)
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(hashStr)
	if err != nil || len(expected) == 0 {
		return false
	}

	hash := pbkdf2.Key([]byte(password), salt, passwordIterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(hash, expected) == 1
}
