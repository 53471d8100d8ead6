package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewToken returns a fresh random opaque token suitable for emailed links.
func NewToken() string {
	return uuid.NewString()
}

// HashToken returns the hex SHA-256 digest stored in place of a raw token.
// Surrounding whitespace is ignored so pasted links still resolve.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// GenerateSecret returns length random bytes encoded as URL-safe base64.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
