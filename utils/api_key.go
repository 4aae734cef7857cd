package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// MinAPIKeyLength is the shortest key GenerateAPIKey returns.
const MinAPIKeyLength = 16

// GenerateAPIKey creates a random URL-safe key of the specified length
func GenerateAPIKey(length int) (string, error) {
	if length < MinAPIKeyLength {
		length = MinAPIKeyLength
	}

	// base64 yields 4 characters per 3 bytes
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}
