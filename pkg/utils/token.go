package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateURLToken returns a URL-safe random token of n bytes of entropy
func GenerateURLToken(n int) (string, error) {
	if n <= 0 {
		n = 16
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
