package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the size of a generated token: 128 bits of randomness.
const tokenBytes = 16

// RandomToken returns a hex-encoded 128-bit token read from crypto/rand.
func RandomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
