package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const resetTokenBytes = 32

// GenerateResetToken returns an opaque hex token drawn from the OS CSPRNG.
// Tokens are looked up together with the owning email, so no global
// uniqueness beyond randomness is attempted.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
