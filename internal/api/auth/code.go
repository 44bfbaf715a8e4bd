package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a fixed-width numeric code, zero-padded so
// "007312" stays six characters. Uses crypto/rand; codes prove control of
// a mailbox, so they must not be guessable.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
