package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeSpan is the size of the code range [100000, 999999].
const codeSpan = 900000

// Generate returns a random 6-digit verification code as a string.
// The draw is uniform over [100000, 999999], so the first digit is
// never zero and the result is always exactly 6 ASCII digits. Calls
// are independent; collisions across calls are possible and accepted.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
