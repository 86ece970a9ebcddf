package utils

import (
	"crypto/rand"
	"math/big"
)

const digitAlphabet = "0123456789"

// GenerateDigits draws n uniformly random decimal digits, so leading zeros
// are kept ("0042" is a valid 4-digit code).
func GenerateDigits(n int) (string, error) {
	if n <= 0 {
		n = 4
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		idxBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(digitAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = digitAlphabet[idxBig.Int64()]
	}
	return string(b), nil
}
