package utils

import (
	"crypto/rand"
	"math/big"
)

// Alphabet is the 62-character set short codes are drawn from.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultCodeLength is used when a non-positive length is requested.
const DefaultCodeLength = 6

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// GenerateCode returns a random token of the given length drawn uniformly from Alphabet.
// It knows nothing about existing codes; callers enforce uniqueness.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	out := make([]byte, length)
	for i := range out {
		num, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		out[i] = Alphabet[num.Int64()]
	}
	return string(out), nil
}
