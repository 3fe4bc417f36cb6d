package security

import (
	"crypto/rand"
	"math/big"
)

const (
	opaqueTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	opaqueTokenLength   = 48
)

// NewOpaqueToken returns a 48-character alphanumeric string drawn from
// crypto/rand (~286 bits of entropy). The token carries no structure or
// metadata; it is a pure capability.
func NewOpaqueToken() (string, error) {
	return NewRandomString(opaqueTokenLength)
}

// NewRandomString returns a random string of n characters from the
// alphanumeric alphabet, using rejection-free uniform sampling.
func NewRandomString(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(opaqueTokenAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = opaqueTokenAlphabet[idx.Int64()]
	}
	return string(out), nil
}
