package service

import (
	"crypto/rand"
	"math/big"
)

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newReference produces a globally unique reference string: the given
// prefix followed by 20 random uppercase alphanumerics.
func newReference(prefix string) string {
	return prefix + randomString(referenceCharset, 20)
}

func randomString(charset string, length int) string {
	max := big.NewInt(int64(len(charset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic(err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out)
}
