package app

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const credentialAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// credentialLength is the length of the raw credential handed out exactly
// once at identity creation.
const credentialLength = 24

// newCredential returns a cryptographically random ASCII-letter string.
func newCredential() string {
	out := make([]byte, credentialLength)
	max := big.NewInt(int64(len(credentialAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		out[i] = credentialAlphabet[n.Int64()]
	}
	return string(out)
}

// HashCredential derives the stable pseudonymous identifier stored in place
// of the raw credential.
func HashCredential(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
