package internal

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// FastHash is a high-performance non-cryptographic hash function suitable for
// key namespacing and other uses where cryptographic security is not required.
func FastHash(text string) string {
	h := xxhash.Sum64String(text)
	return strconv.FormatUint(h, 16)
}

// SecretFingerprint returns a short, stable identifier for an HMAC secret so
// state tied to one secret can be namespaced without storing the secret
// itself. The secret is salted so the fingerprint can't be matched against
// a plain xxhash of a guessed key.
func SecretFingerprint(secret string) string {
	return FastHash("lbsim-secret:" + secret)
}
