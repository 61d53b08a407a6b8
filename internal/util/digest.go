package util

import (
	"crypto/sha256"
	"crypto/subtle"
)

// DigestSHA256 computes the SHA-256 digest of data.
func DigestSHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// EqualDigests compares two digests in constant time.
func EqualDigests(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
