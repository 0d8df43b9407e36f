package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandomToken returns a random hex string of the given length.
// Each hex character encodes 4 bits, so the token draws ceil(length/2)
// bytes of entropy. Returns "" if the system source of randomness fails.
func GenerateRandomToken(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)[:length]
}
