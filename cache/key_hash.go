package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey derives a cache key from a (provider, user) pair so raw
// identities never appear as keys.
func HashKey(providerARN, userID string) string {
	hasher := sha256.New()
	hasher.Write([]byte(providerARN))
	hasher.Write([]byte{0})
	hasher.Write([]byte(userID))
	return hex.EncodeToString(hasher.Sum(nil))
}
