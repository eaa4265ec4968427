package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type hmacIdentityHasher struct{}

// NewIdentityHasher creates an IdentityHasher using HMAC-SHA256.
//
// The owner's master key is the HMAC key, so the hash reveals nothing to anyone
// holding only the database.
func NewIdentityHasher() IdentityHasher {
	return &hmacIdentityHasher{}
}

// Hash returns the hex HMAC of scope and realIdentifier.
func (h *hmacIdentityHasher) Hash(key []byte, scope, realIdentifier string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(scope))
	mac.Write([]byte{0})
	mac.Write([]byte(realIdentifier))
	return hex.EncodeToString(mac.Sum(nil))
}
