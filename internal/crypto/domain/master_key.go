package domain

import (
	"strconv"
	"time"
)

// MasterKey is a principal's 32-byte master key held in memory.
//
// The key is either derived from the principal id and the pepper, or randomly generated
// and persisted wrapped. It is never logged and should be zeroed after use.
type MasterKey struct {
	PrincipalID int64
	Key         []byte
}

// Close zeroes the key material.
func (m *MasterKey) Close() {
	if m == nil {
		return
	}
	Zero(m.Key)
}

// StoredMasterKey is the persisted form of a randomly generated master key.
// WrappedKey is a CiphertextBlob sealed under the pepper-derived wrap key.
type StoredMasterKey struct {
	PrincipalID int64
	Algorithm   Algorithm
	WrappedKey  CiphertextBlob
	KeyVersion  int
	CreatedAt   time.Time
}

// WrapAAD binds a wrapped key to its principal.
func WrapAAD(principalID int64) []byte {
	return []byte("principal:" + strconv.FormatInt(principalID, 10))
}

// PepperVerifier is a one-way fingerprint of the pepper recorded on first startup.
type PepperVerifier struct {
	ID        int
	Hash      string
	CreatedAt time.Time
}
