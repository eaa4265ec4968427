package service

import (
	"encoding/json"
	"strconv"
	"time"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
)

// Vault implements IdentityVault on top of an AEADManager.
//
// The group id is authenticated twice: as associated data and inside the sealed
// record. Either mismatch fails with ErrIntegrity.
type Vault struct {
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
	now         func() time.Time
}

// NewIdentityVault creates a Vault sealing with algorithm.
func NewIdentityVault(aeadManager AEADManager, algorithm cryptoDomain.Algorithm) *Vault {
	return &Vault{
		aeadManager: aeadManager,
		algorithm:   algorithm,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Encrypt seals an IdentityRecord for groupID under key.
func (v *Vault) Encrypt(
	groupID int64,
	mapping map[string]string,
	key []byte,
) (cryptoDomain.CiphertextBlob, error) {
	cipher, err := v.aeadManager.CreateCipher(key, v.algorithm)
	if err != nil {
		return nil, err
	}

	record := cryptoDomain.IdentityRecord{
		GroupID:   groupID,
		Mapping:   mapping,
		CreatedAt: v.now(),
	}
	plaintext, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	return cipher.Seal(plaintext, groupAAD(groupID))
}

// Decrypt opens blob and checks it was sealed for expectedGroupID.
func (v *Vault) Decrypt(
	blob cryptoDomain.CiphertextBlob,
	key []byte,
	expectedGroupID int64,
) (*cryptoDomain.IdentityRecord, error) {
	if err := blob.Validate(); err != nil {
		return nil, cryptoDomain.ErrIntegrity
	}

	cipher, err := v.aeadManager.CreateCipher(key, v.algorithm)
	if err != nil {
		return nil, cryptoDomain.ErrIntegrity
	}

	plaintext, err := cipher.Open(blob, groupAAD(expectedGroupID))
	if err != nil {
		return nil, cryptoDomain.ErrIntegrity
	}
	defer cryptoDomain.Zero(plaintext)

	var record cryptoDomain.IdentityRecord
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, cryptoDomain.ErrIntegrity
	}
	if record.GroupID != expectedGroupID || record.Mapping == nil {
		return nil, cryptoDomain.ErrIntegrity
	}

	return &record, nil
}

func groupAAD(groupID int64) []byte {
	return []byte("group:" + strconv.FormatInt(groupID, 10))
}
