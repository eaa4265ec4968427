package service

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
)

// MinIterations is the lowest accepted PBKDF2 iteration count.
const MinIterations = 100000

const masterKeySaltPrefix = "pseudonyms/master-key/v1"

// PBKDF2KeyDerivation derives principal master keys with PBKDF2-HMAC-SHA256.
//
// The password is the decimal principal id and the salt is a fixed label followed by
// the pepper, so the same principal always yields the same key while the pepper
// stays secret.
type PBKDF2KeyDerivation struct {
	pepper     *cryptoDomain.Pepper
	iterations int
}

// NewKeyDerivation creates a PBKDF2KeyDerivation. A missing pepper or an iteration
// count below MinIterations is a configuration error.
func NewKeyDerivation(pepper *cryptoDomain.Pepper, iterations int) (*PBKDF2KeyDerivation, error) {
	if pepper == nil || len(pepper.Bytes()) == 0 {
		return nil, cryptoDomain.ErrPepperNotConfigured
	}
	if iterations < MinIterations {
		return nil, fmt.Errorf(
			"%w: iterations must be at least %d, got %d",
			cryptoDomain.ErrKeyDerivation,
			MinIterations,
			iterations,
		)
	}
	return &PBKDF2KeyDerivation{pepper: pepper, iterations: iterations}, nil
}

// DeriveMasterKey returns the 32-byte master key for principalID.
func (k *PBKDF2KeyDerivation) DeriveMasterKey(principalID int64) (*cryptoDomain.MasterKey, error) {
	if principalID <= 0 {
		return nil, fmt.Errorf("%w: invalid principal id", cryptoDomain.ErrKeyDerivation)
	}

	pepper := k.pepper.Bytes()
	salt := make([]byte, 0, len(masterKeySaltPrefix)+len(pepper))
	salt = append(salt, masterKeySaltPrefix...)
	salt = append(salt, pepper...)
	defer cryptoDomain.Zero(salt)

	password := []byte(strconv.FormatInt(principalID, 10))
	key := pbkdf2.Key(password, salt, k.iterations, cryptoDomain.KeySize, sha256.New)

	return &cryptoDomain.MasterKey{PrincipalID: principalID, Key: key}, nil
}

// DeriveSubkey expands the pepper with HKDF-SHA256 into a key bound to info.
func (k *PBKDF2KeyDerivation) DeriveSubkey(info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, k.pepper.Bytes(), nil, []byte(info))

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrKeyDerivation, err)
	}
	return key, nil
}
