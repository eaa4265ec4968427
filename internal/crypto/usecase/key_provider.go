package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// WrapKeyInfo is the HKDF info label of the key wrapping random master keys.
const WrapKeyInfo = "master-key-wrap-v1"

// derivedKeyProvider recomputes master keys with PBKDF2.
type derivedKeyProvider struct {
	kdf   cryptoService.KeyDerivation
	group singleflight.Group
}

// NewDerivedKeyProvider creates a KeyProvider for derived key mode.
// Concurrent requests for the same principal share one derivation.
func NewDerivedKeyProvider(kdf cryptoService.KeyDerivation) KeyProvider {
	return &derivedKeyProvider{kdf: kdf}
}

func (d *derivedKeyProvider) MasterKey(
	ctx context.Context,
	principalID int64,
) (*cryptoDomain.MasterKey, error) {
	v, err, _ := d.group.Do(strconv.FormatInt(principalID, 10), func() (any, error) {
		return d.kdf.DeriveMasterKey(principalID)
	})
	if err != nil {
		return nil, err
	}
	return copyMasterKey(v.(*cryptoDomain.MasterKey)), nil
}

// randomKeyProvider loads or creates persisted random master keys.
type randomKeyProvider struct {
	repo        MasterKeyRepository
	aeadManager cryptoService.AEADManager
	algorithm   cryptoDomain.Algorithm
	wrapKey     []byte
	group       singleflight.Group
}

// NewRandomKeyProvider creates a KeyProvider for random key mode. New keys are wrapped
// with algorithm under a subkey derived from the pepper.
func NewRandomKeyProvider(
	repo MasterKeyRepository,
	kdf cryptoService.KeyDerivation,
	aeadManager cryptoService.AEADManager,
	algorithm cryptoDomain.Algorithm,
) (KeyProvider, error) {
	wrapKey, err := kdf.DeriveSubkey(WrapKeyInfo)
	if err != nil {
		return nil, err
	}
	return &randomKeyProvider{
		repo:        repo,
		aeadManager: aeadManager,
		algorithm:   algorithm,
		wrapKey:     wrapKey,
	}, nil
}

func (r *randomKeyProvider) MasterKey(
	ctx context.Context,
	principalID int64,
) (*cryptoDomain.MasterKey, error) {
	if principalID <= 0 {
		return nil, fmt.Errorf("%w: invalid principal id", cryptoDomain.ErrKeyDerivation)
	}

	v, err, _ := r.group.Do(strconv.FormatInt(principalID, 10), func() (any, error) {
		return r.loadOrCreate(ctx, principalID)
	})
	if err != nil {
		return nil, err
	}
	return copyMasterKey(v.(*cryptoDomain.MasterKey)), nil
}

func (r *randomKeyProvider) loadOrCreate(
	ctx context.Context,
	principalID int64,
) (*cryptoDomain.MasterKey, error) {
	stored, err := r.repo.Get(ctx, principalID)
	if err == nil {
		return r.unwrap(stored)
	}
	if !apperrors.Is(err, cryptoDomain.ErrMasterKeyNotFound) {
		return nil, err
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrKeyDerivation, err)
	}

	cipher, err := r.aeadManager.CreateCipher(r.wrapKey, r.algorithm)
	if err != nil {
		return nil, err
	}
	wrapped, err := cipher.Seal(key, cryptoDomain.WrapAAD(principalID))
	if err != nil {
		return nil, err
	}

	err = r.repo.Create(ctx, &cryptoDomain.StoredMasterKey{
		PrincipalID: principalID,
		Algorithm:   r.algorithm,
		WrappedKey:  wrapped,
		KeyVersion:  1,
		CreatedAt:   time.Now().UTC(),
	})
	if apperrors.Is(err, cryptoDomain.ErrMasterKeyAlreadyExists) {
		cryptoDomain.Zero(key)
		stored, err := r.repo.Get(ctx, principalID)
		if err != nil {
			return nil, err
		}
		return r.unwrap(stored)
	}
	if err != nil {
		cryptoDomain.Zero(key)
		return nil, err
	}

	return &cryptoDomain.MasterKey{PrincipalID: principalID, Key: key}, nil
}

func (r *randomKeyProvider) unwrap(
	stored *cryptoDomain.StoredMasterKey,
) (*cryptoDomain.MasterKey, error) {
	cipher, err := r.aeadManager.CreateCipher(r.wrapKey, stored.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrKeyDerivation, err)
	}
	key, err := cipher.Open(stored.WrappedKey, cryptoDomain.WrapAAD(stored.PrincipalID))
	if err != nil {
		return nil, fmt.Errorf("%w: stored key does not open", cryptoDomain.ErrKeyDerivation)
	}
	return &cryptoDomain.MasterKey{PrincipalID: stored.PrincipalID, Key: key}, nil
}

func copyMasterKey(mk *cryptoDomain.MasterKey) *cryptoDomain.MasterKey {
	key := make([]byte, len(mk.Key))
	copy(key, mk.Key)
	return &cryptoDomain.MasterKey{PrincipalID: mk.PrincipalID, Key: key}
}
