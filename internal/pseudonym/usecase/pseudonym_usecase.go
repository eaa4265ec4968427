package usecase

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
	cryptoUsecase "github.com/allisson/pseudonyms/internal/crypto/usecase"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	pseudonymService "github.com/allisson/pseudonyms/internal/pseudonym/service"
)

// Limits bounds the size of generation requests.
type Limits struct {
	MaxBatchSize            int
	MaxRealIdentifierLength int
}

type pseudonymUseCase struct {
	txManager   database.TxManager
	groupRepo   GroupRepository
	memberRepo  MemberRepository
	gate        *AccessGate
	keyProvider cryptoUsecase.KeyProvider
	vault       cryptoService.IdentityVault
	generator   pseudonymService.PseudonymGenerator
	hasher      pseudonymService.IdentityHasher
	limits      Limits
	now         func() time.Time
}

// NewPseudonymUseCase creates a PseudonymUseCase.
func NewPseudonymUseCase(
	txManager database.TxManager,
	groupRepo GroupRepository,
	memberRepo MemberRepository,
	gate *AccessGate,
	keyProvider cryptoUsecase.KeyProvider,
	vault cryptoService.IdentityVault,
	generator pseudonymService.PseudonymGenerator,
	hasher pseudonymService.IdentityHasher,
	limits Limits,
) PseudonymUseCase {
	return &pseudonymUseCase{
		txManager:   txManager,
		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		gate:        gate,
		keyProvider: keyProvider,
		vault:       vault,
		generator:   generator,
		hasher:      hasher,
		limits:      limits,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateGroup creates an empty group owned by ownerPrincipalID.
func (p *pseudonymUseCase) CreateGroup(
	ctx context.Context,
	ownerPrincipalID int64,
	name string,
) (*pseudonymDomain.Group, error) {
	name, err := pseudonymDomain.ValidateGroupName(name)
	if err != nil {
		return nil, err
	}

	group := &pseudonymDomain.Group{
		OwnerPrincipalID: ownerPrincipalID,
		Name:             name,
		CreatedAt:        p.now(),
	}
	if err := p.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup deletes the group and all of its members.
func (p *pseudonymUseCase) DeleteGroup(ctx context.Context, requesterPrincipalID, groupID int64) error {
	if _, err := p.gate.AuthorizeOwner(ctx, requesterPrincipalID, groupID, auditDomain.OperationDeleteGroup); err != nil {
		return err
	}
	return p.groupRepo.Delete(ctx, groupID)
}

// GeneratePseudonyms validates the whole batch before touching storage, then resolves
// every identifier inside one transaction so a failure leaves no new members behind.
func (p *pseudonymUseCase) GeneratePseudonyms(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	realIdentifiers []string,
) ([]*pseudonymDomain.GeneratedPseudonym, error) {
	if err := p.validateBatch(realIdentifiers); err != nil {
		return nil, err
	}

	group, err := p.gate.AuthorizeOwner(
		ctx,
		requesterPrincipalID,
		groupID,
		auditDomain.OperationGeneratePseudonyms,
	)
	if err != nil {
		return nil, err
	}

	masterKey, err := p.keyProvider.MasterKey(ctx, group.OwnerPrincipalID)
	if err != nil {
		return nil, err
	}
	defer masterKey.Close()

	results := make([]*pseudonymDomain.GeneratedPseudonym, len(realIdentifiers))
	generate := func(txCtx context.Context) error {
		resolved := make(map[string]*pseudonymDomain.GeneratedPseudonym, len(realIdentifiers))
		reserved := make(map[string]struct{}, len(realIdentifiers))

		for i, realIdentifier := range realIdentifiers {
			if result, ok := resolved[realIdentifier]; ok {
				results[i] = result
				continue
			}

			result, err := p.resolve(txCtx, group, masterKey.Key, realIdentifier, reserved)
			if err != nil {
				return err
			}
			resolved[realIdentifier] = result
			results[i] = result
		}
		return nil
	}

	// A concurrent insert aborts the transaction. The rerun finds the winner's row.
	for attempt := 1; ; attempt++ {
		err = p.txManager.WithTx(ctx, generate)
		if !apperrors.Is(err, errConcurrentInsert) {
			break
		}
		if attempt == generateTxAttempts {
			return nil, pseudonymDomain.ErrUniquenessConflict
		}
	}
	if err != nil {
		return nil, err
	}

	return results, nil
}

// resolve returns the member for realIdentifier, creating it when the group has none.
func (p *pseudonymUseCase) resolve(
	ctx context.Context,
	group *pseudonymDomain.Group,
	key []byte,
	realIdentifier string,
	reserved map[string]struct{},
) (*pseudonymDomain.GeneratedPseudonym, error) {
	identityHash := p.hasher.Hash(key, group.Scope(), realIdentifier)

	existing, err := p.memberRepo.GetByIdentityHash(ctx, group.ID, identityHash)
	if err == nil {
		return p.existingResult(group, key, realIdentifier, existing)
	}
	if !apperrors.Is(err, pseudonymDomain.ErrMemberNotFound) {
		return nil, err
	}

	// Members stored before encryption have no identity hash yet.
	existing, err = p.memberRepo.GetByRealIdentifier(ctx, group.ID, realIdentifier)
	if err == nil {
		return p.existingResult(group, key, realIdentifier, existing)
	}
	if !apperrors.Is(err, pseudonymDomain.ErrMemberNotFound) {
		return nil, err
	}

	pseudonym, err := p.generator.GenerateUnique(realIdentifier, group.Scope(), func(candidate string) (bool, error) {
		if _, ok := reserved[candidate]; ok {
			return true, nil
		}
		return p.memberRepo.ExistsPseudonym(ctx, group.ID, candidate)
	})
	if err != nil {
		return nil, err
	}

	blob, err := p.vault.Encrypt(group.ID, map[string]string{realIdentifier: pseudonym}, key)
	if err != nil {
		return nil, err
	}

	member := &pseudonymDomain.Member{
		ID:           uuid.Must(uuid.NewV7()),
		GroupID:      group.ID,
		Pseudonym:    pseudonym,
		Identity:     pseudonymDomain.EncryptedIdentity{Blob: blob},
		IdentityHash: &identityHash,
		Role:         pseudonymDomain.RoleParticipant,
		Status:       pseudonymDomain.StatusActive,
		JoinedAt:     p.now(),
		Version:      1,
	}
	if err := p.memberRepo.Create(ctx, member); err != nil {
		// Another request inserted the same pseudonym or identity concurrently.
		if apperrors.Is(err, pseudonymDomain.ErrMemberAlreadyExists) {
			return nil, errConcurrentInsert
		}
		return nil, err
	}
	reserved[pseudonym] = struct{}{}

	return &pseudonymDomain.GeneratedPseudonym{
		MemberID:          member.ID,
		Pseudonym:         pseudonym,
		EncryptedIdentity: blob,
		Created:           true,
	}, nil
}

// existingResult returns the stored blob of an encrypted member, or a fresh blob for a
// plaintext member without changing it.
func (p *pseudonymUseCase) existingResult(
	group *pseudonymDomain.Group,
	key []byte,
	realIdentifier string,
	member *pseudonymDomain.Member,
) (*pseudonymDomain.GeneratedPseudonym, error) {
	result := &pseudonymDomain.GeneratedPseudonym{MemberID: member.ID, Pseudonym: member.Pseudonym}

	if identity, ok := member.Identity.(pseudonymDomain.EncryptedIdentity); ok {
		result.EncryptedIdentity = identity.Blob
		return result, nil
	}

	blob, err := p.vault.Encrypt(group.ID, map[string]string{realIdentifier: member.Pseudonym}, key)
	if err != nil {
		return nil, err
	}
	result.EncryptedIdentity = blob
	return result, nil
}

func (p *pseudonymUseCase) validateBatch(realIdentifiers []string) error {
	if len(realIdentifiers) == 0 {
		return pseudonymDomain.ErrEmptyBatch
	}
	if len(realIdentifiers) > p.limits.MaxBatchSize {
		return pseudonymDomain.ErrBatchTooLarge
	}
	for _, realIdentifier := range realIdentifiers {
		if err := pseudonymDomain.ValidateRealIdentifier(realIdentifier, p.limits.MaxRealIdentifierLength); err != nil {
			return err
		}
	}
	return nil
}

// ListPseudonyms returns the members of a group. Only the owner sees plaintext identifiers.
func (p *pseudonymUseCase) ListPseudonyms(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
) ([]*pseudonymDomain.PseudonymView, error) {
	_, isOwner, err := p.gate.AuthorizeView(ctx, requesterPrincipalID, groupID, auditDomain.OperationListPseudonyms)
	if err != nil {
		return nil, err
	}

	members, err := p.memberRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	views := make([]*pseudonymDomain.PseudonymView, 0, len(members))
	for _, member := range members {
		view := &pseudonymDomain.PseudonymView{
			MemberID:  member.ID,
			Pseudonym: member.Pseudonym,
			Role:      member.Role,
			Status:    member.Status,
			JoinedAt:  member.JoinedAt,
			Encrypted: member.IsEncrypted(),
		}
		if realIdentifier, ok := member.RealIdentifier(); ok && isOwner {
			view.RealIdentifier = &realIdentifier
		}
		views = append(views, view)
	}
	return views, nil
}

// DecryptMapping delegates to the access gate.
func (p *pseudonymUseCase) DecryptMapping(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	key []byte,
) (map[string]string, error) {
	return p.gate.RequestDecryption(ctx, requesterPrincipalID, groupID, key)
}

// GetMasterKey returns a copy of the caller's master key.
func (p *pseudonymUseCase) GetMasterKey(
	ctx context.Context,
	requesterPrincipalID, principalID int64,
) ([]byte, error) {
	if err := p.gate.AuthorizePrincipal(
		ctx,
		requesterPrincipalID,
		principalID,
		auditDomain.OperationGetMasterKey,
	); err != nil {
		return nil, err
	}

	masterKey, err := p.keyProvider.MasterKey(ctx, principalID)
	if err != nil {
		return nil, err
	}
	defer masterKey.Close()

	return bytes.Clone(masterKey.Key), nil
}

// RenameMember points an existing pseudonym at a different real identifier. The
// pseudonym itself never changes.
func (p *pseudonymUseCase) RenameMember(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	pseudonym, newRealIdentifier string,
) (*pseudonymDomain.GeneratedPseudonym, error) {
	if err := pseudonymDomain.ValidateRealIdentifier(newRealIdentifier, p.limits.MaxRealIdentifierLength); err != nil {
		return nil, err
	}

	group, err := p.gate.AuthorizeOwner(ctx, requesterPrincipalID, groupID, auditDomain.OperationRenameMember)
	if err != nil {
		return nil, err
	}

	masterKey, err := p.keyProvider.MasterKey(ctx, group.OwnerPrincipalID)
	if err != nil {
		return nil, err
	}
	defer masterKey.Close()

	var result *pseudonymDomain.GeneratedPseudonym
	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		member, err := p.memberRepo.GetByPseudonym(txCtx, groupID, pseudonym)
		if err != nil {
			return err
		}

		identityHash := p.hasher.Hash(masterKey.Key, group.Scope(), newRealIdentifier)
		other, err := p.memberRepo.GetByIdentityHash(txCtx, groupID, identityHash)
		switch {
		case err == nil && other.ID != member.ID:
			return pseudonymDomain.ErrMemberAlreadyExists
		case err != nil && !apperrors.Is(err, pseudonymDomain.ErrMemberNotFound):
			return err
		}

		// Members not yet migrated carry no identity hash.
		legacy, err := p.memberRepo.GetByRealIdentifier(txCtx, groupID, newRealIdentifier)
		switch {
		case err == nil && legacy.ID != member.ID:
			return pseudonymDomain.ErrMemberAlreadyExists
		case err != nil && !apperrors.Is(err, pseudonymDomain.ErrMemberNotFound):
			return err
		}

		blob, err := p.vault.Encrypt(groupID, map[string]string{newRealIdentifier: pseudonym}, masterKey.Key)
		if err != nil {
			return err
		}
		if err := p.memberRepo.UpdateIdentity(txCtx, member, blob, identityHash); err != nil {
			return err
		}

		result = &pseudonymDomain.GeneratedPseudonym{
			MemberID:          member.ID,
			Pseudonym:         pseudonym,
			EncryptedIdentity: blob,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveMember deletes a member by pseudonym.
func (p *pseudonymUseCase) RemoveMember(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	pseudonym string,
) error {
	if _, err := p.gate.AuthorizeOwner(ctx, requesterPrincipalID, groupID, auditDomain.OperationRemoveMember); err != nil {
		return err
	}

	member, err := p.memberRepo.GetByPseudonym(ctx, groupID, pseudonym)
	if err != nil {
		return err
	}
	return p.memberRepo.Delete(ctx, member.ID)
}
