package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
	cryptoUsecase "github.com/allisson/pseudonyms/internal/crypto/usecase"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
	"github.com/allisson/pseudonyms/internal/lock"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	pseudonymService "github.com/allisson/pseudonyms/internal/pseudonym/service"
)

// MigrationOptions tunes the coordinator.
type MigrationOptions struct {
	// LockTTL bounds how long a crashed migration can keep its group locked.
	LockTTL time.Duration
	// Concurrency is the number of groups MigrateAll migrates at once.
	Concurrency int
}

// plannedMember is a member whose new identity has been sealed and verified.
type plannedMember struct {
	member       *pseudonymDomain.Member
	blob         cryptoDomain.CiphertextBlob
	identityHash string
}

// MigrationCoordinator moves groups from plaintext to encrypted member identities.
//
// A group is migrated in two phases. All plaintext members are sealed and verified in
// memory first; only when every member succeeds are the new identities written, in one
// transaction. Members already encrypted are left alone, so re-running a migration is a
// no-op.
type MigrationCoordinator struct {
	txManager   database.TxManager
	groupRepo   GroupRepository
	memberRepo  MemberRepository
	gate        *AccessGate
	keyProvider cryptoUsecase.KeyProvider
	vault       cryptoService.IdentityVault
	hasher      pseudonymService.IdentityHasher
	locker      lock.Locker
	opts        MigrationOptions
	logger      *slog.Logger
}

// NewMigrationCoordinator creates a MigrationCoordinator.
func NewMigrationCoordinator(
	txManager database.TxManager,
	groupRepo GroupRepository,
	memberRepo MemberRepository,
	gate *AccessGate,
	keyProvider cryptoUsecase.KeyProvider,
	vault cryptoService.IdentityVault,
	hasher pseudonymService.IdentityHasher,
	locker lock.Locker,
	opts MigrationOptions,
	logger *slog.Logger,
) *MigrationCoordinator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &MigrationCoordinator{
		txManager:   txManager,
		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		gate:        gate,
		keyProvider: keyProvider,
		vault:       vault,
		hasher:      hasher,
		locker:      locker,
		opts:        opts,
		logger:      logger,
	}
}

// MigrateGroupAs checks ownership before migrating.
func (m *MigrationCoordinator) MigrateGroupAs(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
) (*pseudonymDomain.MigrationReport, error) {
	if _, err := m.gate.AuthorizeOwner(ctx, requesterPrincipalID, groupID, auditDomain.OperationMigrateGroup); err != nil {
		return nil, err
	}
	return m.MigrateGroup(ctx, groupID)
}

// MigrateGroup migrates one group while holding its lock.
func (m *MigrationCoordinator) MigrateGroup(
	ctx context.Context,
	groupID int64,
) (*pseudonymDomain.MigrationReport, error) {
	release, err := m.locker.TryLock(ctx, pseudonymDomain.GroupScope(groupID), m.opts.LockTTL)
	if err != nil {
		if apperrors.Is(err, lock.ErrHeld) {
			return nil, pseudonymDomain.ErrMigrationInProgress
		}
		return nil, apperrors.Wrap(err, "failed to lock group for migration")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			m.logger.Error("failed to release migration lock",
				slog.Int64("group_id", groupID),
				slog.Any("error", err),
			)
		}
	}()

	group, err := m.groupRepo.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	masterKey, err := m.keyProvider.MasterKey(ctx, group.OwnerPrincipalID)
	if err != nil {
		return nil, err
	}
	defer masterKey.Close()

	members, err := m.memberRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	report := &pseudonymDomain.MigrationReport{GroupID: groupID}
	planned := make([]plannedMember, 0, len(members))
	var failures []pseudonymDomain.MemberFailure

	claimed := make(map[string]struct{}, len(members))
	for _, member := range members {
		if member.IdentityHash != nil {
			claimed[*member.IdentityHash] = struct{}{}
		}
	}

	for _, member := range members {
		realIdentifier, ok := member.RealIdentifier()
		if !ok {
			report.Skipped++
			continue
		}

		plan, err := m.seal(group, masterKey.Key, member, realIdentifier)
		if err != nil {
			failures = append(failures, pseudonymDomain.MemberFailure{
				MemberID:  member.ID,
				Pseudonym: member.Pseudonym,
				Reason:    err.Error(),
			})
			continue
		}
		if _, taken := claimed[plan.identityHash]; taken {
			failures = append(failures, pseudonymDomain.MemberFailure{
				MemberID:  member.ID,
				Pseudonym: member.Pseudonym,
				Reason:    errDuplicateIdentity.Error(),
			})
			continue
		}
		claimed[plan.identityHash] = struct{}{}
		planned = append(planned, plan)
	}

	if len(failures) > 0 {
		return nil, &pseudonymDomain.MigrationError{GroupID: groupID, Failures: failures}
	}
	if len(planned) == 0 {
		return report, nil
	}

	var current plannedMember
	err = m.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for _, plan := range planned {
			current = plan
			if err := m.memberRepo.MarkEncrypted(txCtx, plan.member, plan.blob, plan.identityHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, pseudonymDomain.ErrMemberVersionConflict) ||
			apperrors.Is(err, pseudonymDomain.ErrMemberAlreadyExists) {
			return nil, &pseudonymDomain.MigrationError{
				GroupID: groupID,
				Failures: []pseudonymDomain.MemberFailure{{
					MemberID:  current.member.ID,
					Pseudonym: current.member.Pseudonym,
					Reason:    err.Error(),
				}},
			}
		}
		return nil, err
	}

	report.Migrated = len(planned)
	m.logger.Info("group migrated",
		slog.Int64("group_id", groupID),
		slog.Int("migrated", report.Migrated),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

// seal encrypts a member's identity and proves it opens back to the same mapping.
func (m *MigrationCoordinator) seal(
	group *pseudonymDomain.Group,
	key []byte,
	member *pseudonymDomain.Member,
	realIdentifier string,
) (plannedMember, error) {
	blob, err := m.vault.Encrypt(group.ID, map[string]string{realIdentifier: member.Pseudonym}, key)
	if err != nil {
		return plannedMember{}, err
	}

	record, err := m.vault.Decrypt(blob, key, group.ID)
	if err != nil {
		return plannedMember{}, err
	}
	if got, ok := realIdentifierFor(record.Mapping, member.Pseudonym); !ok || got != realIdentifier {
		return plannedMember{}, errRecordMismatch
	}

	return plannedMember{
		member:       member,
		blob:         blob,
		identityHash: m.hasher.Hash(key, group.Scope(), realIdentifier),
	}, nil
}

// MigrateAll migrates every group that still has plaintext members.
func (m *MigrationCoordinator) MigrateAll(ctx context.Context) ([]*GroupMigrationResult, error) {
	groupIDs, err := m.groupRepo.ListIDsWithPlaintextMembers(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*GroupMigrationResult, len(groupIDs))
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)

	for i, groupID := range groupIDs {
		g.Go(func() error {
			result := &GroupMigrationResult{GroupID: groupID}
			if err := ctx.Err(); err != nil {
				result.Err = err
			} else {
				result.Report, result.Err = m.MigrateGroup(ctx, groupID)
			}
			if result.Err != nil {
				m.logger.Warn("group migration failed",
					slog.Int64("group_id", groupID),
					slog.Any("error", result.Err),
				)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

var _ MigrationUseCase = (*MigrationCoordinator)(nil)
