// Package usecase implements the pseudonym operations: generation, listing, mapping
// decryption, master key retrieval, member lifecycle and plaintext-to-encrypted migration.
package usecase

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	// Create inserts group and sets its ID.
	Create(ctx context.Context, group *pseudonymDomain.Group) error
	// Get returns the group or pseudonymDomain.ErrGroupNotFound.
	Get(ctx context.Context, groupID int64) (*pseudonymDomain.Group, error)
	// Delete removes the group and, by cascade, its members.
	Delete(ctx context.Context, groupID int64) error
	// ListIDsWithPlaintextMembers returns ids of groups that still hold plaintext members.
	ListIDsWithPlaintextMembers(ctx context.Context) ([]int64, error)
}

// MemberRepository defines persistence operations for group members.
//
// Lookups return pseudonymDomain.ErrMemberNotFound when nothing matches. Updates carry an
// optimistic version check and return pseudonymDomain.ErrMemberVersionConflict when the
// stored row changed since it was read.
type MemberRepository interface {
	// Create inserts member. A duplicate pseudonym or identity hash in the group returns
	// pseudonymDomain.ErrMemberAlreadyExists.
	Create(ctx context.Context, member *pseudonymDomain.Member) error
	// ListByGroup returns members ordered by join time.
	ListByGroup(ctx context.Context, groupID int64) ([]*pseudonymDomain.Member, error)
	GetByPseudonym(ctx context.Context, groupID int64, pseudonym string) (*pseudonymDomain.Member, error)
	GetByIdentityHash(ctx context.Context, groupID int64, identityHash string) (*pseudonymDomain.Member, error)
	// GetByRealIdentifier finds a plaintext member by its cleartext identifier.
	GetByRealIdentifier(ctx context.Context, groupID int64, realIdentifier string) (*pseudonymDomain.Member, error)
	ExistsPseudonym(ctx context.Context, groupID int64, pseudonym string) (bool, error)
	// MarkEncrypted replaces a plaintext identity with blob. Members that are already
	// encrypted are treated as a version conflict.
	MarkEncrypted(
		ctx context.Context,
		member *pseudonymDomain.Member,
		blob cryptoDomain.CiphertextBlob,
		identityHash string,
	) error
	// UpdateIdentity replaces the identity of member, plaintext or encrypted, with blob.
	UpdateIdentity(
		ctx context.Context,
		member *pseudonymDomain.Member,
		blob cryptoDomain.CiphertextBlob,
		identityHash string,
	) error
	Delete(ctx context.Context, memberID uuid.UUID) error
}

// PseudonymUseCase defines the external pseudonym operations.
//
// Every operation takes the authenticated requester. Operations restricted to the group
// owner fail with pseudonymDomain.ErrAccessDenied for any authorization failure, including
// unknown groups.
type PseudonymUseCase interface {
	CreateGroup(ctx context.Context, ownerPrincipalID int64, name string) (*pseudonymDomain.Group, error)
	DeleteGroup(ctx context.Context, requesterPrincipalID, groupID int64) error
	// GeneratePseudonyms returns one result per input, in input order. Inputs already
	// present in the group return their existing pseudonym.
	GeneratePseudonyms(
		ctx context.Context,
		requesterPrincipalID, groupID int64,
		realIdentifiers []string,
	) ([]*pseudonymDomain.GeneratedPseudonym, error)
	// ListPseudonyms is open to any principal and audited. Real identifiers are only
	// included for the owner and only for members not yet encrypted. An unknown group
	// returns ErrAccessDenied.
	ListPseudonyms(ctx context.Context, requesterPrincipalID, groupID int64) ([]*pseudonymDomain.PseudonymView, error)
	// DecryptMapping returns pseudonym to real identifier for every member of the group.
	DecryptMapping(
		ctx context.Context,
		requesterPrincipalID, groupID int64,
		key []byte,
	) (map[string]string, error)
	// GetMasterKey returns the caller's own master key. Callers should zero it after use.
	GetMasterKey(ctx context.Context, requesterPrincipalID, principalID int64) ([]byte, error)
	RenameMember(
		ctx context.Context,
		requesterPrincipalID, groupID int64,
		pseudonym, newRealIdentifier string,
	) (*pseudonymDomain.GeneratedPseudonym, error)
	RemoveMember(ctx context.Context, requesterPrincipalID, groupID int64, pseudonym string) error
}

// GroupMigrationResult is the outcome of migrating one group in a batch.
type GroupMigrationResult struct {
	GroupID int64
	Report  *pseudonymDomain.MigrationReport
	Err     error
}

// MigrationUseCase converts plaintext members into encrypted ones.
type MigrationUseCase interface {
	// MigrateGroup encrypts every plaintext member of the group or none of them.
	MigrateGroup(ctx context.Context, groupID int64) (*pseudonymDomain.MigrationReport, error)
	// MigrateGroupAs is MigrateGroup restricted to the group owner.
	MigrateGroupAs(ctx context.Context, requesterPrincipalID, groupID int64) (*pseudonymDomain.MigrationReport, error)
	// MigrateAll migrates every group holding plaintext members. Per-group failures are
	// reported in the results and do not stop other groups.
	MigrateAll(ctx context.Context) ([]*GroupMigrationResult, error)
}
