package usecase

import (
	"context"
	"crypto/subtle"
	"log/slog"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	auditUsecase "github.com/allisson/pseudonyms/internal/audit/usecase"
	cryptoService "github.com/allisson/pseudonyms/internal/crypto/service"
	cryptoUsecase "github.com/allisson/pseudonyms/internal/crypto/usecase"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

// AccessGate decides whether a principal may act on a group or key.
//
// Every decision is published as an audit event. Denials always surface as
// pseudonymDomain.ErrAccessDenied; the underlying cause is only logged at debug level so
// callers cannot tell an unknown group from a wrong key.
type AccessGate struct {
	groupRepo   GroupRepository
	memberRepo  MemberRepository
	keyProvider cryptoUsecase.KeyProvider
	vault       cryptoService.IdentityVault
	publisher   auditUsecase.Publisher
	logger      *slog.Logger
}

// NewAccessGate creates an AccessGate.
func NewAccessGate(
	groupRepo GroupRepository,
	memberRepo MemberRepository,
	keyProvider cryptoUsecase.KeyProvider,
	vault cryptoService.IdentityVault,
	publisher auditUsecase.Publisher,
	logger *slog.Logger,
) *AccessGate {
	return &AccessGate{
		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		keyProvider: keyProvider,
		vault:       vault,
		publisher:   publisher,
		logger:      logger,
	}
}

// AuthorizeOwner returns the group when requester owns it.
func (g *AccessGate) AuthorizeOwner(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	operation auditDomain.Operation,
) (*pseudonymDomain.Group, error) {
	group, err := g.groupRepo.Get(ctx, groupID)
	if err != nil {
		return nil, g.deny(ctx, requesterPrincipalID, &groupID, nil, operation, err)
	}
	if !group.IsOwnedBy(requesterPrincipalID) {
		return nil, g.deny(ctx, requesterPrincipalID, &groupID, nil, operation, errNotOwner)
	}

	g.record(ctx, requesterPrincipalID, &groupID, nil, operation, auditDomain.OutcomeGranted)
	return group, nil
}

// AuthorizeView returns the group to any principal and reports whether requester owns
// it. An unknown group is denied like any other refusal.
func (g *AccessGate) AuthorizeView(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	operation auditDomain.Operation,
) (*pseudonymDomain.Group, bool, error) {
	group, err := g.groupRepo.Get(ctx, groupID)
	if err != nil {
		return nil, false, g.deny(ctx, requesterPrincipalID, &groupID, nil, operation, err)
	}

	g.record(ctx, requesterPrincipalID, &groupID, nil, operation, auditDomain.OutcomeGranted)
	return group, group.IsOwnedBy(requesterPrincipalID), nil
}

// AuthorizePrincipal allows a principal to act only on itself.
func (g *AccessGate) AuthorizePrincipal(
	ctx context.Context,
	requesterPrincipalID, subjectPrincipalID int64,
	operation auditDomain.Operation,
) error {
	if requesterPrincipalID != subjectPrincipalID {
		return g.deny(ctx, requesterPrincipalID, nil, &subjectPrincipalID, operation, errNotSelf)
	}

	g.record(ctx, requesterPrincipalID, nil, &subjectPrincipalID, operation, auditDomain.OutcomeGranted)
	return nil
}

// RequestDecryption returns the pseudonym to real identifier mapping of a group.
//
// The requester must own the group and key must equal the owner's master key. Every
// encrypted member must open under key for the group and name its own pseudonym; a
// single bad blob denies the whole request.
func (g *AccessGate) RequestDecryption(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	key []byte,
) (map[string]string, error) {
	operation := auditDomain.OperationDecryptMapping

	mapping, err := g.decryptMapping(ctx, requesterPrincipalID, groupID, key)
	if err != nil {
		return nil, g.deny(ctx, requesterPrincipalID, &groupID, nil, operation, err)
	}

	g.record(ctx, requesterPrincipalID, &groupID, nil, operation, auditDomain.OutcomeGranted)
	return mapping, nil
}

func (g *AccessGate) decryptMapping(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	key []byte,
) (map[string]string, error) {
	group, err := g.groupRepo.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsOwnedBy(requesterPrincipalID) {
		return nil, errNotOwner
	}

	ownerKey, err := g.keyProvider.MasterKey(ctx, group.OwnerPrincipalID)
	if err != nil {
		return nil, err
	}
	defer ownerKey.Close()

	if subtle.ConstantTimeCompare(key, ownerKey.Key) != 1 {
		return nil, errKeyMismatch
	}

	members, err := g.memberRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(members))
	for _, member := range members {
		switch identity := member.Identity.(type) {
		case pseudonymDomain.PlaintextIdentity:
			mapping[member.Pseudonym] = identity.RealIdentifier
		case pseudonymDomain.EncryptedIdentity:
			record, err := g.vault.Decrypt(identity.Blob, key, groupID)
			if err != nil {
				return nil, err
			}
			realIdentifier, ok := realIdentifierFor(record.Mapping, member.Pseudonym)
			if !ok {
				return nil, errRecordMismatch
			}
			mapping[member.Pseudonym] = realIdentifier
		default:
			return nil, pseudonymDomain.ErrInvalidMemberState
		}
	}
	return mapping, nil
}

func (g *AccessGate) deny(
	ctx context.Context,
	requesterPrincipalID int64,
	groupID, subjectPrincipalID *int64,
	operation auditDomain.Operation,
	cause error,
) error {
	g.logger.DebugContext(ctx, "access denied",
		slog.Int64("requester_principal_id", requesterPrincipalID),
		slog.String("operation", string(operation)),
		slog.Any("cause", cause),
	)
	g.record(ctx, requesterPrincipalID, groupID, subjectPrincipalID, operation, auditDomain.OutcomeDenied)
	return pseudonymDomain.ErrAccessDenied
}

func (g *AccessGate) record(
	ctx context.Context,
	requesterPrincipalID int64,
	groupID, subjectPrincipalID *int64,
	operation auditDomain.Operation,
	outcome auditDomain.Outcome,
) {
	g.publisher.Publish(ctx, &auditDomain.Event{
		RequesterPrincipalID: requesterPrincipalID,
		GroupID:              groupID,
		SubjectPrincipalID:   subjectPrincipalID,
		Operation:            operation,
		Outcome:              outcome,
	})
}

// realIdentifierFor returns the single real identifier a record maps to pseudonym.
func realIdentifierFor(mapping map[string]string, pseudonym string) (string, bool) {
	if len(mapping) != 1 {
		return "", false
	}
	for realIdentifier, p := range mapping {
		if p == pseudonym {
			return realIdentifier, true
		}
	}
	return "", false
}
