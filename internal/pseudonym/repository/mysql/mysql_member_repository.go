package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

const memberColumns = `id, group_id, pseudonym, real_identifier, encrypted_identity, identity_hash, role, status, joined_at, version`

// MySQLMemberRepository implements Member persistence for MySQL.
type MySQLMemberRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*pseudonymDomain.Member, error) {
	var member pseudonymDomain.Member
	var id []byte
	var realIdentifier, encryptedIdentity, identityHash sql.NullString

	if err := row.Scan(
		&id,
		&member.GroupID,
		&member.Pseudonym,
		&realIdentifier,
		&encryptedIdentity,
		&identityHash,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
		&member.Version,
	); err != nil {
		return nil, err
	}

	memberID, err := uuid.FromBytes(id)
	if err != nil {
		return nil, err
	}
	member.ID = memberID

	identity, err := pseudonymDomain.NewIdentityFromColumns(realIdentifier, encryptedIdentity)
	if err != nil {
		return nil, err
	}
	member.Identity = identity
	if identityHash.Valid {
		member.IdentityHash = &identityHash.String
	}
	return &member, nil
}

// Create inserts a new member.
func (m *MySQLMemberRepository) Create(ctx context.Context, member *pseudonymDomain.Member) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO members (` + memberColumns + `) 
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := member.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal member id")
	}

	realIdentifier, encryptedIdentity := member.IdentityColumns()
	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		member.GroupID,
		member.Pseudonym,
		realIdentifier,
		encryptedIdentity,
		member.IdentityHash,
		member.Role,
		member.Status,
		member.JoinedAt,
		member.Version,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return pseudonymDomain.ErrMemberAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create member")
	}
	return nil
}

// ListByGroup returns the members of a group in join order.
func (m *MySQLMemberRepository) ListByGroup(
	ctx context.Context,
	groupID int64,
) ([]*pseudonymDomain.Member, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + memberColumns + ` 
			  FROM members 
			  WHERE group_id = ? 
			  ORDER BY joined_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list members")
	}
	defer func() {
		_ = rows.Close()
	}()

	var members []*pseudonymDomain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan member")
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating members")
	}
	return members, nil
}

func (m *MySQLMemberRepository) getBy(
	ctx context.Context,
	condition string,
	args ...any,
) (*pseudonymDomain.Member, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + memberColumns + ` 
			  FROM members 
			  WHERE ` + condition

	member, err := scanMember(querier.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pseudonymDomain.ErrMemberNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get member")
	}
	return member, nil
}

// GetByPseudonym retrieves a member by pseudonym.
func (m *MySQLMemberRepository) GetByPseudonym(
	ctx context.Context,
	groupID int64,
	pseudonym string,
) (*pseudonymDomain.Member, error) {
	return m.getBy(ctx, `group_id = ? AND pseudonym = ?`, groupID, pseudonym)
}

// GetByIdentityHash retrieves a member by the keyed hash of its real identifier.
func (m *MySQLMemberRepository) GetByIdentityHash(
	ctx context.Context,
	groupID int64,
	identityHash string,
) (*pseudonymDomain.Member, error) {
	return m.getBy(ctx, `group_id = ? AND identity_hash = ?`, groupID, identityHash)
}

// GetByRealIdentifier retrieves a plaintext member by its real identifier.
func (m *MySQLMemberRepository) GetByRealIdentifier(
	ctx context.Context,
	groupID int64,
	realIdentifier string,
) (*pseudonymDomain.Member, error) {
	return m.getBy(ctx, `group_id = ? AND real_identifier = ? LIMIT 1`, groupID, realIdentifier)
}

// ExistsPseudonym reports whether the pseudonym is taken in the group.
func (m *MySQLMemberRepository) ExistsPseudonym(
	ctx context.Context,
	groupID int64,
	pseudonym string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (SELECT 1 FROM members WHERE group_id = ? AND pseudonym = ?)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, groupID, pseudonym).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check pseudonym")
	}
	return exists, nil
}

// MarkEncrypted replaces a plaintext identity with an encrypted one.
func (m *MySQLMemberRepository) MarkEncrypted(
	ctx context.Context,
	member *pseudonymDomain.Member,
	blob cryptoDomain.CiphertextBlob,
	identityHash string,
) error {
	query := `UPDATE members 
			  SET real_identifier = NULL, encrypted_identity = ?, identity_hash = ?, version = version + 1 
			  WHERE id = ? AND version = ? AND real_identifier IS NOT NULL`

	return m.updateIdentity(ctx, query, member, blob, identityHash)
}

// UpdateIdentity replaces the identity of a member.
func (m *MySQLMemberRepository) UpdateIdentity(
	ctx context.Context,
	member *pseudonymDomain.Member,
	blob cryptoDomain.CiphertextBlob,
	identityHash string,
) error {
	query := `UPDATE members 
			  SET real_identifier = NULL, encrypted_identity = ?, identity_hash = ?, version = version + 1 
			  WHERE id = ? AND version = ?`

	return m.updateIdentity(ctx, query, member, blob, identityHash)
}

func (m *MySQLMemberRepository) updateIdentity(
	ctx context.Context,
	query string,
	member *pseudonymDomain.Member,
	blob cryptoDomain.CiphertextBlob,
	identityHash string,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := member.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal member id")
	}

	result, err := querier.ExecContext(ctx, query, blob.String(), identityHash, id, member.Version)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return pseudonymDomain.ErrMemberAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update member identity")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return pseudonymDomain.ErrMemberVersionConflict
	}

	member.Identity = pseudonymDomain.EncryptedIdentity{Blob: blob}
	member.IdentityHash = &identityHash
	member.Version++
	return nil
}

// Delete removes a member.
func (m *MySQLMemberRepository) Delete(ctx context.Context, memberID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := memberID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal member id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete member")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return pseudonymDomain.ErrMemberNotFound
	}
	return nil
}

// NewMySQLMemberRepository creates a new MySQL member repository.
func NewMySQLMemberRepository(db *sql.DB) *MySQLMemberRepository {
	return &MySQLMemberRepository{db: db}
}
