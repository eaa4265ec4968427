// Package postgresql implements crypto persistence for PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// PostgreSQLMasterKeyRepository persists wrapped random master keys in PostgreSQL.
type PostgreSQLMasterKeyRepository struct {
	db *sql.DB
}

// Create inserts a wrapped master key.
func (p *PostgreSQLMasterKeyRepository) Create(
	ctx context.Context,
	key *cryptoDomain.StoredMasterKey,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO master_keys (principal_id, algorithm, wrapped_key, key_version, created_at) 
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.PrincipalID,
		key.Algorithm,
		[]byte(key.WrappedKey),
		key.KeyVersion,
		key.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return cryptoDomain.ErrMasterKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create master key")
	}
	return nil
}

// Get retrieves the wrapped master key of a principal.
func (p *PostgreSQLMasterKeyRepository) Get(
	ctx context.Context,
	principalID int64,
) (*cryptoDomain.StoredMasterKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT principal_id, algorithm, wrapped_key, key_version, created_at 
			  FROM master_keys 
			  WHERE principal_id = $1`

	var key cryptoDomain.StoredMasterKey
	var wrapped []byte
	err := querier.QueryRowContext(ctx, query, principalID).Scan(
		&key.PrincipalID,
		&key.Algorithm,
		&wrapped,
		&key.KeyVersion,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrMasterKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get master key")
	}
	key.WrappedKey = wrapped

	return &key, nil
}

// NewPostgreSQLMasterKeyRepository creates a new PostgreSQL master key repository.
func NewPostgreSQLMasterKeyRepository(db *sql.DB) *PostgreSQLMasterKeyRepository {
	return &PostgreSQLMasterKeyRepository{db: db}
}
