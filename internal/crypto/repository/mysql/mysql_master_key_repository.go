// Package mysql implements crypto persistence for MySQL.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// MySQLMasterKeyRepository persists wrapped random master keys in MySQL.
type MySQLMasterKeyRepository struct {
	db *sql.DB
}

// Create inserts a wrapped master key.
func (m *MySQLMasterKeyRepository) Create(
	ctx context.Context,
	key *cryptoDomain.StoredMasterKey,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO master_keys (principal_id, algorithm, wrapped_key, key_version, created_at) 
			  VALUES (?, ?, ?, ?, ?)`

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
func (m *MySQLMasterKeyRepository) Get(
	ctx context.Context,
	principalID int64,
) (*cryptoDomain.StoredMasterKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT principal_id, algorithm, wrapped_key, key_version, created_at 
			  FROM master_keys 
			  WHERE principal_id = ?`

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

// NewMySQLMasterKeyRepository creates a new MySQL master key repository.
func NewMySQLMasterKeyRepository(db *sql.DB) *MySQLMasterKeyRepository {
	return &MySQLMasterKeyRepository{db: db}
}
