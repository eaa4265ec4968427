package mysql

import (
	"context"
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// MySQLPepperVerifierRepository persists the pepper fingerprint in MySQL.
type MySQLPepperVerifierRepository struct {
	db *sql.DB
}

// Create stores the verifier row.
func (m *MySQLPepperVerifierRepository) Create(
	ctx context.Context,
	verifier *cryptoDomain.PepperVerifier,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO pepper_verifiers (id, hash, created_at) VALUES (?, ?, ?)`

	_, err := querier.ExecContext(ctx, query, verifier.ID, verifier.Hash, verifier.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return apperrors.Wrap(err, "failed to create pepper verifier")
	}
	return nil
}

// Get returns the oldest verifier row.
func (m *MySQLPepperVerifierRepository) Get(
	ctx context.Context,
) (*cryptoDomain.PepperVerifier, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, hash, created_at FROM pepper_verifiers ORDER BY id ASC LIMIT 1`

	var verifier cryptoDomain.PepperVerifier
	err := querier.QueryRowContext(ctx, query).Scan(
		&verifier.ID,
		&verifier.Hash,
		&verifier.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrPepperVerifierNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get pepper verifier")
	}
	return &verifier, nil
}

// NewMySQLPepperVerifierRepository creates a new MySQL pepper verifier repository.
func NewMySQLPepperVerifierRepository(db *sql.DB) *MySQLPepperVerifierRepository {
	return &MySQLPepperVerifierRepository{db: db}
}
