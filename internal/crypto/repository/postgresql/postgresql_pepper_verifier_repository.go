package postgresql

import (
	"context"
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// PostgreSQLPepperVerifierRepository persists the pepper fingerprint in PostgreSQL.
type PostgreSQLPepperVerifierRepository struct {
	db *sql.DB
}

// Create stores the verifier row.
func (p *PostgreSQLPepperVerifierRepository) Create(
	ctx context.Context,
	verifier *cryptoDomain.PepperVerifier,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO pepper_verifiers (id, hash, created_at) VALUES ($1, $2, $3)`

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
func (p *PostgreSQLPepperVerifierRepository) Get(
	ctx context.Context,
) (*cryptoDomain.PepperVerifier, error) {
	querier := database.GetTx(ctx, p.db)

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

// NewPostgreSQLPepperVerifierRepository creates a new PostgreSQL pepper verifier repository.
func NewPostgreSQLPepperVerifierRepository(db *sql.DB) *PostgreSQLPepperVerifierRepository {
	return &PostgreSQLPepperVerifierRepository{db: db}
}
