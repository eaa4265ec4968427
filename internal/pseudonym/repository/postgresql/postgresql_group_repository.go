// Package postgresql implements group and member persistence for PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

// PostgreSQLGroupRepository implements Group persistence for PostgreSQL.
type PostgreSQLGroupRepository struct {
	db *sql.DB
}

// Create inserts a group and sets its generated ID.
func (p *PostgreSQLGroupRepository) Create(ctx context.Context, group *pseudonymDomain.Group) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO pseudonym_groups (owner_principal_id, name, created_at) 
			  VALUES ($1, $2, $3) 
			  RETURNING id`

	err := querier.QueryRowContext(ctx, query, group.OwnerPrincipalID, group.Name, group.CreatedAt).
		Scan(&group.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to create group")
	}
	return nil
}

// Get retrieves a group by ID.
func (p *PostgreSQLGroupRepository) Get(ctx context.Context, groupID int64) (*pseudonymDomain.Group, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, owner_principal_id, name, created_at 
			  FROM pseudonym_groups 
			  WHERE id = $1`

	var group pseudonymDomain.Group
	err := querier.QueryRowContext(ctx, query, groupID).Scan(
		&group.ID,
		&group.OwnerPrincipalID,
		&group.Name,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pseudonymDomain.ErrGroupNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get group")
	}
	return &group, nil
}

// Delete removes a group. Members are removed by the foreign key cascade.
func (p *PostgreSQLGroupRepository) Delete(ctx context.Context, groupID int64) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM pseudonym_groups WHERE id = $1`, groupID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete group")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return pseudonymDomain.ErrGroupNotFound
	}
	return nil
}

// ListIDsWithPlaintextMembers returns ids of groups that still hold plaintext members.
func (p *PostgreSQLGroupRepository) ListIDsWithPlaintextMembers(ctx context.Context) ([]int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT DISTINCT group_id 
			  FROM members 
			  WHERE real_identifier IS NOT NULL 
			  ORDER BY group_id`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list groups with plaintext members")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan group id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating group ids")
	}
	return ids, nil
}

// NewPostgreSQLGroupRepository creates a new PostgreSQL group repository.
func NewPostgreSQLGroupRepository(db *sql.DB) *PostgreSQLGroupRepository {
	return &PostgreSQLGroupRepository{db: db}
}
