// Package mysql implements group and member persistence for MySQL.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

// MySQLGroupRepository implements Group persistence for MySQL.
type MySQLGroupRepository struct {
	db *sql.DB
}

// Create inserts a group and sets its generated ID.
func (m *MySQLGroupRepository) Create(ctx context.Context, group *pseudonymDomain.Group) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO pseudonym_groups (owner_principal_id, name, created_at) 
			  VALUES (?, ?, ?)`

	result, err := querier.ExecContext(ctx, query, group.OwnerPrincipalID, group.Name, group.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create group")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to get group id")
	}
	group.ID = id
	return nil
}

// Get retrieves a group by ID.
func (m *MySQLGroupRepository) Get(ctx context.Context, groupID int64) (*pseudonymDomain.Group, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, owner_principal_id, name, created_at 
			  FROM pseudonym_groups 
			  WHERE id = ?`

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
func (m *MySQLGroupRepository) Delete(ctx context.Context, groupID int64) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM pseudonym_groups WHERE id = ?`, groupID)
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
func (m *MySQLGroupRepository) ListIDsWithPlaintextMembers(ctx context.Context) ([]int64, error) {
	querier := database.GetTx(ctx, m.db)

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

// NewMySQLGroupRepository creates a new MySQL group repository.
func NewMySQLGroupRepository(db *sql.DB) *MySQLGroupRepository {
	return &MySQLGroupRepository{db: db}
}
