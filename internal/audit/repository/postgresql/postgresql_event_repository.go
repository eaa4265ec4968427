// Package postgresql implements audit event persistence for PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"time"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// PostgreSQLEventRepository stores audit events in PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// Create inserts an audit event.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_events (id, requester_principal_id, group_id, subject_principal_id, operation, outcome, signature, created_at) 
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.RequesterPrincipalID,
		event.GroupID,
		event.SubjectPrincipalID,
		event.Operation,
		event.Outcome,
		event.Signature,
		event.Timestamp,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// List returns events created in [from, to], oldest first.
func (p *PostgreSQLEventRepository) List(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, requester_principal_id, group_id, subject_principal_id, operation, outcome, signature, created_at 
			  FROM audit_events 
			  WHERE created_at >= $1 AND created_at <= $2 
			  ORDER BY created_at ASC, id ASC 
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []*auditDomain.Event
	for rows.Next() {
		var event auditDomain.Event
		var groupID, subjectID sql.NullInt64
		if err := rows.Scan(
			&event.ID,
			&event.RequesterPrincipalID,
			&groupID,
			&subjectID,
			&event.Operation,
			&event.Outcome,
			&event.Signature,
			&event.Timestamp,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event")
		}
		event.GroupID = nullInt64Ptr(groupID)
		event.SubjectPrincipalID = nullInt64Ptr(subjectID)
		event.Timestamp = event.Timestamp.UTC()
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating audit events")
	}

	return events, nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

// NewPostgreSQLEventRepository creates a new PostgreSQL audit event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}
