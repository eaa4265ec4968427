// Package mysql implements audit event persistence for MySQL.
package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	"github.com/allisson/pseudonyms/internal/database"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// MySQLEventRepository stores audit events in MySQL. Ids are BINARY(16).
type MySQLEventRepository struct {
	db *sql.DB
}

// Create inserts an audit event.
func (m *MySQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO audit_events (id, requester_principal_id, group_id, subject_principal_id, operation, outcome, signature, created_at) 
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLEventRepository) List(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, requester_principal_id, group_id, subject_principal_id, operation, outcome, signature, created_at 
			  FROM audit_events 
			  WHERE created_at >= ? AND created_at <= ? 
			  ORDER BY created_at ASC, id ASC 
			  LIMIT ?`

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
		var id []byte
		var groupID, subjectID sql.NullInt64
		if err := rows.Scan(
			&id,
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
		if event.ID, err = uuid.FromBytes(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit event id")
		}
		if groupID.Valid {
			event.GroupID = &groupID.Int64
		}
		if subjectID.Valid {
			event.SubjectPrincipalID = &subjectID.Int64
		}
		event.Timestamp = event.Timestamp.UTC()
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating audit events")
	}

	return events, nil
}

// NewMySQLEventRepository creates a new MySQL audit event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}
