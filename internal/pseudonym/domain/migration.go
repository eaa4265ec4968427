package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MigrationReport summarizes a completed group migration.
type MigrationReport struct {
	GroupID  int64
	Migrated int
	Skipped  int
}

// MemberFailure describes why one member could not be migrated.
type MemberFailure struct {
	MemberID  uuid.UUID
	Pseudonym string
	Reason    string
}

// MigrationError reports an aborted group migration. Nothing was written.
type MigrationError struct {
	GroupID  int64
	Failures []MemberFailure
}

func (e *MigrationError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s (%s): %s", f.Pseudonym, f.MemberID, f.Reason))
	}
	return fmt.Sprintf("migration of group %d aborted: %s", e.GroupID, strings.Join(reasons, "; "))
}

// Unwrap lets callers match ErrMigrationFailed.
func (e *MigrationError) Unwrap() error {
	return ErrMigrationFailed
}
