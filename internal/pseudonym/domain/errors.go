package domain

import (
	"github.com/allisson/pseudonyms/internal/errors"
)

var (
	// ErrValidation indicates input rejected before any state was touched.
	ErrValidation = errors.Wrap(errors.ErrInvalidInput, "validation failed")

	// ErrEmptyRealIdentifier indicates an empty or blank real identifier.
	ErrEmptyRealIdentifier = errors.Wrap(ErrValidation, "real identifier is empty")

	// ErrRealIdentifierTooLong indicates a real identifier above the configured rune limit.
	ErrRealIdentifierTooLong = errors.Wrap(ErrValidation, "real identifier exceeds maximum length")

	// ErrEmptyBatch indicates a generation request without identifiers.
	ErrEmptyBatch = errors.Wrap(ErrValidation, "no real identifiers given")

	// ErrBatchTooLarge indicates a generation request above the configured batch size.
	ErrBatchTooLarge = errors.Wrap(ErrValidation, "too many real identifiers")

	// ErrInvalidGroupName indicates an empty or oversized group name.
	ErrInvalidGroupName = errors.Wrap(ErrValidation, "invalid group name")

	// ErrUniquenessConflict indicates no unused pseudonym was found within the attempt budget.
	ErrUniquenessConflict = errors.Wrap(errors.ErrConflict, "could not generate a unique pseudonym")

	// ErrAccessDenied is the only failure a caller sees from an access-controlled
	// operation. The underlying cause is never exposed.
	ErrAccessDenied = errors.Wrap(errors.ErrForbidden, "access denied")

	// ErrGroupNotFound indicates the group does not exist.
	ErrGroupNotFound = errors.Wrap(errors.ErrNotFound, "group not found")

	// ErrMemberNotFound indicates no member with the pseudonym exists in the group.
	ErrMemberNotFound = errors.Wrap(errors.ErrNotFound, "member not found")

	// ErrMemberAlreadyExists indicates a member with the same pseudonym or identity
	// hash already exists in the group.
	ErrMemberAlreadyExists = errors.Wrap(errors.ErrConflict, "member already exists")

	// ErrMemberVersionConflict indicates the member changed since it was read.
	ErrMemberVersionConflict = errors.Wrap(errors.ErrConflict, "member was modified concurrently")

	// ErrInvalidMemberState indicates a stored member with both or neither identity column set.
	ErrInvalidMemberState = errors.Wrap(errors.ErrInvalidInput, "invalid member identity state")

	// ErrMigrationInProgress indicates another migration holds the group's lock.
	ErrMigrationInProgress = errors.Wrap(errors.ErrLocked, "migration already in progress for group")

	// ErrMigrationFailed indicates a group migration was aborted without writing anything.
	ErrMigrationFailed = errors.Wrap(errors.ErrConflict, "migration failed")
)
