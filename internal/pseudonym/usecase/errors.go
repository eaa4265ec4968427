package usecase

import (
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// Causes of a denial. They are logged and never returned to callers.
var (
	errNotOwner       = apperrors.New("requester does not own the group")
	errNotSelf        = apperrors.New("requester is not the subject principal")
	errKeyMismatch    = apperrors.New("supplied key does not match the owner key")
	errRecordMismatch = apperrors.New("identity record does not match member pseudonym")
)

var (
	// errDuplicateIdentity marks a plaintext member whose identifier is already claimed in the group.
	errDuplicateIdentity = apperrors.New("real identifier already belongs to another member")

	// errConcurrentInsert aborts a generation transaction that lost an insert race.
	errConcurrentInsert = apperrors.New("member inserted concurrently")
)

// generateTxAttempts bounds reruns of a generation transaction after errConcurrentInsert.
const generateTxAttempts = 2
