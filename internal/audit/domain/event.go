// Package domain defines audit events recorded for every access-controlled operation.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the access-controlled operation an event refers to.
type Operation string

const (
	OperationGeneratePseudonyms Operation = "generate_pseudonyms"
	OperationListPseudonyms     Operation = "list_pseudonyms"
	OperationDecryptMapping     Operation = "decrypt_mapping"
	OperationGetMasterKey       Operation = "get_master_key"
	OperationRenameMember       Operation = "rename_member"
	OperationRemoveMember       Operation = "remove_member"
	OperationMigrateGroup       Operation = "migrate_group"
	OperationDeleteGroup        Operation = "delete_group"
)

// Outcome is the decision recorded in an event.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
)

// Event records who asked for what and whether it was allowed.
//
// GroupID is set for group operations and SubjectPrincipalID for operations on a
// principal's key. Signature is an HMAC over the canonical form of every other field.
type Event struct {
	ID                   uuid.UUID
	RequesterPrincipalID int64
	GroupID              *int64
	SubjectPrincipalID   *int64
	Operation            Operation
	Outcome              Outcome
	Timestamp            time.Time
	Signature            []byte
}
