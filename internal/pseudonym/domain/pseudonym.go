package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
)

// GeneratedPseudonym is one result of a generation request.
type GeneratedPseudonym struct {
	MemberID          uuid.UUID
	Pseudonym         string
	EncryptedIdentity cryptoDomain.CiphertextBlob
	Created           bool
}

// PseudonymView is a member as listed to a principal. RealIdentifier is set only for
// the group owner and only while the member is still in plaintext state.
type PseudonymView struct {
	MemberID       uuid.UUID
	Pseudonym      string
	Role           Role
	Status         Status
	JoinedAt       time.Time
	Encrypted      bool
	RealIdentifier *string
}
