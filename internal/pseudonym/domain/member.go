package domain

import (
	"database/sql"
	"encoding/base64"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
)

// Role is a member's role inside its group.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleModerator   Role = "moderator"
)

// Status is a member's lifecycle status.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Identity is the state of a member's real identity. It is implemented only by
// PlaintextIdentity and EncryptedIdentity.
type Identity interface {
	isIdentity()
}

// PlaintextIdentity is the legacy state: the real identifier stored in clear.
type PlaintextIdentity struct {
	RealIdentifier string
}

// EncryptedIdentity holds a sealed IdentityRecord. No plaintext is retained.
type EncryptedIdentity struct {
	Blob cryptoDomain.CiphertextBlob
}

func (PlaintextIdentity) isIdentity() {}
func (EncryptedIdentity) isIdentity() {}

// Member is a participant of a group, known to other members only by its pseudonym.
//
// IdentityHash is the keyed hash of the real identifier used to find an existing
// member without decrypting. Legacy plaintext members may not have one yet.
type Member struct {
	ID           uuid.UUID
	GroupID      int64
	Pseudonym    string
	Identity     Identity
	IdentityHash *string
	Role         Role
	Status       Status
	JoinedAt     time.Time
	Version      int
}

// IsEncrypted reports whether the member's identity is sealed.
func (m *Member) IsEncrypted() bool {
	_, ok := m.Identity.(EncryptedIdentity)
	return ok
}

// RealIdentifier returns the cleartext identifier of a plaintext member.
func (m *Member) RealIdentifier() (string, bool) {
	p, ok := m.Identity.(PlaintextIdentity)
	return p.RealIdentifier, ok
}

// IdentityColumns returns the values of the real_identifier and encrypted_identity
// columns. Exactly one is valid.
func (m *Member) IdentityColumns() (realIdentifier, encryptedIdentity sql.NullString) {
	switch id := m.Identity.(type) {
	case PlaintextIdentity:
		realIdentifier = sql.NullString{String: id.RealIdentifier, Valid: true}
	case EncryptedIdentity:
		encryptedIdentity = sql.NullString{String: id.Blob.String(), Valid: true}
	}
	return realIdentifier, encryptedIdentity
}

// NewIdentityFromColumns rebuilds an Identity from its stored columns. Rows with
// both or neither column set are rejected.
func NewIdentityFromColumns(realIdentifier, encryptedIdentity sql.NullString) (Identity, error) {
	switch {
	case realIdentifier.Valid && !encryptedIdentity.Valid:
		return PlaintextIdentity{RealIdentifier: realIdentifier.String}, nil
	case encryptedIdentity.Valid && !realIdentifier.Valid:
		blob, err := base64.StdEncoding.DecodeString(encryptedIdentity.String)
		if err != nil {
			return nil, ErrInvalidMemberState
		}
		return EncryptedIdentity{Blob: blob}, nil
	default:
		return nil, ErrInvalidMemberState
	}
}

// ValidateRealIdentifier rejects blank identifiers and identifiers longer than
// maxLength runes.
func ValidateRealIdentifier(realIdentifier string, maxLength int) error {
	if strings.TrimSpace(realIdentifier) == "" {
		return ErrEmptyRealIdentifier
	}
	if utf8.RuneCountInString(realIdentifier) > maxLength {
		return ErrRealIdentifierTooLong
	}
	return nil
}
