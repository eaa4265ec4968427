// Package service signs and verifies audit events.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
)

// SigningKeyInfo is the HKDF info label of the audit signing key.
const SigningKeyInfo = "audit-event-signing-v1"

// SubkeyDeriver expands the pepper into purpose-bound keys.
type SubkeyDeriver interface {
	DeriveSubkey(info string) ([]byte, error)
}

// Signer computes HMAC-SHA256 signatures over audit events.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key once from the pepper.
func NewSigner(deriver SubkeyDeriver) (*Signer, error) {
	key, err := deriver.DeriveSubkey(SigningKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to derive audit signing key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Sign returns the signature of event. The Signature field itself is not covered.
func (s *Signer) Sign(event *auditDomain.Event) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(canonicalize(event))
	return mac.Sum(nil)
}

// Verify checks event.Signature in constant time.
func (s *Signer) Verify(event *auditDomain.Event) error {
	if !hmac.Equal(event.Signature, s.Sign(event)) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}

// canonicalize encodes variable-length fields with a uint32 length prefix and
// optional ids with a presence byte, so no two events share an encoding.
func canonicalize(event *auditDomain.Event) []byte {
	buf := make([]byte, 0, 128)

	buf = append(buf, event.ID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(event.RequesterPrincipalID))
	buf = appendOptional(buf, event.GroupID)
	buf = appendOptional(buf, event.SubjectPrincipalID)
	buf = appendLengthPrefixed(buf, []byte(event.Operation))
	buf = appendLengthPrefixed(buf, []byte(event.Outcome))
	buf = binary.BigEndian.AppendUint64(buf, uint64(event.Timestamp.UnixMicro()))

	return buf
}

func appendOptional(buf []byte, v *int64) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return binary.BigEndian.AppendUint64(buf, uint64(*v))
}

func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
