package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
)

type staticDeriver struct {
	key []byte
	err error
}

func (s staticDeriver) DeriveSubkey(string) ([]byte, error) {
	return s.key, s.err
}

func int64Ptr(v int64) *int64 { return &v }

func newEvent() *auditDomain.Event {
	return &auditDomain.Event{
		ID:                   uuid.Must(uuid.NewV7()),
		RequesterPrincipalID: 42,
		GroupID:              int64Ptr(7),
		Operation:            auditDomain.OperationDecryptMapping,
		Outcome:              auditDomain.OutcomeGranted,
		Timestamp:            time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSigner(t *testing.T) {
	signer, err := NewSigner(staticDeriver{key: make([]byte, 32)})
	require.NoError(t, err)

	t.Run("sign and verify", func(t *testing.T) {
		event := newEvent()
		event.Signature = signer.Sign(event)
		assert.Len(t, event.Signature, 32)
		assert.NoError(t, signer.Verify(event))
	})

	t.Run("deterministic", func(t *testing.T) {
		event := newEvent()
		assert.Equal(t, signer.Sign(event), signer.Sign(event))
	})

	tampers := map[string]func(e *auditDomain.Event){
		"requester":      func(e *auditDomain.Event) { e.RequesterPrincipalID = 43 },
		"group":          func(e *auditDomain.Event) { *e.GroupID = 8 },
		"group removed":  func(e *auditDomain.Event) { e.GroupID = nil },
		"subject added":  func(e *auditDomain.Event) { e.SubjectPrincipalID = int64Ptr(7) },
		"operation":      func(e *auditDomain.Event) { e.Operation = auditDomain.OperationGetMasterKey },
		"outcome":        func(e *auditDomain.Event) { e.Outcome = auditDomain.OutcomeDenied },
		"timestamp":      func(e *auditDomain.Event) { e.Timestamp = e.Timestamp.Add(time.Nanosecond) },
		"id":             func(e *auditDomain.Event) { e.ID = uuid.Must(uuid.NewV7()) },
		"signature trim": func(e *auditDomain.Event) { e.Signature = e.Signature[:31] },
	}
	for name, tamper := range tampers {
		t.Run("detects tampered "+name, func(t *testing.T) {
			event := newEvent()
			event.Signature = signer.Sign(event)
			tamper(event)
			assert.ErrorIs(t, signer.Verify(event), auditDomain.ErrSignatureInvalid)
		})
	}

	t.Run("different key", func(t *testing.T) {
		key := make([]byte, 32)
		key[0] = 1
		other, err := NewSigner(staticDeriver{key: key})
		require.NoError(t, err)

		event := newEvent()
		event.Signature = signer.Sign(event)
		assert.ErrorIs(t, other.Verify(event), auditDomain.ErrSignatureInvalid)
	})

	t.Run("derive error", func(t *testing.T) {
		_, err := NewSigner(staticDeriver{err: assert.AnError})
		assert.ErrorIs(t, err, assert.AnError)
	})
}
