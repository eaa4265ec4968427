package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/pseudonyms/internal/audit/domain"
	cryptoDomain "github.com/allisson/pseudonyms/internal/crypto/domain"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

func TestPseudonymUseCase_OwnerGeneratesAndDecrypts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createGroup(t, 7, 42)
	key := f.masterKey(t, 42)

	results, err := f.useCase.GeneratePseudonyms(ctx, 42, 7, []string{"Alice", "Bob"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].Pseudonym, results[1].Pseudonym)
	assert.True(t, results[0].Created)
	assert.True(t, results[1].Created)

	for i, realIdentifier := range []string{"Alice", "Bob"} {
		record, err := f.vault.Decrypt(results[i].EncryptedIdentity, key, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), record.GroupID)
		assert.Equal(t, map[string]string{realIdentifier: results[i].Pseudonym}, record.Mapping)
	}

	t.Run("repeat returns the same pseudonyms", func(t *testing.T) {
		again, err := f.useCase.GeneratePseudonyms(ctx, 42, 7, []string{"Bob", "Alice"})
		require.NoError(t, err)
		assert.Equal(t, results[1].Pseudonym, again[0].Pseudonym)
		assert.Equal(t, results[0].Pseudonym, again[1].Pseudonym)
		assert.Equal(t, results[0].EncryptedIdentity, again[1].EncryptedIdentity)
		assert.False(t, again[0].Created)
		assert.Len(t, f.store.groupMembers(7), 2)
	})

	t.Run("owner decrypts mapping", func(t *testing.T) {
		mapping, err := f.useCase.DecryptMapping(ctx, 42, 7, key)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			results[0].Pseudonym: "Alice",
			results[1].Pseudonym: "Bob",
		}, mapping)
	})

	t.Run("master key matches derivation", func(t *testing.T) {
		got, err := f.useCase.GetMasterKey(ctx, 42, 42)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	})

	t.Run("list hides identities of encrypted members", func(t *testing.T) {
		views, err := f.useCase.ListPseudonyms(ctx, 42, 7)
		require.NoError(t, err)
		require.Len(t, views, 2)
		for _, v := range views {
			assert.True(t, v.Encrypted)
			assert.Nil(t, v.RealIdentifier)
			assert.Equal(t, pseudonymDomain.RoleParticipant, v.Role)
			assert.Equal(t, pseudonymDomain.StatusActive, v.Status)
		}
	})

	assert.Equal(t,
		[]auditDomain.Outcome{auditDomain.OutcomeGranted},
		f.publisher.outcomes(auditDomain.OperationDecryptMapping),
	)
}

func TestPseudonymUseCase_GeneratePseudonyms(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicates in a batch resolve to one member", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)

		results, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Alice", "Alice"})
		require.NoError(t, err)
		assert.Same(t, results[0], results[1])
		assert.Len(t, f.store.groupMembers(1), 1)
	})

	t.Run("invalid input rejects the whole batch", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)

		cases := map[string][]string{
			"empty batch":   {},
			"blank entry":   {"Alice", "  "},
			"too long":      {strings.Repeat("x", 256)},
			"batch too big": make([]string, 11),
		}
		for name, input := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, input)
				assert.ErrorIs(t, err, pseudonymDomain.ErrValidation)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			})
		}
		assert.Empty(t, f.store.groupMembers(1))
		assert.Empty(t, f.publisher.outcomes(auditDomain.OperationGeneratePseudonyms))
	})

	t.Run("only the owner may generate", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)

		_, err := f.useCase.GeneratePseudonyms(ctx, 11, 1, []string{"Alice"})
		assert.ErrorIs(t, err, pseudonymDomain.ErrAccessDenied)

		_, err = f.useCase.GeneratePseudonyms(ctx, 10, 99, []string{"Alice"})
		assert.ErrorIs(t, err, pseudonymDomain.ErrAccessDenied)

		assert.Equal(t,
			[]auditDomain.Outcome{auditDomain.OutcomeDenied, auditDomain.OutcomeDenied},
			f.publisher.outcomes(auditDomain.OperationGeneratePseudonyms),
		)
		assert.Empty(t, f.store.groupMembers(1))
	})

	t.Run("plaintext members are found without being modified", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)
		ids := f.seedPlaintext(t, 1, "Carol")

		results, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Carol"})
		require.NoError(t, err)
		assert.Equal(t, ids[0], results[0].MemberID)
		assert.False(t, results[0].Created)

		record, err := f.vault.Decrypt(results[0].EncryptedIdentity, f.masterKey(t, 10), 1)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Carol": results[0].Pseudonym}, record.Mapping)

		stored := f.store.member(ids[0])
		assert.False(t, stored.IsEncrypted())
		assert.Equal(t, 1, stored.Version)
	})

	t.Run("collision moves to the next attempt", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)
		taken, err := f.generator.Generate("Dave", pseudonymDomain.GroupScope(1), 0)
		require.NoError(t, err)
		f.seedPlaintextWithPseudonym(t, 1, "Zed", taken)

		results, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Dave"})
		require.NoError(t, err)
		next, err := f.generator.Generate("Dave", pseudonymDomain.GroupScope(1), 1)
		require.NoError(t, err)
		if next != taken {
			assert.Equal(t, next, results[0].Pseudonym)
		}
		assert.NotEqual(t, taken, results[0].Pseudonym)
	})

	t.Run("exhausted attempts report a uniqueness conflict", func(t *testing.T) {
		f := newFixtureWithAttempts(t, 1)
		f.createGroup(t, 1, 10)
		taken, err := f.generator.Generate("Dave", pseudonymDomain.GroupScope(1), 0)
		require.NoError(t, err)
		f.seedPlaintextWithPseudonym(t, 1, "Zed", taken)

		_, err = f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Alice", "Dave"})
		assert.ErrorIs(t, err, pseudonymDomain.ErrUniquenessConflict)
		assert.ErrorIs(t, err, apperrors.ErrConflict)

		// Alice was created before Dave failed and must be rolled back.
		assert.Len(t, f.store.groupMembers(1), 1)
	})
}

func TestPseudonymUseCase_GenerateFullBatch(t *testing.T) {
	ctx := context.Background()
	const batchSize = 100

	// Near duplicates differ by case, whitespace or a single rune.
	identifiers := []string{"Alice", "alice", "Alice ", " Alice", "Alicf", "Ålice", "A1ice"}
	for i := 1; len(identifiers) < batchSize; i++ {
		identifiers = append(identifiers, fmt.Sprintf("user%d", i))
	}

	for _, withEpithet := range []bool{true, false} {
		t.Run(fmt.Sprintf("epithet=%t", withEpithet), func(t *testing.T) {
			f := newFixtureWithConfig(t, fixtureConfig{
				maxAttempts:  16,
				maxBatchSize: batchSize,
				withEpithet:  withEpithet,
			})
			f.createGroup(t, 1, 10)
			key := f.masterKey(t, 10)

			results, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, identifiers)
			require.NoError(t, err)
			require.Len(t, results, batchSize)

			seen := make(map[string]string, batchSize)
			for i, result := range results {
				if other, ok := seen[result.Pseudonym]; ok {
					t.Fatalf("%q and %q share pseudonym %q", other, identifiers[i], result.Pseudonym)
				}
				seen[result.Pseudonym] = identifiers[i]

				record, err := f.vault.Decrypt(result.EncryptedIdentity, key, 1)
				require.NoError(t, err)
				assert.Equal(t, map[string]string{identifiers[i]: result.Pseudonym}, record.Mapping)
			}
			assert.Len(t, f.store.groupMembers(1), batchSize)

			mapping, err := f.useCase.DecryptMapping(ctx, 10, 1, key)
			require.NoError(t, err)
			assert.Equal(t, seen, mapping)
		})
	}
}

func TestPseudonymUseCase_GenerateAfterConcurrentInsert(t *testing.T) {
	ctx := context.Background()

	// rival copies the pending member under a new id, as a concurrent request would.
	rival := func(pending pseudonymDomain.Member, pseudonym string) pseudonymDomain.Member {
		pending.ID = uuid.Must(uuid.NewV7())
		pending.Pseudonym = pseudonym
		return pending
	}

	t.Run("same identity resolves to the winner", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)
		var winner pseudonymDomain.Member
		f.store.beforeCreate = func(pending pseudonymDomain.Member) {
			winner = rival(pending, "Quiet Heron")
			f.store.commit(winner)
		}

		results, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Alice"})
		require.NoError(t, err)
		assert.Equal(t, winner.ID, results[0].MemberID)
		assert.Equal(t, "Quiet Heron", results[0].Pseudonym)
		assert.False(t, results[0].Created)
		assert.Len(t, f.store.groupMembers(1), 1)
	})

	t.Run("same pseudonym moves to another candidate", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)
		var taken string
		f.store.beforeCreate = func(pending pseudonymDomain.Member) {
			taken = pending.Pseudonym
			winner := rival(pending, pending.Pseudonym)
			winner.IdentityHash = nil
			winner.Identity = pseudonymDomain.PlaintextIdentity{RealIdentifier: "Zed"}
			f.store.commit(winner)
		}

		results, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Alice"})
		require.NoError(t, err)
		assert.NotEqual(t, taken, results[0].Pseudonym)
		assert.True(t, results[0].Created)
		assert.Len(t, f.store.groupMembers(1), 2)
	})

	t.Run("losing every rerun reports a uniqueness conflict", func(t *testing.T) {
		f := newFixture(t)
		f.createGroup(t, 1, 10)
		var steal func(pending pseudonymDomain.Member)
		steal = func(pending pseudonymDomain.Member) {
			winner := rival(pending, pending.Pseudonym)
			winner.IdentityHash = nil
			winner.Identity = pseudonymDomain.PlaintextIdentity{RealIdentifier: uuid.NewString()}
			f.store.commit(winner)
			f.store.beforeCreate = steal
		}
		f.store.beforeCreate = steal

		_, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Alice"})
		assert.ErrorIs(t, err, pseudonymDomain.ErrUniquenessConflict)
		assert.Len(t, f.store.groupMembers(1), generateTxAttempts)
	})
}

func TestPseudonymUseCase_RenameOntoPlaintextIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createGroup(t, 1, 10)
	legacy := f.seedPlaintext(t, 1, "Alice")

	results, err := f.useCase.GeneratePseudonyms(ctx, 10, 1, []string{"Bob"})
	require.NoError(t, err)
	bob := results[0]

	_, err = f.useCase.RenameMember(ctx, 10, 1, bob.Pseudonym, "Alice")
	assert.ErrorIs(t, err, pseudonymDomain.ErrMemberAlreadyExists)

	mapping, err := f.useCase.DecryptMapping(ctx, 10, 1, f.masterKey(t, 10))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		f.store.member(legacy[0]).Pseudonym: "Alice",
		bob.Pseudonym:                       "Bob",
	}, mapping)

	// A plaintext member may be renamed onto its own identifier.
	_, err = f.useCase.RenameMember(ctx, 10, 1, f.store.member(legacy[0]).Pseudonym, "Alice")
	require.NoError(t, err)
	renamed := f.store.member(legacy[0])
	assert.True(t, renamed.IsEncrypted())
}

func TestPseudonymUseCase_DecryptMappingDenials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createGroup(t, 7, 42)
	f.createGroup(t, 8, 43)

	results, err := f.useCase.GeneratePseudonyms(ctx, 42, 7, []string{"Alice"})
	require.NoError(t, err)
	ownerKey := f.masterKey(t, 42)

	tamperedKey := append([]byte(nil), ownerKey...)
	tamperedKey[0] ^= 0x01

	errs := map[string]error{}
	_, errs["unknown group"] = f.useCase.DecryptMapping(ctx, 42, 999, ownerKey)
	_, errs["not owner"] = f.useCase.DecryptMapping(ctx, 43, 7, f.masterKey(t, 43))
	_, errs["wrong key"] = f.useCase.DecryptMapping(ctx, 42, 7, tamperedKey)
	_, errs["owner key for another group"] = f.useCase.DecryptMapping(ctx, 43, 7, ownerKey)
	_, errs["short key"] = f.useCase.DecryptMapping(ctx, 42, 7, ownerKey[:8])
	_, errs["missing key"] = f.useCase.DecryptMapping(ctx, 42, 7, nil)

	// Corrupt the stored blob.
	f.store.mu.Lock()
	m := f.store.members[results[0].MemberID]
	blob := append(cryptoDomain.CiphertextBlob(nil), results[0].EncryptedIdentity...)
	blob[len(blob)-1] ^= 0xff
	m.Identity = pseudonymDomain.EncryptedIdentity{Blob: blob}
	f.store.members[m.ID] = m
	f.store.mu.Unlock()
	_, errs["tampered blob"] = f.useCase.DecryptMapping(ctx, 42, 7, ownerKey)

	for name, err := range errs {
		assert.Equal(t, pseudonymDomain.ErrAccessDenied, err, name)
	}

	outcomes := f.publisher.outcomes(auditDomain.OperationDecryptMapping)
	assert.Len(t, outcomes, len(errs))
	for _, outcome := range outcomes {
		assert.Equal(t, auditDomain.OutcomeDenied, outcome)
	}
}

func TestPseudonymUseCase_GetMasterKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.useCase.GetMasterKey(ctx, 42, 43)
	assert.Equal(t, pseudonymDomain.ErrAccessDenied, err)

	got, err := f.useCase.GetMasterKey(ctx, 43, 43)
	require.NoError(t, err)
	assert.Len(t, got, cryptoDomain.KeySize)

	assert.Equal(t,
		[]auditDomain.Outcome{auditDomain.OutcomeDenied, auditDomain.OutcomeGranted},
		f.publisher.outcomes(auditDomain.OperationGetMasterKey),
	)
	for _, e := range f.publisher.events {
		require.NotNil(t, e.SubjectPrincipalID)
		assert.Nil(t, e.GroupID)
	}
}

func TestPseudonymUseCase_ListPseudonyms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createGroup(t, 1, 10)
	f.seedPlaintext(t, 1, "Carol")

	views, err := f.useCase.ListPseudonyms(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].RealIdentifier)
	assert.Equal(t, "Carol", *views[0].RealIdentifier)
	assert.False(t, views[0].Encrypted)

	views, err = f.useCase.ListPseudonyms(ctx, 11, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].RealIdentifier)

	_, err = f.useCase.ListPseudonyms(ctx, 10, 2)
	assert.ErrorIs(t, err, pseudonymDomain.ErrAccessDenied)
	assert.NotErrorIs(t, err, pseudonymDomain.ErrGroupNotFound)

	assert.Equal(t, []auditDomain.Outcome{
		auditDomain.OutcomeGranted,
		auditDomain.OutcomeGranted,
		auditDomain.OutcomeDenied,
	}, f.publisher.outcomes(auditDomain.OperationListPseudonyms))
}

func TestPseudonymUseCase_MemberLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g, err := f.useCase.CreateGroup(ctx, 10, "  Cohort A ")
	require.NoError(t, err)
	assert.Equal(t, "Cohort A", g.Name)
	assert.Equal(t, int64(10), g.OwnerPrincipalID)

	_, err = f.useCase.CreateGroup(ctx, 10, " ")
	assert.ErrorIs(t, err, pseudonymDomain.ErrInvalidGroupName)

	results, err := f.useCase.GeneratePseudonyms(ctx, 10, g.ID, []string{"Alice", "Bob"})
	require.NoError(t, err)
	alice, bob := results[0], results[1]

	t.Run("rename keeps the pseudonym", func(t *testing.T) {
		renamed, err := f.useCase.RenameMember(ctx, 10, g.ID, alice.Pseudonym, "Alicia")
		require.NoError(t, err)
		assert.Equal(t, alice.Pseudonym, renamed.Pseudonym)
		assert.Equal(t, alice.MemberID, renamed.MemberID)

		again, err := f.useCase.GeneratePseudonyms(ctx, 10, g.ID, []string{"Alicia"})
		require.NoError(t, err)
		assert.Equal(t, alice.Pseudonym, again[0].Pseudonym)

		mapping, err := f.useCase.DecryptMapping(ctx, 10, g.ID, f.masterKey(t, 10))
		require.NoError(t, err)
		assert.Equal(t, "Alicia", mapping[alice.Pseudonym])
		assert.Equal(t, 2, f.store.member(alice.MemberID).Version)
	})

	t.Run("rename onto another member's identity fails", func(t *testing.T) {
		_, err := f.useCase.RenameMember(ctx, 10, g.ID, alice.Pseudonym, "Bob")
		assert.ErrorIs(t, err, pseudonymDomain.ErrMemberAlreadyExists)
	})

	t.Run("rename requires ownership", func(t *testing.T) {
		_, err := f.useCase.RenameMember(ctx, 11, g.ID, alice.Pseudonym, "Eve")
		assert.Equal(t, pseudonymDomain.ErrAccessDenied, err)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, f.useCase.RemoveMember(ctx, 10, g.ID, bob.Pseudonym))
		assert.ErrorIs(t, f.useCase.RemoveMember(ctx, 10, g.ID, bob.Pseudonym), pseudonymDomain.ErrMemberNotFound)
		assert.Len(t, f.store.groupMembers(g.ID), 1)
	})

	t.Run("delete group", func(t *testing.T) {
		assert.Equal(t, pseudonymDomain.ErrAccessDenied, f.useCase.DeleteGroup(ctx, 11, g.ID))
		require.NoError(t, f.useCase.DeleteGroup(ctx, 10, g.ID))

		_, err := f.groups.Get(ctx, g.ID)
		assert.ErrorIs(t, err, pseudonymDomain.ErrGroupNotFound)
		assert.Empty(t, f.store.groupMembers(g.ID))
	})
}
