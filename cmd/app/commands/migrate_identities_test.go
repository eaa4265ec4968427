package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	pseudonymUseCase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
	"github.com/allisson/pseudonyms/internal/pseudonym/usecase/mocks"
)

func TestRunMigrateIdentities(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("single group", func(t *testing.T) {
		useCase := &mocks.MockMigrationUseCase{}
		useCase.On("MigrateGroup", ctx, int64(7)).
			Return(&pseudonymDomain.MigrationReport{GroupID: 7, Migrated: 3, Skipped: 2}, nil).
			Once()

		var out bytes.Buffer
		require.NoError(t, RunMigrateIdentities(ctx, useCase, logger, &out, 7, false, "text"))
		assert.Contains(t, out.String(), "Group 7: migrated 3, skipped 2")
		useCase.AssertExpectations(t)
	})

	t.Run("single group failure lists members", func(t *testing.T) {
		memberID := uuid.Must(uuid.NewV7())
		useCase := &mocks.MockMigrationUseCase{}
		useCase.On("MigrateGroup", ctx, int64(7)).
			Return(nil, &pseudonymDomain.MigrationError{
				GroupID: 7,
				Failures: []pseudonymDomain.MemberFailure{
					{MemberID: memberID, Pseudonym: "Brave Otter", Reason: "encryption failed"},
				},
			}).
			Once()

		var out bytes.Buffer
		err := RunMigrateIdentities(ctx, useCase, logger, &out, 7, false, "text")
		require.Error(t, err)
		assert.Contains(t, out.String(), "Group 7: FAILED")
		assert.Contains(t, out.String(), "Brave Otter ("+memberID.String()+"): encryption failed")
	})

	t.Run("all groups json", func(t *testing.T) {
		useCase := &mocks.MockMigrationUseCase{}
		useCase.On("MigrateAll", ctx).
			Return([]*pseudonymUseCase.GroupMigrationResult{
				{GroupID: 1, Report: &pseudonymDomain.MigrationReport{GroupID: 1, Migrated: 1}},
				{GroupID: 2, Err: pseudonymDomain.ErrMigrationInProgress},
			}, nil).
			Once()

		var out bytes.Buffer
		err := RunMigrateIdentities(ctx, useCase, logger, &out, 0, true, "json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Contains(t, out.String(), `"group_id": 1`)
		assert.Contains(t, out.String(), `"error": "migration already in progress for group`)
	})

	t.Run("all groups error", func(t *testing.T) {
		useCase := &mocks.MockMigrationUseCase{}
		useCase.On("MigrateAll", ctx).Return(nil, errors.New("db down")).Once()

		err := RunMigrateIdentities(ctx, useCase, logger, &bytes.Buffer{}, 0, true, "text")
		require.Error(t, err)
	})

	t.Run("flags are exclusive", func(t *testing.T) {
		require.Error(t, RunMigrateIdentities(ctx, nil, logger, &bytes.Buffer{}, 0, false, "text"))
		require.Error(t, RunMigrateIdentities(ctx, nil, logger, &bytes.Buffer{}, 7, true, "text"))
	})
}
