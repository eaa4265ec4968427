package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	"github.com/allisson/pseudonyms/internal/pseudonym/http/dto"
	pseudonymUseCase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
)

// RunMigrateIdentities encrypts plaintext members of one group, or of every group when
// all is set. A group is migrated completely or not at all; with all, a failing group
// does not stop the others but makes the command fail.
func RunMigrateIdentities(
	ctx context.Context,
	migrationUseCase pseudonymUseCase.MigrationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	groupID int64,
	all bool,
	format string,
) error {
	if all == (groupID > 0) {
		return fmt.Errorf("exactly one of --group-id or --all is required")
	}

	var results []*pseudonymUseCase.GroupMigrationResult
	if all {
		logger.Info("migrating identities of all groups")

		var err error
		results, err = migrationUseCase.MigrateAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate identities: %w", err)
		}
	} else {
		logger.Info("migrating identities", slog.Int64("group_id", groupID))

		report, err := migrationUseCase.MigrateGroup(ctx, groupID)
		results = []*pseudonymUseCase.GroupMigrationResult{{GroupID: groupID, Report: report, Err: err}}
	}

	if format == "json" {
		if err := writeJSON(writer, dto.MapMigrationResults(results)); err != nil {
			return err
		}
	} else {
		outputMigrationText(writer, results)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			logger.Error("group migration failed",
				slog.Int64("group_id", result.GroupID),
				slog.Any("error", result.Err),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d group migration(s) failed", failed, len(results))
	}
	return nil
}

func outputMigrationText(writer io.Writer, results []*pseudonymUseCase.GroupMigrationResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(writer, "No groups with plaintext members")
		return
	}

	for _, result := range results {
		if result.Err != nil {
			_, _ = fmt.Fprintf(writer, "Group %d: FAILED: %v\n", result.GroupID, result.Err)
			var migrationErr *pseudonymDomain.MigrationError
			if errors.As(result.Err, &migrationErr) {
				for _, failure := range migrationErr.Failures {
					_, _ = fmt.Fprintf(writer, "  - %s (%s): %s\n", failure.Pseudonym, failure.MemberID, failure.Reason)
				}
			}
			continue
		}
		_, _ = fmt.Fprintf(
			writer,
			"Group %d: migrated %d, skipped %d\n",
			result.GroupID,
			result.Report.Migrated,
			result.Report.Skipped,
		)
	}
}
