package usecase

import (
	"context"
	"time"

	"github.com/allisson/pseudonyms/internal/metrics"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

const metricsDomain = "pseudonyms"

// pseudonymUseCaseWithMetrics decorates PseudonymUseCase with metrics instrumentation.
type pseudonymUseCaseWithMetrics struct {
	next    PseudonymUseCase
	metrics metrics.BusinessMetrics
}

// NewPseudonymUseCaseWithMetrics wraps a PseudonymUseCase with metrics recording.
func NewPseudonymUseCaseWithMetrics(useCase PseudonymUseCase, m metrics.BusinessMetrics) PseudonymUseCase {
	return &pseudonymUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (p *pseudonymUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	p.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// CreateGroup records metrics for group creation.
func (p *pseudonymUseCaseWithMetrics) CreateGroup(
	ctx context.Context,
	ownerPrincipalID int64,
	name string,
) (*pseudonymDomain.Group, error) {
	start := time.Now()
	group, err := p.next.CreateGroup(ctx, ownerPrincipalID, name)
	p.record(ctx, "group_create", start, err)
	return group, err
}

// DeleteGroup records metrics for group deletion.
func (p *pseudonymUseCaseWithMetrics) DeleteGroup(ctx context.Context, requesterPrincipalID, groupID int64) error {
	start := time.Now()
	err := p.next.DeleteGroup(ctx, requesterPrincipalID, groupID)
	p.record(ctx, "group_delete", start, err)
	return err
}

// GeneratePseudonyms records metrics for pseudonym generation.
func (p *pseudonymUseCaseWithMetrics) GeneratePseudonyms(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	realIdentifiers []string,
) ([]*pseudonymDomain.GeneratedPseudonym, error) {
	start := time.Now()
	results, err := p.next.GeneratePseudonyms(ctx, requesterPrincipalID, groupID, realIdentifiers)
	p.record(ctx, "generate", start, err)
	if err == nil {
		created := 0
		for _, result := range results {
			if result.Created {
				created++
			}
		}
		p.metrics.RecordPseudonyms(ctx, created, len(results)-created)
	}
	return results, err
}

// ListPseudonyms records metrics for pseudonym listing.
func (p *pseudonymUseCaseWithMetrics) ListPseudonyms(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
) ([]*pseudonymDomain.PseudonymView, error) {
	start := time.Now()
	views, err := p.next.ListPseudonyms(ctx, requesterPrincipalID, groupID)
	p.record(ctx, "list", start, err)
	return views, err
}

// DecryptMapping records metrics for mapping decryption.
func (p *pseudonymUseCaseWithMetrics) DecryptMapping(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	key []byte,
) (map[string]string, error) {
	start := time.Now()
	mapping, err := p.next.DecryptMapping(ctx, requesterPrincipalID, groupID, key)
	p.record(ctx, "decrypt_mapping", start, err)
	return mapping, err
}

// GetMasterKey records metrics for master key retrieval.
func (p *pseudonymUseCaseWithMetrics) GetMasterKey(
	ctx context.Context,
	requesterPrincipalID, principalID int64,
) ([]byte, error) {
	start := time.Now()
	key, err := p.next.GetMasterKey(ctx, requesterPrincipalID, principalID)
	p.record(ctx, "get_master_key", start, err)
	return key, err
}

// RenameMember records metrics for member renames.
func (p *pseudonymUseCaseWithMetrics) RenameMember(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	pseudonym, newRealIdentifier string,
) (*pseudonymDomain.GeneratedPseudonym, error) {
	start := time.Now()
	result, err := p.next.RenameMember(ctx, requesterPrincipalID, groupID, pseudonym, newRealIdentifier)
	p.record(ctx, "rename", start, err)
	return result, err
}

// RemoveMember records metrics for member removal.
func (p *pseudonymUseCaseWithMetrics) RemoveMember(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	pseudonym string,
) error {
	start := time.Now()
	err := p.next.RemoveMember(ctx, requesterPrincipalID, groupID, pseudonym)
	p.record(ctx, "remove", start, err)
	return err
}

// migrationUseCaseWithMetrics decorates MigrationUseCase with metrics instrumentation.
type migrationUseCaseWithMetrics struct {
	next    MigrationUseCase
	metrics metrics.BusinessMetrics
}

// NewMigrationUseCaseWithMetrics wraps a MigrationUseCase with metrics recording.
func NewMigrationUseCaseWithMetrics(useCase MigrationUseCase, m metrics.BusinessMetrics) MigrationUseCase {
	return &migrationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (m *migrationUseCaseWithMetrics) record(
	ctx context.Context,
	start time.Time,
	report *pseudonymDomain.MigrationReport,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if report != nil {
		m.metrics.RecordMigratedMembers(ctx, report.Migrated, report.Skipped)
	}

	m.metrics.RecordOperation(ctx, metricsDomain, "migrate", status)
	m.metrics.RecordDuration(ctx, metricsDomain, "migrate", time.Since(start), status)
}

// MigrateGroup records metrics for a group migration.
func (m *migrationUseCaseWithMetrics) MigrateGroup(
	ctx context.Context,
	groupID int64,
) (*pseudonymDomain.MigrationReport, error) {
	start := time.Now()
	report, err := m.next.MigrateGroup(ctx, groupID)
	m.record(ctx, start, report, err)
	return report, err
}

// MigrateGroupAs records metrics for an owner-requested group migration.
func (m *migrationUseCaseWithMetrics) MigrateGroupAs(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
) (*pseudonymDomain.MigrationReport, error) {
	start := time.Now()
	report, err := m.next.MigrateGroupAs(ctx, requesterPrincipalID, groupID)
	m.record(ctx, start, report, err)
	return report, err
}

// MigrateAll records one migrate operation per group.
func (m *migrationUseCaseWithMetrics) MigrateAll(ctx context.Context) ([]*GroupMigrationResult, error) {
	start := time.Now()
	results, err := m.next.MigrateAll(ctx)
	if err != nil {
		m.record(ctx, start, nil, err)
		return results, err
	}
	for _, result := range results {
		m.record(ctx, start, result.Report, result.Err)
	}
	return results, nil
}
