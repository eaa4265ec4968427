package dto

import (
	"encoding/base64"
	"time"

	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	pseudonymUseCase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
)

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID               int64     `json:"id"`
	OwnerPrincipalID int64     `json:"owner_principal_id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
}

// MapGroupToResponse converts a domain group to an API response.
func MapGroupToResponse(group *pseudonymDomain.Group) GroupResponse {
	return GroupResponse{
		ID:               group.ID,
		OwnerPrincipalID: group.OwnerPrincipalID,
		Name:             group.Name,
		CreatedAt:        group.CreatedAt,
	}
}

// GeneratedPseudonymResponse is one entry of a generation response.
type GeneratedPseudonymResponse struct {
	MemberID          string `json:"member_id"`
	Pseudonym         string `json:"pseudonym"`
	EncryptedIdentity string `json:"encrypted_identity"`
	Created           bool   `json:"created"`
}

// GeneratePseudonymsResponse lists generated pseudonyms in request order.
type GeneratePseudonymsResponse struct {
	Data []GeneratedPseudonymResponse `json:"data"`
}

// MapGeneratedToResponse converts generation results to an API response.
func MapGeneratedToResponse(results []*pseudonymDomain.GeneratedPseudonym) GeneratePseudonymsResponse {
	data := make([]GeneratedPseudonymResponse, 0, len(results))
	for _, result := range results {
		data = append(data, MapGeneratedPseudonymToResponse(result))
	}
	return GeneratePseudonymsResponse{Data: data}
}

// MapGeneratedPseudonymToResponse converts one generation result.
func MapGeneratedPseudonymToResponse(result *pseudonymDomain.GeneratedPseudonym) GeneratedPseudonymResponse {
	return GeneratedPseudonymResponse{
		MemberID:          result.MemberID.String(),
		Pseudonym:         result.Pseudonym,
		EncryptedIdentity: result.EncryptedIdentity.String(),
		Created:           result.Created,
	}
}

// PseudonymViewResponse represents a listed member.
type PseudonymViewResponse struct {
	MemberID       string    `json:"member_id"`
	Pseudonym      string    `json:"pseudonym"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	JoinedAt       time.Time `json:"joined_at"`
	Encrypted      bool      `json:"encrypted"`
	RealIdentifier *string   `json:"real_identifier,omitempty"`
}

// ListPseudonymsResponse lists the members of a group.
type ListPseudonymsResponse struct {
	Data []PseudonymViewResponse `json:"data"`
}

// MapViewsToListResponse converts member views to an API response.
func MapViewsToListResponse(views []*pseudonymDomain.PseudonymView) ListPseudonymsResponse {
	data := make([]PseudonymViewResponse, 0, len(views))
	for _, view := range views {
		data = append(data, PseudonymViewResponse{
			MemberID:       view.MemberID.String(),
			Pseudonym:      view.Pseudonym,
			Role:           string(view.Role),
			Status:         string(view.Status),
			JoinedAt:       view.JoinedAt,
			Encrypted:      view.Encrypted,
			RealIdentifier: view.RealIdentifier,
		})
	}
	return ListPseudonymsResponse{Data: data}
}

// MappingResponse maps each pseudonym to its real identifier.
// SECURITY: Contains re-identified data. Must be transmitted over HTTPS in production.
type MappingResponse struct {
	Mapping map[string]string `json:"mapping"`
}

// MasterKeyResponse carries a principal's base64-encoded master key.
type MasterKeyResponse struct {
	PrincipalID int64  `json:"principal_id"`
	Key         string `json:"key"`
}

// MapMasterKeyToResponse encodes key. Callers must zero key after mapping.
func MapMasterKeyToResponse(principalID int64, key []byte) MasterKeyResponse {
	return MasterKeyResponse{
		PrincipalID: principalID,
		Key:         base64.StdEncoding.EncodeToString(key),
	}
}

// MigrationReportResponse summarizes a completed group migration.
type MigrationReportResponse struct {
	GroupID  int64 `json:"group_id"`
	Migrated int   `json:"migrated"`
	Skipped  int   `json:"skipped"`
}

// MapMigrationReportToResponse converts a migration report to an API response.
func MapMigrationReportToResponse(report *pseudonymDomain.MigrationReport) MigrationReportResponse {
	return MigrationReportResponse{
		GroupID:  report.GroupID,
		Migrated: report.Migrated,
		Skipped:  report.Skipped,
	}
}

// GroupMigrationResultResponse is one group's outcome in a batch migration.
type GroupMigrationResultResponse struct {
	GroupID  int64  `json:"group_id"`
	Migrated int    `json:"migrated"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// MapMigrationResults converts batch migration results for display.
func MapMigrationResults(results []*pseudonymUseCase.GroupMigrationResult) []GroupMigrationResultResponse {
	out := make([]GroupMigrationResultResponse, 0, len(results))
	for _, result := range results {
		entry := GroupMigrationResultResponse{GroupID: result.GroupID}
		if result.Report != nil {
			entry.Migrated = result.Report.Migrated
			entry.Skipped = result.Report.Skipped
		}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}
