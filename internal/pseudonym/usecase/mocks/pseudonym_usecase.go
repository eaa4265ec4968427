// Package mocks provides mock implementations of the pseudonym use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	pseudonymUsecase "github.com/allisson/pseudonyms/internal/pseudonym/usecase"
)

// MockPseudonymUseCase is a mock implementation of PseudonymUseCase.
type MockPseudonymUseCase struct {
	mock.Mock
}

// CreateGroup mocks the CreateGroup method.
func (m *MockPseudonymUseCase) CreateGroup(
	ctx context.Context,
	ownerPrincipalID int64,
	name string,
) (*pseudonymDomain.Group, error) {
	args := m.Called(ctx, ownerPrincipalID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pseudonymDomain.Group), args.Error(1)
}

// DeleteGroup mocks the DeleteGroup method.
func (m *MockPseudonymUseCase) DeleteGroup(ctx context.Context, requesterPrincipalID, groupID int64) error {
	args := m.Called(ctx, requesterPrincipalID, groupID)
	return args.Error(0)
}

// GeneratePseudonyms mocks the GeneratePseudonyms method.
func (m *MockPseudonymUseCase) GeneratePseudonyms(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	realIdentifiers []string,
) ([]*pseudonymDomain.GeneratedPseudonym, error) {
	args := m.Called(ctx, requesterPrincipalID, groupID, realIdentifiers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pseudonymDomain.GeneratedPseudonym), args.Error(1)
}

// ListPseudonyms mocks the ListPseudonyms method.
func (m *MockPseudonymUseCase) ListPseudonyms(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
) ([]*pseudonymDomain.PseudonymView, error) {
	args := m.Called(ctx, requesterPrincipalID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pseudonymDomain.PseudonymView), args.Error(1)
}

// DecryptMapping mocks the DecryptMapping method.
func (m *MockPseudonymUseCase) DecryptMapping(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	key []byte,
) (map[string]string, error) {
	args := m.Called(ctx, requesterPrincipalID, groupID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// GetMasterKey mocks the GetMasterKey method.
func (m *MockPseudonymUseCase) GetMasterKey(
	ctx context.Context,
	requesterPrincipalID, principalID int64,
) ([]byte, error) {
	args := m.Called(ctx, requesterPrincipalID, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// RenameMember mocks the RenameMember method.
func (m *MockPseudonymUseCase) RenameMember(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	pseudonym, newRealIdentifier string,
) (*pseudonymDomain.GeneratedPseudonym, error) {
	args := m.Called(ctx, requesterPrincipalID, groupID, pseudonym, newRealIdentifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pseudonymDomain.GeneratedPseudonym), args.Error(1)
}

// RemoveMember mocks the RemoveMember method.
func (m *MockPseudonymUseCase) RemoveMember(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
	pseudonym string,
) error {
	args := m.Called(ctx, requesterPrincipalID, groupID, pseudonym)
	return args.Error(0)
}

// MockMigrationUseCase is a mock implementation of MigrationUseCase.
type MockMigrationUseCase struct {
	mock.Mock
}

// MigrateGroup mocks the MigrateGroup method.
func (m *MockMigrationUseCase) MigrateGroup(
	ctx context.Context,
	groupID int64,
) (*pseudonymDomain.MigrationReport, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pseudonymDomain.MigrationReport), args.Error(1)
}

// MigrateGroupAs mocks the MigrateGroupAs method.
func (m *MockMigrationUseCase) MigrateGroupAs(
	ctx context.Context,
	requesterPrincipalID, groupID int64,
) (*pseudonymDomain.MigrationReport, error) {
	args := m.Called(ctx, requesterPrincipalID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pseudonymDomain.MigrationReport), args.Error(1)
}

// MigrateAll mocks the MigrateAll method.
func (m *MockMigrationUseCase) MigrateAll(ctx context.Context) ([]*pseudonymUsecase.GroupMigrationResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pseudonymUsecase.GroupMigrationResult), args.Error(1)
}

var (
	_ pseudonymUsecase.PseudonymUseCase = (*MockPseudonymUseCase)(nil)
	_ pseudonymUsecase.MigrationUseCase = (*MockMigrationUseCase)(nil)
)
