// Package mocks provides mock implementations of the backfill use case interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
)

// MockRowRepository is a mock implementation of RowRepository.
type MockRowRepository struct {
	mock.Mock
}

// ListBatch mocks the ListBatch method.
func (m *MockRowRepository) ListBatch(
	ctx context.Context,
	target backfillDomain.Target,
	afterID string,
	limit int,
) ([]backfillDomain.Row, error) {
	args := m.Called(ctx, target, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]backfillDomain.Row), args.Error(1)
}

// UpdateValue mocks the UpdateValue method.
func (m *MockRowRepository) UpdateValue(
	ctx context.Context,
	target backfillDomain.Target,
	id, oldValue, newValue string,
) (bool, error) {
	args := m.Called(ctx, target, id, oldValue, newValue)
	return args.Bool(0), args.Error(1)
}

// MockRunRepository is a mock implementation of RunRepository.
type MockRunRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockRunRepository) Create(ctx context.Context, run *backfillDomain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// Update mocks the Update method.
func (m *MockRunRepository) Update(ctx context.Context, run *backfillDomain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// List mocks the List method.
func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*backfillDomain.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backfillDomain.Run), args.Error(1)
}

// MockBackfillUseCase is a mock implementation of BackfillUseCase.
type MockBackfillUseCase struct {
	mock.Mock
}

// Encrypt mocks the Encrypt method.
func (m *MockBackfillUseCase) Encrypt(
	ctx context.Context,
	target backfillDomain.Target,
	dryRun bool,
) (*backfillDomain.Run, error) {
	args := m.Called(ctx, target, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backfillDomain.Run), args.Error(1)
}

// Audit mocks the Audit method.
func (m *MockBackfillUseCase) Audit(ctx context.Context, target backfillDomain.Target) (*backfillDomain.Run, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backfillDomain.Run), args.Error(1)
}

// EncryptAll mocks the EncryptAll method.
func (m *MockBackfillUseCase) EncryptAll(
	ctx context.Context,
	targets []backfillDomain.Target,
	dryRun bool,
) ([]*backfillDomain.Run, error) {
	args := m.Called(ctx, targets, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backfillDomain.Run), args.Error(1)
}

// AuditAll mocks the AuditAll method.
func (m *MockBackfillUseCase) AuditAll(
	ctx context.Context,
	targets []backfillDomain.Target,
) ([]*backfillDomain.Run, error) {
	args := m.Called(ctx, targets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backfillDomain.Run), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockBackfillUseCase) ListRuns(ctx context.Context, limit int) ([]*backfillDomain.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*backfillDomain.Run), args.Error(1)
}
