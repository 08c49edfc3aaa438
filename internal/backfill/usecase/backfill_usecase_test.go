package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	"github.com/allisson/fieldcrypt/internal/backfill/usecase/mocks"
	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

// MockTxManager runs the callback directly, recording each transaction.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

var target = backfillDomain.Target{Table: "customers", IDColumn: "id", Column: "email"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCipher(secret string) *cryptoService.FieldCipherService {
	return cryptoService.NewFieldCipher(cryptoService.NewKeyManager(cryptoService.StaticSecretSource(secret)))
}

func isEnvelope(fc cryptoService.FieldCipher) any {
	return mock.MatchedBy(func(v string) bool { return fc.LooksLikeEnvelope(v) })
}

func expectRunLifecycle(runRepo *mocks.MockRunRepository) {
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Run")).Return(nil).Once()
	runRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Run")).Return(nil).Once()
}

func TestBackfillUseCase_Encrypt(t *testing.T) {
	ctx := context.Background()
	fc := newCipher("test-secret-value")
	envelope, err := fc.Encrypt("already@example.com")
	require.NoError(t, err)

	t.Run("Success_EncryptsPlaintextAcrossBatches", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		txManager := &MockTxManager{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 3).Return([]backfillDomain.Row{
			{ID: "1", Value: "ivan@example.com"},
			{ID: "2", Null: true},
			{ID: "3", Value: envelope},
		}, nil).Once()
		rowRepo.On("ListBatch", mock.Anything, target, "3", 3).Return([]backfillDomain.Row{
			{ID: "4", Value: "petr@example.com"},
		}, nil).Once()
		rowRepo.On("UpdateValue", mock.Anything, target, "1", "ivan@example.com", isEnvelope(fc)).Return(true, nil).Once()
		rowRepo.On("UpdateValue", mock.Anything, target, "4", "petr@example.com", isEnvelope(fc)).Return(true, nil).Once()
		txManager.On("WithTx", mock.Anything).Return(nil).Twice()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 3}, txManager, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, target, false)

		require.NoError(t, err)
		assert.Equal(t, backfillDomain.ModeEncrypt, run.Mode)
		assert.Equal(t, int64(4), run.Scanned)
		assert.Equal(t, int64(2), run.Encrypted)
		assert.Equal(t, int64(2), run.Skipped)
		assert.NotNil(t, run.FinishedAt)
		assert.Empty(t, run.Error)
		rowRepo.AssertExpectations(t)
		runRepo.AssertExpectations(t)
		txManager.AssertExpectations(t)
	})

	t.Run("Success_DryRunWritesNothing", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		txManager := &MockTxManager{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 10).Return([]backfillDomain.Row{
			{ID: "1", Value: "ivan@example.com"},
			{ID: "2", Value: envelope},
		}, nil).Once()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 10}, txManager, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, target, true)

		require.NoError(t, err)
		assert.True(t, run.DryRun)
		assert.Equal(t, int64(1), run.Encrypted)
		assert.Equal(t, int64(1), run.Skipped)
		rowRepo.AssertNotCalled(t, "UpdateValue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		txManager.AssertNotCalled(t, "WithTx", mock.Anything)
	})

	t.Run("Success_RowChangedConcurrentlyIsSkipped", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		txManager := &MockTxManager{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 10).Return([]backfillDomain.Row{
			{ID: "1", Value: "ivan@example.com"},
		}, nil).Once()
		rowRepo.On("UpdateValue", mock.Anything, target, "1", "ivan@example.com", mock.Anything).Return(false, nil).Once()
		txManager.On("WithTx", mock.Anything).Return(nil).Once()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 10}, txManager, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, target, false)

		require.NoError(t, err)
		assert.Equal(t, int64(0), run.Encrypted)
		assert.Equal(t, int64(1), run.Skipped)
	})

	t.Run("Success_EmptyTable", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 10).Return([]backfillDomain.Row{}, nil).Once()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 10}, &MockTxManager{}, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, target, false)

		require.NoError(t, err)
		assert.Equal(t, int64(0), run.Scanned)
	})

	t.Run("Error_MissingKeyAbortsAndRecordsRun", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		txManager := &MockTxManager{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 10).Return([]backfillDomain.Row{
			{ID: "1", Value: "ivan@example.com"},
		}, nil).Once()
		txManager.On("WithTx", mock.Anything).Return(nil).Once()
		runRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		runRepo.On("Update", mock.Anything, mock.MatchedBy(func(run *backfillDomain.Run) bool {
			return run.Error != "" && run.FinishedAt != nil && run.Encrypted == 0
		})).Return(nil).Once()

		uc := NewBackfillUseCase(Config{BatchSize: 10}, txManager, rowRepo, runRepo, newCipher(""), discardLogger())
		run, err := uc.Encrypt(ctx, target, false)

		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		require.NotNil(t, run)
		assert.Contains(t, run.Error, "encryption key not set")
		runRepo.AssertExpectations(t)
	})

	t.Run("Error_RolledBackBatchNotCounted", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		txManager := &MockTxManager{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 10).Return([]backfillDomain.Row{
			{ID: "1", Value: "ivan@example.com"},
			{ID: "2", Value: "petr@example.com"},
		}, nil).Once()
		rowRepo.On("UpdateValue", mock.Anything, target, "1", "ivan@example.com", mock.Anything).Return(true, nil).Once()
		rowRepo.On("UpdateValue", mock.Anything, target, "2", "petr@example.com", mock.Anything).
			Return(false, errors.New("deadlock detected")).Once()
		txManager.On("WithTx", mock.Anything).Return(nil).Once()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 10}, txManager, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, target, false)

		assert.EqualError(t, err, "deadlock detected")
		assert.Equal(t, int64(0), run.Scanned)
		assert.Equal(t, int64(0), run.Encrypted)
	})

	t.Run("Error_InvalidTarget", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}

		uc := NewBackfillUseCase(Config{}, &MockTxManager{}, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, backfillDomain.Target{Table: "customers", IDColumn: "id", Column: "e-mail"}, false)

		assert.Nil(t, run)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		runRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Error_CreateRunFails", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		runRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("no table")).Once()

		uc := NewBackfillUseCase(Config{}, &MockTxManager{}, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, target, false)

		assert.Nil(t, run)
		assert.EqualError(t, err, "no table")
		rowRepo.AssertNotCalled(t, "ListBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_CancelledContextStillRecordsRun", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		expectRunLifecycle(runRepo)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		uc := NewBackfillUseCase(Config{}, &MockTxManager{}, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(cancelled, target, false)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, context.Canceled.Error(), run.Error)
		runRepo.AssertExpectations(t)
	})

	t.Run("Success_Throttled", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}
		txManager := &MockTxManager{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 2).Return([]backfillDomain.Row{
			{ID: "1", Value: envelope},
			{ID: "2", Value: envelope},
		}, nil).Once()
		rowRepo.On("ListBatch", mock.Anything, target, "2", 2).Return([]backfillDomain.Row{}, nil).Once()
		txManager.On("WithTx", mock.Anything).Return(nil).Once()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 2, RowsPerSec: 1000}, txManager, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Encrypt(ctx, target, false)

		require.NoError(t, err)
		assert.Equal(t, int64(2), run.Skipped)
		rowRepo.AssertExpectations(t)
	})
}

func TestBackfillUseCase_Audit(t *testing.T) {
	ctx := context.Background()
	fc := newCipher("test-secret-value")
	good, err := fc.Encrypt("ivan@example.com")
	require.NoError(t, err)
	foreign, err := newCipher("another-secret").Encrypt("petr@example.com")
	require.NoError(t, err)

	t.Run("Success_CountsEveryClass", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 10).Return([]backfillDomain.Row{
			{ID: "1", Value: good},
			{ID: "2", Value: foreign},
			{ID: "3", Value: "Ivanov Ivan Ivanovich"},
			{ID: "4", Null: true},
			{ID: "5", Value: ""},
		}, nil).Once()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 10}, &MockTxManager{}, rowRepo, runRepo, fc, discardLogger())
		run, err := uc.Audit(ctx, target)

		require.NoError(t, err)
		assert.Equal(t, backfillDomain.ModeAudit, run.Mode)
		assert.Equal(t, int64(5), run.Scanned)
		assert.Equal(t, int64(1), run.Encrypted)
		assert.Equal(t, int64(1), run.Failed)
		assert.Equal(t, int64(1), run.Legacy)
		assert.Equal(t, int64(2), run.Skipped)
		assert.False(t, run.Healthy())
		rowRepo.AssertNotCalled(t, "UpdateValue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_MissingKey", func(t *testing.T) {
		rowRepo := &mocks.MockRowRepository{}
		runRepo := &mocks.MockRunRepository{}

		rowRepo.On("ListBatch", mock.Anything, target, "", 10).Return([]backfillDomain.Row{
			{ID: "1", Value: good},
		}, nil).Once()
		expectRunLifecycle(runRepo)

		uc := NewBackfillUseCase(Config{BatchSize: 10}, &MockTxManager{}, rowRepo, runRepo, newCipher(""), discardLogger())
		_, err := uc.Audit(ctx, target)

		assert.ErrorIs(t, err, cryptoDomain.ErrEncryptionKeyNotSet)
	})
}

// memoryRows is an in-memory RowRepository keyed by target.
type memoryRows struct {
	mu     sync.Mutex
	tables map[backfillDomain.Target]map[string]string
}

func newMemoryRows() *memoryRows {
	return &memoryRows{tables: map[backfillDomain.Target]map[string]string{}}
}

func (m *memoryRows) put(target backfillDomain.Target, id int, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[target] == nil {
		m.tables[target] = map[string]string{}
	}
	m.tables[target][strconv.Itoa(id+1000)] = value
}

func (m *memoryRows) get(target backfillDomain.Target) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.tables[target] {
		out[k] = v
	}
	return out
}

func (m *memoryRows) ListBatch(
	ctx context.Context,
	target backfillDomain.Target,
	afterID string,
	limit int,
) ([]backfillDomain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.tables[target]))
	for id := range m.tables[target] {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	rows := make([]backfillDomain.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, backfillDomain.Row{ID: id, Value: m.tables[target][id]})
	}
	return rows, nil
}

func (m *memoryRows) UpdateValue(
	ctx context.Context,
	target backfillDomain.Target,
	id, oldValue, newValue string,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[target][id] != oldValue {
		return false, nil
	}
	m.tables[target][id] = newValue
	return true, nil
}

func TestBackfillUseCase_EncryptAllAndAuditAll(t *testing.T) {
	ctx := context.Background()
	fc := newCipher("test-secret-value")
	rows := newMemoryRows()

	targets := []backfillDomain.Target{
		{Table: "customers", IDColumn: "id", Column: "email"},
		{Table: "customers", IDColumn: "id", Column: "full_name"},
		{Table: "debtors", IDColumn: "id", Column: "passport_number"},
	}
	for i, tgt := range targets {
		for n := range 25 + i {
			rows.put(tgt, n, "value-"+strconv.Itoa(n))
		}
	}

	runRepo := &mocks.MockRunRepository{}
	runRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	runRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	txManager := &MockTxManager{}
	txManager.On("WithTx", mock.Anything).Return(nil)

	uc := NewBackfillUseCase(Config{BatchSize: 7, Concurrency: 2}, txManager, rows, runRepo, fc, discardLogger())

	runs, err := uc.EncryptAll(ctx, targets, false)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, run := range runs {
		assert.Equal(t, targets[i], run.Target())
		assert.Equal(t, int64(25+i), run.Encrypted)
	}

	for _, tgt := range targets {
		for id, value := range rows.get(tgt) {
			assert.True(t, fc.LooksLikeEnvelope(value), "%s row %s", tgt, id)
		}
	}

	again, err := uc.EncryptAll(ctx, targets, false)
	require.NoError(t, err)
	for _, run := range again {
		assert.Equal(t, int64(0), run.Encrypted)
		assert.Equal(t, run.Scanned, run.Skipped)
	}

	audits, err := uc.AuditAll(ctx, targets)
	require.NoError(t, err)
	for i, run := range audits {
		assert.True(t, run.Healthy())
		assert.Equal(t, int64(25+i), run.Encrypted)
	}
}

func TestBackfillUseCase_EncryptAllNoTargets(t *testing.T) {
	uc := NewBackfillUseCase(Config{}, &MockTxManager{}, newMemoryRows(), &mocks.MockRunRepository{}, newCipher("x"), discardLogger())

	runs, err := uc.EncryptAll(context.Background(), nil, false)
	assert.Nil(t, runs)
	assert.ErrorIs(t, err, backfillDomain.ErrNoTargets)
}

func TestBackfillUseCase_ListRuns(t *testing.T) {
	ctx := context.Background()
	runRepo := &mocks.MockRunRepository{}
	expected := []*backfillDomain.Run{backfillDomain.NewRun(backfillDomain.ModeAudit, target, false)}
	runRepo.On("List", ctx, 10).Return(expected, nil).Once()

	uc := NewBackfillUseCase(Config{}, &MockTxManager{}, newMemoryRows(), runRepo, newCipher("x"), discardLogger())
	runs, err := uc.ListRuns(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, expected, runs)
	runRepo.AssertExpectations(t)
}
