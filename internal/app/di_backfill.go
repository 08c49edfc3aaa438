package app

import (
	"fmt"

	"github.com/allisson/fieldcrypt/internal/backfill/repository"
	backfillUseCase "github.com/allisson/fieldcrypt/internal/backfill/usecase"
	"github.com/allisson/fieldcrypt/internal/database"
)

// RowRepository returns the row repository for the configured database driver.
func (c *Container) RowRepository() (backfillUseCase.RowRepository, error) {
	var err error
	c.rowRepoInit.Do(func() {
		c.rowRepo, err = c.initRowRepository()
		if err != nil {
			c.initErrors["rowRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rowRepo"]; exists {
		return nil, storedErr
	}
	return c.rowRepo, nil
}

// RunRepository returns the run repository for the configured database driver.
func (c *Container) RunRepository() (backfillUseCase.RunRepository, error) {
	var err error
	c.runRepoInit.Do(func() {
		c.runRepo, err = c.initRunRepository()
		if err != nil {
			c.initErrors["runRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["runRepo"]; exists {
		return nil, storedErr
	}
	return c.runRepo, nil
}

// BackfillUseCase returns the backfill use case, instrumented with business metrics.
func (c *Container) BackfillUseCase() (backfillUseCase.BackfillUseCase, error) {
	var err error
	c.backfillUseCaseInit.Do(func() {
		c.backfillUseCase, err = c.initBackfillUseCase()
		if err != nil {
			c.initErrors["backfillUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["backfillUseCase"]; exists {
		return nil, storedErr
	}
	return c.backfillUseCase, nil
}

// Worker returns the periodic backfill worker for the configured targets.
func (c *Container) Worker() (*backfillUseCase.Worker, error) {
	var err error
	c.workerInit.Do(func() {
		c.worker, err = c.initWorker()
		if err != nil {
			c.initErrors["worker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["worker"]; exists {
		return nil, storedErr
	}
	return c.worker, nil
}

func (c *Container) initRowRepository() (backfillUseCase.RowRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for row repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return repository.NewMySQLRowRepository(db), nil
	case database.DriverPostgres:
		return repository.NewPostgreSQLRowRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRunRepository() (backfillUseCase.RunRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for run repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return repository.NewMySQLRunRepository(db), nil
	case database.DriverPostgres:
		return repository.NewPostgreSQLRunRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initBackfillUseCase() (backfillUseCase.BackfillUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for backfill use case: %w", err)
	}
	rowRepo, err := c.RowRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get row repository for backfill use case: %w", err)
	}
	runRepo, err := c.RunRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get run repository for backfill use case: %w", err)
	}
	fieldCipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for backfill use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for backfill use case: %w", err)
	}

	useCase := backfillUseCase.NewBackfillUseCase(
		backfillUseCase.Config{
			BatchSize:   c.config.BackfillBatchSize,
			RowsPerSec:  c.config.BackfillRowsPerSec,
			Concurrency: c.config.BackfillConcurrency,
		},
		txManager,
		rowRepo,
		runRepo,
		fieldCipher,
		c.Logger(),
	)
	return backfillUseCase.NewBackfillUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initWorker() (*backfillUseCase.Worker, error) {
	targets, err := c.backfillTargets()
	if err != nil {
		return nil, fmt.Errorf("invalid BACKFILL_TARGETS: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("BACKFILL_TARGETS is empty")
	}

	useCase, err := c.BackfillUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get backfill use case for worker: %w", err)
	}
	worker, err := backfillUseCase.NewWorker(useCase, targets, c.config.WorkerInterval, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_INTERVAL_SECONDS: %w", err)
	}
	return worker, nil
}
