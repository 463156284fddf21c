package components

import (
	"log/slog"

	"github.com/fintrack-trend-cube/internal/config"
	"github.com/fintrack-trend-cube/internal/cube_processor/service"
	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/outbox"
	"github.com/fintrack-trend-cube/internal/domain/transaction"
	"github.com/fintrack-trend-cube/internal/platform/persistence"
)

// CreateCubeService creates a new CubeService with all its dependencies.
func CreateCubeService(
	pgDB *persistence.PostgresDB,
	transactionRepo transaction.Repository,
	cubeRepo cube.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.CubeService {
	calculator := NewPeriodCalculator()
	grouper := NewDeltaGrouper(calculator, logger)
	ledgerManager := NewLedgerManager(transactionRepo, logger)
	aggregator := NewAggregator(cubeRepo, ledgerManager, calculator, logger)
	journalRecorder := NewJournalRecorder(outboxRepo, logger)

	baseService := service.NewCubeService(
		pgDB,
		calculator,
		grouper,
		ledgerManager,
		aggregator,
		journalRecorder,
		service.CubePolicy{
			DeltaBatchThreshold:   cfg.Cube.DeltaBatchThreshold,
			RegenerateChunkMonths: cfg.Cube.RegenerateChunkMonths,
		},
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolCubeService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool cube service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
