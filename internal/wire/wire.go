// Package wire provides dependency injection for bulkcase.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/adapters/persistence"
	"github.com/example/bulkcase/internal/adapters/sqlite"
	"github.com/example/bulkcase/internal/app"
	"github.com/example/bulkcase/internal/config"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/migration"
	"github.com/example/bulkcase/internal/core/retry"
	"github.com/example/bulkcase/internal/db"
	"github.com/example/bulkcase/internal/logging"
	"github.com/example/bulkcase/internal/ports/primary"
)

var (
	cfg               *config.Config
	logger            *zap.Logger
	database          *sql.DB
	bulkActionService primary.BulkActionService
	caseService       primary.CaseService
	scheduledTasks    []app.ScheduledTask
	once              sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Logger returns the shared logger.
func Logger() *zap.Logger {
	once.Do(initServices)
	return logger
}

// BulkActionService returns the singleton BulkActionService instance.
func BulkActionService() primary.BulkActionService {
	once.Do(initServices)
	return bulkActionService
}

// CaseService returns the singleton CaseService instance.
func CaseService() primary.CaseService {
	once.Do(initServices)
	return caseService
}

// ScheduledTasks returns every periodic task with its configured interval.
func ScheduledTasks() []app.ScheduledTask {
	once.Do(initServices)
	return scheduledTasks
}

// Scheduler returns a scheduler over ScheduledTasks.
func Scheduler() *app.Scheduler {
	once.Do(initServices)
	return app.NewScheduler(logger, scheduledTasks...)
}

// Close flushes the logger and closes the database.
func Close() {
	if logger != nil {
		_ = logger.Sync()
	}
	if database != nil {
		database.Close()
	}
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}
	cfg, err = config.LoadOrDefault(cwd)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err = logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		if dbPath, err = db.DefaultPath(); err != nil {
			log.Fatalf("failed to get database path: %v", err)
		}
	}
	database, err = db.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Secondary adapters
	store := sqlite.NewCaseStore(database)
	events := sqlite.NewEventLogRepository(database)
	identity := persistence.NewConfigIdentityProvider(cfg.Identity)

	migrator := migration.Default()
	dispatcher, err := casetask.NewDefaultDispatcher(migrator)
	if err != nil {
		log.Fatalf("failed to build dispatcher: %v", err)
	}

	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Backoff: cfg.Retry.Backoff}
	trigger := app.NewBulkTrigger(store, events, policy, logger.Named("trigger"))
	reconciler := app.NewFailureReconciler(trigger, logger.Named("reconciler"))

	// Services (primary ports implementation)
	bulkActions := app.NewBulkActionService(store, events, identity, trigger, reconciler, dispatcher,
		migrator.Latest(), cfg.Search.PageSize, logger.Named("bulk"))
	bulkActionService = bulkActions
	caseService = app.NewCaseService(store, events, cfg.Search.PageSize)

	taskLogger := logger.Named("tasks")
	scheduledTasks = []app.ScheduledTask{
		{
			Task: app.NewCreateBulkBatch(store, events, identity, trigger, reconciler, dispatcher, migrator.Latest(), app.BatchConfig{
				MinBatchSize:   cfg.Batch.MinSize,
				MaxBatchSize:   cfg.Batch.MaxSize,
				MaxCasesPerRun: cfg.Batch.MaxCasesPerRun,
				PageSize:       cfg.Search.PageSize,
			}, taskLogger),
			Interval: cfg.Tasks.CreateBulkBatch,
		},
		{
			Task:     app.NewRetryFailedScheduling(store, bulkActions, cfg.Search.PageSize, taskLogger),
			Interval: cfg.Tasks.RetryFailedScheduling,
		},
		{
			Task:     app.NewRetryFailedPronouncement(store, bulkActions, cfg.Search.PageSize, taskLogger),
			Interval: cfg.Tasks.RetryFailedPronouncement,
		},
		{
			Task:     app.NewMigrateBulkCaseSchema(store, identity, trigger, dispatcher, migrator.Latest(), cfg.Search.PageSize, taskLogger),
			Interval: cfg.Tasks.MigrateBulkCaseSchema,
		},
	}
}
