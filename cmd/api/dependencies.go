package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/bankountable/internal/domain/import/document"
	importhandler "github.com/FACorreiaa/bankountable/internal/domain/import/handler"
	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
	"github.com/FACorreiaa/bankountable/internal/domain/import/parser"
	importrepo "github.com/FACorreiaa/bankountable/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/bankountable/internal/domain/import/service"

	"github.com/FACorreiaa/bankountable/pkg/config"
	"github.com/FACorreiaa/bankountable/pkg/cron"
	"github.com/FACorreiaa/bankountable/pkg/db"
	"github.com/FACorreiaa/bankountable/pkg/metrics"
	"github.com/FACorreiaa/bankountable/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	Logger *slog.Logger

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	ImportRepo    importrepo.ImportRepository
	OverrideStore *normalizer.OverrideStore

	// Services
	FileStorage   *storage.LocalStorage
	Parser        *parser.Parser
	ImportService *importservice.ImportService
	Scheduler     *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initMetrics()
	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase opens the pool and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	pool, err := db.NewPool(ctx, d.Config.Database.DSN())
	if err != nil {
		return err
	}
	d.Pool = pool

	if err := db.Migrate(ctx, pool, d.Logger); err != nil {
		pool.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = metrics.New(d.Registry)
}

func (d *Dependencies) initRepositories() {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.Pool)
	d.OverrideStore = normalizer.NewOverrideStore(d.Pool)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() error {
	fileStorage, err := storage.NewLocalStorage(d.Config.Upload.Dir, d.Config.Upload.MaxBytes)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	access := document.NewAccess(
		document.NewFormatOpener(),
		document.NewPDFDecrypter(),
		d.Config.Parser.Passphrases,
		d.Logger,
	)
	chain := parser.NewChain(parser.Options{Bounds: d.Config.Parser.Bounds()})
	d.Parser = parser.NewParser(access, chain, d.Logger).WithMetrics(d.Metrics)

	d.ImportService = importservice.NewImportService(
		d.ImportRepo,
		d.FileStorage,
		d.Parser,
		d.Config.Parser.CurrencyCode,
		d.Logger,
	).WithOverrides(d.OverrideStore).WithMetrics(d.Metrics)

	d.Scheduler = cron.NewScheduler(d.FileStorage, d.Config.Upload.SweepSchedule, d.Config.Upload.MaxAge, d.Logger)

	d.Logger.Info("services initialized",
		slog.Int("passphrases", len(d.Config.Parser.Passphrases)),
		slog.String("currency", d.Config.Parser.CurrencyCode),
	)
	return nil
}

func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Upload.MaxBytes, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Pool != nil {
		d.Pool.Close()
	}
	d.Logger.Info("cleanup completed")
}
