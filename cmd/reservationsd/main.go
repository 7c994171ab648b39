package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rentalops/reservations-tracker/internal/async"
	"github.com/rentalops/reservations-tracker/internal/catalog"
	"github.com/rentalops/reservations-tracker/internal/common"
	"github.com/rentalops/reservations-tracker/internal/controlfile"
	"github.com/rentalops/reservations-tracker/internal/extract"
	"github.com/rentalops/reservations-tracker/internal/ingest"
	"github.com/rentalops/reservations-tracker/internal/llm"
	"github.com/rentalops/reservations-tracker/internal/llm/anthropic"
	"github.com/rentalops/reservations-tracker/internal/llm/gemini"
	"github.com/rentalops/reservations-tracker/internal/llm/openai"
	"github.com/rentalops/reservations-tracker/internal/pipeline"
	"github.com/rentalops/reservations-tracker/internal/ratelimit"
	"github.com/rentalops/reservations-tracker/internal/repository"
	"github.com/rentalops/reservations-tracker/internal/service"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, cleanup, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Error("catalog setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	svc := buildService(cfg, cat, logger)
	svc.Start(ctx)

	if cfg.Ingest.InboxDir != "" {
		paths, errs, werr := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Ingest.InboxDir},
			InitialScan: cfg.Ingest.InitialScan,
			Debounce:    cfg.Ingest.Debounce,
			Logger:      logger,
		})
		if werr != nil {
			logger.Error("inbox watcher failed to start", "inbox", cfg.Ingest.InboxDir, "error", werr)
			os.Exit(1)
		}
		go func() {
			for path := range paths {
				if _, serr := svc.SubmitPath(ctx, path); serr != nil {
					logger.Warn("inbox submit failed", "path", path, "error", serr)
				}
			}
		}()
		go func() {
			for range errs {
			}
		}()
	}

	logger.Info("reservationsd started",
		"inbox", cfg.Ingest.InboxDir,
		"workers", cfg.Worker.Count,
		"rate_ceiling", cfg.RateLimit.MaxPerWindow,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
	logger.Info("stopped")
}

func buildService(cfg *common.Config, cat catalog.Catalog, logger *slog.Logger) *service.Service {
	providers := []llm.Provider{
		openai.NewClient(openai.Config{
			APIKey:      cfg.Providers.OpenAIKey,
			Model:       cfg.Providers.OpenAIModel,
			Temperature: cfg.Providers.Temperature,
			Timeout:     cfg.Providers.Timeout,
		}, logger),
		anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.Providers.AnthropicKey,
			Model:       cfg.Providers.AnthropicModel,
			Temperature: cfg.Providers.Temperature,
			Timeout:     cfg.Providers.Timeout,
		}, logger),
		gemini.NewClient(gemini.Config{
			APIKey:      cfg.Providers.GeminiKey,
			Model:       cfg.Providers.GeminiModel,
			Temperature: cfg.Providers.Temperature,
			Timeout:     cfg.Providers.Timeout,
		}, logger),
	}
	selector := llm.NewSelector(providers, cfg.Providers.Priority, cfg.Providers.Pinned, logger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		MaxPerWindow: cfg.RateLimit.MaxPerWindow,
		Adaptive:     cfg.RateLimit.Adaptive,
		QueueWait:    cfg.RateLimit.QueueWait,
		CacheTTL:     cfg.RateLimit.CacheTTL,
	}, logger)

	orch := pipeline.NewOrchestrator(
		extract.NewExtractor(logger),
		controlfile.NewParser(logger),
		selector,
		limiter,
		cat,
		cfg.DefaultCurrency,
		logger,
	)
	return service.New(orch, async.Config{
		Workers:     cfg.Worker.Count,
		QueueSize:   cfg.Worker.QueueSize,
		MaxAttempts: cfg.Worker.MaxAttempts,
		BackoffBase: cfg.Worker.BackoffBase,
	}, logger)
}

func openCatalog(ctx context.Context, cfg *common.Config, logger *slog.Logger) (catalog.Catalog, func(), error) {
	if cfg.Catalog.DSN == "" {
		logger.Warn("no catalog DSN configured; property resolution will report missing fields")
		return &catalog.Static{}, func() {}, nil
	}
	switch cfg.Catalog.Driver {
	case "sqlite":
		repo, err := repository.OpenSQLiteCatalog(cfg.Catalog.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Catalog.DSN,
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     cfg.Catalog.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.HealthCheck(ctx, pool, cfg.Catalog.DialTimeout, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPGCatalog(pool, logger), pool.Close, nil
	}
}
