package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/catalog"
	"github.com/rentalops/reservations-tracker/internal/common"
	"github.com/rentalops/reservations-tracker/internal/controlfile"
	"github.com/rentalops/reservations-tracker/internal/extract"
	"github.com/rentalops/reservations-tracker/internal/llm"
	"github.com/rentalops/reservations-tracker/internal/llm/anthropic"
	"github.com/rentalops/reservations-tracker/internal/llm/gemini"
	"github.com/rentalops/reservations-tracker/internal/llm/openai"
	"github.com/rentalops/reservations-tracker/internal/pipeline"
	"github.com/rentalops/reservations-tracker/internal/ratelimit"
	"github.com/rentalops/reservations-tracker/internal/repository"
)

// One-shot extraction: reads a document, runs the full pipeline once, and
// prints the result JSON on stdout.
func main() {
	_ = godotenv.Load()

	var (
		catalogPath = flag.String("catalog", "", "sqlite property-catalog file (default: CATALOG_DSN when driver is sqlite)")
		quiet       = flag.Bool("q", false, "suppress logs, print only the result JSON")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: extract [-catalog file.db] [-q] <document>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	level := slog.LevelInfo
	if *quiet {
		level = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	kind := constants.MapExtToKind(filepath.Ext(path))
	if kind == "" {
		logger.Error("unsupported file type", "path", path)
		os.Exit(2)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read document", "path", path, "error", err)
		os.Exit(1)
	}

	cat := loadCatalog(cfg, *catalogPath, logger)

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
	orch := pipeline.NewOrchestrator(
		extract.NewExtractor(logger),
		controlfile.NewParser(logger),
		llm.NewSelector(providers, cfg.Providers.Priority, cfg.Providers.Pinned, logger),
		ratelimit.NewLimiter(ratelimit.Config{
			MaxPerWindow: cfg.RateLimit.MaxPerWindow,
			Adaptive:     cfg.RateLimit.Adaptive,
			QueueWait:    cfg.RateLimit.QueueWait,
			CacheTTL:     cfg.RateLimit.CacheTTL,
		}, logger),
		cat,
		cfg.DefaultCurrency,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res := orch.Run(ctx, extract.RawDocument{
		Content:  content,
		Kind:     kind,
		FileName: filepath.Base(path),
	})

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if res.Status == constants.RunStatusFailed {
		os.Exit(1)
	}
}

func loadCatalog(cfg *common.Config, override string, logger *slog.Logger) catalog.Catalog {
	path := override
	if path == "" && cfg.Catalog.Driver == "sqlite" {
		path = cfg.Catalog.DSN
	}
	if path == "" {
		logger.Warn("no property catalog; resolution will report missing fields")
		return &catalog.Static{}
	}
	repo, err := repository.OpenSQLiteCatalog(path, logger)
	if err != nil {
		logger.Warn("catalog open failed; continuing without", "path", path, "error", err)
		return &catalog.Static{}
	}
	return repo
}
