// Package main is the entry point for the visibility monitor HTTP server.
// In Go, the `main` package with a `main()` function is what gets executed.
// Unlike Ruby/JS, Go compiles to a single static binary — no runtime needed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fredmontagnon/arianeegeo/internal/config"
	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/provider"
	"github.com/fredmontagnon/arianeegeo/internal/server"
	"github.com/fredmontagnon/arianeegeo/internal/service"
	"github.com/fredmontagnon/arianeegeo/internal/storage"
)

func main() {
	// os.Exit ensures the process exits with a non-zero code on failure.
	// We call run() separately so deferred cleanup functions execute properly
	// (deferred functions don't run when os.Exit is called directly).
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("ARIANEEGEO_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging with zap.
	// zap is a high-performance structured logger — it outputs JSON in production
	// and human-readable format in development.
	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// defer runs when the enclosing function returns — like Ruby's ensure or
	// a finally block. Great for cleanup.
	// Sync flushes buffered log entries. We intentionally ignore the error here
	// because Sync commonly fails on stdout/stderr (not a real problem).
	defer func() { _ = logger.Sync() }()

	// Initialize storage
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	queryRepo := storage.NewQueryRepository(db)
	resultRepo := storage.NewResultRepository(db)
	recoRepo := storage.NewRecommendationRepository(db)

	// The judge is shared between mention analysis and recommendations, so
	// one rate limiter covers both call sites.
	judge := llm.NewJudgeClient(cfg.Judge.APIKey, cfg.Judge.Model)
	judgeLimiter := rate.NewLimiter(rate.Limit(float64(cfg.Judge.RatePerMinute)/60.0), 1)

	coordinator := provider.NewCoordinatorFromConfig(cfg, logger)
	analyzer := service.NewAnalyzer(judge, cfg.Brand.Name, cfg.Brand.Token, cfg.Judge.TruncateChars, judgeLimiter, logger)
	recommender := service.NewRecommender(judge, cfg.Brand.Name, judgeLimiter, logger)
	aggregator := service.NewAggregator(cfg.Scoring.MarketWeights)

	monitor := service.NewMonitor(
		coordinator, analyzer, recommender, aggregator,
		queryRepo, resultRepo, recoRepo,
		cfg.Run, cfg.Judge.Model, logger,
	)
	dashboard := service.NewDashboard(aggregator, queryRepo, resultRepo, recoRepo)

	// Create and start the HTTP server
	srv := server.New(cfg, server.Deps{Monitor: monitor, Dashboard: dashboard}, logger)

	// Graceful shutdown: listen for SIGINT (Ctrl+C) or SIGTERM (docker stop).
	// Channels are Go's primary concurrency primitive — goroutines communicate
	// through channels instead of sharing memory.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine (lightweight thread managed by Go runtime).
	// The `go` keyword spawns a goroutine — it's like starting a background task.
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Block until we receive a signal or the server errors out.
	// select is like a switch for channels — it waits until one is ready.
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
