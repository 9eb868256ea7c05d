// Package main provides the CLI tool for the visibility monitor.
// Uses Cobra for command parsing — Cobra is the standard Go CLI framework
// (used by kubectl, docker, hugo, and many others).
//
// Run with: go run ./cmd/cli run --date 2026-08-31
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/fredmontagnon/arianeegeo/internal/config"
	"github.com/fredmontagnon/arianeegeo/internal/llm"
	"github.com/fredmontagnon/arianeegeo/internal/model"
	"github.com/fredmontagnon/arianeegeo/internal/provider"
	"github.com/fredmontagnon/arianeegeo/internal/service"
	"github.com/fredmontagnon/arianeegeo/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd creates the root command. Cobra builds a tree of commands:
// geo-cli run --date 2026-08-31 --batch 2
// geo-cli seed --file queries.yaml
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "geo-cli",
		Short: "Brand visibility monitor CLI tools",
	}

	root.AddCommand(runCmd())
	root.AddCommand(recommendCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(seedCmd())
	return root
}

// app bundles the wired services a CLI invocation needs. Every command
// builds one, uses it, and closes the database on exit.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	close     func()
	queryRepo storage.QueryRepository
	monitor   *service.Monitor
	dashboard *service.Dashboard
}

// newApp loads config and wires the full service graph, same shape as the
// server entry point.
func newApp() (*app, error) {
	configPath := os.Getenv("ARIANEEGEO_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Always use development mode for CLI — human-readable output.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	queryRepo := storage.NewQueryRepository(db)
	resultRepo := storage.NewResultRepository(db)
	recoRepo := storage.NewRecommendationRepository(db)

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

	return &app{
		cfg:    cfg,
		logger: logger,
		close: func() {
			_ = db.Close()
			_ = logger.Sync()
		},
		queryRepo: queryRepo,
		monitor:   monitor,
		dashboard: dashboard,
	}, nil
}

// signalContext returns a context cancelled on Ctrl+C / SIGTERM so a long
// scan can be interrupted without losing already-persisted results.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func runCmd() *cobra.Command {
	var date string
	var batch int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Query all providers and store the day's results",
		// RunE returns an error (vs Run which doesn't). Cobra prints the error automatically.
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			report, err := a.monitor.Run(ctx, service.RunOptions{Date: date, Batch: batch})
			if err != nil {
				return err
			}

			fmt.Printf("run complete: %d/%d queries, %d mentions, %d errors in %.1fs\n",
				report.QueriesProcessed, report.QueriesTotal,
				report.TotalMentions, report.TotalErrors, report.DurationSec)
			if report.RecommendationsCount > 0 {
				fmt.Printf("recommendations generated: %d\n", report.RecommendationsCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Run date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&batch, "batch", 0, "Batch number 1..N (0 processes all queries)")
	return cmd
}

func recommendCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Regenerate recommendations from stored results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			set, err := a.monitor.RegenerateRecommendations(ctx, date)
			if err != nil {
				return err
			}

			fmt.Printf("recommendations for %s (model %s, %d tokens):\n",
				set.RunDate, set.ModelUsed, set.TokensUsed)
			for i, rec := range set.Recommendations {
				fmt.Printf("%d. [%s] %s\n", i+1, rec.Priority, rec.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default today)")
	return cmd
}

func statsCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the score summary for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			data, err := a.dashboard.Load(context.Background(), date)
			if err != nil {
				return err
			}

			fmt.Printf("date: %s  (last scan: %s)\n", data.Date, data.LastScanDate)
			fmt.Printf("global score: %s\n", formatScore(data.GlobalScore))
			for _, p := range model.AllProviders {
				fmt.Printf("  %-12s %s\n", p, formatScore(data.Scores.Today[p]))
			}
			fmt.Printf("queries: %d  results: %d  mentions: %d\n",
				data.Stats.TotalQueries, data.Stats.TotalResults, data.Stats.TotalMentions)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default today)")
	return cmd
}

// formatScore renders the no-data sentinel as a dash instead of -1.
func formatScore(score int) string {
	if score == model.NoDataScore {
		return "-"
	}
	return fmt.Sprintf("%d%%", score)
}

// seedQuery is the YAML shape of one monitored question.
type seedQuery struct {
	ID         string `yaml:"id"`
	Text       string `yaml:"text"`
	Topic      string `yaml:"topic"`
	TopicLabel string `yaml:"topic_label"`
	SortOrder  int    `yaml:"sort_order"`
	// Active defaults to true when omitted; a pointer distinguishes
	// "absent" from an explicit false.
	Active *bool `yaml:"active"`
}

type seedFile struct {
	Queries []seedQuery `yaml:"queries"`
}

// parseSeedFile decodes and validates the YAML query set. A typo'd topic
// would silently vanish from every per-topic score, so it is rejected here
// rather than stored.
func parseSeedFile(data []byte) ([]*model.Query, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(seed.Queries) == 0 {
		return nil, fmt.Errorf("seed file contains no queries")
	}

	queries := make([]*model.Query, 0, len(seed.Queries))
	for i, sq := range seed.Queries {
		if sq.ID == "" || sq.Text == "" {
			return nil, fmt.Errorf("query %d: id and text are required", i+1)
		}
		if !model.ValidTopic(sq.Topic) {
			return nil, fmt.Errorf("query %s: unknown topic %q", sq.ID, sq.Topic)
		}

		active := true
		if sq.Active != nil {
			active = *sq.Active
		}
		sortOrder := sq.SortOrder
		if sortOrder == 0 {
			sortOrder = i + 1
		}

		queries = append(queries, &model.Query{
			ID:         sq.ID,
			Text:       sq.Text,
			Topic:      model.Topic(sq.Topic),
			TopicLabel: sq.TopicLabel,
			SortOrder:  sortOrder,
			IsActive:   active,
		})
	}
	return queries, nil
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the monitored question set from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading seed file: %w", err)
			}

			queries, err := parseSeedFile(data)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := context.Background()
			for _, q := range queries {
				if err := a.queryRepo.Upsert(ctx, q); err != nil {
					return fmt.Errorf("upserting query %s: %w", q.ID, err)
				}
			}

			total, err := a.queryRepo.Count(ctx)
			if err != nil {
				return fmt.Errorf("counting queries: %w", err)
			}
			fmt.Printf("seeded %d queries (%d total in store)\n", len(queries), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "queries.yaml", "Path to the YAML query set")
	return cmd
}
