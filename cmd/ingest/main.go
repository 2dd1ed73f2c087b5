package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cassation-api/internal/config"
	"cassation-api/internal/fetcher"
	"cassation-api/internal/ingest"
	"cassation-api/internal/metrics"
	"cassation-api/internal/repository/sqlite"
	"cassation-api/internal/storage"
)

var (
	initOnly        bool
	metricsTextfile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ingest [index-url]",
		Short: "Load Cour de cassation decision archives into the database",
		Long: `Load Cour de cassation decision archives into the database.

The index URL is an HTTP listing of .tar.gz archives or an s3://bucket/prefix
location. Decisions already stored are left untouched, so the command can be
re-run at any time.

Examples:
  ingest
  ingest https://echanges.dila.gouv.fr/OPENDATA/CASS/
  ingest s3://cassation-mirror/CASS/
  ingest --init-only`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().BoolVar(&initOnly, "init-only", false, "create the database schema and exit")
	rootCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "write run metrics to this file in Prometheus text format")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	indexURL := cfg.Ingest.IndexURL
	if len(args) == 1 {
		indexURL = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	decisionRepo := sqlite.NewDecisionRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	if err := decisionRepo.Init(ctx); err != nil {
		return fmt.Errorf("init decision repository: %w", err)
	}
	if err := userRepo.Init(ctx); err != nil {
		return fmt.Errorf("init user repository: %w", err)
	}
	if initOnly {
		logger.Infof("database schema ready at %s", cfg.Database.Path)
		return nil
	}

	var store storage.Service
	if strings.HasPrefix(indexURL, "s3://") {
		store, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("setup storage: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	source := fetcher.New(fetcher.Config{
		IndexTimeout:      cfg.IndexTimeout(),
		ArchiveTimeout:    cfg.ArchiveTimeout(),
		RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
		UserAgent:         cfg.Ingest.UserAgent,
		Storage:           store,
		Logger:            logger,
	})
	pipeline := ingest.NewPipeline(ingest.Config{Logger: logger, Metrics: collector}, source, decisionRepo)

	report, runErr := pipeline.Run(ctx, indexURL)

	if metricsTextfile != "" {
		if err := prometheus.WriteToTextfile(metricsTextfile, reg); err != nil {
			logger.Warnf("write metrics: %v", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("ingestion halted after %d archives: %w", report.Archives, runErr)
	}

	total, err := decisionRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count decisions: %w", err)
	}
	logger.Infof("database now holds %d decisions", total)
	return nil
}
