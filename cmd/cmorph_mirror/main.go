package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/coecms/cmorph-mirror/internal/config"
	"github.com/coecms/cmorph-mirror/internal/logctx"
	"github.com/coecms/cmorph-mirror/internal/mirror"
	"github.com/coecms/cmorph-mirror/internal/notifier"
	"github.com/coecms/cmorph-mirror/internal/plan"
	"github.com/coecms/cmorph-mirror/internal/rda"
	"github.com/coecms/cmorph-mirror/internal/report"
	"github.com/coecms/cmorph-mirror/internal/storage/sqlite"
	"github.com/coecms/cmorph-mirror/internal/telemetry"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	year   string
	months []string
	user   string
	debug  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cmorph_mirror",
		Short: "Mirror the CMORPH 8km-30min v1.0 dataset from the RDA archive",
		Long: `Retrieve CMORPH v1.0 netcdf files from the RDA server
(https://rda.ucar.edu/data/ds502.2/) onto local storage, verifying each
transfer by size and logging updated/new/error outcomes per run.

The RDA account password must be set as the environment variable RDAPSWD.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	rootCmd.Flags().StringVarP(&year, "year", "y", "", "year to process")
	rootCmd.Flags().StringArrayVarP(&months, "month", "m", nil, "month to process, repeatable; default is all 12")
	rootCmd.Flags().StringVarP(&user, "user", "u", "", "username for the rda.ucar.edu account")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "print out debug information")
	_ = rootCmd.MarkFlagRequired("year")
	_ = rootCmd.MarkFlagRequired("user")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if debug {
		cfg.LogLevel = "DEBUG"
	}

	// The update log is a hard precondition: without it there is no durable
	// trace of the run.
	if err := os.MkdirAll(cfg.CodeDir(), 0755); err != nil {
		return fmt.Errorf("failed to create code dir: %w", err)
	}

	logFile, err := os.OpenFile(cfg.UpdateLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open update log: %w", err)
	}
	defer logFile.Close()

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	logger := slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(os.Stdout, opts),
		slog.NewTextHandler(logFile, opts),
	))
	slog.SetDefault(logger)
	ctx = logctx.WithLogger(ctx, logger)

	logger.Info("cmorph mirror starting",
		"date", time.Now().Format("2006-01-02"),
		"operator", cfg.Operator,
		"log_level", cfg.LogLevel,
	)

	// =========================================================================
	// Start History Database
	database, err := sqlite.InitDB(cfg.HistoryDBPath())
	if err != nil {
		return fmt.Errorf("history DB error: %w", err)
	}
	defer database.Close()

	repo := sqlite.NewFetchRepository(database)

	// =========================================================================
	// Authenticate
	client := rda.NewClient(cfg.LoginURL, cfg.BaseURL)
	if err := client.Authenticate(ctx, user, cfg.Password); err != nil {
		return fmt.Errorf("authentication error: %w", err)
	}

	// =========================================================================
	// Build File Plan
	mns := months
	if len(mns) == 0 {
		mns = plan.AllMonths()
	}

	targets, err := plan.Build(cfg.BaseURL, cfg.DataDir(), year, mns)
	if err != nil {
		return fmt.Errorf("failed to build file plan: %w", err)
	}

	logger.Info("file plan built", "year", year, "months", mns, "target_count", len(targets))

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    "cmorph-mirror",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}

	// =========================================================================
	// Sync
	m := mirror.New(client, repo, tel)

	outcomes, err := m.Sync(ctx, targets)
	if err != nil {
		return err
	}

	outcomes.Log(ctx)
	fmt.Print(outcomes.Summary())

	if history, err := repo.GetRunHistory(m.RunID()); err != nil {
		logger.Error("failed to read back run history", "run_id", m.RunID(), "err", err)
	} else {
		logger.Debug("provenance records written", "run_id", m.RunID(), "record_count", len(history))
	}

	notifySummary(ctx, cfg, outcomes)

	if err := tel.Shutdown(ctx); err != nil {
		logger.Error("failed to flush telemetry", "err", err)
	}

	return nil
}

func notifySummary(ctx context.Context, cfg *config.Config, outcomes *report.OutcomeSet) {
	if cfg.WebhookURL == "" {
		return
	}

	logger := logctx.LoggerFromContext(ctx)

	notif := &notifier.WebhookNotifier{WebhookURL: cfg.WebhookURL}
	if err := notif.Notify(fmt.Sprintf(
		"CMORPH sync finished: %d updated, %d new, %d error",
		len(outcomes.Updated), len(outcomes.New), len(outcomes.Errored),
	)); err != nil {
		logger.Error("failed to send notification", "err", err)
	}
}
