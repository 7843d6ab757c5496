package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"diagflow/internal/actor"
	"diagflow/internal/flow"
	"diagflow/internal/platform/config"
	"diagflow/internal/platform/logger"
	"diagflow/internal/platform/metrics"
	"diagflow/internal/platform/redis"
	"diagflow/internal/report"
	"diagflow/internal/scenario"
	"diagflow/internal/transport"
)

// ErrRunFailed is returned when at least one persona failed.
var ErrRunFailed = errors.New("verification run failed")

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	PlanPath  string
	Parallel  bool
	ReportDir string
	NoReport  bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the verification suite against the configured backend",
		Long: `Run every persona in the plan against DIAGFLOW_BASE_URL and print a report.

Example:
  diagflow run
  diagflow run --plan plans/smoke.yaml --parallel --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PlanPath, "plan", "", "plan file (defaults to the built-in plan)")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "run personas concurrently")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", "", "report directory (overrides DIAGFLOW_REPORT_PATH)")
	cmd.Flags().BoolVar(&opts.NoReport, "no-report", false, "print the report without writing a file")
	return cmd
}

func newLogger(cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Enabled: cfg.EnableLogging,
		Level:   level,
		Format:  cfg.LogFormat,
		Output:  os.Stderr,
	})
}

func runSuite(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := newLogger(cfg, opts.Verbose)
	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	plan, err := loadPlan(opts.PlanPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	actors, closeStore, err := newActorStore(ctx, cfg, runID, log)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	clientOpts := []transport.Option{
		transport.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		transport.WithLogger(log),
		transport.WithMetrics(m),
		transport.WithRetry(cfg.RetryMax, cfg.RetryDelay),
	}
	if cfg.BreakerThreshold > 0 {
		clientOpts = append(clientOpts, transport.WithCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown))
	}
	client := transport.New(cfg.BaseURL, clientOpts...)
	runner := flow.New(client, actors, cfg, plan, cfg.BrandBaseURL,
		flow.WithLogger(log),
		flow.WithMetrics(m),
		flow.WithParallel(opts.Parallel),
		flow.WithRunID(runID),
	)

	log.InfoContext(ctx, "starting run",
		"run_id", runID,
		"plan", plan.Name,
		"base_url", cfg.BaseURL,
		"environment", cfg.Environment,
		"parallel", opts.Parallel,
	)
	rep, runErr := runner.Run(ctx)

	if err := report.Render(cmd.OutOrStdout(), rep, format); err != nil {
		return err
	}
	if !opts.NoReport {
		dir := cfg.ReportPath
		if opts.ReportDir != "" {
			dir = opts.ReportDir
		}
		path, err := report.Write(dir, rep, format)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "report written", "path", path)
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.WarnContext(ctx, "failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if !rep.Passed() {
		_, failed := rep.Counts()
		return fmt.Errorf("%w: %d persona(s) failed", ErrRunFailed, failed)
	}
	return nil
}

func loadPlan(path string) (*scenario.Plan, error) {
	if path == "" {
		return scenario.Default()
	}
	return scenario.Load(path)
}

// newActorStore uses Redis when DIAGFLOW_REDIS_URL is set and memory otherwise.
func newActorStore(ctx context.Context, cfg config.Config, runID string, log *slog.Logger) (actor.Store, func(), error) {
	if !redis.Enabled(cfg.Redis) {
		return actor.NewInMemoryStore(), func() {}, nil
	}
	client, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.InfoContext(ctx, "persona state kept in redis", "run_id", runID, "ttl", cfg.Redis.ContextTTL)
	store := actor.NewRedisStore(client, runID, actor.WithStateTTL(cfg.Redis.ContextTTL))
	return store, func() {
		if err := store.Clear(context.Background()); err != nil {
			log.Warn("failed to clear persona state", "error", err)
		}
		_ = client.Close()
	}, nil
}
