package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/rootscan/internal/api"
	"github.com/JakeFAU/rootscan/internal/dispatcher"
	"github.com/JakeFAU/rootscan/internal/fetcher/probe"
	"github.com/JakeFAU/rootscan/internal/input"
	"github.com/JakeFAU/rootscan/internal/monitor"
	"github.com/JakeFAU/rootscan/internal/progress"
	"github.com/JakeFAU/rootscan/internal/progress/sinks"
	memqueue "github.com/JakeFAU/rootscan/internal/queue/memory"
	"github.com/JakeFAU/rootscan/internal/worker"
)

const hubCloseTimeout = 10 * time.Second

func newScanCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "scan <input-file>",
		Short: "Scan every domain listed in the input file",
		Long: `Reads domains from lines of the form "<domain>.<TAB>...", removes adjacent
duplicates, shuffles them, and probes each one over HTTPS. Results are stored
once per domain; domains already present in the table are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep results in memory instead of Postgres")
	return cmd
}

func runScan(cmd *cobra.Command, path string, dryRun bool) error {
	ctx := cmd.Context()
	app, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg, logger := app.Config, app.Logger

	domains, err := readQueue(path, cfg.DedupMode(), logger.Named("input"))
	if err != nil {
		return err
	}
	queue := memqueue.NewQueue(domains)
	workerCount := dispatcher.WorkerCount(runtime.NumCPU(), cfg.Scanner.Workers)

	var be *backend
	if dryRun {
		be = openMemoryBackend(logger)
	} else {
		be, err = openPostgresBackend(ctx, cfg, workerCount, logger.Named("postgres"))
		if err != nil {
			return err
		}
	}
	defer be.close()

	runID := uuid.New()
	logger = logger.With(zap.String("run_id", runID.String()))
	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return err
	}
	stats := sinks.NewStatsSink()
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")),
		promSink,
		stats,
		sinks.NewLedgerSink(be.runs, logger.Named("ledger")),
	)

	apiCtx, stopAPI := context.WithCancel(ctx)
	defer stopAPI()
	if cfg.API.Enabled {
		if err := startAPI(apiCtx, cfg.API.Port, api.Options{
			Stats:    stats,
			Queue:    queue,
			Runs:     be.runs,
			Registry: registry,
			Logger:   logger.Named("api"),
		}); err != nil {
			return err
		}
	}

	started := time.Now()
	runBytes := progress.UUIDToBytes(runID)
	if err := hub.EmitWait(ctx, progress.Event{
		RunID: runBytes,
		TS:    started.UTC(),
		Stage: progress.StageRunStart,
		Total: int64(len(domains)),
	}); err != nil {
		logger.Warn("run start not recorded", zap.Error(err))
	}

	fetcher := probe.New(probe.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
		VerifyTLS: cfg.HTTP.VerifyTLS,
	})
	workers := make([]*worker.Worker, 0, workerCount)
	for id := range workerCount {
		workers = append(workers, worker.New(
			worker.Config{ID: id, RunID: runBytes, StoreTimeout: cfg.Scanner.StoreTimeout},
			queue, fetcher, be.records, hub, logger.Named("worker"),
		))
	}
	pool := dispatcher.New(workers)
	logger.Info("spawning workers", zap.Int("workers", pool.Size()), zap.Int("domains", len(domains)))

	var reporter monitor.Reporter = monitor.NewLogReporter(logger.Named("monitor"))
	if cfg.Progress.Bar {
		reporter = monitor.NewBarReporter(cmd.OutOrStdout())
	}
	mon := monitor.New(queue, reporter, cfg.Scanner.PollInterval, logger.Named("monitor"))
	processed, monErr := superviseScan(ctx, pool, queue, mon)
	elapsed := time.Since(started)
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hubCloseTimeout)
	defer cancel()
	if err := hub.EmitWait(closeCtx, progress.Event{
		RunID: runBytes,
		TS:    time.Now().UTC(),
		Stage: progress.StageRunDone,
		Dur:   elapsed,
	}); err != nil {
		logger.Warn("run completion not recorded", zap.Error(err))
	}
	if err := hub.Close(closeCtx); err != nil {
		logger.Warn("progress hub did not drain", zap.Error(err))
	}

	snap := stats.Snapshot()
	logger.Info("all tasks done",
		zap.Int64("processed", processed),
		zap.Int64("success", snap.Success),
		zap.Int64("failure", snap.Failure),
		zap.Int64("stored", snap.Stored),
		zap.Int64("ignored", snap.Ignored),
		zap.Int64("dropped", snap.Dropped),
		zap.Int64("events_dropped", hub.Dropped()),
		zap.Duration("elapsed", elapsed))
	renderSummary(cmd.OutOrStdout(), snap, elapsed)

	if monErr != nil {
		if errors.Is(monErr, context.Canceled) {
			return fmt.Errorf("scan interrupted with %d domains unclaimed", queue.Len())
		}
		return monErr
	}
	return nil
}

// superviseScan starts the pool, watches the queue drain, and joins the pool.
// The monitor total is the queue size taken before any worker can claim.
func superviseScan(ctx context.Context, pool *dispatcher.Dispatcher, queue *memqueue.Queue, mon *monitor.Monitor) (int64, error) {
	total := queue.Len()
	pool.Start(ctx)
	monErr := mon.Run(ctx, total)
	// The queue can be empty while the last workers are still storing.
	return pool.Wait(), monErr
}

func readQueue(path string, mode input.DedupMode, logger *zap.Logger) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied input path
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	domains, _ := input.Build(f, input.Options{Dedup: mode, Logger: logger})
	return domains, nil
}

func startAPI(ctx context.Context, port int, opts api.Options) error {
	srv, err := api.NewServer(opts)
	if err != nil {
		return fmt.Errorf("init status api: %w", err)
	}
	addr := net.JoinHostPort("", strconv.Itoa(port))
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			opts.Logger.Error("status api stopped", zap.Error(err))
		}
	}()
	return nil
}
