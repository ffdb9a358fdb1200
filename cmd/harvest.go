package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/msmolkin/nwsharvest/internal/api"
	"github.com/msmolkin/nwsharvest/internal/archive"
	"github.com/msmolkin/nwsharvest/internal/config"
	"github.com/msmolkin/nwsharvest/internal/discover"
	"github.com/msmolkin/nwsharvest/internal/fetch"
	"github.com/msmolkin/nwsharvest/internal/harvest"
	"github.com/msmolkin/nwsharvest/internal/logging"
	"github.com/msmolkin/nwsharvest/internal/progress"
	"github.com/msmolkin/nwsharvest/internal/progress/sinks"
	"github.com/msmolkin/nwsharvest/internal/report"
	"github.com/msmolkin/nwsharvest/internal/series"
	"github.com/msmolkin/nwsharvest/internal/sink"
	"github.com/msmolkin/nwsharvest/internal/throughput"
)

// newHarvestCmd creates the 'harvest' subcommand.
func newHarvestCmd() *cobra.Command {
	var (
		seriesKey string
		workers   int
		clip      bool
	)

	cmd := &cobra.Command{
		Use:   "harvest [series]",
		Short: "Harvests all versions of one bulletin series",
		Long: `Discovers how many versions of the chosen bulletin exist, fetches them
all with a bounded worker pool, and writes the ordered transcript to disk.
Without a series argument or --series flag, an interactive menu is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				seriesKey = args[0]
			}
			return runHarvest(cmd, seriesKey, workers, clip)
		},
	}

	cmd.Flags().StringVar(&seriesKey, "series", "", "series selector (e.g. newyork, chicago)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size override (0 = derive from CPU count)")
	cmd.Flags().BoolVar(&clip, "clipboard", false, "also copy the transcript to the clipboard")

	return cmd
}

func runHarvest(cmd *cobra.Command, seriesKey string, workers int, clip bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if workers > 0 {
		cfg.Harvest.Workers = workers
	}
	if clip {
		cfg.Output.Clipboard = true
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	catalog := series.Catalog(cfg.Series)
	target, err := selectSeries(cmd.InOrStdin(), cmd.OutOrStdout(), catalog, seriesKey)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	if cfg.Server.Enabled {
		server := api.NewServer(store, logger)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			if serr := server.Serve(ctx, addr); serr != nil {
				logger.Warn("status server stopped", zap.Error(serr))
			}
		}()
	}

	return harvestSeries(ctx, cfg, target, store, logger)
}

func harvestSeries(
	ctx context.Context,
	cfg config.Config,
	target series.Series,
	store *archive.Store,
	logger *zap.Logger,
) error {
	discoverer := discover.New(cfg.Fetch.UserAgent, logger)
	maxVersion, err := discoverer.MaxVersion(ctx, target)
	if err != nil {
		return err
	}

	client := fetch.NewClient(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout(),
		Attempts:  cfg.Fetch.Attempts,
		Backoff:   cfg.Fetch.Backoff(),
	}, target, logger)

	tracker := throughput.New()
	reporterCtx, stopReporter := context.WithCancel(ctx)
	defer stopReporter()
	go throughput.NewReporter(tracker, logger, 0).Run(reporterCtx)

	sinkList := []progress.Sink{
		sinks.NewLogSink(logger),
		sinks.NewPrometheusSink(),
	}
	if store != nil {
		sinkList = append(sinkList, archive.NewRecorder(store))
	}
	emitter := progress.NewFanout(logger, sinkList...)

	coordinator := harvest.New(harvest.Config{
		SeriesName: target.Name,
		Workers:    cfg.Harvest.Workers,
		WorkerCap:  cfg.Harvest.WorkerCap,
	}, client, tracker, emitter, logger)

	startedAt := time.Now()
	result, runErr := coordinator.Run(ctx, maxVersion)
	stopReporter()

	if runErr != nil && result.Set == nil {
		return runErr
	}

	transcript := result.Transcript()
	persistTranscript(cfg, target, transcript, logger)
	logLatestSummary(transcript, logger)

	if store != nil {
		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if aerr := store.RecordRun(recordCtx, archive.Run{
			ID:         result.RunID,
			Series:     target.Name,
			MaxVersion: maxVersion,
			Succeeded:  result.Succeeded,
			Failed:     result.Failed,
			Bytes:      result.Stats.Bytes,
			StartedAt:  startedAt,
			FinishedAt: startedAt.Add(result.Elapsed),
		}); aerr != nil {
			logger.Warn("archive run record failed", zap.Error(aerr))
		}
	}

	logger.Info("harvest summary",
		zap.String("series", target.Name),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.String("avg_speed", throughput.FormatSpeed(result.Stats.AvgSpeed())),
		zap.Duration("elapsed", result.Elapsed.Round(time.Millisecond)),
	)

	// Per-version failures are not fatal, and an operator-requested interrupt
	// still reports its partial transcript and exits clean.
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func persistTranscript(cfg config.Config, target series.Series, transcript harvest.Transcript, logger *zap.Logger) {
	if transcript.Empty() {
		logger.Warn("no versions fetched; skipping transcript output")
		return
	}

	fileSink, err := sink.NewFileSink(cfg.Output.Dir)
	if err != nil {
		logger.Error("transcript file sink unavailable", zap.Error(err))
	} else if path, werr := fileSink.Write(target.FileName(), transcript); werr != nil {
		logger.Error("transcript write failed", zap.Error(werr))
	} else {
		logger.Info("transcript written", zap.String("path", path))
	}

	if cfg.Output.Clipboard {
		if cerr := sink.NewClipboardSink().Write(transcript); cerr != nil {
			logger.Warn("clipboard copy failed", zap.Error(cerr))
		} else {
			logger.Info("transcript copied to clipboard")
		}
	}
}

// logLatestSummary extracts structured fields from the most recent bulletin
// (version 1 in the NWS numbering) for quick inspection.
func logLatestSummary(transcript harvest.Transcript, logger *zap.Logger) {
	for _, block := range transcript.Blocks {
		if block.Version != 1 {
			continue
		}
		summary := report.Extract(block.Content)
		logger.Info("latest bulletin",
			zap.String("location", summary.Location),
			zap.String("issue_date", summary.IssueDate),
			zap.String("valid_as_of", report.ISO(summary.ValidAsOf)),
			zap.String("reported_at", report.ISO(summary.ReportedAt)),
			zap.Int("max_temp", summary.MaxTemp.Value),
			zap.String("max_temp_at", report.ISO(summary.MaxTemp.ObservedAt)),
			zap.String("timezone", summary.Timezone),
		)
		return
	}
}

// selectSeries resolves the series selector, prompting with a numbered menu
// when none was given. An invalid selection is a fatal configuration error.
func selectSeries(in io.Reader, out io.Writer, catalog series.Catalog, key string) (series.Series, error) {
	if key != "" {
		s, ok := catalog.Lookup(strings.ToLower(key))
		if !ok {
			return series.Series{}, fmt.Errorf("unknown series %q (known: %s)", key, strings.Join(catalog.Keys(), ", "))
		}
		return s, nil
	}

	keys := catalog.Keys()
	fmt.Fprintln(out, "Select a location:")
	for i, k := range keys {
		fmt.Fprintf(out, "%d. %s\n", i+1, catalog[k].Name)
	}
	fmt.Fprint(out, "Enter the number corresponding to the location: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return series.Series{}, errors.New("no selection read")
	}
	choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || choice < 1 || choice > len(keys) {
		return series.Series{}, fmt.Errorf("invalid choice %q", strings.TrimSpace(scanner.Text()))
	}
	return catalog[keys[choice-1]], nil
}
