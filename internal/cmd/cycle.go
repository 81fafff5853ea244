package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamancini/backcycle/internal/backup"
	"github.com/adamancini/backcycle/internal/config"
	"github.com/adamancini/backcycle/internal/manifest"
	"github.com/adamancini/backcycle/internal/metrics"
	"github.com/adamancini/backcycle/internal/output"
	"github.com/adamancini/backcycle/internal/retention"
	"github.com/adamancini/backcycle/internal/storage"
)

// cycleOptions holds the inputs of one cycle invocation.
type cycleOptions struct {
	trigger     string
	files       []string
	at          string
	noCycle     bool
	concurrency int
	runner      storage.CommandRunner
	now         func() time.Time
}

func newCycleCmd() *cobra.Command {
	opts := cycleOptions{}

	cmd := &cobra.Command{
		Use:   "cycle <trigger>",
		Short: "Record a new package and remove the ones retention no longer keeps",
		Long: `Cycle records a freshly stored package in the manifest of every storage
configured for the trigger, removes the packages that fall outside each
storage's retention and rewrites the manifest.

Removal failures are reported as warnings; the failed packages still leave
the manifest. Manifest read or write errors make the command fail.

Examples:
  backcycle cycle nightly --file nightly.tar.gz
  backcycle cycle nightly -f nightly.tar.gz-aa -f nightly.tar.gz-ab
  backcycle cycle monthly --file monthly.tar --no-cycle
  backcycle cycle nightly --file db.sql --time 2024-03-01T02:30:05Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.trigger = args[0]
			return runCycle(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.files, "file", "f", nil, "File belonging to the new package (repeatable)")
	cmd.Flags().StringVar(&opts.at, "time", "", "Package time as RFC 3339 or YYYY.MM.DD.hh.mm.ss (default now)")
	cmd.Flags().BoolVar(&opts.noCycle, "no-cycle", false, "Never remove this package's files")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Parallel removals per storage (default from Cyclefile)")

	return cmd
}

// runCycle executes the cycle workflow for every storage of the trigger.
func runCycle(ctx context.Context, stdout, stderr io.Writer, opts cycleOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.runner == nil {
		opts.runner = &storage.DefaultCommandRunner{}
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	if len(opts.files) == 0 {
		return fmt.Errorf("at least one --file is required")
	}

	now := opts.now()
	pkgTime, err := parsePackageTime(opts.at, now)
	if err != nil {
		return err
	}

	cyclefile, _, err := loadCyclefile()
	if err != nil {
		return err
	}

	trigger, err := cyclefile.GetTrigger(opts.trigger)
	if err != nil {
		return err
	}

	concurrency := cyclefile.Concurrency
	if opts.concurrency > 0 {
		concurrency = opts.concurrency
	}

	recorder := metrics.NewPrometheusRecorder(nil)

	var (
		report cycleReport
		errs   []error
	)
	for _, s := range trigger.Storages {
		pkg := backup.Package{
			Trigger:   opts.trigger,
			Time:      pkgTime,
			Filenames: opts.files,
			NoCycle:   opts.noCycle,
			StorageID: s.ID,
		}

		result, err := cycleStorage(ctx, cyclefile.DataPath, s, pkg, now, concurrency, opts.runner, recorder)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", opts.trigger, s.Name(), err))
			continue
		}
		report = append(report, result)

		for _, o := range result.Failed() {
			_, _ = fmt.Fprintf(stderr, "Warning: %s/%s: %v\n", opts.trigger, s.Name(), o.Err)
		}
	}

	if metricsFile != "" {
		if err := recorder.WriteTextfile(metricsFile); err != nil {
			errs = append(errs, err)
		}
	}

	if !quiet || format != output.FormatText {
		if err := output.NewWriter(stdout, format).Write(report); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	return errors.Join(errs...)
}

// cycleStorage wires the manifest store, remover and deleter for one storage
// and runs a single cycle.
func cycleStorage(ctx context.Context, dataPath string, s config.Storage, pkg backup.Package, now time.Time, concurrency int, runner storage.CommandRunner, recorder metrics.Recorder) (*retention.Result, error) {
	policy, err := s.Policy(now)
	if err != nil {
		return nil, fmt.Errorf("invalid keep: %w", err)
	}

	remover, err := storage.New(s, runner)
	if err != nil {
		return nil, err
	}

	deleter := retention.NewDeleter(remover, logger)
	deleter.Concurrency = concurrency

	cycler := &retention.Cycler{
		Store:    manifest.New(dataPath, pkg.Trigger, s.Kind, s.ID),
		Deleter:  deleter,
		Logger:   logger,
		Recorder: recorder,
		Storage:  s.Name(),
	}

	logger.Debug("Cycling storage",
		zap.String("trigger", pkg.Trigger),
		zap.String("storage", s.Name()),
		zap.Stringer("policy", policy),
	)
	return cycler.Cycle(ctx, pkg, policy)
}

// parsePackageTime accepts RFC 3339 or the dated directory layout; empty
// means now.
func parsePackageTime(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(backup.DatedLayout, value, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --time %q: want RFC 3339 or %s", value, backup.DatedLayout)
}

// cycleReport is the output of the cycle command.
type cycleReport []*retention.Result

func (r cycleReport) String() string {
	if len(r) == 0 {
		return "No storages cycled."
	}

	var b strings.Builder
	for i, res := range r {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s/%s (%s): %d retained, %d removed, %d skipped, %d failed\n",
			res.Trigger, res.Storage, res.Policy, len(res.Retained), res.Removed(), res.Skipped(), len(res.Failed()))
		fmt.Fprintf(&b, "  manifest: %s\n", res.ManifestPath)
		for _, o := range res.Outcomes {
			status := "removed"
			switch {
			case o.Skipped:
				status = "kept (no_cycle)"
			case o.Failed():
				status = "FAILED"
			}
			fmt.Fprintf(&b, "  - %s %s\n", o.Package.Dated(), status)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
