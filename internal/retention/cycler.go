package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adamancini/backcycle/internal/backup"
	"github.com/adamancini/backcycle/internal/metrics"
)

// Store loads and saves the package history of one trigger and storage.
// *manifest.Store implements it.
type Store interface {
	Trigger() string
	StorageID() string
	Path() string
	Load() ([]backup.Package, error)
	Save(packages []backup.Package) error
}

// Result describes one finished cycle.
type Result struct {
	RunID        string           `json:"run_id" yaml:"run_id"`
	Trigger      string           `json:"trigger" yaml:"trigger"`
	Storage      string           `json:"storage" yaml:"storage"`
	Policy       Policy           `json:"policy" yaml:"policy"`
	ManifestPath string           `json:"manifest" yaml:"manifest"`
	Retained     []backup.Package `json:"retained" yaml:"retained"`
	Excess       []backup.Package `json:"excess" yaml:"excess"`
	Outcomes     []Outcome        `json:"outcomes" yaml:"outcomes"`
}

// Removed returns the number of excess packages whose files were removed.
func (r *Result) Removed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Skipped && o.Err == nil {
			n++
		}
	}
	return n
}

// Skipped returns the number of excess no_cycle packages.
func (r *Result) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Skipped {
			n++
		}
	}
	return n
}

// Failed returns the outcomes whose removal failed.
func (r *Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Cycler merges a new package into a trigger's history, deletes the excess
// and persists what remains.
type Cycler struct {
	Store    Store
	Deleter  *Deleter
	Logger   *zap.Logger
	Recorder metrics.Recorder
	// Storage labels logs, metrics and results, e.g. "Local" or "S3-offsite".
	Storage string
}

// NewCycler creates a cycler with a sequential deleter.
func NewCycler(store Store, remover Remover, logger *zap.Logger) *Cycler {
	return &Cycler{
		Store:   store,
		Deleter: NewDeleter(remover, logger),
		Logger:  logger,
	}
}

// Cycle adds pkg as the most recent entry of the history, removes whatever
// policy marks as excess (pkg included) and saves the retained packages.
//
// Manifest load and save errors are returned. Removal failures are not: they
// are reported in the Result and the failed packages still leave the
// manifest.
func (c *Cycler) Cycle(ctx context.Context, pkg backup.Package, policy Policy) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := c.logger().With(
		zap.String("run_id", runID),
		zap.String("trigger", pkg.Trigger),
		zap.String("storage", c.Storage),
	)

	result, err := c.cycle(ctx, logger, pkg, policy)
	if result != nil {
		result.RunID = runID
	}
	c.observe(pkg.Trigger, result, err, time.Since(start))

	if err != nil {
		logger.Error("Cycling failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *Cycler) cycle(ctx context.Context, logger *zap.Logger, pkg backup.Package, policy Policy) (*Result, error) {
	if c.Store == nil || c.Deleter == nil {
		return nil, fmt.Errorf("cycler requires a manifest store and a deleter")
	}
	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid package: %w", err)
	}
	if pkg.Trigger != c.Store.Trigger() || pkg.StorageID != c.Store.StorageID() {
		return nil, fmt.Errorf("package %s (storage id %q) does not belong to manifest %s (trigger %s, storage id %q)",
			pkg, pkg.StorageID, c.Store.Path(), c.Store.Trigger(), c.Store.StorageID())
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retention policy: %w", err)
	}

	logger.Info("Cycling started", zap.Stringer("policy", policy))

	history, err := c.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	packages := make([]backup.Package, 0, len(history)+1)
	packages = append(packages, pkg)
	packages = append(packages, history...)

	retained, excess := Partition(packages, policy)
	logger.Debug("Partitioned history",
		zap.Int("total", len(packages)),
		zap.Int("retained", len(retained)),
		zap.Int("excess", len(excess)),
	)

	outcomes := c.deleter(logger).Delete(ctx, excess)

	if err := c.Store.Save(retained); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	result := &Result{
		Trigger:      pkg.Trigger,
		Storage:      c.Storage,
		Policy:       policy,
		ManifestPath: c.Store.Path(),
		Retained:     retained,
		Excess:       excess,
		Outcomes:     outcomes,
	}

	logger.Info("Cycling finished",
		zap.Int("retained", len(retained)),
		zap.Int("removed", result.Removed()),
		zap.Int("skipped", result.Skipped()),
		zap.Int("failed", len(result.Failed())),
	)
	return result, nil
}

func (c *Cycler) deleter(logger *zap.Logger) *Deleter {
	d := *c.Deleter
	d.Logger = logger
	return &d
}

func (c *Cycler) observe(trigger string, result *Result, err error, d time.Duration) {
	if c.Recorder == nil {
		return
	}
	obs := metrics.CycleObservation{
		Trigger:  trigger,
		Storage:  c.Storage,
		Duration: d,
		Err:      err,
	}
	if result != nil {
		obs.Retained = len(result.Retained)
		obs.Removed = result.Removed()
		obs.Skipped = result.Skipped()
		obs.Failed = len(result.Failed())
	}
	c.Recorder.ObserveCycle(obs)
}

func (c *Cycler) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
