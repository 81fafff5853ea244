package retention

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adamancini/backcycle/internal/backup"
)

// Remover deletes every file belonging to a package from a storage backend.
type Remover interface {
	Remove(ctx context.Context, pkg backup.Package) error
}

// RemoverFunc adapts a function to the Remover interface.
type RemoverFunc func(ctx context.Context, pkg backup.Package) error

// Remove calls f.
func (f RemoverFunc) Remove(ctx context.Context, pkg backup.Package) error {
	return f(ctx, pkg)
}

// Outcome is the result of deleting one excess package.
type Outcome struct {
	Package backup.Package `json:"package" yaml:"package"`
	Skipped bool           `json:"skipped" yaml:"skipped"` // no_cycle package, nothing removed
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
	Err     error          `json:"-" yaml:"-"`
}

// Failed reports whether removal was attempted and failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Deleter removes excess packages without letting one failure stop the rest.
type Deleter struct {
	Remover Remover
	Logger  *zap.Logger
	// Concurrency bounds parallel removals; values below 2 remove sequentially.
	Concurrency int
}

// NewDeleter creates a sequential deleter.
func NewDeleter(remover Remover, logger *zap.Logger) *Deleter {
	return &Deleter{Remover: remover, Logger: logger, Concurrency: 1}
}

// Delete attempts removal of every package and returns one Outcome per
// package in input order.
func (d *Deleter) Delete(ctx context.Context, packages []backup.Package) []Outcome {
	outcomes := make([]Outcome, len(packages))
	if len(packages) == 0 {
		return outcomes
	}

	if d.Concurrency < 2 {
		for i, pkg := range packages {
			outcomes[i] = d.deleteOne(ctx, pkg)
		}
		return outcomes
	}

	// deleteOne never returns an error to the group, so one failure does not
	// cancel the others.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Concurrency)
	for i, pkg := range packages {
		i, pkg := i, pkg
		g.Go(func() error {
			outcomes[i] = d.deleteOne(gctx, pkg)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Deleter) deleteOne(ctx context.Context, pkg backup.Package) Outcome {
	logger := d.logger().With(
		zap.String("trigger", pkg.Trigger),
		zap.String("time", pkg.Time.Format(time.RFC3339)),
	)

	if pkg.NoCycle {
		logger.Info("Package marked no_cycle, keeping its files")
		return Outcome{Package: pkg, Skipped: true}
	}

	logger.Debug("Removing package", zap.Strings("files", pkg.Filenames))
	if err := d.Remover.Remove(ctx, pkg); err != nil {
		rerr := &RemovalError{Package: pkg, Err: err}
		logger.Warn("There was a problem removing the package",
			zap.Int("file_count", len(pkg.Filenames)),
			zap.Strings("files", pkg.Filenames),
			zap.Error(err),
		)
		return Outcome{Package: pkg, Err: rerr, Error: err.Error()}
	}

	logger.Info("Package removed", zap.Int("file_count", len(pkg.Filenames)))
	return Outcome{Package: pkg}
}

func (d *Deleter) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
