// Package storage provides Removers for the storage kinds backcycle manages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adamancini/backcycle/internal/backup"
)

// Local removes packages stored under a filesystem path using the layout
// <Path>/<trigger>/<dated>/<filename>.
type Local struct {
	Path string
}

// NewLocal creates a Local remover rooted at path.
func NewLocal(path string) (*Local, error) {
	if path == "" {
		return nil, fmt.Errorf("local storage path must not be empty")
	}
	return &Local{Path: expandPath(path)}, nil
}

// PackageDir returns the directory holding pkg's files.
func (l *Local) PackageDir(pkg backup.Package) string {
	return filepath.Join(l.Path, pkg.Trigger, pkg.Dated())
}

// Remove deletes every file of pkg, then the package directory once empty.
func (l *Local) Remove(ctx context.Context, pkg backup.Package) error {
	dir := l.PackageDir(pkg)

	var errs []error
	for _, name := range pkg.Filenames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == "" || filepath.IsAbs(name) || name != filepath.Base(name) {
			errs = append(errs, fmt.Errorf("refusing to remove %q: not a plain file name", name))
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	// files left by other tools keep the directory around
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return nil
	}
	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("failed to remove package directory %s: %w", dir, err)
	}
	return nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
