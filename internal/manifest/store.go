// Package manifest persists the history of packages cycled for one trigger
// and storage.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/adamancini/backcycle/internal/backup"
	"github.com/adamancini/backcycle/internal/types"
)

// Extension is the manifest file extension.
const Extension = ".yml"

var (
	// ErrCorrupt is returned by Load when a non-empty manifest cannot be parsed
	// into valid package records.
	ErrCorrupt = errors.New("manifest is corrupt")
	// ErrWrite is returned by Save when the manifest could not be persisted.
	ErrWrite = errors.New("manifest write failed")
)

// Store reads and writes the manifest of one (trigger, kind, storage id) triple.
type Store struct {
	dataPath  string
	trigger   string
	kind      types.StorageKind
	storageID string
}

// New creates a store rooted at dataPath.
func New(dataPath, trigger string, kind types.StorageKind, storageID string) *Store {
	return &Store{
		dataPath:  dataPath,
		trigger:   trigger,
		kind:      kind,
		storageID: storageID,
	}
}

// Trigger returns the trigger whose packages the store holds.
func (s *Store) Trigger() string {
	return s.trigger
}

// StorageID returns the storage id the store is bound to, empty for the
// default storage of its kind.
func (s *Store) StorageID() string {
	return s.storageID
}

// Path returns the manifest location:
// <dataPath>/<trigger>/<KindName>[-<storageID>].yml
func (s *Store) Path() string {
	return Path(s.dataPath, s.trigger, s.kind, s.storageID)
}

// Path derives a manifest location without constructing a Store.
func Path(dataPath, trigger string, kind types.StorageKind, storageID string) string {
	name := kind.FileName()
	if storageID != "" {
		name += "-" + storageID
	}
	return filepath.Join(dataPath, trigger, name+Extension)
}

// Load returns the stored packages, newest first. A missing or empty file is
// an empty history.
func (s *Store) Load() ([]backup.Package, error) {
	path := s.Path()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []backup.Package{}, nil
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if len(data) == 0 {
		return []backup.Package{}, nil
	}

	var packages []backup.Package
	if err := yaml.Unmarshal(data, &packages); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if packages == nil {
		packages = []backup.Package{}
	}
	for i, pkg := range packages {
		if err := pkg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %w", ErrCorrupt, path, i, err)
		}
	}

	sort.SliceStable(packages, func(i, j int) bool {
		return packages[i].Time.After(packages[j].Time)
	})

	return packages, nil
}

// Save replaces the manifest with packages. The file is written to a
// temporary sibling and renamed into place so a crash never leaves a
// truncated manifest behind.
func (s *Store) Save(packages []backup.Package) error {
	path := s.Path()
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %w", ErrWrite, dir, err)
	}

	if packages == nil {
		packages = []backup.Package{}
	}
	for i, pkg := range packages {
		if err := pkg.Validate(); err != nil {
			return fmt.Errorf("%w: %s: record %d: %w", ErrCorrupt, path, i, err)
		}
	}
	data, err := yaml.Marshal(packages)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal manifest: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %w", ErrWrite, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: failed to sync %s: %w", ErrWrite, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", ErrWrite, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: failed to chmod %s: %w", ErrWrite, tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %w", ErrWrite, path, err)
	}

	return nil
}
