// Package config handles Cyclefile parsing and location resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/adamancini/backcycle/internal/retention"
	"github.com/adamancini/backcycle/internal/types"
)

// StorageKind is re-exported from the types package.
type StorageKind = types.StorageKind

// Storage defines one destination a trigger's packages are stored to and the
// retention applied there.
type Storage struct {
	Kind StorageKind `yaml:"kind" toml:"kind" json:"kind"`
	// ID distinguishes several storages of the same kind for one trigger.
	ID   string `yaml:"id,omitempty" toml:"id,omitempty" json:"id,omitempty"`
	Path string `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty"` // local storage root
	// Keep is a count, a date or an age; see retention.ParsePolicy.
	Keep    any      `yaml:"keep" toml:"keep" json:"keep"`
	Command []string `yaml:"command,omitempty" toml:"command,omitempty" json:"command,omitempty"`
}

// Name identifies the storage in logs and metrics: the manifest name without
// extension, e.g. "Local" or "S3-offsite".
func (s Storage) Name() string {
	name := s.Kind.FileName()
	if s.ID != "" {
		name += "-" + s.ID
	}
	return name
}

// Policy parses Keep relative to now.
func (s Storage) Policy(now time.Time) (retention.Policy, error) {
	return retention.ParsePolicy(s.Keep, now)
}

// Trigger lists the storages of one backup job.
type Trigger struct {
	Storages []Storage `yaml:"storages" toml:"storages" json:"storages"`
}

// Cyclefile represents the parsed configuration file.
type Cyclefile struct {
	Version     int                `yaml:"version" toml:"version" json:"version"`
	DataPath    string             `yaml:"data_path,omitempty" toml:"data_path,omitempty" json:"data_path,omitempty"`
	Concurrency int                `yaml:"concurrency,omitempty" toml:"concurrency,omitempty" json:"concurrency,omitempty"`
	Triggers    map[string]Trigger `yaml:"triggers" toml:"triggers" json:"triggers"`
}

// GetTrigger finds a trigger by name.
func (c *Cyclefile) GetTrigger(name string) (*Trigger, error) {
	t, ok := c.Triggers[name]
	if !ok {
		return nil, fmt.Errorf("trigger not found: %s", name)
	}
	return &t, nil
}

// TriggerNames returns the configured trigger names sorted alphabetically.
func (c *Cyclefile) TriggerNames() []string {
	names := make([]string, 0, len(c.Triggers))
	for name := range c.Triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fileNames are the Cyclefile names searched in each directory.
var fileNames = []string{
	"Cyclefile",
	"Cyclefile.yaml",
	"Cyclefile.yml",
	"Cyclefile.toml",
	"Cyclefile.json",
	".Cyclefile",
	".Cyclefile.yaml",
	".Cyclefile.yml",
	".Cyclefile.toml",
	".Cyclefile.json",
}

// FindCyclefile searches for a Cyclefile in the standard locations.
// Returns the path to the first Cyclefile found, or an error if none exists.
func FindCyclefile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified Cyclefile not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Check CYCLEFILE environment variable
	if envPath := os.Getenv("CYCLEFILE"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	searchPaths, err := searchDirs()
	if err != nil {
		return "", err
	}

	for _, dir := range searchPaths {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("no Cyclefile found in standard locations")
}

// DefaultPath returns where `backcycle init` writes a new Cyclefile.
func DefaultPath() (string, error) {
	dirs, err := searchDirs()
	if err != nil {
		return "", err
	}
	return filepath.Join(dirs[0], "Cyclefile.yaml"), nil
}

func searchDirs() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "backcycle"),
		filepath.Join(home, ".backcycle"),
		home,
	}, nil
}

// DefaultDataPath returns the directory manifests are kept in when the
// Cyclefile does not set data_path.
func DefaultDataPath() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "backcycle"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "backcycle"), nil
}

// Load reads and parses a Cyclefile from the given path.
func Load(path string) (*Cyclefile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read Cyclefile: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cyclefile, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	if err := Validate(cyclefile); err != nil {
		return nil, err
	}

	if err := cyclefile.applyDefaults(); err != nil {
		return nil, err
	}

	return cyclefile, nil
}

// applyDefaults fills data_path and concurrency and expands ~ in paths.
func (c *Cyclefile) applyDefaults() error {
	if c.DataPath == "" {
		dataPath, err := DefaultDataPath()
		if err != nil {
			return err
		}
		c.DataPath = dataPath
	}
	c.DataPath = expandPath(c.DataPath)

	if c.Concurrency < 1 {
		c.Concurrency = 1
	}

	for name, trigger := range c.Triggers {
		for i := range trigger.Storages {
			trigger.Storages[i].Path = expandPath(trigger.Storages[i].Path)
		}
		c.Triggers[name] = trigger
	}
	return nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment so they are available to ${VAR} expansion. Variables already
// set are not overridden.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
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
