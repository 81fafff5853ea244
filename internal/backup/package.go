// Package backup defines the record describing one completed backup run.
package backup

import (
	"fmt"
	"strings"
	"time"
)

// DatedLayout is the time layout used for a package's remote directory name.
const DatedLayout = "2006.01.02.15.04.05"

// Package is the metadata of one backup run as stored in a manifest.
type Package struct {
	Trigger   string    `yaml:"trigger" json:"trigger"`
	Time      time.Time `yaml:"time" json:"time"`
	Filenames []string  `yaml:"filenames" json:"filenames"`
	NoCycle   bool      `yaml:"no_cycle" json:"no_cycle"`
	StorageID string    `yaml:"storage_id,omitempty" json:"storage_id,omitempty"`
}

// New creates a package for trigger created at t.
func New(trigger string, t time.Time, filenames ...string) Package {
	return Package{
		Trigger:   trigger,
		Time:      t,
		Filenames: filenames,
	}
}

// Validate checks the fields a cycle depends on.
func (p Package) Validate() error {
	if strings.TrimSpace(p.Trigger) == "" {
		return fmt.Errorf("package trigger is required")
	}
	if p.Time.IsZero() {
		return fmt.Errorf("package %s: time is required", p.Trigger)
	}
	return nil
}

// Dated returns the package time formatted with DatedLayout.
func (p Package) Dated() string {
	return p.Time.Format(DatedLayout)
}

// String returns a short human readable description.
func (p Package) String() string {
	return fmt.Sprintf("%s@%s (%d file(s))", p.Trigger, p.Dated(), len(p.Filenames))
}
