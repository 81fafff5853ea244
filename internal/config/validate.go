package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/adamancini/backcycle/internal/retention"
)

// CurrentVersion is the Cyclefile format version this build understands.
const CurrentVersion = 1

// namePattern restricts trigger names and storage ids, which become path
// components of the manifest location.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidationError represents a Cyclefile validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the Cyclefile for required fields and valid values.
func Validate(c *Cyclefile) error {
	var errors []string

	if c.Version > CurrentVersion || c.Version < 0 {
		errors = append(errors, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (this build supports %d)", c.Version, CurrentVersion),
		}.Error())
	}

	if c.Concurrency < 0 {
		errors = append(errors, ValidationError{
			Field:   "concurrency",
			Message: "must be non-negative",
		}.Error())
	}

	for _, name := range c.TriggerNames() {
		for _, err := range validateTrigger(name, c.Triggers[name]) {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateTrigger(name string, t Trigger) []error {
	var errs []error

	if !namePattern.MatchString(name) || strings.Contains(name, "..") {
		errs = append(errs, ValidationError{
			Field:   "triggers",
			Message: fmt.Sprintf("invalid trigger name '%s'", name),
		})
	}

	if len(t.Storages) == 0 {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("triggers.%s.storages", name),
			Message: "at least one storage is required",
		})
	}

	seen := make(map[string]int)
	for i, s := range t.Storages {
		if err := validateStorage(name, i, s); err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[s.Name()]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("triggers.%s.storages[%d]", name, i),
				Message: fmt.Sprintf("duplicate storage '%s' (also storages[%d]); set a distinct id", s.Name(), prev),
			})
			continue
		}
		seen[s.Name()] = i
	}

	return errs
}

func validateStorage(trigger string, index int, s Storage) error {
	field := fmt.Sprintf("triggers.%s.storages[%d]", trigger, index)

	if err := s.Kind.Validate(); err != nil {
		return ValidationError{Field: field + ".kind", Message: err.Error()}
	}

	if s.ID != "" && (!namePattern.MatchString(s.ID) || strings.Contains(s.ID, "..")) {
		return ValidationError{
			Field:   field + ".id",
			Message: fmt.Sprintf("invalid storage id '%s'", s.ID),
		}
	}

	if _, err := retention.ParsePolicy(s.Keep, time.Now()); err != nil {
		return ValidationError{Field: field + ".keep", Message: err.Error()}
	}

	if len(s.Command) > 0 {
		if strings.TrimSpace(s.Command[0]) == "" {
			return ValidationError{Field: field + ".command", Message: "program name is required"}
		}
		return nil
	}

	if !s.Kind.IsLocal() {
		return ValidationError{
			Field:   field + ".command",
			Message: fmt.Sprintf("command is required for %s storage", s.Kind),
		}
	}

	if s.Path == "" {
		return ValidationError{Field: field + ".path", Message: "path is required for local storage"}
	}

	return nil
}
