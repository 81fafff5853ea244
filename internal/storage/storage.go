package storage

import (
	"fmt"

	"github.com/adamancini/backcycle/internal/config"
	"github.com/adamancini/backcycle/internal/retention"
)

// New returns the Remover for a configured storage. A configured command
// wins over the native remover of the kind.
func New(s config.Storage, runner CommandRunner) (retention.Remover, error) {
	if len(s.Command) > 0 {
		return NewCommand(s.Command, s.ID, runner)
	}
	if s.Kind.IsLocal() {
		return NewLocal(s.Path)
	}
	return nil, fmt.Errorf("storage %s: no remover for kind %s (configure a command)", s.Name(), s.Kind)
}
