package retention

import (
	"fmt"
	"strings"
	"time"

	"github.com/adamancini/backcycle/internal/backup"
)

// RemovalError reports a package whose files could not be removed. The
// package has still been dropped from the manifest, so its files may need
// manual cleanup.
type RemovalError struct {
	Package backup.Package
	Err     error
}

func (e *RemovalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to remove package: trigger %s dated %s: %v\n",
		e.Package.Trigger, e.Package.Time.Format(time.RFC3339), e.Err)
	fmt.Fprintf(&b, "package included the following %d file(s):", len(e.Package.Filenames))
	for _, name := range e.Package.Filenames {
		b.WriteString("\n  ")
		b.WriteString(name)
	}
	return b.String()
}

func (e *RemovalError) Unwrap() error {
	return e.Err
}
