package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adamancini/backcycle/internal/backup"
)

// useCyclefile writes body to a temporary Cyclefile, points the global
// --config flag at it and restores the global flags afterwards.
func useCyclefile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Cyclefile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	resetGlobals(t)
	configPath = path
	return path
}

func resetGlobals(t *testing.T) {
	t.Helper()

	outputFormat = "text"
	configPath = ""
	envFile = ""
	metricsFile = ""
	verbose = false
	quiet = false
	logger = zap.NewNop()

	t.Cleanup(func() {
		outputFormat = "text"
		configPath = ""
		envFile = ""
		metricsFile = ""
		verbose = false
		quiet = false
		logger = zap.NewNop()
	})
}

// storeFiles creates the files of a package under a local storage root.
func storeFiles(t *testing.T, root string, pkg backup.Package) string {
	t.Helper()

	dir := filepath.Join(root, pkg.Trigger, pkg.Dated())
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range pkg.Filenames {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
	return dir
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

// fakeRunner records commands and fails those whose arguments contain failOn.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	failOn string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)
	if r.failOn != "" && strings.Contains(strings.Join(call, " "), r.failOn) {
		return []byte("access denied"), fmt.Errorf("exit status 1")
	}
	return nil, nil
}
