package storage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"text/template"

	"github.com/adamancini/backcycle/internal/backup"
)

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner uses os/exec to run commands.
type DefaultCommandRunner struct{}

// Run executes name with args and returns its combined output.
func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// filesArg is the argument that expands to one argv entry per file.
const filesArg = "{{.Files}}"

// commandData is the data each command argument template is rendered with.
type commandData struct {
	Trigger   string
	Time      string
	Files     string
	StorageID string
}

// Command removes packages by running an external program, for storage kinds
// backcycle has no native client for (rclone, aws, ssh, ...).
//
// Every argument is a text/template rendered with .Trigger, .Time (the
// package's dated directory name), .Files (space separated) and .StorageID.
// An argument that is exactly {{.Files}} becomes one argument per file.
type Command struct {
	Args      []string
	StorageID string
	Runner    CommandRunner

	templates []*template.Template
}

// NewCommand parses args and returns a Command remover.
func NewCommand(args []string, storageID string, runner CommandRunner) (*Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("remove command must not be empty")
	}
	if runner == nil {
		runner = &DefaultCommandRunner{}
	}

	templates := make([]*template.Template, len(args))
	for i, arg := range args {
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).Option("missingkey=error").Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid remove command argument %q: %w", arg, err)
		}
		templates[i] = tmpl
	}

	return &Command{
		Args:      args,
		StorageID: storageID,
		Runner:    runner,
		templates: templates,
	}, nil
}

// Render returns the argv used to remove pkg.
func (c *Command) Render(pkg backup.Package) ([]string, error) {
	data := commandData{
		Trigger:   pkg.Trigger,
		Time:      pkg.Dated(),
		Files:     strings.Join(pkg.Filenames, " "),
		StorageID: c.StorageID,
	}

	argv := make([]string, 0, len(c.templates)+len(pkg.Filenames))
	for i, tmpl := range c.templates {
		if strings.TrimSpace(c.Args[i]) == filesArg {
			argv = append(argv, pkg.Filenames...)
			continue
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render remove command argument %q: %w", c.Args[i], err)
		}
		argv = append(argv, buf.String())
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("remove command renders to an empty program name")
	}
	return argv, nil
}

// Remove runs the rendered command for pkg.
func (c *Command) Remove(ctx context.Context, pkg backup.Package) error {
	argv, err := c.Render(pkg)
	if err != nil {
		return err
	}

	output, err := c.Runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w\nOutput: %s", strings.Join(argv, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
