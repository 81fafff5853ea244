package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamancini/backcycle/internal/backup"
	"github.com/adamancini/backcycle/internal/manifest"
	"github.com/adamancini/backcycle/internal/output"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <trigger>",
		Short: "Show the packages recorded for a trigger",
		Long:  `List prints the manifest of every storage configured for the trigger, most recent package first.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), args[0])
		},
	}
}

// storageListing is the recorded history of one storage.
type storageListing struct {
	Trigger  string           `json:"trigger" yaml:"trigger"`
	Storage  string           `json:"storage" yaml:"storage"`
	Manifest string           `json:"manifest" yaml:"manifest"`
	Packages []backup.Package `json:"packages" yaml:"packages"`
}

type listReport []storageListing

func (r listReport) String() string {
	var b strings.Builder
	for i, l := range r {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s/%s (%s)\n", l.Trigger, l.Storage, l.Manifest)
		if len(l.Packages) == 0 {
			b.WriteString("  (no packages)\n")
			continue
		}
		for _, p := range l.Packages {
			flag := ""
			if p.NoCycle {
				flag = "  [no_cycle]"
			}
			fmt.Fprintf(&b, "  %s  %d file(s)%s\n", p.Dated(), len(p.Filenames), flag)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// runList loads each storage's manifest for the trigger and prints it.
func runList(stdout io.Writer, triggerName string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	cyclefile, _, err := loadCyclefile()
	if err != nil {
		return err
	}

	trigger, err := cyclefile.GetTrigger(triggerName)
	if err != nil {
		return err
	}

	report := make(listReport, 0, len(trigger.Storages))
	for _, s := range trigger.Storages {
		store := manifest.New(cyclefile.DataPath, triggerName, s.Kind, s.ID)
		packages, err := store.Load()
		if err != nil {
			return fmt.Errorf("%s/%s: %w", triggerName, s.Name(), err)
		}
		report = append(report, storageListing{
			Trigger:  triggerName,
			Storage:  s.Name(),
			Manifest: store.Path(),
			Packages: packages,
		})
	}

	return output.NewWriter(stdout, format).Write(report)
}
