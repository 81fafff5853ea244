package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adamancini/backcycle/internal/config"
	"github.com/adamancini/backcycle/internal/output"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	envFile      string
	metricsFile  string
	verbose      bool
	quiet        bool

	logger = zap.NewNop()

	backcycleVersion = "dev"
)

// Execute runs the backcycle command line.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	backcycleVersion = version

	rootCmd := &cobra.Command{
		Use:   "backcycle",
		Short: "Retention cycling for backup packages",
		Long: `backcycle keeps a manifest of the packages each backup trigger stored and
removes the ones that fall outside the configured retention.

Declare triggers, storages and retention in a Cyclefile, then run
backcycle cycle after every backup.`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose, quiet)
			if err != nil {
				return err
			}
			logger = l
			return config.LoadEnvFile(envFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to Cyclefile")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from a dotenv file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after cycling")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(newCycleCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.Formats(), cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// newLogger builds the production logger at the level the flags ask for.
func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch {
	case quiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	case verbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.Sampling = nil

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

// loadCyclefile locates and parses the Cyclefile named by the global flags.
func loadCyclefile() (*config.Cyclefile, string, error) {
	path, err := config.FindCyclefile(configPath)
	if err != nil {
		return nil, "", err
	}
	logger.Debug("Using Cyclefile", zap.String("path", path))

	cyclefile, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cyclefile, path, nil
}
