// Package main provides the CLI entry point for ctdprofile.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ukaji3/ctdprofile-go/internal/config"
	"github.com/ukaji3/ctdprofile-go/internal/logging"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
	overwrite  bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ctdprofile",
		Short: "Finalize CTD profiles and consolidate sensor histories",
		Long: `ctdprofile finalizes down-cast CTD profile files (true depth, header
annotations, fluorometer labels) and consolidates the sensor blocks of many
profiles into per-sensor validity intervals.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&overwrite, "overwrite", false, "Replace existing output files")

	rootCmd.AddCommand(newModifyCmd(), newSensorsCmd(), newHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err = logging.New(level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	return nil
}

// baseOptions returns processing options from config and global flags.
func baseOptions() ctdprofile.Options {
	opts := ctdprofile.DefaultOptions()
	opts.LineBreak = cfg.LineBreakString()
	opts.Overwrite = cfg.Profile.Overwrite || overwrite
	opts.UseLayoutFormat = cfg.Profile.UseLayoutFormat
	opts.BlankInactiveSpans = cfg.Profile.BlankInactiveSpans
	opts.Workers = cfg.Workers
	opts.Logger = logger
	return opts
}

func requireFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	return nil
}
