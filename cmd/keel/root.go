package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/internal/platform"
)

var (
	verbose    bool
	configFile string
	driver     string

	// cfg is loaded once in PersistentPreRunE.
	cfg keel.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "Bootstrap and inspect a keel application",
	Long: `keel composes feature modules into a single store, restores persisted
state from the configured backend and drives the mount lifecycle.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := keel.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if driver != "" {
			loaded.Storage.Driver = driver
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		cfg = loaded

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger := platform.NewLogger(level, cfg.Log.Format, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: keel.yaml in the project root)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Override storage.driver (memory, fs, sqlite, s3)")
}
