package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/keel/internal/platform"
)

const configTemplate = `# keel configuration. Every key can be overridden with KEEL_<SECTION>_<KEY>.
dev: false
log:
  level: info
  format: text
storage:
  driver: fs        # memory, fs, sqlite or s3
  path: .keel/state
  ready_timeout: 10s
persistence:
  exclude: []
  write_timeout: 2s
debug:
  addr: ""          # e.g. 127.0.0.1:7070
metrics:
  namespace: keel
tracing:
  enabled: false
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default keel.yaml in the current directory",
	Args:  cobra.NoArgs,
	// Skip config loading: there is nothing to load yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}

		path := filepath.Join(cwd, platform.ConfigName)
		if _, err := os.Stat(path); err == nil {
			fatal("Refusing to overwrite", fmt.Errorf("%s already exists", path))
		}
		if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
			fatal("Failed to write config", err)
		}

		fmt.Println("Initialized keel project in", cwd)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
