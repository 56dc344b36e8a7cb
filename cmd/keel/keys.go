package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/pkg/adapters/storage"
)

var keysMatch string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys stored in the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := keel.New(ctx, keel.WithConfig(cfg), keel.WithModules(modules()...))
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		lister, ok := app.Backend.(storage.Lister)
		if !ok {
			return fmt.Errorf("storage driver %q cannot list keys", cfg.Storage.Driver)
		}
		keys, err := lister.Keys(ctx)
		if err != nil {
			return err
		}
		if keysMatch != "" {
			keys = matchKeys(keysMatch, keys)
		}

		for _, key := range keys {
			marker := " "
			if app.Set.Persistence.Excluded(key) {
				marker = "x"
			}
			fmt.Printf("%s %s\n", marker, key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.Flags().StringVar(&keysMatch, "match", "", "Only list keys matching a glob pattern")
}
