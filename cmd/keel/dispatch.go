package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/keel/features/settings"
	"github.com/aretw0/keel/pkg/core"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <type> [payload]",
	Short: "Mount, dispatch one action and unmount",
	Long: `Mount the application, dispatch an action with an optional JSON payload,
then unmount so persisted subtrees are written back.

Example:
  keel dispatch counter/INCREMENT`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := core.Action{Type: args[0]}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &action.Payload); err != nil {
				return fmt.Errorf("payload is not valid JSON: %w", err)
			}
		}
		return dispatchOnce(cmd.Context(), action)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Change a persisted preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatchOnce(cmd.Context(), settings.Set(args[0], args[1]))
	},
}

func dispatchOnce(ctx context.Context, action core.Action) error {
	app, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())
	if err := mounted(app); err != nil {
		return err
	}

	if err := app.Controller.Dispatch(action); err != nil {
		return err
	}
	return printJSON(app.Controller.Store().GetState())
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(setCmd)
}
