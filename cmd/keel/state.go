package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/aretw0/keel"
	"github.com/aretw0/keel/pkg/core"
)

var (
	stateMatch string
)

var stateCmd = &cobra.Command{
	Use:   "state [key]",
	Short: "Print the state the application would start with",
	Long: `Restore persisted state from the configured backend and merge it over the
registered defaults, without mounting. Prints one subtree when key is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := keel.New(ctx, keel.WithConfig(cfg), keel.WithModules(modules()...))
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		readyCtx, cancel := context.WithTimeout(ctx, cfg.Storage.ReadyTimeout)
		err = app.Backend.Ready(readyCtx)
		cancel()
		if err != nil {
			return err
		}
		state := app.Set.Reducers.InitialState(app.Set.Persistence.GetPersistedState(ctx, app.Backend))

		if len(args) == 1 {
			value, ok := state[args[0]]
			if !ok {
				return unknownKey(args[0], stateKeys(state))
			}
			return printJSON(value)
		}

		if stateMatch != "" {
			filtered := make(core.State)
			for _, key := range matchKeys(stateMatch, stateKeys(state)) {
				filtered[key] = state[key]
			}
			state = filtered
		}
		return printJSON(state)
	},
}

func stateKeys(state core.State) []string {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchKeys keeps the keys matching a doublestar pattern. An invalid pattern
// matches nothing.
func matchKeys(pattern string, keys []string) []string {
	var out []string
	for _, k := range keys {
		if ok, err := doublestar.Match(pattern, k); err == nil && ok {
			out = append(out, k)
		}
	}
	return out
}

// suggest returns the candidate closest to key, if it is close enough to be
// a plausible typo.
func suggest(key string, candidates []string) (string, bool) {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(key, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := len(key) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return "", false
	}
	return best, true
}

func unknownKey(key string, candidates []string) error {
	if s, ok := suggest(key, candidates); ok {
		return fmt.Errorf("unknown key %q, did you mean %q?", key, s)
	}
	return fmt.Errorf("unknown key %q", key)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().StringVar(&stateMatch, "match", "", "Only print keys matching a glob pattern (e.g. 'sett*')")
}
