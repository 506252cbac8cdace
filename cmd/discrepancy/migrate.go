package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/discrepancy/internal/store/postgres"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply, revert or inspect the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(postgres.Up), string(postgres.Down), string(postgres.Version)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := postgres.Up
			if len(args) == 1 {
				var err error
				if dir, err = postgres.ParseDirection(args[0]); err != nil {
					return err
				}
			}

			state, err := postgres.Migrate(a.cfg.Database.URL, dir)
			if err != nil {
				return &exitError{code: exitFailure, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d, dirty: %v, changed: %v\n", state.Version, state.Dirty, state.Changed)
			return nil
		},
	}
}
