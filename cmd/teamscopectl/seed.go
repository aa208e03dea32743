package main

import (
	"context"
	"fmt"

	"github.com/dimitrije/teamscope/internal/bootstrap"
	"github.com/dimitrije/teamscope/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed [permissions|teams|users]",
		Short: "Seed permissions, roles and, with --fake, demo teams and users",
		Long: `Without arguments every seeder runs in order: permissions, teams, users.
Seeding is not idempotent; run it against empty tables.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"permissions", "teams", "users"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				var err error
				if len(args) == 1 {
					err = seed.RunNamed(ctx, app.SeedDeps(), opts, args[0])
				} else {
					err = seed.Run(ctx, app.SeedDeps(), opts)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seeding complete")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Fake, "fake", false, "create demo teams and users")
	cmd.Flags().Uint64Var(&opts.FakeSeed, "fake-seed", seed.DefaultFakeSeed, "random seed for fake data")
	return cmd
}
