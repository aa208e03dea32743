package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dimitrije/teamscope/internal/bootstrap"
	"github.com/dimitrije/teamscope/internal/config"
	"github.com/dimitrije/teamscope/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "teamscopectl",
	Short:         "teamscopectl manages the teamscope database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
			if err := app.DB.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, newSeedCmd(), newHashidCmd(), promoteCmd)
}

// withApp loads configuration, bootstraps the services and runs fn.
func withApp(ctx context.Context, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl, err := logger.New(cfg.Log, cfg.IsProduction())
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	app, cleanup, err := bootstrap.Bootstrap(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := fn(ctx, app); err != nil {
		zl.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
