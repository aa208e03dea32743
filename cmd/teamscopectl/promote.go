package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/teamscope/internal/bootstrap"
	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/services"
	"github.com/spf13/cobra"
)

// promoteCmd grants Super Admin globally and in every existing team, the
// way the user seeder grants it. Teams created later receive the grant
// only for SUPER_ADMIN_USER_ID.
var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant a user Super Admin globally and on every existing team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
			user, err := app.Users.GetByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("no user found with email: %s", email)
				}
				return err
			}

			p := &promoter{db: app.DB, store: app.RBAC, teams: app.Teams}
			n, err := p.promote(ctx, user.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully promoted %s to super admin on %d teams\n", email, n)
			return nil
		})
	},
}

type teamLister interface {
	List(ctx context.Context) ([]models.Team, error)
}

type promoter struct {
	db    *database.DB
	store *rbac.Store
	teams teamLister
}

// promote assigns the Super Admin role to userID without a team and in
// each team's scope, all in one transaction. It returns the team count.
func (p *promoter) promote(ctx context.Context, userID int64) (int, error) {
	teams, err := p.teams.List(ctx)
	if err != nil {
		return 0, err
	}

	err = p.db.WithTx(ctx, func(q database.Querier) error {
		store := p.store.WithTx(q)

		global := rbac.WithoutTeam(ctx)
		role, err := store.FindRoleByName(global, models.RoleSuperAdmin)
		if err != nil {
			return err
		}

		if err := store.AssignRole(global, nil, userID, role.ID); err != nil {
			return err
		}
		for i := range teams {
			teamID := teams[i].ID
			if err := store.AssignRole(rbac.WithTeam(ctx, teamID), &teamID, userID, role.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(teams), nil
}
