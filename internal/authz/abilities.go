package authz

import (
	"context"

	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
)

// Abilities checked by the HTTP layer. All but AbilityViewTeam are
// permission names granted by the seeder.
const (
	AbilityReadUsers      = "read users"
	AbilityDeleteUsers    = "delete users"
	AbilityForceDelete    = "force delete"
	AbilityCreateOwnTeams = "create own teams"
	AbilityReadAllTeams   = "read all teams"
	AbilityUpdateAllTeams = "update all teams"
	AbilityDeleteAllTeams = "delete all teams"
	// AbilitySuperAdmin guards role definitions. No seeded role is
	// granted it, so only the Super Admin bypass passes.
	AbilitySuperAdmin = "super admin"

	AbilityViewTeam = "view team"
)

// MembershipChecker reports whether a user belongs to a team.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, teamID int64) (bool, error)
}

// RegisterPolicies defines the abilities that need more than a
// permission lookup.
func RegisterPolicies(g *Gate, members MembershipChecker, checker rbac.Checker) {
	g.Define(AbilityViewTeam, func(ctx context.Context, user *models.User, resource any) (bool, error) {
		if team, ok := resource.(*models.Team); ok {
			member, err := members.IsMember(ctx, user.ID, team.ID)
			if err != nil {
				return false, err
			}
			if member {
				return true, nil
			}
		}
		return checker.HasPermission(ctx, user.ID, AbilityReadAllTeams)
	})
}
