package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/services"
	"go.uber.org/zap"
)

const (
	SuperAdminEmail = "super.admin123@example.com"
	// DefaultPassword is set on every seeded account.
	DefaultPassword = "password"

	staffCount    = 10
	customerCount = 10
)

// UserSeeder creates the Super Admin account with the Super Admin role
// on every team, then staff, project managers and customers.
type UserSeeder struct {
	users  *services.UserService
	teams  *services.TeamService
	store  *rbac.Store
	faker  *gofakeit.Faker
	fake   bool
	logger *zap.Logger

	emails map[string]bool
}

func NewUserSeeder(users *services.UserService, teams *services.TeamService, store *rbac.Store, faker *gofakeit.Faker, fake bool, logger *zap.Logger) *UserSeeder {
	return &UserSeeder{
		users:  users,
		teams:  teams,
		store:  store,
		faker:  faker,
		fake:   fake,
		logger: logger,
		emails: map[string]bool{SuperAdminEmail: true},
	}
}

func (s *UserSeeder) Name() string { return "users" }

func (s *UserSeeder) Run(ctx context.Context) error {
	if !s.fake {
		return nil
	}

	roles, err := s.globalRoles(ctx)
	if err != nil {
		return err
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		return err
	}
	staffTeam, customersTeam, projectTeams, err := splitTeams(teams)
	if err != nil {
		return err
	}

	superAdmin, err := s.users.Create(ctx, services.CreateUserParams{
		FirstName: "Super",
		LastName:  "Admin",
		Email:     SuperAdminEmail,
		Password:  DefaultPassword,
		Verified:  true,
	})
	if err != nil {
		return err
	}
	for i := range teams {
		if err := s.assign(ctx, superAdmin, &teams[i], roles[models.RoleSuperAdmin]); err != nil {
			return err
		}
	}

	staff := make([]*models.User, 0, staffCount)
	for i := 0; i < staffCount; i++ {
		user, err := s.createFakeUser(ctx)
		if err != nil {
			return err
		}
		if err := s.assign(ctx, user, staffTeam, roles[models.RoleStaff]); err != nil {
			return err
		}
		staff = append(staff, user)
	}

	managers := append([]*models.User(nil), staff...)
	s.faker.ShuffleAnySlice(managers)
	for i, team := range projectTeams {
		if err := s.assign(ctx, managers[i%len(managers)], team, roles[models.RoleProjectManager]); err != nil {
			return err
		}
	}

	for i := 0; i < customerCount; i++ {
		user, err := s.createFakeUser(ctx)
		if err != nil {
			return err
		}
		if err := s.assign(ctx, user, customersTeam, roles[models.RoleCustomer]); err != nil {
			return err
		}
	}

	return nil
}

func (s *UserSeeder) globalRoles(ctx context.Context) (map[string]*models.Role, error) {
	global := rbac.WithoutTeam(ctx)
	roles := make(map[string]*models.Role)
	for _, name := range []string{models.RoleSuperAdmin, models.RoleStaff, models.RoleProjectManager, models.RoleCustomer} {
		role, err := s.store.FindRoleByName(global, name)
		if err != nil {
			return nil, err
		}
		roles[name] = role
	}
	return roles, nil
}

// splitTeams picks the Staff and Customers teams by name and takes up
// to five of the remaining teams, in id order, as project teams.
func splitTeams(teams []models.Team) (staff, customers *models.Team, projects []*models.Team, err error) {
	for i := range teams {
		switch teams[i].Name {
		case StaffTeamName:
			if staff == nil {
				staff = &teams[i]
				continue
			}
		case CustomersTeamName:
			if customers == nil {
				customers = &teams[i]
				continue
			}
		}
		if len(projects) < projectTeamCount {
			projects = append(projects, &teams[i])
		}
	}
	if staff == nil || customers == nil {
		return nil, nil, nil, fmt.Errorf("teams %q and %q must be seeded first", StaffTeamName, CustomersTeamName)
	}
	return staff, customers, projects, nil
}

func (s *UserSeeder) createFakeUser(ctx context.Context) (*models.User, error) {
	return s.users.Create(ctx, services.CreateUserParams{
		FirstName: s.faker.FirstName(),
		LastName:  s.faker.LastName(),
		Email:     s.uniqueEmail(),
		Password:  DefaultPassword,
		Verified:  true,
	})
}

func (s *UserSeeder) uniqueEmail() string {
	for {
		email := strings.ToLower(s.faker.Email())
		if !s.emails[email] {
			s.emails[email] = true
			return email
		}
	}
}

func (s *UserSeeder) assign(ctx context.Context, user *models.User, team *models.Team, role *models.Role) error {
	if _, err := s.users.AssignRoleToTeam(ctx, user, team, role); err != nil {
		return err
	}
	s.logger.Info("assigned role",
		zap.String("user", user.FullName()),
		zap.String("role", role.Name),
		zap.String("team", team.Name),
	)
	return nil
}
