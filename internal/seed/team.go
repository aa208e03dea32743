package seed

import (
	"context"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/dimitrije/teamscope/internal/services"
	"go.uber.org/zap"
)

const (
	StaffTeamName     = "Staff"
	CustomersTeamName = "Customers"
	projectTeamCount  = 5
)

// TeamSeeder creates the Staff and Customers teams plus five project
// teams. The Super Admin grant is suppressed; UserSeeder assigns it.
type TeamSeeder struct {
	teams  *services.TeamService
	faker  *gofakeit.Faker
	fake   bool
	logger *zap.Logger
}

func NewTeamSeeder(teams *services.TeamService, faker *gofakeit.Faker, fake bool, logger *zap.Logger) *TeamSeeder {
	return &TeamSeeder{teams: teams, faker: faker, fake: fake, logger: logger}
}

func (s *TeamSeeder) Name() string { return "teams" }

func (s *TeamSeeder) Run(ctx context.Context) error {
	if !s.fake {
		return nil
	}

	names := []string{StaffTeamName, CustomersTeamName}
	for i := 0; i < projectTeamCount; i++ {
		names = append(names, s.faker.Company())
	}

	for _, name := range names {
		if _, err := s.teams.Create(ctx, name, services.WithoutSuperAdminGrant()); err != nil {
			return err
		}
	}

	s.logger.Info("teams created", zap.Int("count", len(names)))
	return nil
}
