// Package seed populates a fresh database with the permission taxonomy,
// the global roles and, in fake mode, demo teams and users.
package seed

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/services"
	"go.uber.org/zap"
)

// DefaultFakeSeed keeps fake data stable between runs.
const DefaultFakeSeed uint64 = 20240101

type Deps struct {
	DB     *database.DB
	RBAC   *rbac.Store
	Teams  *services.TeamService
	Users  *services.UserService
	Logger *zap.Logger
}

type Options struct {
	Fake bool
	// FakeSeed overrides DefaultFakeSeed when non-zero.
	FakeSeed uint64
}

type Seeder interface {
	Name() string
	Run(ctx context.Context) error
}

// Seeders returns the seeders in the order they must run.
func Seeders(deps Deps, opts Options) []Seeder {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	seed := opts.FakeSeed
	if seed == 0 {
		seed = DefaultFakeSeed
	}
	faker := gofakeit.New(seed)

	return []Seeder{
		NewPermissionRoleSeeder(deps.DB, deps.RBAC, logger),
		NewTeamSeeder(deps.Teams, faker, opts.Fake, logger),
		NewUserSeeder(deps.Users, deps.Teams, deps.RBAC, faker, opts.Fake, logger),
	}
}

// Run executes every seeder. It is not idempotent: running it against
// populated tables fails on the first unique violation.
func Run(ctx context.Context, deps Deps, opts Options) error {
	for _, s := range Seeders(deps, opts) {
		if err := runOne(ctx, s, deps.Logger); err != nil {
			return err
		}
	}
	return nil
}

// RunNamed executes the single seeder called name.
func RunNamed(ctx context.Context, deps Deps, opts Options, name string) error {
	for _, s := range Seeders(deps, opts) {
		if s.Name() == name {
			return runOne(ctx, s, deps.Logger)
		}
	}
	return fmt.Errorf("unknown seeder %q", name)
}

func runOne(ctx context.Context, s Seeder, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("seeding", zap.String("seeder", s.Name()))
	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("%s seeder: %w", s.Name(), err)
	}
	return nil
}
