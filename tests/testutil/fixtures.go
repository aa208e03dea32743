package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/teamscope/internal/crypt"
	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/seed"
	"github.com/dimitrije/teamscope/internal/services"
	"go.uber.org/zap"
)

// TestAppKey is a fixed key in the base64: form APP_KEY accepts.
const TestAppKey = "base64:dGVhbXNjb3BlLXRlc3Qta2V5LTAxMjM0NTY3ODlhYg=="

// Fixtures provides factory methods for creating test data through the
// real services
type Fixtures struct {
	DB    *database.DB
	Codec *hashid.Codec
	Enc   *crypt.Encrypter
	RBAC  *rbac.Store
	Users *services.UserService
	Teams *services.TeamService
	Roles *services.RoleService

	counter int
}

// NewFixtures wires the services on db. superAdminUserID is the user
// granted Super Admin on every team created without WithoutSuperAdminGrant.
func NewFixtures(t *testing.T, db *database.DB, superAdminUserID int64) *Fixtures {
	t.Helper()

	codec, err := hashid.New("integration-salt", hashid.DefaultMinLength)
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	enc, err := crypt.NewEncrypter(TestAppKey)
	if err != nil {
		t.Fatalf("failed to create encrypter: %v", err)
	}

	store := rbac.NewStore(db, rbac.NewLRUCache(128, time.Minute), zap.NewNop())
	users := services.NewUserService(db, enc, codec, store, zap.NewNop())

	return &Fixtures{
		DB:    db,
		Codec: codec,
		Enc:   enc,
		RBAC:  store,
		Users: users,
		Teams: services.NewTeamService(db, codec, store, users, superAdminUserID, zap.NewNop()),
		Roles: services.NewRoleService(db, codec, store),
	}
}

// SeedPermissions runs the permission and role seeder.
func (f *Fixtures) SeedPermissions(t *testing.T) {
	t.Helper()
	if err := seed.NewPermissionRoleSeeder(f.DB, f.RBAC, zap.NewNop()).Run(context.Background()); err != nil {
		t.Fatalf("failed to seed permissions: %v", err)
	}
}

// Role returns a global role by name.
func (f *Fixtures) Role(t *testing.T, name string) *models.Role {
	t.Helper()
	role, err := f.RBAC.FindRoleByName(rbac.WithoutTeam(context.Background()), name)
	if err != nil {
		t.Fatalf("failed to find role %q: %v", name, err)
	}
	return role
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	params := services.CreateUserParams{
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%d", f.counter),
		Email:     fmt.Sprintf("user%d@example.com", f.counter),
		Password:  "password",
		Verified:  true,
	}
	for _, opt := range opts {
		opt(&params)
	}

	user, err := f.Users.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// UserOption configures a test user
type UserOption func(*services.CreateUserParams)

func WithEmail(email string) UserOption {
	return func(p *services.CreateUserParams) {
		p.Email = email
	}
}

func WithName(first, last string) UserOption {
	return func(p *services.CreateUserParams) {
		p.FirstName = first
		p.LastName = last
	}
}

func WithPassword(password string) UserOption {
	return func(p *services.CreateUserParams) {
		p.Password = password
	}
}

// CreateTeam creates a team without the Super Admin grant.
func (f *Fixtures) CreateTeam(t *testing.T, name string) *models.Team {
	t.Helper()
	team, err := f.Teams.Create(context.Background(), name, services.WithoutSuperAdminGrant())
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}
	return team
}

// AddMember assigns role to user on team.
func (f *Fixtures) AddMember(t *testing.T, team *models.Team, user *models.User, role *models.Role) {
	t.Helper()
	if _, err := f.Users.AssignRoleToTeam(context.Background(), user, team, role); err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}

// CreateRefreshToken stores a refresh token hash for userID
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID int64, tokenHash string, expiresAt time.Time) {
	t.Helper()
	if err := services.NewTokenService(f.DB).StoreRefreshToken(context.Background(), userID, tokenHash, expiresAt); err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}
