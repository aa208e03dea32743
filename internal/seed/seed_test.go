package seed

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/dimitrije/teamscope/internal/crypt"
	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/services"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAppKey = "base64:dGVhbXNjb3BlLXRlc3Qta2V5LTAxMjM0NTY3ODlhYg=="

var roleColumns = []string{"id", "team_id", "name", "guard_name", "created_at", "updated_at"}

func newTestDeps(t *testing.T, cache rbac.Cache) (Deps, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	enc, err := crypt.NewEncrypter(testAppKey)
	require.NoError(t, err)
	codec, err := hashid.New("test-salt", hashid.DefaultMinLength)
	require.NoError(t, err)

	db := &database.DB{Pool: mock}
	store := rbac.NewStore(db, cache, nil)
	users := services.NewUserService(db, enc, codec, store, nil)
	teams := services.NewTeamService(db, codec, store, users, 1, nil)

	return Deps{DB: db, RBAC: store, Teams: teams, Users: users, Logger: zap.NewNop()}, mock
}

func TestPermissionNames_CoversTaxonomy(t *testing.T) {
	names := PermissionNames()

	assert.Len(t, names, 34)
	assert.Equal(t, "super admin", names[0])
	assert.Equal(t, "force delete", names[1])
	assert.Contains(t, names, "read all teams")
	assert.Contains(t, names, "delete all projects")

	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate permission %q", n)
		seen[n] = true
	}
}

func TestExpandGrants(t *testing.T) {
	t.Run("parent brings its children", func(t *testing.T) {
		got := expandGrants([]string{"manage all teams"})
		assert.Equal(t, []string{"manage all teams", "read all teams", "update all teams", "delete all teams"}, got)
	})

	t.Run("leaf stays alone", func(t *testing.T) {
		assert.Equal(t, []string{"read users"}, expandGrants([]string{"read users"}))
	})

	t.Run("staff role", func(t *testing.T) {
		got := expandGrants([]string{"read users", "manage own requirements"})
		assert.Equal(t, []string{
			"read users",
			"manage own requirements",
			"create own requirements", "read own requirements", "update own requirements", "delete own requirements",
		}, got)
	})

	t.Run("duplicates dropped", func(t *testing.T) {
		got := expandGrants([]string{"manage own requirements", "read own requirements"})
		assert.Len(t, got, 5)
	})
}

func TestSplitTeams(t *testing.T) {
	teams := []models.Team{
		{ID: 1, Name: StaffTeamName},
		{ID: 2, Name: CustomersTeamName},
		{ID: 3, Name: "Acme"},
		{ID: 4, Name: "Globex"},
		{ID: 5, Name: "Initech"},
		{ID: 6, Name: "Umbrella"},
		{ID: 7, Name: "Hooli"},
		{ID: 8, Name: "Extra"},
	}

	staff, customers, projects, err := splitTeams(teams)
	require.NoError(t, err)
	assert.Equal(t, int64(1), staff.ID)
	assert.Equal(t, int64(2), customers.ID)
	require.Len(t, projects, projectTeamCount)
	assert.Equal(t, int64(3), projects[0].ID)
	assert.Equal(t, int64(7), projects[4].ID)

	_, _, _, err = splitTeams(teams[2:])
	assert.Error(t, err)
}

func TestPermissionRoleSeeder_Run(t *testing.T) {
	cache := rbac.NewLRUCache(16, time.Minute)
	cache.Set(context.Background(), rbac.Key{UserID: 1}, []string{"stale"})
	deps, mock := newTestDeps(t, cache)
	now := time.Now()

	mock.ExpectBegin()
	for i, name := range PermissionNames() {
		mock.ExpectQuery(`INSERT INTO permissions`).
			WithArgs(name, models.GuardWeb).
			WillReturnRows(pgxmock.NewRows([]string{"id", "team_id", "name", "guard_name", "created_at", "updated_at"}).
				AddRow(int64(i+1), nil, name, models.GuardWeb, now, now))
	}

	mock.ExpectQuery(`INSERT INTO roles`).
		WithArgs((*int64)(nil), models.RoleSuperAdmin, models.GuardWeb).
		WillReturnRows(pgxmock.NewRows(roleColumns).AddRow(int64(1), nil, models.RoleSuperAdmin, models.GuardWeb, now, now))

	for i, def := range roleDefinitions {
		roleID := int64(i + 2)
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs((*int64)(nil), def.name, models.GuardWeb).
			WillReturnRows(pgxmock.NewRows(roleColumns).AddRow(roleID, nil, def.name, models.GuardWeb, now, now))
		for j, perm := range expandGrants(def.grants) {
			permID := int64(100 + j)
			mock.ExpectQuery(`FROM permissions WHERE name`).
				WithArgs(perm, models.GuardWeb).
				WillReturnRows(pgxmock.NewRows([]string{"id", "team_id", "name", "guard_name", "created_at", "updated_at"}).
					AddRow(permID, nil, perm, models.GuardWeb, now, now))
			mock.ExpectExec(`INSERT INTO role_has_permissions`).
				WithArgs(permID, roleID).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
	}
	mock.ExpectCommit()

	err := NewPermissionRoleSeeder(deps.DB, deps.RBAC, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, ok := cache.Get(context.Background(), rbac.Key{UserID: 1})
	assert.False(t, ok)
}

func TestPermissionRoleSeeder_RollsBackOnFailure(t *testing.T) {
	deps, mock := newTestDeps(t, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO permissions`).
		WithArgs("super admin", models.GuardWeb).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := NewPermissionRoleSeeder(deps.DB, deps.RBAC, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamSeeder_Fake(t *testing.T) {
	deps, mock := newTestDeps(t, nil)
	names := []any{StaffTeamName, CustomersTeamName}
	for i := 0; i < projectTeamCount; i++ {
		names = append(names, pgxmock.AnyArg())
	}

	now := time.Now()
	for i, name := range names {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO teams`).
			WithArgs(name).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at", "updated_at", "deleted_at"}).
				AddRow(int64(i+1), "team", now, now, nil))
		mock.ExpectCommit()
	}

	err := NewTeamSeeder(deps.Teams, gofakeit.New(DefaultFakeSeed), true, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamAndUserSeeders_RealModeIsNoop(t *testing.T) {
	deps, mock := newTestDeps(t, nil)
	faker := gofakeit.New(DefaultFakeSeed)

	require.NoError(t, NewTeamSeeder(deps.Teams, faker, false, zap.NewNop()).Run(context.Background()))
	require.NoError(t, NewUserSeeder(deps.Users, deps.Teams, deps.RBAC, faker, false, zap.NewNop()).Run(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFakeData_IsDeterministic(t *testing.T) {
	a := gofakeit.New(DefaultFakeSeed)
	b := gofakeit.New(DefaultFakeSeed)

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Company(), b.Company())
		assert.Equal(t, a.Email(), b.Email())
	}
}

func TestSeeders_Order(t *testing.T) {
	deps, _ := newTestDeps(t, nil)

	var names []string
	for _, s := range Seeders(deps, Options{}) {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"permissions", "teams", "users"}, names)
}

func TestRunNamed_Unknown(t *testing.T) {
	deps, _ := newTestDeps(t, nil)

	err := RunNamed(context.Background(), deps, Options{}, "widgets")
	assert.ErrorContains(t, err, `unknown seeder "widgets"`)
}
