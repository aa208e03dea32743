package handlers

import (
	"testing"
	"time"

	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/middleware"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/services"
	"github.com/dimitrije/teamscope/tests/testutil"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBaseURL = "http://localhost:8080"

type handlerEnv struct {
	users  *testutil.MockUserService
	teams  *testutil.MockTeamService
	roles  *testutil.MockRoleService
	email  *testutil.MockEmailService
	gate   *testutil.MockAuthorizer
	codec  *hashid.Codec
	actor  *models.User
	client *testutil.HTTPTestClient
	auth   map[string]string
}

func testCodec(t *testing.T) *hashid.Codec {
	t.Helper()
	codec, err := hashid.New("test-salt", hashid.DefaultMinLength)
	require.NoError(t, err)
	return codec
}

// newHandlerEnv wires the protected routes behind Auth and ActiveTeam.
// The actor has id 1 and is active on team 10.
func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	activeTeam := int64(10)
	env := &handlerEnv{
		users: new(testutil.MockUserService),
		teams: new(testutil.MockTeamService),
		roles: new(testutil.MockRoleService),
		email: new(testutil.MockEmailService),
		gate:  new(testutil.MockAuthorizer),
		codec: testCodec(t),
		actor: &models.User{
			ID:           1,
			FirstName:    "Ann",
			LastName:     "Admin",
			Email:        "ann@example.com",
			ActiveTeamID: &activeTeam,
			CreatedAt:    time.Now(),
		},
	}
	env.users.On("GetByID", mock.Anything, int64(1)).Return(env.actor, nil).Maybe()

	jwtSvc := services.NewJWTService("test-secret-key", 15*time.Minute, 24*time.Hour)
	pair, err := jwtSvc.GenerateTokenPair(env.actor.ID, env.actor.Email)
	require.NoError(t, err)
	env.auth = map[string]string{"Authorization": testutil.AuthHeader(pair.AccessToken)}

	logger := zap.NewNop()
	userHandler := NewUserHandler(env.users, env.teams, env.gate, env.codec)
	teamHandler := NewTeamHandler(env.teams, env.users, env.roles, env.email, env.gate, env.codec, testBaseURL, logger)
	roleHandler := NewRoleHandler(env.roles, env.gate, env.codec)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Use(middleware.ActiveTeam(env.users))

	app.Get("/users/me", userHandler.GetMe)
	app.Patch("/users/me", userHandler.UpdateMe)
	app.Get("/users/me/teams", userHandler.MyTeams)
	app.Put("/users/me/active-team", userHandler.SetActiveTeam)
	app.Get("/users/:user", userHandler.Show)
	app.Delete("/users/:user", userHandler.Delete)
	app.Post("/users/:user/restore", userHandler.Restore)

	app.Get("/teams", teamHandler.List)
	app.Post("/teams", teamHandler.Create)
	app.Get("/teams/:team", teamHandler.Get)
	app.Patch("/teams/:team", teamHandler.Update)
	app.Delete("/teams/:team", teamHandler.Delete)
	app.Get("/teams/:team/members", teamHandler.GetMembers)
	app.Put("/teams/:team/members/:user", teamHandler.AssignRole)
	app.Get("/teams/:team/members/:user/role", teamHandler.GetMemberRole)
	app.Delete("/teams/:team/members/:user", teamHandler.RemoveMember)

	app.Get("/roles", roleHandler.ListRoles)
	app.Patch("/roles/:role", roleHandler.Rename)
	app.Get("/permissions", roleHandler.ListPermissions)

	env.client = testutil.NewHTTPTestClient(t, app)
	return env
}

func (e *handlerEnv) userID(id int64) string {
	return e.codec.EncodePrefixed(models.UserPrefix, id)
}

func (e *handlerEnv) teamID(id int64) string {
	return e.codec.EncodePrefixed(models.TeamPrefix, id)
}

func (e *handlerEnv) roleID(id int64) string {
	return e.codec.EncodePrefixed(models.RolePrefix, id)
}

func (e *handlerEnv) allow(ability string) {
	e.gate.On("Authorize", mock.Anything, e.actor, ability, mock.Anything).Return(nil).Once()
}

func (e *handlerEnv) assertExpectations(t *testing.T) {
	t.Helper()
	e.users.AssertExpectations(t)
	e.teams.AssertExpectations(t)
	e.roles.AssertExpectations(t)
	e.email.AssertExpectations(t)
	e.gate.AssertExpectations(t)
}
