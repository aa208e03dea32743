package integration

import (
	"context"
	"testing"

	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/services"
	"github.com/dimitrije/teamscope/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Integration_EncryptedAtRest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, fixtures := setupTest(t)
	ctx := context.Background()

	user := fixtures.CreateUser(t, testutil.WithEmail("Ann@Example.com"), testutil.WithName("Ann", "Admin"))
	assert.Equal(t, "Ann", user.FirstName)

	var firstName, email, emailIndex string
	err := tdb.DB.Pool.QueryRow(ctx, `SELECT first_name, email, email_index FROM users WHERE id = $1`, user.ID).
		Scan(&firstName, &email, &emailIndex)
	require.NoError(t, err)
	assert.NotEqual(t, "Ann", firstName)
	assert.NotContains(t, email, "example.com")
	assert.NotEmpty(t, emailIndex)

	found, err := fixtures.Users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "Admin", found.LastName)
}

func TestUserService_Integration_DuplicateEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, fixtures := setupTest(t)

	fixtures.CreateUser(t, testutil.WithEmail("dup@example.com"))
	_, err := fixtures.Users.Create(context.Background(), services.CreateUserParams{
		FirstName: "Dup", LastName: "User", Email: "dup@example.com", Password: "password",
	})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestUserService_Integration_Authenticate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, fixtures := setupTest(t)
	ctx := context.Background()

	user := fixtures.CreateUser(t, testutil.WithEmail("login@example.com"), testutil.WithPassword("s3cret"))

	got, err := fixtures.Users.Authenticate(ctx, "login@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = fixtures.Users.Authenticate(ctx, "login@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = fixtures.Users.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestUserService_Integration_SoftDeleteAndRestore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, fixtures := setupTest(t)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	hashed := fixtures.Codec.EncodePrefixed(models.UserPrefix, user.ID)

	require.NoError(t, fixtures.Users.Delete(ctx, user.ID))

	_, err := fixtures.Users.FindOrFail(ctx, hashed)
	assert.ErrorIs(t, err, services.ErrNotFound)

	trashed, err := fixtures.Users.FindOrFailWithTrashed(ctx, hashed)
	require.NoError(t, err)
	assert.NotNil(t, trashed.DeletedAt)

	assert.ErrorIs(t, fixtures.Users.Delete(ctx, user.ID), services.ErrNotFound)

	require.NoError(t, fixtures.Users.Restore(ctx, user.ID))
	restored, err := fixtures.Users.FindOrFail(ctx, hashed)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
}

func TestUserService_Integration_FindOrFailRejectsWrongPrefix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, fixtures := setupTest(t)

	user := fixtures.CreateUser(t)
	_, err := fixtures.Users.FindOrFail(context.Background(), fixtures.Codec.EncodePrefixed(models.TeamPrefix, user.ID))
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUserService_Integration_SetActiveTeam(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, fixtures := setupTest(t)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	team := fixtures.CreateTeam(t, "Staff")
	other := fixtures.CreateTeam(t, "Customers")
	fixtures.AddMember(t, team, user, fixtures.Role(t, models.RoleStaff))

	_, err := fixtures.Users.SetActiveTeam(ctx, user, other)
	assert.ErrorIs(t, err, services.ErrNotTeamMember)
	assert.Nil(t, user.ActiveTeamID)

	scoped, err := fixtures.Users.SetActiveTeam(ctx, user, team)
	require.NoError(t, err)
	require.NotNil(t, user.ActiveTeamID)
	assert.Equal(t, team.ID, *user.ActiveTeamID)

	ok, err := fixtures.RBAC.HasPermission(scoped, user.ID, "read users")
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := fixtures.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ActiveTeamID)
	assert.Equal(t, team.ID, *reloaded.ActiveTeamID)
}

func TestUserService_Integration_Teams(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, fixtures := setupTest(t)
	ctx := context.Background()

	user := fixtures.CreateUser(t)
	alpha := fixtures.CreateTeam(t, "Alpha")
	beta := fixtures.CreateTeam(t, "Beta")
	fixtures.AddMember(t, alpha, user, fixtures.Role(t, models.RoleStaff))
	fixtures.AddMember(t, beta, user, fixtures.Role(t, models.RoleCustomer))

	require.NoError(t, fixtures.Teams.Delete(ctx, beta.ID))

	memberships, err := fixtures.Users.Teams(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, "Alpha", memberships[0].Team.Name)
	assert.Equal(t, models.RoleStaff, memberships[0].RoleName)
}
