package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, cache Cache) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewStore(&database.DB{Pool: mock}, cache, nil), mock
}

func setupTxStore(t *testing.T, cache Cache) (*Store, *database.DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewStore(db, cache, nil), db, mock
}

func int64Ptr(v int64) *int64 { return &v }

var roleColumns = []string{"id", "team_id", "name", "guard_name", "created_at", "updated_at"}

func TestContextScope(t *testing.T) {
	ctx := context.Background()

	_, ok := TeamFromContext(ctx)
	assert.False(t, ok)
	assert.Nil(t, TeamIDPtr(ctx))

	scoped := WithTeam(ctx, 9)
	id, ok := TeamFromContext(scoped)
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
	assert.Equal(t, int64Ptr(9), TeamIDPtr(scoped))

	// The parent context is untouched.
	_, ok = TeamFromContext(ctx)
	assert.False(t, ok)

	_, ok = TeamFromContext(WithoutTeam(scoped))
	assert.False(t, ok)
}

func TestStore_AssignRole(t *testing.T) {
	cache := NewLRUCache(16, time.Minute)
	store, mock := setupStore(t, cache)
	ctx := context.Background()
	key := Key{UserID: 5, TeamID: int64Ptr(3)}
	cache.Set(ctx, key, []string{"read users"})

	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(2), models.ModelTypeUser, int64(5), int64Ptr(3)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.AssignRole(ctx, int64Ptr(3), 5, 2)

	require.NoError(t, err)
	_, cached := cache.Get(ctx, key)
	assert.False(t, cached, "assignment must evict the user's cached permissions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RemoveRole(t *testing.T) {
	store, mock := setupStore(t, nil)

	mock.ExpectExec(`DELETE FROM model_has_roles`).
		WithArgs(int64(2), models.ModelTypeUser, int64(5), int64Ptr(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.RemoveRole(context.Background(), int64Ptr(3), 5, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RemoveRoleInTx_EvictsAgainAfterCommit(t *testing.T) {
	cache := NewLRUCache(16, time.Minute)
	store, db, mock := setupTxStore(t, cache)
	ctx := context.Background()
	key := Key{UserID: 5, TeamID: int64Ptr(3)}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM model_has_roles`).
		WithArgs(int64(2), models.ModelTypeUser, int64(5), int64Ptr(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := db.WithTx(ctx, func(q database.Querier) error {
		if err := store.WithTx(q).RemoveRole(ctx, int64Ptr(3), 5, 2); err != nil {
			return err
		}
		// A concurrent request reads the still-committed role and
		// caches it before this transaction commits.
		cache.Set(ctx, key, []string{"read users"})
		return nil
	})
	require.NoError(t, err)

	_, cached := cache.Get(ctx, key)
	assert.False(t, cached, "permissions cached before commit must not survive it")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollbackKeepsOnlyImmediateEviction(t *testing.T) {
	cache := NewLRUCache(16, time.Minute)
	store, db, mock := setupTxStore(t, cache)
	ctx := context.Background()
	key := Key{UserID: 5, TeamID: int64Ptr(3)}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(2), models.ModelTypeUser, int64(5), int64Ptr(3)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	err := db.WithTx(ctx, func(q database.Querier) error {
		if err := store.WithTx(q).AssignRole(ctx, int64Ptr(3), 5, 2); err != nil {
			return err
		}
		cache.Set(ctx, key, []string{"committed"})
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	perms, cached := cache.Get(ctx, key)
	assert.True(t, cached)
	assert.Equal(t, []string{"committed"}, perms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_BypassesCacheReads(t *testing.T) {
	cache := NewLRUCache(16, time.Minute)
	store, db, mock := setupTxStore(t, cache)
	ctx := WithTeam(context.Background(), 3)
	cache.Set(ctx, Key{UserID: 5, TeamID: int64Ptr(3)}, []string{"stale"})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT p.name FROM permissions`).
		WithArgs(models.ModelTypeUser, int64(5), int64Ptr(3)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("read users"))
	mock.ExpectRollback()

	_ = db.WithTx(ctx, func(q database.Querier) error {
		perms, err := store.WithTx(q).Permissions(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"read users"}, perms)
		return assert.AnError
	})

	perms, _ := cache.Get(ctx, Key{UserID: 5, TeamID: int64Ptr(3)})
	assert.Equal(t, []string{"stale"}, perms, "uncommitted reads are not cached")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_HasRole_UsesContextTeam(t *testing.T) {
	store, mock := setupStore(t, nil)
	ctx := WithTeam(context.Background(), 4)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(models.ModelTypeUser, int64(1), int64Ptr(4), models.RoleSuperAdmin, models.GuardWeb).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.HasRole(ctx, 1, models.RoleSuperAdmin)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_HasRole_GlobalScope(t *testing.T) {
	store, mock := setupStore(t, nil)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(models.ModelTypeUser, int64(1), (*int64)(nil), models.RoleStaff, models.GuardWeb).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := store.HasRole(context.Background(), 1, models.RoleStaff)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Permissions_CachedPerTeam(t *testing.T) {
	store, mock := setupStore(t, NewLRUCache(16, time.Minute))
	ctx := WithTeam(context.Background(), 3)

	mock.ExpectQuery(`SELECT p.name FROM permissions p`).
		WithArgs(models.ModelTypeUser, int64(7), int64Ptr(3)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).
			AddRow("read users").
			AddRow("read own requirements"))

	perms, err := store.Permissions(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"read users", "read own requirements"}, perms)

	// Served from cache: no second query expected.
	ok, err := store.HasPermission(ctx, 7, "read users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasPermission(ctx, 7, "delete users")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_HasPermission_DifferentTeamQueriesAgain(t *testing.T) {
	store, mock := setupStore(t, NewLRUCache(16, time.Minute))

	mock.ExpectQuery(`SELECT p.name FROM permissions p`).
		WithArgs(models.ModelTypeUser, int64(7), int64Ptr(3)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("read users"))
	mock.ExpectQuery(`SELECT p.name FROM permissions p`).
		WithArgs(models.ModelTypeUser, int64(7), int64Ptr(8)).
		WillReturnRows(pgxmock.NewRows([]string{"name"}))

	ok, err := store.HasPermission(WithTeam(context.Background(), 3), 7, "read users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasPermission(WithTeam(context.Background(), 8), 7, "read users")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GivePermissionTo(t *testing.T) {
	cache := NewLRUCache(16, time.Minute)
	store, mock := setupStore(t, cache)
	ctx := context.Background()
	now := time.Now()
	cache.Set(ctx, Key{UserID: 1}, []string{"stale"})

	mock.ExpectQuery(`FROM permissions WHERE name`).
		WithArgs("read users", models.GuardWeb).
		WillReturnRows(pgxmock.NewRows(roleColumns).AddRow(int64(11), nil, "read users", models.GuardWeb, now, now))
	mock.ExpectExec(`INSERT INTO role_has_permissions`).
		WithArgs(int64(11), int64(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.GivePermissionTo(ctx, 2, "read users")

	require.NoError(t, err)
	_, cached := cache.Get(ctx, Key{UserID: 1})
	assert.False(t, cached, "role changes flush every cached set")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GivePermissionTo_UnknownPermission(t *testing.T) {
	store, mock := setupStore(t, nil)

	mock.ExpectQuery(`FROM permissions WHERE name`).
		WithArgs("fly", models.GuardWeb).
		WillReturnError(pgx.ErrNoRows)

	err := store.GivePermissionTo(context.Background(), 2, "fly")

	assert.ErrorIs(t, err, ErrPermissionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindRoleByName(t *testing.T) {
	store, mock := setupStore(t, nil)
	now := time.Now()

	mock.ExpectQuery(`FROM roles\s+WHERE name`).
		WithArgs(models.RoleStaff, models.GuardWeb, int64Ptr(2)).
		WillReturnRows(pgxmock.NewRows(roleColumns).AddRow(int64(3), nil, models.RoleStaff, models.GuardWeb, now, now))

	role, err := store.FindRoleByName(WithTeam(context.Background(), 2), models.RoleStaff)

	require.NoError(t, err)
	assert.Equal(t, int64(3), role.ID)
	assert.True(t, role.IsGlobal())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindRoleByName_NotFound(t *testing.T) {
	store, mock := setupStore(t, nil)

	mock.ExpectQuery(`FROM roles\s+WHERE name`).
		WithArgs("Ghost", models.GuardWeb, (*int64)(nil)).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.FindRoleByName(context.Background(), "Ghost")

	assert.True(t, errors.Is(err, ErrRoleNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RenameRole_CascadesToMemberships(t *testing.T) {
	store, mock := setupStore(t, nil)
	now := time.Now()

	mock.ExpectQuery(`UPDATE roles SET name`).
		WithArgs("Team Lead", int64(4)).
		WillReturnRows(pgxmock.NewRows(roleColumns).AddRow(int64(4), nil, "Team Lead", models.GuardWeb, now, now))
	mock.ExpectExec(`UPDATE team_user SET role_name`).
		WithArgs("Team Lead", int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	role, err := store.RenameRole(context.Background(), 4, "Team Lead")

	require.NoError(t, err)
	assert.Equal(t, "Team Lead", role.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateRole(t *testing.T) {
	store, mock := setupStore(t, nil)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO roles`).
		WithArgs((*int64)(nil), models.RoleSuperAdmin, models.GuardWeb).
		WillReturnRows(pgxmock.NewRows(roleColumns).AddRow(int64(1), nil, models.RoleSuperAdmin, models.GuardWeb, now, now))

	role, err := store.CreateRole(context.Background(), models.RoleSuperAdmin, nil)

	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, role.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
