package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTeams struct {
	teams []models.Team
	err   error
}

func (s stubTeams) List(ctx context.Context) ([]models.Team, error) {
	return s.teams, s.err
}

func setupPromoter(t *testing.T, teams teamLister) (*promoter, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return &promoter{db: db, store: rbac.NewStore(db, nil, nil), teams: teams}, mock
}

func expectSuperAdminRole(mock pgxmock.PgxPoolIface) {
	now := time.Now()
	mock.ExpectQuery(`FROM roles\s+WHERE name`).
		WithArgs(models.RoleSuperAdmin, models.GuardWeb, (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "team_id", "name", "guard_name", "created_at", "updated_at"}).
			AddRow(int64(1), nil, models.RoleSuperAdmin, models.GuardWeb, now, now))
}

func TestPromote_GrantsEveryTeam(t *testing.T) {
	teamA, teamB := int64(3), int64(8)
	p, mock := setupPromoter(t, stubTeams{teams: []models.Team{{ID: teamA, Name: "Staff"}, {ID: teamB, Name: "Customers"}}})

	mock.ExpectBegin()
	expectSuperAdminRole(mock)
	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(1), models.ModelTypeUser, int64(42), (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(1), models.ModelTypeUser, int64(42), &teamA).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(1), models.ModelTypeUser, int64(42), &teamB).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	n, err := p.promote(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromote_NoTeamsGrantsGlobalOnly(t *testing.T) {
	p, mock := setupPromoter(t, stubTeams{})

	mock.ExpectBegin()
	expectSuperAdminRole(mock)
	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(1), models.ModelTypeUser, int64(42), (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := p.promote(context.Background(), 42)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromote_RollsBackOnFailedGrant(t *testing.T) {
	teamID := int64(3)
	p, mock := setupPromoter(t, stubTeams{teams: []models.Team{{ID: teamID, Name: "Staff"}}})

	mock.ExpectBegin()
	expectSuperAdminRole(mock)
	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(1), models.ModelTypeUser, int64(42), (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO model_has_roles`).
		WithArgs(int64(1), models.ModelTypeUser, int64(42), &teamID).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := p.promote(context.Background(), 42)

	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromote_TeamListError(t *testing.T) {
	p, mock := setupPromoter(t, stubTeams{err: errors.New("db down")})

	_, err := p.promote(context.Background(), 42)

	assert.ErrorContains(t, err, "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}
