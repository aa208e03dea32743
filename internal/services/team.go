package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TeamService struct {
	db               *database.DB
	codec            *hashid.Codec
	rbac             *rbac.Store
	users            *UserService
	superAdminUserID int64
	logger           *zap.Logger
}

func NewTeamService(db *database.DB, codec *hashid.Codec, store *rbac.Store, users *UserService, superAdminUserID int64, logger *zap.Logger) *TeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{
		db:               db,
		codec:            codec,
		rbac:             store,
		users:            users,
		superAdminUserID: superAdminUserID,
		logger:           logger,
	}
}

type createTeamOptions struct {
	grantSuperAdmin bool
}

type CreateTeamOption func(*createTeamOptions)

// WithoutSuperAdminGrant skips granting the Super Admin user its role in
// the new team. Seeders use it before that user exists.
func WithoutSuperAdminGrant() CreateTeamOption {
	return func(o *createTeamOptions) { o.grantSuperAdmin = false }
}

// Create inserts a team and, unless suppressed, grants the designated
// Super Admin user the global Super Admin role scoped to it. Both happen
// in one transaction. ctx's team scope is left untouched.
func (s *TeamService) Create(ctx context.Context, name string, opts ...CreateTeamOption) (*models.Team, error) {
	o := createTeamOptions{grantSuperAdmin: true}
	for _, opt := range opts {
		opt(&o)
	}

	var team models.Team
	err := s.db.WithTx(ctx, func(q database.Querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO teams (name)
			VALUES ($1)
			RETURNING id, name, created_at, updated_at, deleted_at
		`, name).Scan(&team.ID, &team.Name, &team.CreatedAt, &team.UpdatedAt, &team.DeletedAt)
		if err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}

		if !o.grantSuperAdmin {
			return nil
		}
		return s.grantSuperAdmin(ctx, q, team.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team created",
		zap.String("team", s.codec.EncodePrefixed(models.TeamPrefix, team.ID)),
		zap.Bool("super_admin_granted", o.grantSuperAdmin),
	)
	return &team, nil
}

func (s *TeamService) grantSuperAdmin(ctx context.Context, q database.Querier, teamID int64) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, s.superAdminUserID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrSuperAdminMissing
	}

	store := s.rbac.WithTx(q)
	role, err := store.FindRoleByName(rbac.WithoutTeam(ctx), models.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("failed to grant super admin: %w", err)
	}
	return store.AssignRole(ctx, &teamID, s.superAdminUserID, role.ID)
}

func (s *TeamService) scanTeam(row pgx.Row) (*models.Team, error) {
	var team models.Team
	if err := row.Scan(&team.ID, &team.Name, &team.CreatedAt, &team.UpdatedAt, &team.DeletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	return s.scanTeam(s.db.Pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at, deleted_at
		FROM teams WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

func (s *TeamService) GetByIDWithTrashed(ctx context.Context, id int64) (*models.Team, error) {
	return s.scanTeam(s.db.Pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at, deleted_at
		FROM teams WHERE id = $1
	`, id))
}

// FindOrFail resolves a raw id or a team_ hashid to a live team.
func (s *TeamService) FindOrFail(ctx context.Context, value string) (*models.Team, error) {
	return hashid.FindOrFail(ctx, s.codec, models.TeamPrefix, value, s.GetByID)
}

func (s *TeamService) FindOrFailWithTrashed(ctx context.Context, value string) (*models.Team, error) {
	return hashid.FindOrFail(ctx, s.codec, models.TeamPrefix, value, s.GetByIDWithTrashed)
}

func (s *TeamService) List(ctx context.Context) ([]models.Team, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, name, created_at, updated_at, deleted_at
		FROM teams WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.CreatedAt, &team.UpdatedAt, &team.DeletedAt); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (s *TeamService) Update(ctx context.Context, id int64, name string) (*models.Team, error) {
	team, err := s.scanTeam(s.db.Pool.QueryRow(ctx, `
		UPDATE teams SET name = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING id, name, created_at, updated_at, deleted_at
	`, name, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, err
}

// Delete soft-deletes the team. Memberships and role assignments stay.
func (s *TeamService) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE teams SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TeamService) Restore(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE teams SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to restore team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMembers lists live members with their decrypted profiles.
func (s *TeamService) GetMembers(ctx context.Context, teamID int64) ([]models.TeamUser, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tu.id, tu.team_id, tu.user_id, tu.role_id, tu.role_name, tu.created_at, tu.updated_at,
			u.first_name, u.last_name, u.email, u.email_verified_at, u.created_at, u.updated_at
		FROM team_user tu
		JOIN users u ON u.id = tu.user_id
		WHERE tu.team_id = $1 AND u.deleted_at IS NULL
		ORDER BY tu.created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamUser
	for rows.Next() {
		var tu models.TeamUser
		var user models.User
		if err := rows.Scan(
			&tu.ID, &tu.TeamID, &tu.UserID, &tu.RoleID, &tu.RoleName, &tu.CreatedAt, &tu.UpdatedAt,
			&user.FirstName, &user.LastName, &user.Email, &user.EmailVerifiedAt, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		user.ID = tu.UserID
		if err := s.users.decryptUser(&user); err != nil {
			return nil, err
		}
		tu.User = &user
		members = append(members, tu)
	}
	return members, rows.Err()
}

// RemoveMember detaches the user from the team and revokes the role the
// membership granted in the team's scope.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return s.db.WithTx(ctx, func(q database.Querier) error {
		var roleID int64
		err := q.QueryRow(ctx, `
			DELETE FROM team_user WHERE team_id = $1 AND user_id = $2
			RETURNING role_id
		`, teamID, userID).Scan(&roleID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMembershipNotFound
			}
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return s.rbac.WithTx(q).RemoveRole(ctx, &teamID, userID, roleID)
	})
}
