package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/teamscope/internal/crypt"
	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const userColumns = `id, first_name, last_name, email, password, email_verified_at,
	active_team_id, created_at, updated_at, deleted_at`

type UserService struct {
	db     *database.DB
	enc    *crypt.Encrypter
	codec  *hashid.Codec
	rbac   *rbac.Store
	logger *zap.Logger
}

func NewUserService(db *database.DB, enc *crypt.Encrypter, codec *hashid.Codec, store *rbac.Store, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{db: db, enc: enc, codec: codec, rbac: store, logger: logger}
}

type CreateUserParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Verified  bool
}

type encryptedUser struct {
	firstName  string
	lastName   string
	email      string
	emailIndex string
}

func (s *UserService) encryptUser(firstName, lastName, email string) (*encryptedUser, error) {
	var (
		out encryptedUser
		err error
	)
	if out.firstName, out.lastName, err = s.encryptNames(firstName, lastName); err != nil {
		return nil, err
	}
	if out.email, err = s.enc.EncryptString(email); err != nil {
		return nil, err
	}
	out.emailIndex = s.enc.BlindIndex(email)
	return &out, nil
}

func (s *UserService) encryptNames(firstName, lastName string) (string, string, error) {
	first, err := s.enc.EncryptString(firstName)
	if err != nil {
		return "", "", err
	}
	last, err := s.enc.EncryptString(lastName)
	if err != nil {
		return "", "", err
	}
	return first, last, nil
}

func (s *UserService) decryptUser(u *models.User) error {
	var err error
	if u.FirstName, err = s.enc.DecryptString(u.FirstName); err != nil {
		return fmt.Errorf("user %d first_name: %w", u.ID, err)
	}
	if u.LastName, err = s.enc.DecryptString(u.LastName); err != nil {
		return fmt.Errorf("user %d last_name: %w", u.ID, err)
	}
	if u.Email, err = s.enc.DecryptString(u.Email); err != nil {
		return fmt.Errorf("user %d email: %w", u.ID, err)
	}
	return nil
}

func (s *UserService) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Password,
		&user.EmailVerifiedAt, &user.ActiveTeamID, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.decryptUser(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	hash, err := crypt.HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	enc, err := s.encryptUser(p.FirstName, p.LastName, p.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt user: %w", err)
	}

	user, err := s.scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, email_index, password, email_verified_at)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $6 THEN NOW() END)
		RETURNING `+userColumns,
		enc.firstName, enc.lastName, enc.email, enc.emailIndex, hash, p.Verified,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

func (s *UserService) GetByIDWithTrashed(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1
	`, id))
}

// FindOrFail resolves a raw id or a usr_ hashid to a live user.
func (s *UserService) FindOrFail(ctx context.Context, value string) (*models.User, error) {
	return hashid.FindOrFail(ctx, s.codec, models.UserPrefix, value, s.GetByID)
}

func (s *UserService) FindOrFailWithTrashed(ctx context.Context, value string) (*models.User, error) {
	return hashid.FindOrFail(ctx, s.codec, models.UserPrefix, value, s.GetByIDWithTrashed)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE email_index = $1 AND deleted_at IS NULL
	`, s.enc.BlindIndex(email)))
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := crypt.CheckPassword(user.Password, password); err != nil {
		if errors.Is(err, crypt.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// Update writes the user's names.
func (s *UserService) Update(ctx context.Context, user *models.User) error {
	firstName, lastName, err := s.encryptNames(user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("failed to encrypt user: %w", err)
	}

	err = s.db.Pool.QueryRow(ctx, `
		UPDATE users SET first_name = $1, last_name = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING updated_at
	`, firstName, lastName, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Delete soft-deletes the user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserService) Restore(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to restore user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserService) MarkEmailVerified(ctx context.Context, id int64) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET email_verified_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND email_verified_at IS NULL
	`, id)
	return err
}

// Teams lists the user's memberships in live teams.
func (s *UserService) Teams(ctx context.Context, userID int64) ([]models.TeamUser, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tu.id, tu.team_id, tu.user_id, tu.role_id, tu.role_name, tu.created_at, tu.updated_at,
			t.name, t.created_at, t.updated_at
		FROM team_user tu
		JOIN teams t ON t.id = tu.team_id
		WHERE tu.user_id = $1 AND t.deleted_at IS NULL
		ORDER BY t.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []models.TeamUser
	for rows.Next() {
		var tu models.TeamUser
		var team models.Team
		if err := rows.Scan(
			&tu.ID, &tu.TeamID, &tu.UserID, &tu.RoleID, &tu.RoleName, &tu.CreatedAt, &tu.UpdatedAt,
			&team.Name, &team.CreatedAt, &team.UpdatedAt,
		); err != nil {
			return nil, err
		}
		team.ID = tu.TeamID
		tu.Team = &team
		memberships = append(memberships, tu)
	}
	return memberships, rows.Err()
}

func (s *UserService) IsMember(ctx context.Context, userID, teamID int64) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_user WHERE team_id = $1 AND user_id = $2)
	`, teamID, userID).Scan(&exists)
	return exists, err
}

// SetActiveTeam persists team as the user's active team and returns ctx
// scoped to it. The user must be a member of the team or hold Super
// Admin in its scope.
func (s *UserService) SetActiveTeam(ctx context.Context, user *models.User, team *models.Team) (context.Context, error) {
	scoped := rbac.WithTeam(ctx, team.ID)

	member, err := s.IsMember(ctx, user.ID, team.ID)
	if err != nil {
		return ctx, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		admin, err := s.rbac.HasRole(scoped, user.ID, models.RoleSuperAdmin)
		if err != nil {
			return ctx, fmt.Errorf("failed to check role: %w", err)
		}
		if !admin {
			return ctx, ErrNotTeamMember
		}
	}

	if _, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET active_team_id = $1, updated_at = NOW() WHERE id = $2
	`, team.ID, user.ID); err != nil {
		return ctx, fmt.Errorf("failed to set active team: %w", err)
	}

	teamID := team.ID
	user.ActiveTeamID = &teamID
	return scoped, nil
}

// AssignRoleToTeam makes role the user's single role on team, attaching
// the user when not yet a member. Memberships on other teams are left
// alone.
func (s *UserService) AssignRoleToTeam(ctx context.Context, user *models.User, team *models.Team, role *models.Role) (*models.TeamUser, error) {
	var tu models.TeamUser
	teamID := team.ID

	err := s.db.WithTx(ctx, func(q database.Querier) error {
		var roleName string
		if err := q.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1 FOR SHARE`, role.ID).Scan(&roleName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return rbac.ErrRoleNotFound
			}
			return err
		}

		var previousRoleID int64
		err := q.QueryRow(ctx, `
			SELECT role_id FROM team_user WHERE team_id = $1 AND user_id = $2 FOR UPDATE
		`, team.ID, user.ID).Scan(&previousRoleID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		wasMember := err == nil

		if err := q.QueryRow(ctx, `
			INSERT INTO team_user (team_id, user_id, role_id, role_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (team_id, user_id) DO UPDATE
			SET role_id = EXCLUDED.role_id, role_name = EXCLUDED.role_name, updated_at = NOW()
			RETURNING id, team_id, user_id, role_id, role_name, created_at, updated_at
		`, team.ID, user.ID, role.ID, roleName).Scan(
			&tu.ID, &tu.TeamID, &tu.UserID, &tu.RoleID, &tu.RoleName, &tu.CreatedAt, &tu.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to write membership: %w", err)
		}

		store := s.rbac.WithTx(q)
		if wasMember && previousRoleID != role.ID {
			if err := store.RemoveRole(ctx, &teamID, user.ID, previousRoleID); err != nil {
				return err
			}
		}
		return store.AssignRole(ctx, &teamID, user.ID, role.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign role to team: %w", err)
	}

	s.logger.Info("team role assigned",
		zap.String("user", s.codec.EncodePrefixed(models.UserPrefix, user.ID)),
		zap.String("team", s.codec.EncodePrefixed(models.TeamPrefix, team.ID)),
		zap.String("role", tu.RoleName),
	)
	tu.User = user
	tu.Team = team
	return &tu, nil
}

// GetRoleForTeam returns the role of the user's membership on team, or
// ErrMembershipNotFound when the user is not a member.
func (s *UserService) GetRoleForTeam(ctx context.Context, user *models.User, team *models.Team) (*models.Role, error) {
	var r models.Role
	err := s.db.Pool.QueryRow(ctx, `
		SELECT r.id, r.team_id, r.name, r.guard_name, r.created_at, r.updated_at
		FROM team_user tu
		JOIN roles r ON r.id = tu.role_id
		WHERE tu.team_id = $1 AND tu.user_id = $2
	`, team.ID, user.ID).Scan(&r.ID, &r.TeamID, &r.Name, &r.GuardName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return &r, nil
}
