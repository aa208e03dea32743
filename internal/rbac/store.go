// Package rbac stores roles and permissions and resolves them per team.
//
// Role and permission assignments carry a nullable team id. Checks use
// the team scope carried by the context (see WithTeam); a context with
// no scope only sees global assignments. Roles without a team are
// global and may be assigned within any team scope.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
)

// Checker is the read side used by the authorization gate.
type Checker interface {
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
	HasPermission(ctx context.Context, userID int64, permission string) (bool, error)
}

type Store struct {
	q      database.Querier
	cache  Cache
	logger *zap.Logger
}

func NewStore(db *database.DB, cache Cache, logger *zap.Logger) *Store {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{q: db.Pool, cache: cache, logger: logger}
}

// WithTx returns a copy of the store that runs its statements on q.
// When q is a *database.Tx, cache evictions are repeated after commit.
func (s *Store) WithTx(q database.Querier) *Store {
	cache := s.cache
	if tx, ok := q.(afterCommitter); ok {
		cache = &txCache{shared: s.cache, tx: tx}
	}
	return &Store{q: q, cache: cache, logger: s.logger}
}

// ForgetCachedPermissions drops every cached permission set.
func (s *Store) ForgetCachedPermissions(ctx context.Context) {
	s.cache.Flush(ctx)
}

func (s *Store) CreatePermission(ctx context.Context, name string) (*models.Permission, error) {
	var p models.Permission
	err := s.q.QueryRow(ctx, `
		INSERT INTO permissions (name, guard_name)
		VALUES ($1, $2)
		RETURNING id, team_id, name, guard_name, created_at, updated_at
	`, name, models.GuardWeb).Scan(&p.ID, &p.TeamID, &p.Name, &p.GuardName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission %q: %w", name, err)
	}
	s.cache.Flush(ctx)
	return &p, nil
}

func (s *Store) FindPermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	var p models.Permission
	err := s.q.QueryRow(ctx, `
		SELECT id, team_id, name, guard_name, created_at, updated_at
		FROM permissions WHERE name = $1 AND guard_name = $2
	`, name, models.GuardWeb).Scan(&p.ID, &p.TeamID, &p.Name, &p.GuardName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionNotFound, name)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, team_id, name, guard_name, created_at, updated_at
		FROM permissions ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.GuardName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreateRole creates a role scoped to teamID, or a global role when
// teamID is nil.
func (s *Store) CreateRole(ctx context.Context, name string, teamID *int64) (*models.Role, error) {
	var r models.Role
	err := s.q.QueryRow(ctx, `
		INSERT INTO roles (team_id, name, guard_name)
		VALUES ($1, $2, $3)
		RETURNING id, team_id, name, guard_name, created_at, updated_at
	`, teamID, name, models.GuardWeb).Scan(&r.ID, &r.TeamID, &r.Name, &r.GuardName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create role %q: %w", name, err)
	}
	return &r, nil
}

// FindRoleByName looks the role up among global roles and roles of the
// context's team, preferring the team's own role.
func (s *Store) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	err := s.q.QueryRow(ctx, `
		SELECT id, team_id, name, guard_name, created_at, updated_at
		FROM roles
		WHERE name = $1 AND guard_name = $2 AND (team_id IS NULL OR team_id = $3)
		ORDER BY team_id NULLS LAST
		LIMIT 1
	`, name, models.GuardWeb, TeamIDPtr(ctx)).Scan(&r.ID, &r.TeamID, &r.Name, &r.GuardName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) FindRoleByID(ctx context.Context, id int64) (*models.Role, error) {
	var r models.Role
	err := s.q.QueryRow(ctx, `
		SELECT id, team_id, name, guard_name, created_at, updated_at
		FROM roles WHERE id = $1
	`, id).Scan(&r.ID, &r.TeamID, &r.Name, &r.GuardName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, team_id, name, guard_name, created_at, updated_at
		FROM roles ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.TeamID, &r.Name, &r.GuardName, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// RenameRole renames the role and rewrites the role_name snapshot of
// every membership that references it. Run it inside a transaction.
func (s *Store) RenameRole(ctx context.Context, roleID int64, name string) (*models.Role, error) {
	var r models.Role
	err := s.q.QueryRow(ctx, `
		UPDATE roles SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, team_id, name, guard_name, created_at, updated_at
	`, name, roleID).Scan(&r.ID, &r.TeamID, &r.Name, &r.GuardName, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to rename role: %w", err)
	}

	if _, err := s.q.Exec(ctx, `
		UPDATE team_user SET role_name = $1, updated_at = NOW()
		WHERE role_id = $2
	`, name, roleID); err != nil {
		return nil, fmt.Errorf("failed to cascade role name: %w", err)
	}
	return &r, nil
}

// GivePermissionTo grants the named permissions to a role.
func (s *Store) GivePermissionTo(ctx context.Context, roleID int64, names ...string) error {
	for _, name := range names {
		perm, err := s.FindPermissionByName(ctx, name)
		if err != nil {
			return err
		}
		if _, err := s.q.Exec(ctx, `
			INSERT INTO role_has_permissions (permission_id, role_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, perm.ID, roleID); err != nil {
			return fmt.Errorf("failed to give permission %q: %w", name, err)
		}
	}
	s.cache.Flush(ctx)
	return nil
}

func (s *Store) RevokePermissionTo(ctx context.Context, roleID int64, name string) error {
	perm, err := s.FindPermissionByName(ctx, name)
	if err != nil {
		return err
	}
	if _, err := s.q.Exec(ctx, `
		DELETE FROM role_has_permissions WHERE permission_id = $1 AND role_id = $2
	`, perm.ID, roleID); err != nil {
		return fmt.Errorf("failed to revoke permission %q: %w", name, err)
	}
	s.cache.Flush(ctx)
	return nil
}

func (s *Store) RolePermissionNames(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := s.q.Query(ctx, `
		SELECT p.name FROM permissions p
		JOIN role_has_permissions rhp ON rhp.permission_id = p.id
		WHERE rhp.role_id = $1
		ORDER BY p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// AssignRole grants roleID to the user within teamID's scope (global
// scope when teamID is nil). Granting an existing assignment is a no-op.
func (s *Store) AssignRole(ctx context.Context, teamID *int64, userID, roleID int64) error {
	if _, err := s.q.Exec(ctx, `
		INSERT INTO model_has_roles (role_id, model_type, model_id, team_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, roleID, models.ModelTypeUser, userID, teamID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	s.cache.Forget(ctx, Key{UserID: userID, TeamID: teamID})
	s.logger.Debug("role assigned",
		zap.Int64("user_id", userID),
		zap.Int64("role_id", roleID),
		zap.Int64p("team_id", teamID),
	)
	return nil
}

func (s *Store) RemoveRole(ctx context.Context, teamID *int64, userID, roleID int64) error {
	if _, err := s.q.Exec(ctx, `
		DELETE FROM model_has_roles
		WHERE role_id = $1 AND model_type = $2 AND model_id = $3 AND team_id IS NOT DISTINCT FROM $4
	`, roleID, models.ModelTypeUser, userID, teamID); err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}
	s.cache.Forget(ctx, Key{UserID: userID, TeamID: teamID})
	return nil
}

// GivePermissionToUser grants a permission directly, outside any role.
func (s *Store) GivePermissionToUser(ctx context.Context, teamID *int64, userID int64, name string) error {
	perm, err := s.FindPermissionByName(ctx, name)
	if err != nil {
		return err
	}
	if _, err := s.q.Exec(ctx, `
		INSERT INTO model_has_permissions (permission_id, model_type, model_id, team_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, perm.ID, models.ModelTypeUser, userID, teamID); err != nil {
		return fmt.Errorf("failed to give permission %q: %w", name, err)
	}
	s.cache.Forget(ctx, Key{UserID: userID, TeamID: teamID})
	return nil
}

// HasRole reports whether the user holds roleName in the context's team
// scope.
func (s *Store) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM model_has_roles mhr
			JOIN roles r ON r.id = mhr.role_id
			WHERE mhr.model_type = $1 AND mhr.model_id = $2
			AND mhr.team_id IS NOT DISTINCT FROM $3
			AND r.name = $4 AND r.guard_name = $5
		)
	`, models.ModelTypeUser, userID, TeamIDPtr(ctx), roleName, models.GuardWeb).Scan(&exists)
	return exists, err
}

// RoleNames lists the roles the user holds in the context's team scope.
func (s *Store) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.q.Query(ctx, `
		SELECT r.name FROM model_has_roles mhr
		JOIN roles r ON r.id = mhr.role_id
		WHERE mhr.model_type = $1 AND mhr.model_id = $2
		AND mhr.team_id IS NOT DISTINCT FROM $3
		ORDER BY r.name
	`, models.ModelTypeUser, userID, TeamIDPtr(ctx))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Permissions resolves every permission the user has in the context's
// team scope, through roles and direct grants.
func (s *Store) Permissions(ctx context.Context, userID int64) ([]string, error) {
	key := Key{UserID: userID, TeamID: TeamIDPtr(ctx)}
	if perms, ok := s.cache.Get(ctx, key); ok {
		return perms, nil
	}

	rows, err := s.q.Query(ctx, `
		SELECT p.name FROM permissions p
		JOIN role_has_permissions rhp ON rhp.permission_id = p.id
		JOIN model_has_roles mhr ON mhr.role_id = rhp.role_id
		WHERE mhr.model_type = $1 AND mhr.model_id = $2
		AND mhr.team_id IS NOT DISTINCT FROM $3
		UNION
		SELECT p.name FROM permissions p
		JOIN model_has_permissions mhp ON mhp.permission_id = p.id
		WHERE mhp.model_type = $1 AND mhp.model_id = $2
		AND mhp.team_id IS NOT DISTINCT FROM $3
		ORDER BY 1
	`, models.ModelTypeUser, userID, key.TeamID)
	if err != nil {
		return nil, err
	}
	perms, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, perms)
	return perms, nil
}

func (s *Store) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	perms, err := s.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
