package services

import (
	"context"
	"errors"

	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
)

type RoleService struct {
	db    *database.DB
	codec *hashid.Codec
	rbac  *rbac.Store
}

func NewRoleService(db *database.DB, codec *hashid.Codec, store *rbac.Store) *RoleService {
	return &RoleService{db: db, codec: codec, rbac: store}
}

func (s *RoleService) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role, err := s.rbac.FindRoleByID(ctx, id)
	if errors.Is(err, rbac.ErrRoleNotFound) {
		return nil, ErrNotFound
	}
	return role, err
}

// FindOrFail resolves a raw id or a role_ hashid.
func (s *RoleService) FindOrFail(ctx context.Context, value string) (*models.Role, error) {
	return hashid.FindOrFail(ctx, s.codec, models.RolePrefix, value, s.GetByID)
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	return s.rbac.ListRoles(ctx)
}

func (s *RoleService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.rbac.ListPermissions(ctx)
}

func (s *RoleService) PermissionNames(ctx context.Context, roleID int64) ([]string, error) {
	return s.rbac.RolePermissionNames(ctx, roleID)
}

// Rename renames the role and refreshes every membership's role_name in
// the same transaction.
func (s *RoleService) Rename(ctx context.Context, roleID int64, name string) (*models.Role, error) {
	var role *models.Role
	err := s.db.WithTx(ctx, func(q database.Querier) error {
		var err error
		role, err = s.rbac.WithTx(q).RenameRole(ctx, roleID, name)
		return err
	})
	switch {
	case errors.Is(err, rbac.ErrRoleNotFound):
		return nil, ErrNotFound
	case isUniqueViolation(err):
		return nil, ErrRoleNameTaken
	case err != nil:
		return nil, err
	}
	return role, nil
}
