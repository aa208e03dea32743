package handlers

import (
	"strings"

	"github.com/dimitrije/teamscope/internal/authz"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

// RoleHandler serves the role and permission catalog to any
// authenticated user. Renaming a role is reserved to Super Admins.
type RoleHandler struct {
	roleService RoleServiceInterface
	gate        Authorizer
	present     presenter
}

func NewRoleHandler(roleService RoleServiceInterface, gate Authorizer, codec *hashid.Codec) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
		gate:        gate,
		present:     presenter{codec: codec},
	}
}

func (h *RoleHandler) ListRoles(c *drift.Context) {
	roles, err := h.roleService.List(c.Request.Context())
	if err != nil {
		c.InternalServerError("failed to get roles")
		return
	}

	response := make([]dto.RoleResponse, len(roles))
	for i := range roles {
		response[i] = h.present.role(&roles[i])
	}

	_ = c.JSON(200, response)
}

func (h *RoleHandler) ListPermissions(c *drift.Context) {
	permissions, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		c.InternalServerError("failed to get permissions")
		return
	}

	response := make([]dto.PermissionResponse, len(permissions))
	for i := range permissions {
		response[i] = h.present.permission(&permissions[i])
	}

	_ = c.JSON(200, response)
}

// Rename changes the role's name. Memberships holding the role show the
// new name immediately.
func (h *RoleHandler) Rename(c *drift.Context) {
	role, ok := bind(c, "role", h.roleService.FindOrFail)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilitySuperAdmin, role) {
		return
	}

	var req dto.UpdateRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.BadRequest("name is required")
		return
	}

	renamed, err := h.roleService.Rename(c.Request.Context(), role.ID, name)
	if err != nil {
		respondError(c, err, "failed to rename role")
		return
	}

	_ = c.JSON(200, h.present.role(renamed))
}
