package dto

type RoleResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	GuardName string  `json:"guard_name"`
	TeamID    *string `json:"team_id,omitempty"`
}

type UpdateRoleRequest struct {
	Name string `json:"name"`
}

type PermissionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
