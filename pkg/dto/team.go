package dto

import "time"

type CreateTeamRequest struct {
	Name string `json:"name"`
}

type UpdateTeamRequest struct {
	Name string `json:"name"`
}

type TeamResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type TeamMemberResponse struct {
	User     UserResponse `json:"user"`
	RoleID   string       `json:"role_id"`
	RoleName string       `json:"role_name"`
	JoinedAt time.Time    `json:"joined_at"`
}

// AssignRoleRequest carries a prefixed role hashid or a raw role id.
type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}
