package dto

import "time"

type UserResponse struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	ActiveTeamID    *string    `json:"active_team_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// UpdateUserRequest leaves nil fields untouched.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type SetActiveTeamRequest struct {
	TeamID string `json:"team_id"`
}

type MembershipResponse struct {
	Team     TeamResponse `json:"team"`
	RoleID   string       `json:"role_id"`
	RoleName string       `json:"role_name"`
	JoinedAt time.Time    `json:"joined_at"`
}
