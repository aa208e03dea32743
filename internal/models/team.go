package models

import "time"

const TeamPrefix = "team_"

type Team struct {
	ID        int64      `json:"-"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (t *Team) Trashed() bool {
	return t.DeletedAt != nil
}

// TeamUser is one membership. RoleName mirrors the referenced role's
// name as of the last assignment or rename.
type TeamUser struct {
	ID        int64     `json:"-"`
	TeamID    int64     `json:"-"`
	UserID    int64     `json:"-"`
	RoleID    int64     `json:"-"`
	RoleName  string    `json:"role_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *User     `json:"user,omitempty"`
	Team      *Team     `json:"team,omitempty"`
}
