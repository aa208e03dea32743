package models

import "time"

const UserPrefix = "usr_"

// User holds plaintext names and email. Ciphertext exists only in the
// database and is handled by the user service.
type User struct {
	ID              int64      `json:"-"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	Password        string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	ActiveTeamID    *int64     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) Trashed() bool {
	return u.DeletedAt != nil
}
