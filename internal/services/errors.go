package services

import (
	"errors"
	"fmt"

	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is shared with the hashid package so route binding and
	// service lookups fail the same way.
	ErrNotFound = hashid.ErrNotFound

	ErrMembershipNotFound = fmt.Errorf("team membership: %w", ErrNotFound)
	ErrNotTeamMember      = errors.New("user is not a member of the team")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSuperAdminMissing  = errors.New("super admin user does not exist")
	ErrRoleNameTaken      = errors.New("role name already taken")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
