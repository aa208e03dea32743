package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/services"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	FindOrFail(ctx context.Context, value string) (*models.User, error)
	FindOrFailWithTrashed(ctx context.Context, value string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	Teams(ctx context.Context, userID int64) ([]models.TeamUser, error)
	SetActiveTeam(ctx context.Context, user *models.User, team *models.Team) (context.Context, error)
	AssignRoleToTeam(ctx context.Context, user *models.User, team *models.Team, role *models.Role) (*models.TeamUser, error)
	GetRoleForTeam(ctx context.Context, user *models.User, team *models.Team) (*models.Role, error)
}

// TeamServiceInterface defines the methods used by handlers from TeamService
type TeamServiceInterface interface {
	Create(ctx context.Context, name string, opts ...services.CreateTeamOption) (*models.Team, error)
	FindOrFail(ctx context.Context, value string) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
	Update(ctx context.Context, id int64, name string) (*models.Team, error)
	Delete(ctx context.Context, id int64) error
	GetMembers(ctx context.Context, teamID int64) ([]models.TeamUser, error)
	RemoveMember(ctx context.Context, teamID, userID int64) error
}

// RoleServiceInterface defines the methods used by handlers from RoleService
type RoleServiceInterface interface {
	FindOrFail(ctx context.Context, value string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	Rename(ctx context.Context, roleID int64, name string) (*models.Role, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (int64, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID int64, email string) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (int64, error)
	RefreshExpiry() time.Duration
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	SendRoleAssigned(to, firstName, teamName, roleName, teamURL string) error
}

// Authorizer is satisfied by *authz.Gate.
type Authorizer interface {
	Authorize(ctx context.Context, user *models.User, ability string, resource any) error
}
