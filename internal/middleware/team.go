package middleware

import (
	"context"
	"errors"

	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

const UserKey = "user"

type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// ActiveTeam loads the authenticated user and scopes the request context
// to the user's active team. Must run after Auth.
func ActiveTeam(users UserLoader) drift.HandlerFunc {
	return func(c *drift.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.Unauthorized("not authenticated")
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.Unauthorized("user no longer exists")
				return
			}
			c.InternalServerError("failed to load user")
			return
		}

		c.Set(UserKey, user)
		if user.ActiveTeamID != nil {
			c.Request = c.Request.WithContext(rbac.WithTeam(c.Request.Context(), *user.ActiveTeamID))
		}

		c.Next()
	}
}

func GetUser(c *drift.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
