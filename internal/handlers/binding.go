package handlers

import (
	"context"
	"errors"

	"github.com/dimitrije/teamscope/internal/authz"
	"github.com/dimitrije/teamscope/internal/middleware"
	"github.com/dimitrije/teamscope/internal/rbac"
	"github.com/dimitrije/teamscope/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

// bind resolves the route parameter through find. On failure the
// response has been written and ok is false.
func bind[T any](c *drift.Context, param string, find func(context.Context, string) (T, error)) (value T, ok bool) {
	value, err := find(c.Request.Context(), c.Param(param))
	if err != nil {
		respondError(c, err, "failed to load "+param)
		return value, false
	}
	return value, true
}

// authorize checks ability for the acting user in the request's team
// scope. On denial the response has been written.
func authorize(c *drift.Context, gate Authorizer, ability string, resource any) bool {
	user := middleware.GetUser(c)
	if user == nil {
		c.Unauthorized("not authenticated")
		return false
	}
	if err := gate.Authorize(c.Request.Context(), user, ability, resource); err != nil {
		respondError(c, err, "failed to authorize")
		return false
	}
	return true
}

// respondError maps service errors to responses. failure is the 500
// message.
func respondError(c *drift.Context, err error, failure string) {
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		c.Forbidden(err.Error())
	case errors.Is(err, services.ErrNotTeamMember):
		c.Forbidden(err.Error())
	case errors.Is(err, services.ErrMembershipNotFound):
		c.NotFound("membership not found")
	case errors.Is(err, services.ErrNotFound):
		c.NotFound("not found")
	case errors.Is(err, rbac.ErrRoleNotFound):
		c.NotFound("role not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized(err.Error())
	case errors.Is(err, services.ErrRoleNameTaken):
		_ = c.JSON(409, map[string]string{"error": err.Error()})
	default:
		c.InternalServerError(failure)
	}
}
