package handlers

import (
	"strings"

	"github.com/dimitrije/teamscope/internal/authz"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/middleware"
	"github.com/dimitrije/teamscope/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type UserHandler struct {
	userService UserServiceInterface
	teamService TeamServiceInterface
	gate        Authorizer
	present     presenter
}

func NewUserHandler(userService UserServiceInterface, teamService TeamServiceInterface, gate Authorizer, codec *hashid.Codec) *UserHandler {
	return &UserHandler{
		userService: userService,
		teamService: teamService,
		gate:        gate,
		present:     presenter{codec: codec},
	}
}

func (h *UserHandler) GetMe(c *drift.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.Unauthorized("not authenticated")
		return
	}

	_ = c.JSON(200, h.present.user(user))
}

func (h *UserHandler) UpdateMe(c *drift.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.FirstName == nil && req.LastName == nil {
		c.BadRequest("first_name or last_name is required")
		return
	}

	updated := *user
	if req.FirstName != nil {
		updated.FirstName = strings.TrimSpace(*req.FirstName)
		if updated.FirstName == "" {
			c.BadRequest("first_name cannot be empty")
			return
		}
	}
	if req.LastName != nil {
		updated.LastName = strings.TrimSpace(*req.LastName)
		if updated.LastName == "" {
			c.BadRequest("last_name cannot be empty")
			return
		}
	}

	if err := h.userService.Update(c.Request.Context(), &updated); err != nil {
		respondError(c, err, "failed to update user")
		return
	}

	_ = c.JSON(200, h.present.user(&updated))
}

func (h *UserHandler) MyTeams(c *drift.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.Unauthorized("not authenticated")
		return
	}

	memberships, err := h.userService.Teams(c.Request.Context(), user.ID)
	if err != nil {
		c.InternalServerError("failed to get teams")
		return
	}

	response := make([]dto.MembershipResponse, len(memberships))
	for i := range memberships {
		response[i] = h.present.membership(&memberships[i])
	}

	_ = c.JSON(200, response)
}

func (h *UserHandler) SetActiveTeam(c *drift.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.SetActiveTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.TeamID == "" {
		c.BadRequest("team_id is required")
		return
	}

	team, err := h.teamService.FindOrFail(c.Request.Context(), req.TeamID)
	if err != nil {
		respondError(c, err, "failed to load team")
		return
	}

	if _, err := h.userService.SetActiveTeam(c.Request.Context(), user, team); err != nil {
		respondError(c, err, "failed to set active team")
		return
	}

	_ = c.JSON(200, h.present.user(user))
}

func (h *UserHandler) Show(c *drift.Context) {
	target, ok := bind(c, "user", h.userService.FindOrFail)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityReadUsers, target) {
		return
	}

	_ = c.JSON(200, h.present.user(target))
}

func (h *UserHandler) Delete(c *drift.Context) {
	target, ok := bind(c, "user", h.userService.FindOrFail)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityDeleteUsers, target) {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), target.ID); err != nil {
		respondError(c, err, "failed to delete user")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "user deleted"})
}

// Restore binds trashed users too, so a soft-deleted user can be
// brought back by its identifier.
func (h *UserHandler) Restore(c *drift.Context) {
	target, ok := bind(c, "user", h.userService.FindOrFailWithTrashed)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityForceDelete, target) {
		return
	}

	if err := h.userService.Restore(c.Request.Context(), target.ID); err != nil {
		respondError(c, err, "failed to restore user")
		return
	}

	target.DeletedAt = nil
	_ = c.JSON(200, h.present.user(target))
}
