package handlers

import (
	"strings"

	"github.com/dimitrije/teamscope/internal/authz"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type TeamHandler struct {
	teamService  TeamServiceInterface
	userService  UserServiceInterface
	roleService  RoleServiceInterface
	emailService EmailServiceInterface
	gate         Authorizer
	present      presenter
	baseURL      string
	logger       *zap.Logger
}

func NewTeamHandler(
	teamService TeamServiceInterface,
	userService UserServiceInterface,
	roleService RoleServiceInterface,
	emailService EmailServiceInterface,
	gate Authorizer,
	codec *hashid.Codec,
	baseURL string,
	logger *zap.Logger,
) *TeamHandler {
	return &TeamHandler{
		teamService:  teamService,
		userService:  userService,
		roleService:  roleService,
		emailService: emailService,
		gate:         gate,
		present:      presenter{codec: codec},
		baseURL:      baseURL,
		logger:       logger,
	}
}

func (h *TeamHandler) Create(c *drift.Context) {
	if !authorize(c, h.gate, authz.AbilityCreateOwnTeams, nil) {
		return
	}

	var req dto.CreateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.BadRequest("name is required")
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), name)
	if err != nil {
		h.logger.Error("create team failed", zap.Error(err))
		c.InternalServerError("failed to create team")
		return
	}

	_ = c.JSON(201, h.present.team(team))
}

func (h *TeamHandler) List(c *drift.Context) {
	if !authorize(c, h.gate, authz.AbilityReadAllTeams, nil) {
		return
	}

	teams, err := h.teamService.List(c.Request.Context())
	if err != nil {
		c.InternalServerError("failed to get teams")
		return
	}

	response := make([]dto.TeamResponse, len(teams))
	for i := range teams {
		response[i] = h.present.team(&teams[i])
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) Get(c *drift.Context) {
	team, ok := bind(c, "team", h.teamService.FindOrFail)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityViewTeam, team) {
		return
	}

	_ = c.JSON(200, h.present.team(team))
}

func (h *TeamHandler) Update(c *drift.Context) {
	team, ok := bind(c, "team", h.teamService.FindOrFail)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityUpdateAllTeams, team) {
		return
	}

	var req dto.UpdateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.BadRequest("name is required")
		return
	}

	updated, err := h.teamService.Update(c.Request.Context(), team.ID, name)
	if err != nil {
		respondError(c, err, "failed to update team")
		return
	}

	_ = c.JSON(200, h.present.team(updated))
}

func (h *TeamHandler) Delete(c *drift.Context) {
	team, ok := bind(c, "team", h.teamService.FindOrFail)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityDeleteAllTeams, team) {
		return
	}

	if err := h.teamService.Delete(c.Request.Context(), team.ID); err != nil {
		respondError(c, err, "failed to delete team")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "team deleted"})
}

func (h *TeamHandler) GetMembers(c *drift.Context) {
	team, ok := bind(c, "team", h.teamService.FindOrFail)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityViewTeam, team) {
		return
	}

	members, err := h.teamService.GetMembers(c.Request.Context(), team.ID)
	if err != nil {
		c.InternalServerError("failed to get members")
		return
	}

	response := make([]dto.TeamMemberResponse, len(members))
	for i := range members {
		response[i] = h.present.member(&members[i])
	}

	_ = c.JSON(200, response)
}

// AssignRole gives the bound user a role on the bound team, attaching
// them as a member when they are not one yet.
func (h *TeamHandler) AssignRole(c *drift.Context) {
	team, user, ok := h.bindMember(c)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityUpdateAllTeams, team) {
		return
	}

	var req dto.AssignRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RoleID == "" {
		c.BadRequest("role_id is required")
		return
	}

	ctx := c.Request.Context()
	role, err := h.roleService.FindOrFail(ctx, req.RoleID)
	if err != nil {
		respondError(c, err, "failed to load role")
		return
	}

	membership, err := h.userService.AssignRoleToTeam(ctx, user, team, role)
	if err != nil {
		respondError(c, err, "failed to assign role")
		return
	}

	teamURL := h.baseURL + "/api/v1/teams/" + h.present.codec.EncodePrefixed(models.TeamPrefix, team.ID)
	if err := h.emailService.SendRoleAssigned(user.Email, user.FirstName, team.Name, role.Name, teamURL); err != nil {
		h.logger.Warn("role assignment email failed",
			zap.String("team", team.Name),
			zap.Error(err),
		)
	}

	membership.User = user
	_ = c.JSON(200, h.present.member(membership))
}

func (h *TeamHandler) GetMemberRole(c *drift.Context) {
	team, user, ok := h.bindMember(c)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityViewTeam, team) {
		return
	}

	role, err := h.userService.GetRoleForTeam(c.Request.Context(), user, team)
	if err != nil {
		respondError(c, err, "failed to get role")
		return
	}

	_ = c.JSON(200, h.present.role(role))
}

func (h *TeamHandler) RemoveMember(c *drift.Context) {
	team, user, ok := h.bindMember(c)
	if !ok {
		return
	}
	if !authorize(c, h.gate, authz.AbilityUpdateAllTeams, team) {
		return
	}

	if err := h.teamService.RemoveMember(c.Request.Context(), team.ID, user.ID); err != nil {
		respondError(c, err, "failed to remove member")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "member removed"})
}

func (h *TeamHandler) bindMember(c *drift.Context) (*models.Team, *models.User, bool) {
	team, ok := bind(c, "team", h.teamService.FindOrFail)
	if !ok {
		return nil, nil, false
	}
	user, ok := bind(c, "user", h.userService.FindOrFail)
	if !ok {
		return nil, nil, false
	}
	return team, user, true
}
