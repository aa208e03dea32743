package handlers

import (
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/pkg/dto"
)

// presenter renders models with hashid identifiers. Primary keys never
// leave the service.
type presenter struct {
	codec *hashid.Codec
}

func (p presenter) user(u *models.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:              p.codec.EncodePrefixed(models.UserPrefix, u.ID),
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
		DeletedAt:       u.DeletedAt,
	}
	if u.ActiveTeamID != nil {
		id := p.codec.EncodePrefixed(models.TeamPrefix, *u.ActiveTeamID)
		resp.ActiveTeamID = &id
	}
	return resp
}

func (p presenter) team(t *models.Team) dto.TeamResponse {
	return dto.TeamResponse{
		ID:        p.codec.EncodePrefixed(models.TeamPrefix, t.ID),
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		DeletedAt: t.DeletedAt,
	}
}

func (p presenter) membership(tu *models.TeamUser) dto.MembershipResponse {
	resp := dto.MembershipResponse{
		RoleID:   p.codec.EncodePrefixed(models.RolePrefix, tu.RoleID),
		RoleName: tu.RoleName,
		JoinedAt: tu.CreatedAt,
	}
	if tu.Team != nil {
		resp.Team = p.team(tu.Team)
	} else {
		resp.Team = dto.TeamResponse{ID: p.codec.EncodePrefixed(models.TeamPrefix, tu.TeamID)}
	}
	return resp
}

func (p presenter) member(tu *models.TeamUser) dto.TeamMemberResponse {
	resp := dto.TeamMemberResponse{
		RoleID:   p.codec.EncodePrefixed(models.RolePrefix, tu.RoleID),
		RoleName: tu.RoleName,
		JoinedAt: tu.CreatedAt,
	}
	if tu.User != nil {
		resp.User = p.user(tu.User)
	} else {
		resp.User = dto.UserResponse{ID: p.codec.EncodePrefixed(models.UserPrefix, tu.UserID)}
	}
	return resp
}

func (p presenter) role(r *models.Role) dto.RoleResponse {
	resp := dto.RoleResponse{
		ID:        p.codec.EncodePrefixed(models.RolePrefix, r.ID),
		Name:      r.Name,
		GuardName: r.GuardName,
	}
	if r.TeamID != nil {
		id := p.codec.EncodePrefixed(models.TeamPrefix, *r.TeamID)
		resp.TeamID = &id
	}
	return resp
}

func (p presenter) permission(perm *models.Permission) dto.PermissionResponse {
	return dto.PermissionResponse{
		ID:   p.codec.EncodePrefixed(models.PermissionPrefix, perm.ID),
		Name: perm.Name,
	}
}
