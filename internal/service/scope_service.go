package service

import (
	"fleetgate/internal/model"
	"fleetgate/pkg/apperr"
)

// ScopeService restricts access to team-scoped resources. It fails closed:
// a subject with no team claim and no bypass role is denied.
type ScopeService interface {
	AuthorizeScope(subject *Subject, requestedTeamID string) error
}

type scopeService struct{}

// NewScopeService returns a new instance of ScopeService
func NewScopeService() ScopeService {
	return &scopeService{}
}

func (s *scopeService) AuthorizeScope(subject *Subject, requestedTeamID string) error {
	if subject == nil {
		return apperr.ErrTeamAccessDenied
	}
	if subject.HasRole(model.RoleAdmin) || subject.HasRole(model.RoleSuperAdmin) {
		return nil
	}
	if requestedTeamID == "" || subject.TeamID == "" {
		return apperr.ErrTeamAccessDenied
	}
	if requestedTeamID != subject.TeamID {
		return apperr.ErrTeamAccessDenied
	}
	return nil
}
