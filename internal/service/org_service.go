package service

import (
	"context"

	"fleetgate/internal/model"
	"fleetgate/internal/repository"
	"fleetgate/pkg/apperr"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateDepartmentRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateTeamRequest struct {
	Name         string `json:"name" binding:"required"`
	DepartmentID string `json:"department_id" binding:"required,uuid"`
}

type TeamResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"department_id"`
	Department   string `json:"department,omitempty"`
}

type DepartmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrgService manages the organizational partitions (departments, teams)
// that team scoping is evaluated against. A team always belongs to
// exactly one department.
type OrgService interface {
	CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (*DepartmentResponse, error)
	CreateTeam(ctx context.Context, req CreateTeamRequest) (*TeamResponse, error)
	ListTeams(ctx context.Context) ([]TeamResponse, error)
	ListDepartments(ctx context.Context) ([]DepartmentResponse, error)
}

type orgService struct {
	teams repository.TeamRepository
}

// NewOrgService returns a new instance of OrgService
func NewOrgService(teams repository.TeamRepository) OrgService {
	return &orgService{teams: teams}
}

func (s *orgService) CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (*DepartmentResponse, error) {
	dept := &model.Department{Name: req.Name}
	if err := s.teams.CreateDepartment(ctx, dept); err != nil {
		return nil, apperr.ErrConflict.WithMessage("department already exists")
	}
	return &DepartmentResponse{ID: dept.ID.String(), Name: dept.Name}, nil
}

func (s *orgService) CreateTeam(ctx context.Context, req CreateTeamRequest) (*TeamResponse, error) {
	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, apperr.ErrValidation.WithMessage("invalid department id")
	}

	team := &model.Team{Name: req.Name, DepartmentID: deptID}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return nil, apperr.ErrValidation.WithMessage("department does not exist")
	}

	return &TeamResponse{ID: team.ID.String(), Name: team.Name, DepartmentID: team.DepartmentID.String()}, nil
}

func (s *orgService) ListTeams(ctx context.Context) ([]TeamResponse, error) {
	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		res = append(res, TeamResponse{
			ID:           t.ID.String(),
			Name:         t.Name,
			DepartmentID: t.DepartmentID.String(),
			Department:   t.Department.Name,
		})
	}
	return res, nil
}

func (s *orgService) ListDepartments(ctx context.Context) ([]DepartmentResponse, error) {
	depts, err := s.teams.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		res = append(res, DepartmentResponse{ID: d.ID.String(), Name: d.Name})
	}
	return res, nil
}
