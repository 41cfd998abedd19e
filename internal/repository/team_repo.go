package repository

import (
	"context"

	"fleetgate/internal/model"

	"gorm.io/gorm"
)

// TeamRepository defines data access for teams and departments. Teams are
// read-mostly: the gateway only needs them when assigning users.
type TeamRepository interface {
	CreateDepartment(ctx context.Context, dept *model.Department) error
	CreateTeam(ctx context.Context, team *model.Team) error
	GetTeamByID(ctx context.Context, id string) (*model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	ListDepartments(ctx context.Context) ([]model.Department, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository returns a new instance of TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) CreateDepartment(ctx context.Context, dept *model.Department) error {
	return GetDB(ctx, r.db).Create(dept).Error
}

func (r *teamRepository) CreateTeam(ctx context.Context, team *model.Team) error {
	return GetDB(ctx, r.db).Create(team).Error
}

func (r *teamRepository) GetTeamByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	if err := GetDB(ctx, r.db).Preload("Department").First(&team, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) ListTeams(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := GetDB(ctx, r.db).Preload("Department").Order("name ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepository) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var depts []model.Department
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&depts).Error; err != nil {
		return nil, err
	}
	return depts, nil
}
