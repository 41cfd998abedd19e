package service

import (
	"context"
	"regexp"

	"fleetgate/internal/model"
	"fleetgate/internal/repository"
	"fleetgate/pkg/apperr"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string   `json:"username" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Roles    []string `json:"roles" binding:"required,min=1"`
	TeamID   string   `json:"team_id"`
}

type UpdateUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email" binding:"omitempty,email"`
	Roles    []string `json:"roles"`
	TeamID   string   `json:"team_id"`
	Active   *bool    `json:"active"`
}

// DTO for returning User without exposing sensitive data
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	TeamID    string    `json:"team_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	users repository.UserRepository
	roles repository.RoleRepository
	teams repository.TeamRepository
}

// NewUserService returns a new instance of UserService
func NewUserService(users repository.UserRepository, roles repository.RoleRepository, teams repository.TeamRepository) UserService {
	return &userService{users: users, roles: roles, teams: teams}
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`)

// Helper: parse model to standard json API response
func mapToUserResponse(user *model.User) *UserResponse {
	teamID := ""
	if user.TeamID != nil {
		teamID = user.TeamID.String()
	}
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Roles:     user.RoleNames(),
		TeamID:    teamID,
		Active:    user.Active,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// resolveRoles validates the requested role names against the Role table.
// An unknown role name is a validation error, never a silent no-op.
func (s *userService) resolveRoles(ctx context.Context, names []string) ([]model.Role, error) {
	roles, err := s.roles.GetByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(dedupe(names)) {
		return nil, apperr.ErrValidation.WithMessage("one or more roles do not exist")
	}
	return roles, nil
}

func (s *userService) resolveTeam(ctx context.Context, teamID string) (*uuid.UUID, error) {
	if teamID == "" {
		return nil, nil
	}
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, apperr.ErrValidation.WithMessage("team does not exist")
	}
	return &team.ID, nil
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	if !emailRegex.MatchString(req.Email) {
		return nil, apperr.ErrValidation.WithMessage("invalid email format")
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperr.ErrConflict.WithMessage("username already exists")
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperr.ErrConflict.WithMessage("email already exists")
	}

	roles, err := s.resolveRoles(ctx, req.Roles)
	if err != nil {
		return nil, err
	}
	teamID, err := s.resolveTeam(ctx, req.TeamID)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Roles:    roles,
		TeamID:   teamID,
		Active:   true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return mapToUserResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.ErrNotFound.WithMessage("user not found")
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, *mapToUserResponse(&u))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.ErrNotFound.WithMessage("user not found")
	}

	if req.Username != "" && req.Username != user.Username {
		if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
			return nil, apperr.ErrConflict.WithMessage("username already exists")
		}
		user.Username = req.Username
	}

	if req.Email != "" && req.Email != user.Email {
		if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
			return nil, apperr.ErrConflict.WithMessage("email already exists")
		}
		user.Email = req.Email
	}

	if req.TeamID != "" {
		teamID, err := s.resolveTeam(ctx, req.TeamID)
		if err != nil {
			return nil, err
		}
		user.TeamID = teamID
	}

	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if len(req.Roles) > 0 {
		roles, err := s.resolveRoles(ctx, req.Roles)
		if err != nil {
			return nil, err
		}
		if err := s.users.ReplaceRoles(ctx, user, roles); err != nil {
			return nil, err
		}
		user.Roles = roles
	}

	return mapToUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return apperr.ErrNotFound.WithMessage("user not found")
	}
	return s.users.Delete(ctx, id)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
