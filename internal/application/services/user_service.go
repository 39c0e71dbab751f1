package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// CreateUserRequest is the admin form for a new account
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,role"`
}

// UpdateUserRequest edits an account. Nil fields are left unchanged and an
// empty password keeps the current one.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// UserService manages staff accounts. Every operation requires an admin.
type UserService struct {
	repo  repositories.UserRepository
	clock providers.Clock
}

// NewUserService creates a new user service
func NewUserService(repo repositories.UserRepository, clock providers.Clock) *UserService {
	return &UserService{repo: repo, clock: clock}
}

// List returns every account
func (s *UserService) List(ctx context.Context, actor entities.Identity) ([]*entities.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Get returns a single account
func (s *UserService) Get(ctx context.Context, actor entities.Identity, id string) (*entities.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Create adds an account. Username and email must be unique.
func (s *UserService) Create(ctx context.Context, actor entities.Identity, req CreateUserRequest) (*entities.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	role := entities.RoleUser
	if req.Role != "" {
		role, _ = entities.ParseRole(req.Role)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update edits an account
func (s *UserService) Update(ctx context.Context, actor entities.Identity, id string, req UpdateUserRequest) (*entities.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, apperrors.NewValidationError("username is required")
		}
		if err := checkMaxLength("username", username, 80); err != nil {
			return nil, err
		}
		user.Username = username
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if err := validate.Var(email, "required,email"); err != nil {
			return nil, apperrors.NewValidationError("email must be a valid email address")
		}
		if err := checkMaxLength("email", email, 120); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		role, ok := entities.ParseRole(strings.TrimSpace(*req.Role))
		if !ok {
			return nil, apperrors.NewValidationError("role must be admin or user")
		}
		user.Role = role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account. The last active admin cannot be deleted.
func (s *UserService) Delete(ctx context.Context, actor entities.Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		admins, err := s.repo.CountActiveAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperrors.NewConflictError("Cannot delete the last admin user")
		}
	}
	return s.repo.Delete(ctx, id)
}
