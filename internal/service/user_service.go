package service

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	RoleIDs  []uint `json:"role_ids"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Name     string `json:"name"`
}

type AssignRolesRequest struct {
	RoleIDs []uint `json:"role_ids" binding:"required"`
}

// UserResponse returns User data without exposing sensitive fields
type UserResponse struct {
	ID        uint          `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Roles     []RoleSummary `json:"roles"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actorID uint, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id uint) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actorID, id uint, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actorID, id uint) error
	AssignRoles(ctx context.Context, actorID, id uint, req AssignRolesRequest) (*UserResponse, error)
}

type userService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	audits repository.AuditRepository
}

// NewUserService returns a new instance of UserService
func NewUserService(users repository.UserRepository, roles repository.RoleRepository, audits repository.AuditRepository) UserService {
	return &userService{users: users, roles: roles, audits: audits}
}

// --- Uniqueness predicates ---
// Each entity gets its own explicit duplicate check instead of a generic
// property-walking helper.

func (s *userService) usernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.Wrap(apperror.Internal, "failed to check username", err)
	}
	return existing.ID != excludeID, nil
}

func (s *userService) emailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.Wrap(apperror.Internal, "failed to check email", err)
	}
	return existing.ID != excludeID, nil
}

// --- Implementation ---

func (s *userService) CreateUser(ctx context.Context, actorID uint, req CreateUserRequest) (*UserResponse, error) {
	if taken, err := s.usernameTaken(ctx, req.Username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperror.New(apperror.Conflict, "username already exists")
	}

	if taken, err := s.emailTaken(ctx, req.Email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperror.New(apperror.Conflict, "email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to hash password", err)
	}

	var roles []model.Role
	if len(req.RoleIDs) > 0 {
		roles, err = s.roles.FindByIDs(ctx, req.RoleIDs)
		if err != nil {
			return nil, apperror.Wrap(apperror.Internal, "failed to fetch roles", err)
		}
		if len(roles) != len(req.RoleIDs) {
			return nil, apperror.New(apperror.Validation, "one or more role ids do not exist")
		}
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
		Roles:    roles,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to create user", err)
	}

	s.audit(ctx, actorID, model.ActionCreateUser, user)
	return mapToUserResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
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
		return nil, 0, apperror.Wrap(apperror.Internal, "failed to fetch users", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actorID, id uint, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != "" && req.Username != user.Username {
		if taken, err := s.usernameTaken(ctx, req.Username, id); err != nil {
			return nil, err
		} else if taken {
			return nil, apperror.New(apperror.Conflict, "username already exists")
		}
		user.Username = req.Username
	}

	if req.Email != "" && req.Email != user.Email {
		if taken, err := s.emailTaken(ctx, req.Email, id); err != nil {
			return nil, err
		} else if taken {
			return nil, apperror.New(apperror.Conflict, "email already exists")
		}
		user.Email = req.Email
	}

	if req.Name != "" {
		user.Name = req.Name
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to update user", err)
	}

	s.audit(ctx, actorID, model.ActionUpdateUser, user)
	return mapToUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actorID, id uint) error {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return apperror.Wrap(apperror.Internal, "failed to delete user", err)
	}

	s.audit(ctx, actorID, model.ActionDeleteUser, user)
	return nil
}

func (s *userService) AssignRoles(ctx context.Context, actorID, id uint, req AssignRolesRequest) (*UserResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	var roles []model.Role
	if len(req.RoleIDs) > 0 {
		roles, err = s.roles.FindByIDs(ctx, req.RoleIDs)
		if err != nil {
			return nil, apperror.Wrap(apperror.Internal, "failed to fetch roles", err)
		}
		if len(roles) != len(req.RoleIDs) {
			return nil, apperror.New(apperror.Validation, "one or more role ids do not exist")
		}
	}

	if err := s.users.ReplaceRoles(ctx, user, roles); err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to assign roles", err)
	}

	user.Roles = roles
	s.audit(ctx, actorID, model.ActionAssignRoles, user)
	return mapToUserResponse(user), nil
}

// --- Helpers ---

func (s *userService) loadUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.GetByIDWithRoles(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "user not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load user", err)
	}
	return user, nil
}

func (s *userService) audit(ctx context.Context, actorID uint, action string, user *model.User) {
	_ = s.audits.Log(ctx, &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   user.Username,
		EntityName: user.Name,
	})
}

func mapToUserResponse(user *model.User) *UserResponse {
	roles := make([]RoleSummary, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, RoleSummary{ID: r.ID, Name: r.Name, Description: r.Description})
	}

	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Name:      user.Name,
		Roles:     roles,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
