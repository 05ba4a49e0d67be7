package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend/internal/auth"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RoleSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// IdentityResponse is returned by login and /me
type IdentityResponse struct {
	PrincipalID uint          `json:"principal_id"`
	Username    string        `json:"username"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Roles       []string      `json:"roles"`
	RoleDetails []RoleSummary `json:"role_details"`
	Permissions []string      `json:"permissions,omitempty"`
}

// TokenStatusResponse exposes session introspection without mutating the session
type TokenStatusResponse struct {
	IsAuthenticated      bool   `json:"is_authenticated"`
	Username             string `json:"username,omitempty"`
	IssuedAt             string `json:"issued_at,omitempty"`
	ExpiresAt            string `json:"expires_at,omitempty"`
	TimeRemainingSeconds int64  `json:"time_remaining_seconds"`
	IsExpiringSoon       bool   `json:"is_expiring_soon"`
}

type TestPermissionResponse struct {
	HasAccess   bool   `json:"has_access"`
	Permission  string `json:"permission"`
	Message     string `json:"message"`
	PrincipalID uint   `json:"principal_id"`
	Username    string `json:"username"`
}

// --- Interface ---

// AuthService issues, introspects and refreshes session artifacts, and exposes
// the self-service permission probe.
type AuthService interface {
	// Login verifies credentials and issues a fresh session artifact carrying
	// the principal's current role names.
	Login(ctx context.Context, req LoginRequest) (*IdentityResponse, string, error)
	// Refresh re-issues the artifact with a fresh expiry. Roles are re-read
	// from the database so role changes propagate on the next refresh even
	// though claims are static between refreshes. Refreshing an absent or
	// expired session is rejected.
	Refresh(ctx context.Context, tokenString string) (*TokenStatusResponse, string, error)
	// Me resolves the authenticated principal's identity, including the live
	// permission union for display purposes.
	Me(ctx context.Context, userID uint) (*IdentityResponse, error)
	// TokenStatus introspects the artifact; invalid tokens report
	// is_authenticated=false rather than an error.
	TokenStatus(tokenString string) TokenStatusResponse
	// TestPermission lets an authenticated caller probe any named capability
	// without attempting the protected action.
	TestPermission(ctx context.Context, userID uint, username, permissionName string) (*TestPermissionResponse, error)
}

type authService struct {
	users       repository.UserRepository
	permissions PermissionService
	audits      repository.AuditRepository
	tokens      *auth.TokenManager
}

func NewAuthService(users repository.UserRepository, permissions PermissionService, audits repository.AuditRepository, tokens *auth.TokenManager) AuthService {
	return &authService{users: users, permissions: permissions, audits: audits, tokens: tokens}
}

// --- Implementation ---

func (s *authService) Login(ctx context.Context, req LoginRequest) (*IdentityResponse, string, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperror.New(apperror.Unauthenticated, "invalid credentials")
		}
		return nil, "", apperror.Wrap(apperror.Internal, "failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, "", apperror.New(apperror.Unauthenticated, "invalid credentials")
	}

	token, _, err := s.tokens.Issue(user.ID, user.Username, user.Name, user.RoleNames())
	if err != nil {
		return nil, "", err
	}

	details, _ := json.Marshal(map[string]interface{}{"roles": user.RoleNames()})
	_ = s.audits.Log(ctx, &model.AuditLog{
		UserID:     &user.ID,
		Action:     model.ActionLogin,
		EntityID:   user.Username,
		EntityName: user.Name,
		Details:    string(details),
	})

	return toIdentityResponse(user, nil), token, nil
}

func (s *authService) Refresh(ctx context.Context, tokenString string) (*TokenStatusResponse, string, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, "", apperror.New(apperror.Unauthenticated, "session expired, must log in again")
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, "", err
	}

	// Re-read current roles so a role change propagates with the new artifact.
	user, err := s.users.GetByIDWithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperror.New(apperror.Unauthenticated, "session expired, must log in again")
		}
		return nil, "", apperror.Wrap(apperror.Internal, "failed to load user", err)
	}

	token, _, err := s.tokens.Issue(user.ID, user.Username, user.Name, user.RoleNames())
	if err != nil {
		return nil, "", err
	}

	details, _ := json.Marshal(map[string]interface{}{"roles": user.RoleNames()})
	_ = s.audits.Log(ctx, &model.AuditLog{
		UserID:     &user.ID,
		Action:     model.ActionRefreshToken,
		EntityID:   user.Username,
		EntityName: user.Name,
		Details:    string(details),
	})

	status := s.tokens.Status(token)
	resp := toTokenStatusResponse(status)
	return &resp, token, nil
}

func (s *authService) Me(ctx context.Context, userID uint) (*IdentityResponse, error) {
	user, err := s.users.GetByIDWithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.Unauthenticated, "not authenticated")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load user", err)
	}

	perms, err := s.permissions.PermissionsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return toIdentityResponse(user, perms), nil
}

func (s *authService) TokenStatus(tokenString string) TokenStatusResponse {
	return toTokenStatusResponse(s.tokens.Status(tokenString))
}

func (s *authService) TestPermission(ctx context.Context, userID uint, username, permissionName string) (*TestPermissionResponse, error) {
	allowed, err := s.permissions.Authorize(ctx, userID, permissionName)
	if err != nil {
		return nil, err
	}

	message := "access granted"
	if !allowed {
		message = "access denied"
	}

	return &TestPermissionResponse{
		HasAccess:   allowed,
		Permission:  permissionName,
		Message:     message,
		PrincipalID: userID,
		Username:    username,
	}, nil
}

// --- Helpers ---

func toIdentityResponse(user *model.User, perms []string) *IdentityResponse {
	details := make([]RoleSummary, 0, len(user.Roles))
	for _, r := range user.Roles {
		details = append(details, RoleSummary{ID: r.ID, Name: r.Name, Description: r.Description})
	}

	return &IdentityResponse{
		PrincipalID: user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Name:        user.Name,
		Roles:       user.RoleNames(),
		RoleDetails: details,
		Permissions: perms,
	}
}

func toTokenStatusResponse(status auth.Status) TokenStatusResponse {
	resp := TokenStatusResponse{
		IsAuthenticated: status.IsAuthenticated,
		Username:        status.Username,
		IsExpiringSoon:  status.IsExpiringSoon,
	}
	if status.IssuedAt != nil {
		resp.IssuedAt = status.IssuedAt.Format(time.RFC3339)
	}
	if status.ExpiresAt != nil {
		resp.ExpiresAt = status.ExpiresAt.Format(time.RFC3339)
	}
	resp.TimeRemainingSeconds = int64(status.TimeRemaining / time.Second)
	return resp
}
