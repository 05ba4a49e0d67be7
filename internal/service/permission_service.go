package service

import (
	"context"

	"backend/internal/repository"
	"backend/pkg/apperror"
)

// PermissionService answers allow/deny for a principal and a named capability
// by walking user → roles → permissions at decision time. It is the single
// authorization entry point, used both as the request gate in middleware and
// as the self-service probe endpoint. Decisions are never cached and never
// stored in the session artifact.
type PermissionService interface {
	// Authorize reports whether the principal holds any role carrying the
	// named permission. Unknown permission names are a plain deny, not an
	// error; the graph is a union across roles, not an intersection.
	Authorize(ctx context.Context, userID uint, permissionName string) (bool, error)
	// PermissionsFor lists every permission name reachable from the
	// principal's roles.
	PermissionsFor(ctx context.Context, userID uint) ([]string, error)
}

type permissionService struct {
	authority repository.AuthorityRepository
}

func NewPermissionService(authority repository.AuthorityRepository) PermissionService {
	return &permissionService{authority: authority}
}

func (s *permissionService) Authorize(ctx context.Context, userID uint, permissionName string) (bool, error) {
	allowed, err := s.authority.HasPermission(ctx, userID, permissionName)
	if err != nil {
		return false, apperror.Wrap(apperror.Internal, "failed to resolve permissions", err)
	}
	return allowed, nil
}

func (s *permissionService) PermissionsFor(ctx context.Context, userID uint) ([]string, error) {
	names, err := s.authority.PermissionNamesForUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to resolve permissions", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
