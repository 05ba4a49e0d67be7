package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// AuthorityRepository walks the user → role → permission graph. Results are
// intentionally uncached: revoking a permission from a role must take effect
// on the very next authorization check without forcing a re-login.
type AuthorityRepository interface {
	HasPermission(ctx context.Context, userID uint, permissionName string) (bool, error)
	PermissionNamesForUser(ctx context.Context, userID uint) ([]string, error)
	RolesForUser(ctx context.Context, userID uint) ([]model.Role, error)
}

type authorityRepository struct {
	db *gorm.DB
}

func NewAuthorityRepository(db *gorm.DB) AuthorityRepository {
	return &authorityRepository{db: db}
}

// HasPermission tests membership of the named permission in the union of
// permissions across every role the user holds. An unknown permission name
// simply yields false, never an error.
func (r *authorityRepository) HasPermission(ctx context.Context, userID uint, permissionName string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Raw(`
		SELECT COUNT(1) FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		INNER JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = ? AND p.name = ?
	`, userID, permissionName).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PermissionNamesForUser returns the union of permission names reachable from
// the user's roles
func (r *authorityRepository) PermissionNamesForUser(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT DISTINCT p.name FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		INNER JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = ?
		ORDER BY p.name
	`, userID).Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *authorityRepository) RolesForUser(ctx context.Context, userID uint) ([]model.Role, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Roles").First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return user.Roles, nil
}
