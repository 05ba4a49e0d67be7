package service

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permission_ids"`
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Group       string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id uint) (*RoleResponse, error)
	CreateRole(ctx context.Context, actorID uint, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actorID, id uint, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actorID, id uint) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, actorID, roleID uint, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	roles  repository.RoleRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
}

func NewRoleService(roles repository.RoleRepository, audits repository.AuditRepository, txm repository.TransactionManager) RoleService {
	return &roleService{roles: roles, audits: audits, txm: txm}
}

// roleNameTaken is the explicit uniqueness predicate for role names
func (s *roleService) roleNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	existing, err := s.roles.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.Wrap(apperror.Internal, "failed to check role name", err)
	}
	return existing.ID != excludeID, nil
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to fetch roles", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id uint) (*RoleResponse, error) {
	role, err := s.roles.FindByIDWithPermissions(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "role not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load role", err)
	}

	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, actorID uint, req CreateRoleRequest) (*RoleResponse, error) {
	if taken, err := s.roleNameTaken(ctx, req.Name, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperror.New(apperror.Conflict, "role name already exists")
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.Create(txCtx, &role); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to create role", err)
		}

		if len(req.PermissionIDs) > 0 {
			if err := s.roles.ReplacePermissions(txCtx, role.ID, req.PermissionIDs); err != nil {
				return apperror.Wrap(apperror.Internal, "failed to assign permissions", err)
			}
		}

		return s.audits.Log(txCtx, &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateRole,
			EntityID:   role.Name,
			EntityName: role.Description,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, role.ID)
}

func (s *roleService) UpdateRole(ctx context.Context, actorID, id uint, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "role not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load role", err)
	}

	if req.Name != role.Name {
		if taken, err := s.roleNameTaken(ctx, req.Name, id); err != nil {
			return nil, err
		} else if taken {
			return nil, apperror.New(apperror.Conflict, "role name already exists")
		}
	}

	role.Name = req.Name
	role.Description = req.Description

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to update role", err)
	}

	_ = s.audits.Log(ctx, &model.AuditLog{
		UserID:   &actorID,
		Action:   model.ActionUpdateRole,
		EntityID: role.Name,
	})

	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, actorID, id uint) error {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(apperror.NotFound, "role not found")
		}
		return apperror.Wrap(apperror.Internal, "failed to load role", err)
	}

	if role.IsSystem {
		return apperror.Newf(apperror.Validation, "cannot delete system role '%s'", role.Name)
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.ClearAssociations(txCtx, role); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to clear permissions", err)
		}
		if err := s.roles.Delete(txCtx, id); err != nil {
			return apperror.Wrap(apperror.Internal, "failed to delete role", err)
		}
		return s.audits.Log(txCtx, &model.AuditLog{
			UserID:   &actorID,
			Action:   model.ActionDeleteRole,
			EntityID: role.Name,
		})
	})
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roles.ListPermissions(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to fetch permissions", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, actorID, roleID uint, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.NotFound, "role not found")
		}
		return nil, apperror.Wrap(apperror.Internal, "failed to load role", err)
	}

	if err := s.roles.ReplacePermissions(ctx, roleID, req.PermissionIDs); err != nil {
		return nil, apperror.Wrap(apperror.Internal, "failed to update permissions", err)
	}

	_ = s.audits.Log(ctx, &model.AuditLog{
		UserID:   &actorID,
		Action:   model.ActionUpdateRole,
		EntityID: "role-permissions",
	})

	return s.GetRole(ctx, roleID)
}

// SeedDefaultRolesAndPermissions creates the default permissions and roles if not already present
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	defaultPermissions := []model.Permission{
		{Name: model.PermEventsRead, Description: "View events", Group: "events"},
		{Name: model.PermEventsWrite, Description: "Create events", Group: "events"},
		{Name: model.PermEventsComplete, Description: "Mark events complete", Group: "events"},
		{Name: model.PermEventsPostpone, Description: "Postpone events", Group: "events"},
		{Name: model.PermEventsFollowUp, Description: "Flag events for follow-up", Group: "events"},
		{Name: model.PermEventsReject, Description: "Reject events", Group: "events"},
		{Name: model.PermUsersRead, Description: "View users", Group: "users"},
		{Name: model.PermUsersWrite, Description: "Manage users", Group: "users"},
		{Name: model.PermUsersDelete, Description: "Delete users", Group: "users"},
		{Name: model.PermRolesManage, Description: "Manage roles and permissions", Group: "roles"},
		{Name: model.PermAuditRead, Description: "View audit history", Group: "audit"},
		{Name: model.PermStatsRead, Description: "View event statistics", Group: "stats"},
	}

	for i := range defaultPermissions {
		if err := s.roles.FindOrCreatePermission(ctx, &defaultPermissions[i]); err != nil {
			return apperror.Wrapf(apperror.Internal, err, "failed to seed permission '%s'", defaultPermissions[i].Name)
		}
	}

	permByName := make(map[string]model.Permission, len(defaultPermissions))
	for _, p := range defaultPermissions {
		permByName[p.Name] = p
	}

	roleDefinitions := []struct {
		Name        string
		Description string
		PermNames   []string
	}{
		{
			Name:        "Admin",
			Description: "Full control over events, users, roles and audit history",
			PermNames:   model.AllPermissionNames(),
		},
		{
			Name:        "Organizer",
			Description: "Creates and manages events end to end",
			PermNames: []string{
				model.PermEventsRead, model.PermEventsWrite, model.PermEventsComplete,
				model.PermEventsPostpone, model.PermEventsFollowUp, model.PermEventsReject,
				model.PermStatsRead,
			},
		},
		{
			Name:        "Viewer",
			Description: "Read-only access to events",
			PermNames:   []string{model.PermEventsRead, model.PermStatsRead},
		},
	}

	for _, def := range roleDefinitions {
		role, err := s.roles.FindByName(ctx, def.Name)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Wrapf(apperror.Internal, err, "failed to look up role '%s'", def.Name)
			}
			role = &model.Role{
				Name:        def.Name,
				Description: def.Description,
				IsSystem:    true,
			}
			if createErr := s.roles.Create(ctx, role); createErr != nil {
				return apperror.Wrapf(apperror.Internal, createErr, "failed to seed role '%s'", def.Name)
			}
		}

		permIDs := make([]uint, 0, len(def.PermNames))
		for _, name := range def.PermNames {
			if p, ok := permByName[name]; ok {
				permIDs = append(permIDs, p.ID)
			}
		}
		if err := s.roles.ReplacePermissions(ctx, role.ID, permIDs); err != nil {
			return apperror.Wrapf(apperror.Internal, err, "failed to assign permissions to role '%s'", def.Name)
		}
	}

	return nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Group:       p.Group,
	}
}
