package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"backend/internal/model"
	"backend/internal/repository"
)

// nopTxManager runs the callback without a real transaction
type nopTxManager struct{}

func (nopTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// fakeEventRepo is an in-memory EventRepository
type fakeEventRepo struct {
	events map[uint]*model.Event
	nextID uint
	err    error // when set, every call fails with it
}

func newFakeEventRepo(events ...*model.Event) *fakeEventRepo {
	repo := &fakeEventRepo{events: make(map[uint]*model.Event), nextID: 1}
	for _, e := range events {
		if e.ID == 0 {
			e.ID = repo.nextID
		}
		if e.ID >= repo.nextID {
			repo.nextID = e.ID + 1
		}
		repo.events[e.ID] = e
	}
	return repo
}

func (r *fakeEventRepo) Create(ctx context.Context, event *model.Event) error {
	if r.err != nil {
		return r.err
	}
	event.ID = r.nextID
	r.nextID++
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id uint) (*model.Event, error) {
	if r.err != nil {
		return nil, r.err
	}
	event, ok := r.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) List(ctx context.Context, page, limit int, status string) ([]model.Event, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	var out []model.Event
	for _, e := range r.events {
		if status == "" || e.Status == status {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *model.Event) error {
	if r.err != nil {
		return r.err
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id uint) error {
	if r.err != nil {
		return r.err
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) Stats(ctx context.Context) (*repository.EventStats, error) {
	if r.err != nil {
		return nil, r.err
	}
	stats := &repository.EventStats{}
	for _, e := range r.events {
		stats.Total++
		switch e.Status {
		case model.EventStatusPending:
			stats.Pending++
		case model.EventStatusCompleted:
			stats.Completed++
		case model.EventStatusRejected:
			stats.Rejected++
		}
		if e.NeedsFollowUp {
			stats.NeedsFollowUp++
		}
		stats.TotalBudget = stats.TotalBudget.Add(e.Budget)
	}
	return stats, nil
}

// fakeAuditRepo records audit entries in memory
type fakeAuditRepo struct {
	entries []*model.AuditLog
}

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	out := make([]model.AuditLog, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// fakeAuthorityRepo resolves permissions from an in-memory role graph
type fakeAuthorityRepo struct {
	// userRoles maps userID to role names; rolePerms maps role name to
	// permission names. Mutating either map mid-test models a live
	// grant/revocation.
	userRoles map[uint][]string
	rolePerms map[string][]string
	err       error
}

func (r *fakeAuthorityRepo) HasPermission(ctx context.Context, userID uint, permissionName string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	for _, role := range r.userRoles[userID] {
		for _, p := range r.rolePerms[role] {
			if p == permissionName {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakeAuthorityRepo) PermissionNamesForUser(ctx context.Context, userID uint) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	seen := make(map[string]bool)
	var names []string
	for _, role := range r.userRoles[userID] {
		for _, p := range r.rolePerms[role] {
			if !seen[p] {
				seen[p] = true
				names = append(names, p)
			}
		}
	}
	return names, nil
}

func (r *fakeAuthorityRepo) RolesForUser(ctx context.Context, userID uint) ([]model.Role, error) {
	if r.err != nil {
		return nil, r.err
	}
	var roles []model.Role
	for _, name := range r.userRoles[userID] {
		roles = append(roles, model.Role{Name: name})
	}
	return roles, nil
}

// fakeRoleRepo is an in-memory RoleRepository
type fakeRoleRepo struct {
	roles     map[uint]*model.Role
	perms     map[uint]*model.Permission
	rolePerms map[uint][]uint // role id to permission ids
	nextID    uint
}

func newFakeRoleRepo(roles ...*model.Role) *fakeRoleRepo {
	repo := &fakeRoleRepo{
		roles:     make(map[uint]*model.Role),
		perms:     make(map[uint]*model.Permission),
		rolePerms: make(map[uint][]uint),
		nextID:    1,
	}
	for _, r := range roles {
		if r.ID == 0 {
			r.ID = repo.nextID
		}
		if r.ID >= repo.nextID {
			repo.nextID = r.ID + 1
		}
		repo.roles[r.ID] = r
	}
	return repo
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.ID = r.nextID
	r.nextID++
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRoleRepo) Update(ctx context.Context, role *model.Role) error {
	if _, ok := r.roles[role.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRoleRepo) Delete(ctx context.Context, id uint) error {
	delete(r.roles, id)
	return nil
}

func (r *fakeRoleRepo) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *fakeRoleRepo) FindByIDWithPermissions(ctx context.Context, id uint) (*model.Role, error) {
	role, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role.Permissions = nil
	for _, pid := range r.rolePerms[id] {
		if p, ok := r.perms[pid]; ok {
			role.Permissions = append(role.Permissions, *p)
		}
	}
	return role, nil
}

func (r *fakeRoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoleRepo) FindByIDs(ctx context.Context, ids []uint) ([]model.Role, error) {
	var out []model.Role
	for _, id := range ids {
		if role, ok := r.roles[id]; ok {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) ListAll(ctx context.Context) ([]model.Role, error) {
	var out []model.Role
	for id := range r.roles {
		role, _ := r.FindByIDWithPermissions(ctx, id)
		out = append(out, *role)
	}
	return out, nil
}

func (r *fakeRoleRepo) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var out []model.Permission
	for _, p := range r.perms {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRoleRepo) ReplacePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error {
	if _, ok := r.roles[roleID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.rolePerms[roleID] = append([]uint(nil), permissionIDs...)
	return nil
}

func (r *fakeRoleRepo) FindOrCreatePermission(ctx context.Context, perm *model.Permission) error {
	for _, p := range r.perms {
		if p.Name == perm.Name {
			*perm = *p
			return nil
		}
	}
	perm.ID = r.nextID
	r.nextID++
	copied := *perm
	r.perms[perm.ID] = &copied
	return nil
}

func (r *fakeRoleRepo) ClearAssociations(ctx context.Context, role *model.Role) error {
	delete(r.rolePerms, role.ID)
	return nil
}

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	users map[uint]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint]*model.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == 0 {
		user.ID = uint(len(r.users) + 1)
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByIDWithRoles(ctx context.Context, id uint) (*model.User, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) ReplaceRoles(ctx context.Context, user *model.User, roles []model.Role) error {
	stored, ok := r.users[user.ID]
	if !ok {
		return errors.New("user not found")
	}
	stored.Roles = roles
	return nil
}
