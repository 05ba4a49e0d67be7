package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/model"
	"backend/pkg/apperror"
)

func TestAuthorize(t *testing.T) {
	authority := &fakeAuthorityRepo{
		userRoles: map[uint][]string{
			1: {"Organizer"},
			2: {"Viewer"},
		},
		rolePerms: map[string][]string{
			"Organizer": {model.PermEventsRead, model.PermEventsWrite, model.PermEventsComplete},
			"Viewer":    {model.PermEventsRead},
		},
	}
	svc := NewPermissionService(authority)
	ctx := context.Background()

	allowed, err := svc.Authorize(ctx, 1, model.PermEventsComplete)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.Authorize(ctx, 2, model.PermEventsComplete)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthorizeUnknownPermissionIsDenyNotError(t *testing.T) {
	authority := &fakeAuthorityRepo{
		userRoles: map[uint][]string{1: {"Admin"}},
		rolePerms: map[string][]string{"Admin": {model.PermEventsRead}},
	}
	svc := NewPermissionService(authority)

	allowed, err := svc.Authorize(context.Background(), 1, "no.such.permission")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthorizeUnionAcrossRoles(t *testing.T) {
	authority := &fakeAuthorityRepo{
		userRoles: map[uint][]string{1: {"Viewer", "Organizer"}},
		rolePerms: map[string][]string{
			"Viewer":    {model.PermEventsRead},
			"Organizer": {model.PermEventsWrite},
		},
	}
	svc := NewPermissionService(authority)
	ctx := context.Background()

	// Any one role carrying the permission is enough
	for _, perm := range []string{model.PermEventsRead, model.PermEventsWrite} {
		allowed, err := svc.Authorize(ctx, 1, perm)
		require.NoError(t, err)
		assert.True(t, allowed, "permission %s should be granted via the role union", perm)
	}
}

func TestAuthorizeRevocationIsImmediate(t *testing.T) {
	authority := &fakeAuthorityRepo{
		userRoles: map[uint][]string{1: {"Organizer"}},
		rolePerms: map[string][]string{"Organizer": {model.PermEventsWrite}},
	}
	svc := NewPermissionService(authority)
	ctx := context.Background()

	allowed, err := svc.Authorize(ctx, 1, model.PermEventsWrite)
	require.NoError(t, err)
	require.True(t, allowed)

	// Revoke the permission from the role; the next check must flip without
	// any re-login or invalidation step.
	authority.rolePerms["Organizer"] = nil

	allowed, err = svc.Authorize(ctx, 1, model.PermEventsWrite)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthorizeStoreError(t *testing.T) {
	svc := NewPermissionService(&fakeAuthorityRepo{err: errors.New("db down")})

	_, err := svc.Authorize(context.Background(), 1, model.PermEventsRead)
	require.Error(t, err)
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
}

func TestPermissionsFor(t *testing.T) {
	authority := &fakeAuthorityRepo{
		userRoles: map[uint][]string{
			1: {"Viewer", "Organizer"},
			2: {},
		},
		rolePerms: map[string][]string{
			"Viewer":    {model.PermEventsRead},
			"Organizer": {model.PermEventsRead, model.PermEventsWrite},
		},
	}
	svc := NewPermissionService(authority)
	ctx := context.Background()

	names, err := svc.PermissionsFor(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.PermEventsRead, model.PermEventsWrite}, names, "duplicates across roles collapse")

	// A principal with no roles gets an empty list, not nil
	names, err = svc.PermissionsFor(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}
