package userbase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-userbase"
)

func TestUserRoleIsAtLeast(t *testing.T) {
	assert.True(t, userbase.RoleOwner.IsAtLeast(userbase.RoleAdmin))
	assert.True(t, userbase.RoleAdmin.IsAtLeast(userbase.RoleAdmin))
	assert.False(t, userbase.RoleMember.IsAtLeast(userbase.RoleAdmin))
	assert.False(t, userbase.UserRole("root").IsAtLeast(userbase.RoleGuest))

	role, ok := userbase.ParseRole(" Admin ")
	assert.True(t, ok)
	assert.Equal(t, userbase.RoleAdmin, role)

	_, ok = userbase.ParseRole("root")
	assert.False(t, ok)
}

func TestRoleCapability(t *testing.T) {
	capability := userbase.RoleCapability(userbase.RoleAdmin)
	ctx := context.Background()

	allowed, err := capability.HasAdminCapability(ctx, adminIdentity)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = capability.HasAdminCapability(ctx, memberIdentity)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = capability.HasAdminCapability(ctx, nil)
	require.NoError(t, err)
	assert.False(t, allowed)

	var none userbase.AdminCapabilityFunc
	allowed, err = none.HasAdminCapability(ctx, adminIdentity)
	require.NoError(t, err)
	assert.False(t, allowed)
}
