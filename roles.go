package userbase

import (
	"context"
	"strings"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an admin role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

var roleHierarchy = map[UserRole]int{
	RoleGuest:  0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleGuest,
		RoleMember,
		RoleAdmin,
		RoleOwner,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}

// RoleCapability grants the admin capability to identities whose role is at
// least minRole. The role is read from the identity on every call.
func RoleCapability(minRole UserRole) AdminCapability {
	return AdminCapabilityFunc(func(_ context.Context, identity Identity) (bool, error) {
		if identity == nil {
			return false, nil
		}
		role, ok := ParseRole(identity.Role())
		if !ok {
			return false, nil
		}
		return role.IsAtLeast(minRole), nil
	})
}

// DirectoryRoleCapability reloads the identity from directory before checking
// its role, so a demotion takes effect for sessions issued earlier.
func DirectoryRoleCapability(directory IdentityDirectory, minRole UserRole) AdminCapability {
	check := RoleCapability(minRole)
	return AdminCapabilityFunc(func(ctx context.Context, identity Identity) (bool, error) {
		if identity == nil {
			return false, nil
		}
		current, err := directory.GetIdentity(ctx, identity.ID())
		if err != nil {
			return false, err
		}
		return check.HasAdminCapability(ctx, current)
	})
}
