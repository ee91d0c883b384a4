package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/storage"
)

// Capability names an allocation operation a caller may be granted.
type Capability string

const (
	CapAllocationsCreate  Capability = "allocations:create"
	CapAllocationsUpdate  Capability = "allocations:update"
	CapAllocationsDelete  Capability = "allocations:delete"
	CapAllocationsView    Capability = "allocations:view"
	CapAllocationsCleanup Capability = "allocations:cleanup"
)

// Decision is the outcome of a capability check.
type Decision struct {
	Allowed bool
	Reason  string
}

// PermissionChecker decides whether a user holds a capability within an
// organization. Implementations are injected at construction so tests can
// substitute doubles.
type PermissionChecker interface {
	HasCapability(ctx context.Context, orgID, userID string, c Capability) (Decision, error)
}

// roleGrants maps each organization role to the capabilities it holds.
var roleGrants = map[models.OrgRole]map[Capability]bool{
	models.OrgRoleAdmin: {
		CapAllocationsCreate:  true,
		CapAllocationsUpdate:  true,
		CapAllocationsDelete:  true,
		CapAllocationsView:    true,
		CapAllocationsCleanup: true,
	},
	models.OrgRoleManager: {
		CapAllocationsCreate: true,
		CapAllocationsUpdate: true,
		CapAllocationsDelete: true,
		CapAllocationsView:   true,
	},
	models.OrgRoleMember: {
		CapAllocationsView: true,
	},
}

// RoleChecker grants capabilities from the user's organization role.
type RoleChecker struct {
	users storage.UserStore
}

// NewRoleChecker creates a checker backed by the user store.
func NewRoleChecker(users storage.UserStore) *RoleChecker {
	return &RoleChecker{users: users}
}

// HasCapability looks up the user and answers from the role grant table.
// Unknown users and users from other organizations are denied, not errors.
func (c *RoleChecker) HasCapability(ctx context.Context, orgID, userID string, cap Capability) (Decision, error) {
	u, err := c.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Decision{Allowed: false, Reason: "unknown user"}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load user for permission check: %w", err)
	}
	if u.OrganizationID != orgID {
		return Decision{Allowed: false, Reason: "user belongs to another organization"}, nil
	}
	if !roleGrants[u.OrgRole][cap] {
		return Decision{Allowed: false, Reason: fmt.Sprintf("role %s lacks %s", u.OrgRole, cap)}, nil
	}
	return Decision{Allowed: true}, nil
}
