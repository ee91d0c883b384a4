package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the function a person fills on a project. The engine echoes roles
// back without attaching business meaning to specific values.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleDesigner  Role = "designer"
	RoleArchitect Role = "architect"
	RoleManager   Role = "manager"
	RoleQA        Role = "qa"
)

// Valid reports whether r is one of the known role tags.
func (r Role) Valid() bool {
	switch r {
	case RoleDeveloper, RoleDesigner, RoleArchitect, RoleManager, RoleQA:
		return true
	}
	return false
}

// Allocation assigns a user to a project for a percentage of their time over
// an inclusive date range.
type Allocation struct {
	// ID is the unique identifier for the allocation (UUID format).
	ID string

	// OrganizationID is the tenant this allocation belongs to. All reads and
	// writes are scoped to it.
	OrganizationID string

	// ProjectID references the project the person is allocated to.
	ProjectID string

	// UserID references the person being allocated.
	UserID string

	// Role is the person's role on the project.
	Role Role

	// Percent is the share of the person's time, in (0, 100].
	// Stored as a fixed-point decimal so sums across allocations are exact.
	Percent decimal.Decimal

	// StartDate and EndDate bound the allocation, inclusive on both ends.
	// Invariant: StartDate <= EndDate.
	StartDate Date
	EndDate   Date

	// Billable marks whether the allocated time is billable. Informational
	// only; no engine logic depends on it.
	Billable bool

	// Notes is opaque structured metadata. The engine stores and returns it
	// without inspecting it.
	Notes map[string]any

	// DeletedAt is the soft-delete marker. A non-nil value excludes the
	// record from conflict detection, capacity math and default listings;
	// the row is retained for history.
	DeletedAt *time.Time

	// CreatedAt and UpdatedAt are server-assigned timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deleted reports whether the allocation has been soft-deleted.
func (a *Allocation) Deleted() bool {
	return a.DeletedAt != nil
}

// hundred is the capacity ceiling every per-day percent sum is compared to.
var hundred = decimal.NewFromInt(100)

// ValidatePercent reports whether p is a legal allocation percentage,
// i.e. in the open-closed range (0, 100].
func ValidatePercent(p decimal.Decimal) bool {
	return p.IsPositive() && !p.GreaterThan(hundred)
}
