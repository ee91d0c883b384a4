package models

import "time"

// OrgRole is a user's role within their organization. It drives the
// capability checks in the service layer, not project staffing (see Role
// for that).
type OrgRole string

const (
	OrgRoleAdmin   OrgRole = "admin"
	OrgRoleManager OrgRole = "manager"
	OrgRoleMember  OrgRole = "member"
)

// User represents a registered member of an organization.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// OrganizationID is the tenant the user belongs to.
	OrganizationID string

	// Email is the user's email address (unique), used for login.
	Email string

	// Name is the display name of the user.
	Name string

	// OrgRole determines which allocation capabilities the user holds.
	OrgRole OrgRole

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is when the user account was created.
	CreatedAt time.Time
}
