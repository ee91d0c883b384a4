package models

import "time"

// Project is something people get allocated to. The engine only needs its
// identity and name; scheduling, budgets and the rest live elsewhere.
type Project struct {
	// ID is the unique identifier for the project (UUID format).
	ID string

	// OrganizationID is the tenant the project belongs to.
	OrganizationID string

	// Name is the display name of the project.
	Name string

	// CreatedAt is when the project was created.
	CreatedAt time.Time
}
