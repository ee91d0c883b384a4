// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/planhub/staffing/internal/models"
)

// ErrNotFound is returned when a record does not exist or has been
// soft-deleted. Callers that need to distinguish missing from deleted
// cannot: both are invisible through this interface.
var ErrNotFound = errors.New("record not found")

// AllocationFilter narrows a paged allocation listing. Zero-valued fields
// are ignored.
type AllocationFilter struct {
	ProjectID string
	UserID    string
	Role      models.Role
	Billable  *bool
}

// AllocationStore persists allocations. Every method is scoped to an
// organization; implementations must never let records cross tenants.
//
// Soft deletion is enforced centrally here: read methods only ever return
// records whose deleted_at is unset, so a missed filter at a call site can
// not leak deleted rows into conflict or capacity math.
type AllocationStore interface {
	// Insert persists a new allocation, assigning ID, CreatedAt and
	// UpdatedAt on the record.
	Insert(ctx context.Context, a *models.Allocation) error

	// Update overwrites the mutable fields of an existing non-deleted
	// allocation, refreshing UpdatedAt. Returns ErrNotFound if the record
	// is absent or soft-deleted.
	Update(ctx context.Context, a *models.Allocation) error

	// SoftDeleteByID marks the allocation deleted at the given time.
	// Returns ErrNotFound if the record is absent or already deleted.
	SoftDeleteByID(ctx context.Context, orgID, id string, at time.Time) error

	// FindByID returns a non-deleted allocation, or ErrNotFound.
	FindByID(ctx context.Context, orgID, id string) (*models.Allocation, error)

	// FindNonDeletedByUser returns every live allocation for the user,
	// ordered by creation time.
	FindNonDeletedByUser(ctx context.Context, orgID, userID string) ([]models.Allocation, error)

	// FindNonDeletedByProject returns every live allocation for the
	// project, ordered by creation time.
	FindNonDeletedByProject(ctx context.Context, orgID, projectID string) ([]models.Allocation, error)

	// Page returns one page of live allocations matching the filter plus
	// the total match count. Ordering is by creation time (stable), so
	// pagination is deterministic. Pages are 1-based.
	Page(ctx context.Context, orgID string, f AllocationFilter, page, pageSize int) ([]models.Allocation, int, error)
}

// ProjectLookup answers the two questions the allocation service has about
// projects.
type ProjectLookup interface {
	// ProjectExists reports whether a project exists in the organization.
	ProjectExists(ctx context.Context, orgID, projectID string) (bool, error)

	// ProjectName returns the project's display name, or ErrNotFound.
	ProjectName(ctx context.Context, orgID, projectID string) (string, error)
}

// ProjectStore persists projects.
type ProjectStore interface {
	ProjectLookup

	// CreateProject persists a new project, assigning ID and CreatedAt.
	CreateProject(ctx context.Context, p *models.Project) error
}

// UserStore persists users for authentication and permission checks.
type UserStore interface {
	// CreateUser persists a new user, assigning ID and CreatedAt.
	CreateUser(ctx context.Context, u *models.User) error

	// GetUserByEmail returns a user by email, or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns a user by ID, or ErrNotFound.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuditStore persists audit events, append-only.
type AuditStore interface {
	// InsertAuditEvent persists an event, assigning ID and CreatedAt.
	InsertAuditEvent(ctx context.Context, ev *models.AuditEvent) error
}

// Store is the full persistence surface the server wires together. A single
// backend (SQLite today) implements all of it; the service layer depends on
// the narrow interfaces above instead.
type Store interface {
	AllocationStore
	ProjectStore
	UserStore
	AuditStore

	// Close releases any resources held by the store.
	Close() error
}
