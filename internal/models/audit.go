package models

import "time"

// Audit actions emitted by the allocation service.
const (
	AuditActionCreate = "allocation.create"
	AuditActionUpdate = "allocation.update"
	AuditActionDelete = "allocation.delete"
)

// AuditEvent records a single mutation for history. Events are append-only
// and never interpreted by the engine.
type AuditEvent struct {
	// ID is the unique identifier for the event (UUID format).
	ID string

	// OrganizationID is the tenant the event belongs to.
	OrganizationID string

	// ActorID is the user who performed the action.
	ActorID string

	// Action names what happened (e.g. "allocation.create").
	Action string

	// EntityType and EntityID identify the affected record.
	EntityType string
	EntityID   string

	// Metadata is opaque structured context about the change.
	Metadata map[string]any

	// CreatedAt is when the event was recorded.
	CreatedAt time.Time
}
