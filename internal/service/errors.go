package service

import (
	"fmt"

	"github.com/planhub/staffing/internal/calculator"
)

// The service reports four terminal, non-retriable error kinds plus
// StorageError for collaborator I/O failures. Transport layers map them to
// statuses with errors.As; the engine never retries on its own.

// NotFoundError reports a missing or soft-deleted record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// PermissionDeniedError reports a failed capability check.
type PermissionDeniedError struct {
	Capability Capability
	Reason     string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("permission denied: %s", e.Capability)
	}
	return fmt.Sprintf("permission denied: %s (%s)", e.Capability, e.Reason)
}

// ValidationError reports an input that violates a record invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports a write that would overcommit a user. It carries
// the conflict descriptors so callers can show what collided.
type ConflictError struct {
	Conflicts []calculator.Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "allocation conflict"
	}
	c := e.Conflicts[0]
	return fmt.Sprintf("allocation conflict: total %s%% across %d overlapping allocations",
		c.TotalAllocation, len(c.OverlappingIDs))
}

// StorageError wraps an unexpected persistence failure. The engine does not
// interpret or retry it; the owning transactional boundary decides.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
