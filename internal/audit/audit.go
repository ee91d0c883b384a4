// Package audit records mutation events for history.
package audit

import (
	"context"
	"log/slog"

	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/storage"
)

// StoreRecorder persists audit events through an AuditStore and mirrors them
// to the structured log so operators can follow mutations without querying
// the database.
type StoreRecorder struct {
	store storage.AuditStore
}

// NewStoreRecorder creates a recorder backed by the given store.
func NewStoreRecorder(store storage.AuditStore) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// Record persists the event. A returned error means the event was not
// persisted; the caller decides whether that blocks the operation (the
// allocation service logs and continues, since the domain mutation has
// already committed).
func (r *StoreRecorder) Record(ctx context.Context, ev models.AuditEvent) error {
	if err := r.store.InsertAuditEvent(ctx, &ev); err != nil {
		return err
	}
	slog.Debug("audit event recorded",
		"action", ev.Action,
		"entity_type", ev.EntityType,
		"entity_id", ev.EntityID,
		"actor_id", ev.ActorID,
		"organization_id", ev.OrganizationID,
	)
	return nil
}
