package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planhub/staffing/internal/models"
)

// InsertAuditEvent persists an audit event. Events are append-only; there is
// no read path in this package because history is consumed out of band.
func (s *SQLiteStore) InsertAuditEvent(ctx context.Context, ev *models.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.CreatedAt = time.Now().UTC().Truncate(time.Second)

	var metadata any
	if ev.Metadata != nil {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, organization_id, actor_id, action, entity_type, entity_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.OrganizationID, ev.ActorID, ev.Action, ev.EntityType, ev.EntityID, metadata, ev.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}
