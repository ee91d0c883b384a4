package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/storage"
)

// CreateProject persists a new project.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, organization_id, name, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.OrganizationID, p.Name, p.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// ProjectExists reports whether the project exists in the organization.
func (s *SQLiteStore) ProjectExists(ctx context.Context, orgID, projectID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM projects WHERE organization_id = ? AND id = ?",
		orgID, projectID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	return true, nil
}

// ProjectName returns the project's display name.
func (s *SQLiteStore) ProjectName(ctx context.Context, orgID, projectID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM projects WHERE organization_id = ? AND id = ?",
		orgID, projectID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get project name: %w", err)
	}
	return name, nil
}
