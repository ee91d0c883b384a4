package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/storage"
)

// allocColumns is the scan order shared by every allocation query.
const allocColumns = `id, organization_id, project_id, user_id, role,
	allocation_percent, start_date, end_date, is_billable, notes,
	deleted_at, created_at, updated_at`

// notDeleted is the soft-delete predicate. Every read path appends it, so a
// deleted row can never surface through this package.
const notDeleted = "deleted_at IS NULL"

// Insert persists a new allocation, assigning ID and timestamps.
func (s *SQLiteStore) Insert(ctx context.Context, a *models.Allocation) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Second)
	a.CreatedAt = now
	a.UpdatedAt = now

	notes, err := encodeNotes(a.Notes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO allocations (`+allocColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		a.ID, a.OrganizationID, a.ProjectID, a.UserID, string(a.Role),
		a.Percent.String(), a.StartDate.String(), a.EndDate.String(),
		boolToInt(a.Billable), notes, a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a non-deleted allocation.
func (s *SQLiteStore) Update(ctx context.Context, a *models.Allocation) error {
	a.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	notes, err := encodeNotes(a.Notes)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE allocations
		 SET role = ?, allocation_percent = ?, start_date = ?, end_date = ?,
		     is_billable = ?, notes = ?, updated_at = ?
		 WHERE organization_id = ? AND id = ? AND `+notDeleted,
		string(a.Role), a.Percent.String(), a.StartDate.String(), a.EndDate.String(),
		boolToInt(a.Billable), notes, a.UpdatedAt.Unix(),
		a.OrganizationID, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update allocation: %w", err)
	}
	return requireRow(res)
}

// SoftDeleteByID marks an allocation deleted, keeping the row for history.
func (s *SQLiteStore) SoftDeleteByID(ctx context.Context, orgID, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE allocations SET deleted_at = ?, updated_at = ?
		 WHERE organization_id = ? AND id = ? AND `+notDeleted,
		at.Unix(), at.Unix(), orgID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete allocation: %w", err)
	}
	return requireRow(res)
}

// FindByID returns a non-deleted allocation by ID.
func (s *SQLiteStore) FindByID(ctx context.Context, orgID, id string) (*models.Allocation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+allocColumns+` FROM allocations
		 WHERE organization_id = ? AND id = ? AND `+notDeleted,
		orgID, id,
	)
	a, err := scanAllocation(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return a, nil
}

// FindNonDeletedByUser returns every live allocation for a user, ordered by
// creation time.
func (s *SQLiteStore) FindNonDeletedByUser(ctx context.Context, orgID, userID string) ([]models.Allocation, error) {
	return s.queryAllocations(ctx,
		`SELECT `+allocColumns+` FROM allocations
		 WHERE organization_id = ? AND user_id = ? AND `+notDeleted+`
		 ORDER BY created_at, id`,
		orgID, userID,
	)
}

// FindNonDeletedByProject returns every live allocation for a project,
// ordered by creation time.
func (s *SQLiteStore) FindNonDeletedByProject(ctx context.Context, orgID, projectID string) ([]models.Allocation, error) {
	return s.queryAllocations(ctx,
		`SELECT `+allocColumns+` FROM allocations
		 WHERE organization_id = ? AND project_id = ? AND `+notDeleted+`
		 ORDER BY created_at, id`,
		orgID, projectID,
	)
}

// Page returns one page of live allocations matching the filter plus the
// total match count.
func (s *SQLiteStore) Page(ctx context.Context, orgID string, f storage.AllocationFilter, page, pageSize int) ([]models.Allocation, int, error) {
	where := []string{"organization_id = ?", notDeleted}
	args := []any{orgID}

	if f.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(f.Role))
	}
	if f.Billable != nil {
		where = append(where, "is_billable = ?")
		args = append(args, boolToInt(*f.Billable))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM allocations WHERE `+cond, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count allocations: %w", err)
	}

	pageArgs := append(args, pageSize, (page-1)*pageSize)
	allocs, err := s.queryAllocations(ctx,
		`SELECT `+allocColumns+` FROM allocations WHERE `+cond+`
		 ORDER BY created_at, id LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, 0, err
	}
	return allocs, total, nil
}

func (s *SQLiteStore) queryAllocations(ctx context.Context, query string, args ...any) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocs []models.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocs = append(allocs, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocs, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAllocation(row scanner) (*models.Allocation, error) {
	var (
		a          models.Allocation
		role       string
		percent    string
		start, end string
		billable   int
		notes      sql.NullString
		deletedAt  sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&a.ID, &a.OrganizationID, &a.ProjectID, &a.UserID, &role,
		&percent, &start, &end, &billable, &notes,
		&deletedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Role = models.Role(role)
	a.Percent, err = decimal.NewFromString(percent)
	if err != nil {
		return nil, fmt.Errorf("corrupt percent %q: %w", percent, err)
	}
	if a.StartDate, err = models.ParseDate(start); err != nil {
		return nil, err
	}
	if a.EndDate, err = models.ParseDate(end); err != nil {
		return nil, err
	}
	a.Billable = billable != 0
	if notes.Valid && notes.String != "" {
		if err := json.Unmarshal([]byte(notes.String), &a.Notes); err != nil {
			return nil, fmt.Errorf("corrupt notes: %w", err)
		}
	}
	if deletedAt.Valid {
		t := time.Unix(deletedAt.Int64, 0).UTC()
		a.DeletedAt = &t
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}

func encodeNotes(notes map[string]any) (sql.NullString, error) {
	if notes == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode notes: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
