package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "staffing-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testAllocation(orgID, projectID, userID string, percent string, start, end models.Date) *models.Allocation {
	return &models.Allocation{
		OrganizationID: orgID,
		ProjectID:      projectID,
		UserID:         userID,
		Role:           models.RoleDeveloper,
		Percent:        decimal.RequireFromString(percent),
		StartDate:      start,
		EndDate:        end,
	}
}

func TestSQLiteStoreAllocations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	jan1 := models.NewDate(2026, time.January, 1)
	jan31 := models.NewDate(2026, time.January, 31)

	t.Run("Insert generates ID and timestamps", func(t *testing.T) {
		a := testAllocation("org1", "p1", "u1", "62.5", jan1, jan31)
		a.Notes = map[string]any{"reason": "ramp-up"}

		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if a.ID == "" {
			t.Error("Expected allocation ID to be generated")
		}
		if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
			t.Error("Expected timestamps to be set")
		}
	})

	t.Run("FindByID round-trips every field", func(t *testing.T) {
		a := testAllocation("org1", "p1", "u2", "33.33", jan1, jan31)
		a.Billable = true
		a.Notes = map[string]any{"source": "import", "batch": float64(7)}
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		got, err := store.FindByID(ctx, "org1", a.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !got.Percent.Equal(a.Percent) {
			t.Errorf("Percent = %s, want %s", got.Percent, a.Percent)
		}
		if !got.StartDate.Equal(jan1) || !got.EndDate.Equal(jan31) {
			t.Errorf("Dates = %s..%s, want %s..%s", got.StartDate, got.EndDate, jan1, jan31)
		}
		if !got.Billable {
			t.Error("Billable flag lost")
		}
		if got.Notes["source"] != "import" || got.Notes["batch"] != float64(7) {
			t.Errorf("Notes = %v, want original metadata", got.Notes)
		}
		if got.Role != models.RoleDeveloper {
			t.Errorf("Role = %s, want developer", got.Role)
		}
	})

	t.Run("FindByID is organization scoped", func(t *testing.T) {
		a := testAllocation("org1", "p1", "u3", "10", jan1, jan31)
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if _, err := store.FindByID(ctx, "org2", a.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("cross-org read: got %v, want ErrNotFound", err)
		}
	})

	t.Run("Update refreshes mutable fields", func(t *testing.T) {
		a := testAllocation("org1", "p1", "u4", "40", jan1, jan31)
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		a.Percent = decimal.RequireFromString("55")
		a.Role = models.RoleArchitect
		if err := store.Update(ctx, a); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		got, err := store.FindByID(ctx, "org1", a.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !got.Percent.Equal(decimal.RequireFromString("55")) {
			t.Errorf("Percent = %s, want 55", got.Percent)
		}
		if got.Role != models.RoleArchitect {
			t.Errorf("Role = %s, want architect", got.Role)
		}
	})

	t.Run("SoftDelete hides the record from every read", func(t *testing.T) {
		a := testAllocation("org1", "p1", "u5", "20", jan1, jan31)
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if err := store.SoftDeleteByID(ctx, "org1", a.ID, time.Now()); err != nil {
			t.Fatalf("SoftDeleteByID failed: %v", err)
		}

		if _, err := store.FindByID(ctx, "org1", a.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("FindByID after delete: got %v, want ErrNotFound", err)
		}
		byUser, err := store.FindNonDeletedByUser(ctx, "org1", "u5")
		if err != nil {
			t.Fatalf("FindNonDeletedByUser failed: %v", err)
		}
		if len(byUser) != 0 {
			t.Errorf("deleted allocation leaked into user listing: %v", byUser)
		}

		// Deleting again is not a silent no-op.
		if err := store.SoftDeleteByID(ctx, "org1", a.ID, time.Now()); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second delete: got %v, want ErrNotFound", err)
		}
		if err := store.Update(ctx, a); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("update after delete: got %v, want ErrNotFound", err)
		}
	})

	t.Run("FindNonDeletedByUser orders by creation", func(t *testing.T) {
		var ids []string
		for i := 0; i < 3; i++ {
			a := testAllocation("org3", "p1", "u1", "10", jan1, jan31)
			if err := store.Insert(ctx, a); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			ids = append(ids, a.ID)
		}

		got, err := store.FindNonDeletedByUser(ctx, "org3", "u1")
		if err != nil {
			t.Fatalf("FindNonDeletedByUser failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 allocations, got %d", len(got))
		}
	})
}

func TestSQLiteStorePagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	jan1 := models.NewDate(2026, time.January, 1)
	jan31 := models.NewDate(2026, time.January, 31)

	for i := 0; i < 5; i++ {
		a := testAllocation("org1", "p1", "u1", "10", jan1, jan31)
		if i%2 == 0 {
			a.Billable = true
		}
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	t.Run("pages of 2, 2, 1 with stable total", func(t *testing.T) {
		var seen []string
		for page := 1; page <= 3; page++ {
			allocs, total, err := store.Page(ctx, "org1", storage.AllocationFilter{}, page, 2)
			if err != nil {
				t.Fatalf("Page %d failed: %v", page, err)
			}
			if total != 5 {
				t.Errorf("page %d total = %d, want 5", page, total)
			}
			wantLen := 2
			if page == 3 {
				wantLen = 1
			}
			if len(allocs) != wantLen {
				t.Errorf("page %d length = %d, want %d", page, len(allocs), wantLen)
			}
			for _, a := range allocs {
				seen = append(seen, a.ID)
			}
		}

		unique := make(map[string]bool)
		for _, id := range seen {
			if unique[id] {
				t.Errorf("allocation %s appeared on two pages", id)
			}
			unique[id] = true
		}
	})

	t.Run("billable filter narrows results", func(t *testing.T) {
		billable := true
		allocs, total, err := store.Page(ctx, "org1", storage.AllocationFilter{Billable: &billable}, 1, 10)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		if total != 3 || len(allocs) != 3 {
			t.Errorf("billable filter: total=%d len=%d, want 3 and 3", total, len(allocs))
		}
	})

	t.Run("other organizations see nothing", func(t *testing.T) {
		_, total, err := store.Page(ctx, "org2", storage.AllocationFilter{}, 1, 10)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		if total != 0 {
			t.Errorf("org2 total = %d, want 0", total)
		}
	})
}

func TestSQLiteStoreProjectsAndUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("project existence and name", func(t *testing.T) {
		p := &models.Project{OrganizationID: "org1", Name: "Apollo"}
		if err := store.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}

		exists, err := store.ProjectExists(ctx, "org1", p.ID)
		if err != nil || !exists {
			t.Errorf("ProjectExists = %v, %v; want true, nil", exists, err)
		}
		exists, err = store.ProjectExists(ctx, "org2", p.ID)
		if err != nil || exists {
			t.Errorf("cross-org ProjectExists = %v, %v; want false, nil", exists, err)
		}

		name, err := store.ProjectName(ctx, "org1", p.ID)
		if err != nil || name != "Apollo" {
			t.Errorf("ProjectName = %q, %v; want Apollo, nil", name, err)
		}
		if _, err := store.ProjectName(ctx, "org1", "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing project: got %v, want ErrNotFound", err)
		}
	})

	t.Run("user round-trip", func(t *testing.T) {
		u := &models.User{
			OrganizationID: "org1",
			Email:          "ada@example.com",
			Name:           "Ada",
			OrgRole:        models.OrgRoleManager,
			PasswordHash:   "x",
		}
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		byEmail, err := store.GetUserByEmail(ctx, "ada@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail.ID != u.ID || byEmail.OrgRole != models.OrgRoleManager {
			t.Errorf("GetUserByEmail = %+v, want created user", byEmail)
		}

		if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing user: got %v, want ErrNotFound", err)
		}
	})

	t.Run("audit events persist", func(t *testing.T) {
		ev := &models.AuditEvent{
			OrganizationID: "org1",
			ActorID:        "u1",
			Action:         models.AuditActionCreate,
			EntityType:     "allocation",
			EntityID:       "a1",
			Metadata:       map[string]any{"percent": "50"},
		}
		if err := store.InsertAuditEvent(ctx, ev); err != nil {
			t.Fatalf("InsertAuditEvent failed: %v", err)
		}
		if ev.ID == "" || ev.CreatedAt.IsZero() {
			t.Error("Expected audit event ID and CreatedAt to be set")
		}
	})
}
