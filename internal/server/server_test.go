package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planhub/staffing/internal/audit"
	"github.com/planhub/staffing/internal/auth"
	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/service"
	"github.com/planhub/staffing/internal/storage/sqlite"
)

type testEnv struct {
	router    *gin.Engine
	token     string
	orgID     string
	adminID   string
	projectID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	orgID := "org-1"

	authenticator := auth.NewPasswordAuthenticator(store)
	admin, err := authenticator.Register(ctx, orgID, "admin@example.com", "Admin", models.OrgRoleAdmin, "correct horse")
	if err != nil {
		t.Fatalf("failed to register admin: %v", err)
	}

	project := &models.Project{OrganizationID: orgID, Name: "Apollo"}
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(admin)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	allocations := service.NewAllocationService(
		store,
		store,
		service.NewRoleChecker(store),
		audit.NewStoreRecorder(store),
	)

	return &testEnv{
		router:    New(allocations, authenticator, jwtManager).Router(),
		token:     token,
		orgID:     orgID,
		adminID:   admin.ID,
		projectID: project.ID,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func allocationBody(projectID, userID string, percent, start, end string) map[string]any {
	return map[string]any{
		"projectId":         projectID,
		"userId":            userID,
		"role":              "developer",
		"allocationPercent": percent,
		"startDate":         start,
		"endDate":           end,
		"isBillable":        true,
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{
			name:       "valid credentials",
			email:      "admin@example.com",
			password:   "correct horse",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			email:      "admin@example.com",
			password:   "battery staple",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown email",
			email:      "nobody@example.com",
			password:   "correct horse",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				body := decodeBody(t, w)
				if body["token"] == "" || body["token"] == nil {
					t.Error("expected a token in the response")
				}
			}
		})
	}
}

func TestRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	w := env.do(t, http.MethodGet, "/api/v1/allocations", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAllocationLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/allocations",
		allocationBody(env.projectID, "user-bob", "60", "2026-01-01", "2026-03-31"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected an allocation id")
	}
	if created["allocationPercent"] != "60" {
		t.Errorf("expected percent 60, got %v", created["allocationPercent"])
	}
	if created["organizationId"] != env.orgID {
		t.Errorf("expected organization %q, got %v", env.orgID, created["organizationId"])
	}

	w = env.do(t, http.MethodGet, "/api/v1/allocations/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPatch, "/api/v1/allocations/"+id, map[string]any{
		"allocationPercent": "80",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decodeBody(t, w)
	if updated["allocationPercent"] != "80" {
		t.Errorf("expected percent 80 after update, got %v", updated["allocationPercent"])
	}

	w = env.do(t, http.MethodDelete, "/api/v1/allocations/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/allocations/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestCreateConflictReturns409(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/allocations",
		allocationBody(env.projectID, "user-bob", "60", "2026-01-01", "2026-03-31"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/allocations",
		allocationBody(env.projectID, "user-bob", "50", "2026-02-01", "2026-04-30"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	conflicts, ok := body["conflicts"].([]any)
	if !ok || len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", body["conflicts"])
	}
	conflict := conflicts[0].(map[string]any)
	if conflict["conflictType"] != "exceeds_100_percent" {
		t.Errorf("expected conflict type exceeds_100_percent, got %v", conflict["conflictType"])
	}
	if conflict["totalAllocation"] != "110" {
		t.Errorf("expected total allocation 110, got %v", conflict["totalAllocation"])
	}
}

func TestCreateValidationReturns400(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/allocations",
		allocationBody(env.projectID, "user-bob", "150", "2026-01-01", "2026-03-31"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListAllocations(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		user := fmt.Sprintf("user-%d", i)
		w := env.do(t, http.MethodPost, "/api/v1/allocations",
			allocationBody(env.projectID, user, "50", "2026-01-01", "2026-03-31"))
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/api/v1/allocations?page=1&pageSize=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["total"] != float64(3) {
		t.Errorf("expected total 3, got %v", body["total"])
	}
	items, _ := body["allocations"].([]any)
	if len(items) != 2 {
		t.Errorf("expected 2 allocations on the first page, got %d", len(items))
	}

	w = env.do(t, http.MethodGet, "/api/v1/allocations?userId=user-1", nil)
	body = decodeBody(t, w)
	if body["total"] != float64(1) {
		t.Errorf("expected total 1 for user filter, got %v", body["total"])
	}
}

func TestProjectCapacity(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/allocations",
		allocationBody(env.projectID, "user-bob", "50", "2026-01-01", "2026-12-31"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	path := fmt.Sprintf("/api/v1/projects/%s/capacity?weeks=4&start=2026-02-02", env.projectID)
	w = env.do(t, http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["projectName"] != "Apollo" {
		t.Errorf("expected project name Apollo, got %v", body["projectName"])
	}
	if body["windowStart"] != "2026-02-02" {
		t.Errorf("expected window start 2026-02-02, got %v", body["windowStart"])
	}
	weeks, _ := body["weeks"].([]any)
	if len(weeks) != 4 {
		t.Fatalf("expected 4 week buckets, got %d", len(weeks))
	}
	first := weeks[0].(map[string]any)
	if first["plannedHours"] != "20" {
		t.Errorf("expected 20 planned hours in the first week, got %v", first["plannedHours"])
	}

	w = env.do(t, http.MethodGet, "/api/v1/projects/no-such-project/capacity", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown project, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	w := env.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}
