// Package service orchestrates allocation use cases: permission checks,
// conflict-safe writes, queries and capacity reports. It is the only layer
// with side effects; the math lives in calculator and persistence behind the
// storage interfaces.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planhub/staffing/internal/calculator"
	"github.com/planhub/staffing/internal/metrics"
	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/storage"
)

// Capacity report window bounds, in weeks.
const (
	DefaultCapacityWeeks = 12
	MaxCapacityWeeks     = 26
)

// Listing page size bounds.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AuditLogger records mutation events. Failures are logged and do not fail
// the operation: the domain mutation has already committed and blocking the
// response cannot undo it.
type AuditLogger interface {
	Record(ctx context.Context, ev models.AuditEvent) error
}

// AllocationService implements the allocation use cases. All collaborators
// are injected at construction; the service holds no other state beyond the
// per-user write locks.
type AllocationService struct {
	store    storage.AllocationStore
	projects storage.ProjectLookup
	perms    PermissionChecker
	audit    AuditLogger
	locks    keyedMutex

	// now is the clock, overridable in tests.
	now func() time.Time
}

// NewAllocationService creates a service with the given collaborators.
func NewAllocationService(store storage.AllocationStore, projects storage.ProjectLookup, perms PermissionChecker, audit AuditLogger) *AllocationService {
	return &AllocationService{
		store:    store,
		projects: projects,
		perms:    perms,
		audit:    audit,
		now:      time.Now,
	}
}

// CreateAllocationInput carries everything needed to create an allocation.
type CreateAllocationInput struct {
	OrganizationID string
	ProjectID      string
	UserID         string
	Role           models.Role
	Percent        decimal.Decimal
	StartDate      models.Date
	EndDate        models.Date
	Billable       bool
	Notes          map[string]any
}

// UpdateAllocationPatch holds the mutable fields of an allocation. Nil
// fields are left unchanged; id, organization, project and user are
// immutable after creation.
type UpdateAllocationPatch struct {
	Role      *models.Role
	Percent   *decimal.Decimal
	StartDate *models.Date
	EndDate   *models.Date
	Billable  *bool
	Notes     map[string]any
}

// AllocationPage is one page of a listing plus the total match count.
type AllocationPage struct {
	Allocations []models.Allocation
	Total       int
	Page        int
	PageSize    int
}

// AllocationSummary is the per-allocation breakdown in a capacity report.
type AllocationSummary struct {
	AllocationID string
	UserID       string
	Role         models.Role
	Percent      decimal.Decimal
	StartDate    models.Date
	EndDate      models.Date
}

// CapacityOptions tunes a project capacity report. The zero value means
// "start today, default window".
type CapacityOptions struct {
	Start models.Date
	Weeks int
}

// CapacityReport is the weekly planned-hours series for a project.
type CapacityReport struct {
	ProjectID   string
	ProjectName string
	WindowStart models.Date
	WindowEnd   models.Date
	Allocations []AllocationSummary
	Weeks       []calculator.WeekBucket
}

// Create validates and persists a new allocation. The conflict check and the
// insert run under the caller's (organization, user) write lock, so two
// racing over-capacity creates resolve to one success and one ConflictError.
func (s *AllocationService) Create(ctx context.Context, actorID string, in CreateAllocationInput) (a *models.Allocation, err error) {
	defer s.observe("create", s.now(), &err)

	if err := s.requireCapability(ctx, in.OrganizationID, actorID, CapAllocationsCreate); err != nil {
		return nil, err
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(in.OrganizationID + "/" + in.UserID)
	defer unlock()

	existing, err := s.store.FindNonDeletedByUser(ctx, in.OrganizationID, in.UserID)
	if err != nil {
		return nil, &StorageError{Op: "load allocations", Err: err}
	}

	conflicts := calculator.DetectConflicts(existing, calculator.Candidate{
		UserID:  in.UserID,
		Start:   in.StartDate,
		End:     in.EndDate,
		Percent: in.Percent,
	})
	if len(conflicts) > 0 {
		metrics.ConflictsDetected.Inc()
		return nil, &ConflictError{Conflicts: conflicts}
	}

	a = &models.Allocation{
		OrganizationID: in.OrganizationID,
		ProjectID:      in.ProjectID,
		UserID:         in.UserID,
		Role:           in.Role,
		Percent:        in.Percent,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Billable:       in.Billable,
		Notes:          in.Notes,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, &StorageError{Op: "insert allocation", Err: err}
	}

	slog.Info("allocation created",
		"allocation_id", a.ID,
		"organization_id", a.OrganizationID,
		"user_id", a.UserID,
		"project_id", a.ProjectID,
		"percent", a.Percent,
	)
	s.recordAudit(ctx, a.OrganizationID, actorID, models.AuditActionCreate, a.ID, map[string]any{
		"user_id":    a.UserID,
		"project_id": a.ProjectID,
		"percent":    a.Percent.String(),
		"start_date": a.StartDate.String(),
		"end_date":   a.EndDate.String(),
	})
	return a, nil
}

// Update merges the patch into an existing allocation and persists it after
// re-running conflict detection against the user's other allocations.
func (s *AllocationService) Update(ctx context.Context, actorID, orgID, id string, patch UpdateAllocationPatch) (updated *models.Allocation, err error) {
	defer s.observe("update", s.now(), &err)

	current, err := s.findAllocation(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireCapability(ctx, orgID, actorID, CapAllocationsUpdate); err != nil {
		return nil, err
	}

	merged := *current
	if patch.Role != nil {
		merged.Role = *patch.Role
	}
	if patch.Percent != nil {
		merged.Percent = *patch.Percent
	}
	if patch.StartDate != nil {
		merged.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		merged.EndDate = *patch.EndDate
	}
	if patch.Billable != nil {
		merged.Billable = *patch.Billable
	}
	if patch.Notes != nil {
		merged.Notes = patch.Notes
	}
	if err := validateRecord(merged.Role, merged.Percent, merged.StartDate, merged.EndDate); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(orgID + "/" + merged.UserID)
	defer unlock()

	// Re-read under the lock so the check covers any write that landed
	// between the initial load and here.
	existing, err := s.store.FindNonDeletedByUser(ctx, orgID, merged.UserID)
	if err != nil {
		return nil, &StorageError{Op: "load allocations", Err: err}
	}
	conflicts := calculator.DetectConflicts(existing, calculator.Candidate{
		UserID:    merged.UserID,
		Start:     merged.StartDate,
		End:       merged.EndDate,
		Percent:   merged.Percent,
		ExcludeID: merged.ID,
	})
	if len(conflicts) > 0 {
		metrics.ConflictsDetected.Inc()
		return nil, &ConflictError{Conflicts: conflicts}
	}

	if err := s.store.Update(ctx, &merged); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{Entity: "allocation", ID: id}
		}
		return nil, &StorageError{Op: "update allocation", Err: err}
	}

	slog.Info("allocation updated", "allocation_id", id, "organization_id", orgID)
	s.recordAudit(ctx, orgID, actorID, models.AuditActionUpdate, id, map[string]any{
		"percent":    merged.Percent.String(),
		"start_date": merged.StartDate.String(),
		"end_date":   merged.EndDate.String(),
	})
	return &merged, nil
}

// Delete soft-deletes an allocation. The row is retained for history and
// stops contributing to conflicts, capacity and listings.
func (s *AllocationService) Delete(ctx context.Context, actorID, orgID, id string) (err error) {
	defer s.observe("delete", s.now(), &err)

	if err := s.requireCapability(ctx, orgID, actorID, CapAllocationsDelete); err != nil {
		return err
	}
	a, err := s.findAllocation(ctx, orgID, id)
	if err != nil {
		return err
	}

	if err := s.store.SoftDeleteByID(ctx, orgID, id, s.now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &NotFoundError{Entity: "allocation", ID: id}
		}
		return &StorageError{Op: "delete allocation", Err: err}
	}

	slog.Info("allocation deleted", "allocation_id", id, "organization_id", orgID, "user_id", a.UserID)
	s.recordAudit(ctx, orgID, actorID, models.AuditActionDelete, id, map[string]any{
		"user_id":    a.UserID,
		"project_id": a.ProjectID,
	})
	return nil
}

// Get returns a non-deleted allocation.
func (s *AllocationService) Get(ctx context.Context, actorID, orgID, id string) (a *models.Allocation, err error) {
	defer s.observe("get", s.now(), &err)

	if err := s.requireCapability(ctx, orgID, actorID, CapAllocationsView); err != nil {
		return nil, err
	}
	return s.findAllocation(ctx, orgID, id)
}

// List returns one page of non-deleted allocations matching the filter,
// ordered by creation time.
func (s *AllocationService) List(ctx context.Context, actorID, orgID string, f storage.AllocationFilter, page, pageSize int) (p *AllocationPage, err error) {
	defer s.observe("list", s.now(), &err)

	if err := s.requireCapability(ctx, orgID, actorID, CapAllocationsView); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	allocs, total, err := s.store.Page(ctx, orgID, f, page, pageSize)
	if err != nil {
		return nil, &StorageError{Op: "list allocations", Err: err}
	}
	return &AllocationPage{Allocations: allocs, Total: total, Page: page, PageSize: pageSize}, nil
}

// ProjectCapacity builds the weekly planned-hours report for a project.
func (s *AllocationService) ProjectCapacity(ctx context.Context, actorID, orgID, projectID string, opts CapacityOptions) (report *CapacityReport, err error) {
	defer s.observe("capacity", s.now(), &err)

	if err := s.requireCapability(ctx, orgID, actorID, CapAllocationsView); err != nil {
		return nil, err
	}

	exists, err := s.projects.ProjectExists(ctx, orgID, projectID)
	if err != nil {
		return nil, &StorageError{Op: "check project", Err: err}
	}
	if !exists {
		return nil, &NotFoundError{Entity: "project", ID: projectID}
	}
	name, err := s.projects.ProjectName(ctx, orgID, projectID)
	if err != nil {
		return nil, &StorageError{Op: "load project name", Err: err}
	}

	allocs, err := s.store.FindNonDeletedByProject(ctx, orgID, projectID)
	if err != nil {
		return nil, &StorageError{Op: "load allocations", Err: err}
	}

	weeks := opts.Weeks
	if weeks < 1 {
		weeks = DefaultCapacityWeeks
	}
	if weeks > MaxCapacityWeeks {
		weeks = MaxCapacityWeeks
	}
	start := opts.Start
	if start.IsZero() {
		start = models.DateOf(s.now())
	}
	end := start.AddDays(7*weeks - 1)

	summaries := make([]AllocationSummary, len(allocs))
	for i, a := range allocs {
		summaries[i] = AllocationSummary{
			AllocationID: a.ID,
			UserID:       a.UserID,
			Role:         a.Role,
			Percent:      a.Percent,
			StartDate:    a.StartDate,
			EndDate:      a.EndDate,
		}
	}

	return &CapacityReport{
		ProjectID:   projectID,
		ProjectName: name,
		WindowStart: start,
		WindowEnd:   end,
		Allocations: summaries,
		Weeks:       calculator.WeeklyCapacity(allocs, start, end, calculator.DefaultHoursPerWeek),
	}, nil
}

func (s *AllocationService) findAllocation(ctx context.Context, orgID, id string) (*models.Allocation, error) {
	a, err := s.store.FindByID(ctx, orgID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &NotFoundError{Entity: "allocation", ID: id}
	}
	if err != nil {
		return nil, &StorageError{Op: "load allocation", Err: err}
	}
	return a, nil
}

func (s *AllocationService) requireCapability(ctx context.Context, orgID, actorID string, cap Capability) error {
	d, err := s.perms.HasCapability(ctx, orgID, actorID, cap)
	if err != nil {
		return &StorageError{Op: "permission check", Err: err}
	}
	if !d.Allowed {
		slog.Warn("permission denied", "actor_id", actorID, "organization_id", orgID, "capability", cap, "reason", d.Reason)
		return &PermissionDeniedError{Capability: cap, Reason: d.Reason}
	}
	return nil
}

func (s *AllocationService) recordAudit(ctx context.Context, orgID, actorID, action, entityID string, metadata map[string]any) {
	err := s.audit.Record(ctx, models.AuditEvent{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		EntityType:     "allocation",
		EntityID:       entityID,
		Metadata:       metadata,
	})
	if err != nil {
		slog.Error("failed to record audit event", "action", action, "entity_id", entityID, "error", err)
	}
}

func validateCreate(in CreateAllocationInput) error {
	if in.OrganizationID == "" {
		return &ValidationError{Field: "organizationId", Message: "required"}
	}
	if in.ProjectID == "" {
		return &ValidationError{Field: "projectId", Message: "required"}
	}
	if in.UserID == "" {
		return &ValidationError{Field: "userId", Message: "required"}
	}
	return validateRecord(in.Role, in.Percent, in.StartDate, in.EndDate)
}

func validateRecord(role models.Role, percent decimal.Decimal, start, end models.Date) error {
	if !role.Valid() {
		return &ValidationError{Field: "role", Message: "unknown role"}
	}
	if !models.ValidatePercent(percent) {
		return &ValidationError{Field: "allocationPercent", Message: "must be greater than 0 and at most 100"}
	}
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "dates", Message: "startDate and endDate are required"}
	}
	if end.Before(start) {
		return &ValidationError{Field: "dates", Message: "endDate must not be before startDate"}
	}
	return nil
}

// observe records the operation's outcome and latency.
func (s *AllocationService) observe(op string, start time.Time, errp *error) {
	outcome := "ok"
	if err := *errp; err != nil {
		switch {
		case errorsAs[*ValidationError](err):
			outcome = "validation"
		case errorsAs[*PermissionDeniedError](err):
			outcome = "permission_denied"
		case errorsAs[*NotFoundError](err):
			outcome = "not_found"
		case errorsAs[*ConflictError](err):
			outcome = "conflict"
		default:
			outcome = "storage"
		}
	}
	metrics.OperationsTotal.WithLabelValues(op, outcome).Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func errorsAs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
