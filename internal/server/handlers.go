package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/planhub/staffing/internal/middleware"
	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/service"
	"github.com/planhub/staffing/internal/storage"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type createAllocationRequest struct {
	ProjectID string          `json:"projectId" binding:"required"`
	UserID    string          `json:"userId" binding:"required"`
	Role      string          `json:"role" binding:"required"`
	Percent   decimal.Decimal `json:"allocationPercent" binding:"required"`
	StartDate models.Date     `json:"startDate" binding:"required"`
	EndDate   models.Date     `json:"endDate" binding:"required"`
	Billable  bool            `json:"isBillable"`
	Notes     map[string]any  `json:"notes"`
}

type updateAllocationRequest struct {
	Role      *string          `json:"role"`
	Percent   *decimal.Decimal `json:"allocationPercent"`
	StartDate *models.Date     `json:"startDate"`
	EndDate   *models.Date     `json:"endDate"`
	Billable  *bool            `json:"isBillable"`
	Notes     map[string]any   `json:"notes"`
}

type allocationResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	ProjectID      string          `json:"projectId"`
	UserID         string          `json:"userId"`
	Role           string          `json:"role"`
	Percent        decimal.Decimal `json:"allocationPercent"`
	StartDate      models.Date     `json:"startDate"`
	EndDate        models.Date     `json:"endDate"`
	Billable       bool            `json:"isBillable"`
	Notes          map[string]any  `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func toAllocationResponse(a *models.Allocation) allocationResponse {
	return allocationResponse{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		ProjectID:      a.ProjectID,
		UserID:         a.UserID,
		Role:           string(a.Role),
		Percent:        a.Percent,
		StartDate:      a.StartDate,
		EndDate:        a.EndDate,
		Billable:       a.Billable,
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.authenticator.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		slog.Error("failed to issue token", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":             user.ID,
			"organizationId": user.OrganizationID,
			"email":          user.Email,
			"name":           user.Name,
			"role":           user.OrgRole,
		},
	})
}

func (s *Server) createAllocation(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	var req createAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := s.allocations.Create(c.Request.Context(), identity.UserID, service.CreateAllocationInput{
		OrganizationID: identity.OrganizationID,
		ProjectID:      req.ProjectID,
		UserID:         req.UserID,
		Role:           models.Role(req.Role),
		Percent:        req.Percent,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Billable:       req.Billable,
		Notes:          req.Notes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAllocationResponse(a))
}

func (s *Server) getAllocation(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	a, err := s.allocations.Get(c.Request.Context(), identity.UserID, identity.OrganizationID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAllocationResponse(a))
}

func (s *Server) listAllocations(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	filter := storage.AllocationFilter{
		ProjectID: c.Query("projectId"),
		UserID:    c.Query("userId"),
		Role:      models.Role(c.Query("role")),
	}
	if v := c.Query("isBillable"); v != "" {
		billable, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid isBillable: expected true or false"})
			return
		}
		filter.Billable = &billable
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	result, err := s.allocations.List(c.Request.Context(), identity.UserID, identity.OrganizationID, filter, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items := make([]allocationResponse, len(result.Allocations))
	for i := range result.Allocations {
		items[i] = toAllocationResponse(&result.Allocations[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"allocations": items,
		"total":       result.Total,
		"page":        result.Page,
		"pageSize":    result.PageSize,
	})
}

func (s *Server) updateAllocation(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	var req updateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := service.UpdateAllocationPatch{
		Percent:   req.Percent,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Billable:  req.Billable,
		Notes:     req.Notes,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		patch.Role = &role
	}

	a, err := s.allocations.Update(c.Request.Context(), identity.UserID, identity.OrganizationID, c.Param("id"), patch)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAllocationResponse(a))
}

func (s *Server) deleteAllocation(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	if err := s.allocations.Delete(c.Request.Context(), identity.UserID, identity.OrganizationID, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) projectCapacity(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	var opts service.CapacityOptions
	if v := c.Query("weeks"); v != "" {
		weeks, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid weeks: expected an integer"})
			return
		}
		opts.Weeks = weeks
	}
	if v := c.Query("start"); v != "" {
		start, err := models.ParseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Start = start
	}

	report, err := s.allocations.ProjectCapacity(c.Request.Context(), identity.UserID, identity.OrganizationID, c.Param("id"), opts)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	weeks := make([]gin.H, len(report.Weeks))
	for i, w := range report.Weeks {
		perUser := make([]gin.H, len(w.PerUser))
		for j, u := range w.PerUser {
			perUser[j] = gin.H{
				"userId":         u.UserID,
				"plannedHours":   u.PlannedHours,
				"plannedPercent": u.PlannedPercent,
			}
		}
		weeks[i] = gin.H{
			"periodStart":    w.PeriodStart,
			"periodEnd":      w.PeriodEnd,
			"plannedHours":   w.PlannedHours,
			"plannedPercent": w.PlannedPercent,
			"perUser":        perUser,
		}
	}

	allocations := make([]gin.H, len(report.Allocations))
	for i, a := range report.Allocations {
		allocations[i] = gin.H{
			"allocationId":      a.AllocationID,
			"userId":            a.UserID,
			"role":              a.Role,
			"allocationPercent": a.Percent,
			"startDate":         a.StartDate,
			"endDate":           a.EndDate,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"projectId":   report.ProjectID,
		"projectName": report.ProjectName,
		"windowStart": report.WindowStart,
		"windowEnd":   report.WindowEnd,
		"allocations": allocations,
		"weeks":       weeks,
	})
}

// writeServiceError maps the service error kinds onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		permissionErr *service.PermissionDeniedError
		notFoundErr   *service.NotFoundError
		conflictErr   *service.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, gin.H{"error": permissionErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		conflicts := make([]gin.H, len(conflictErr.Conflicts))
		for i, conflict := range conflictErr.Conflicts {
			conflicts[i] = gin.H{
				"conflictType":    conflict.Type,
				"totalAllocation": conflict.TotalAllocation,
				"overlapping":     conflict.OverlappingIDs,
			}
		}
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error(), "conflicts": conflicts})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
