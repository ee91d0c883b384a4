// Package server exposes the allocation service over a JSON HTTP API. It
// only translates requests into service operations; every rule lives in the
// service and calculator packages.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/planhub/staffing/internal/auth"
	"github.com/planhub/staffing/internal/metrics"
	"github.com/planhub/staffing/internal/middleware"
	"github.com/planhub/staffing/internal/service"
)

// Server holds the handler dependencies.
type Server struct {
	allocations   *service.AllocationService
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
}

// New creates a server with the given collaborators.
func New(allocations *service.AllocationService, authenticator auth.Authenticator, jwtManager *auth.JWTManager) *Server {
	return &Server{
		allocations:   allocations,
		authenticator: authenticator,
		jwt:           jwtManager,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/api/v1/auth/login", s.login)

	api := r.Group("/api/v1", middleware.RequireAuth(s.jwt))
	api.POST("/allocations", s.createAllocation)
	api.GET("/allocations", s.listAllocations)
	api.GET("/allocations/:id", s.getAllocation)
	api.PATCH("/allocations/:id", s.updateAllocation)
	api.DELETE("/allocations/:id", s.deleteAllocation)
	api.GET("/projects/:id/capacity", s.projectCapacity)

	return r
}
