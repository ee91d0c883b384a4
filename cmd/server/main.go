package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/planhub/staffing/internal/audit"
	"github.com/planhub/staffing/internal/auth"
	"github.com/planhub/staffing/internal/config"
	"github.com/planhub/staffing/internal/server"
	"github.com/planhub/staffing/internal/service"
	"github.com/planhub/staffing/internal/storage/sqlite"
	"github.com/planhub/staffing/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// run holds the real work so deferred cleanup survives the error paths;
// os.Exit in main would skip it.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Setup(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	allocations := service.NewAllocationService(
		store,
		store,
		service.NewRoleChecker(store),
		audit.NewStoreRecorder(store),
	)
	authenticator := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	router := server.New(allocations, authenticator, jwtManager).Router()

	addr := ":" + cfg.Port
	slog.Info("Server starting", "address", addr)
	return http.ListenAndServe(addr, router)
}
