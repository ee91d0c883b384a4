// Command seed bootstraps a database with an organization admin and,
// optionally, a first project.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/planhub/staffing/internal/auth"
	"github.com/planhub/staffing/internal/config"
	"github.com/planhub/staffing/internal/models"
	"github.com/planhub/staffing/internal/storage/sqlite"
	"github.com/planhub/staffing/pkg/logging"
)

func main() {
	orgID := flag.String("org", "", "organization id for the admin user")
	email := flag.String("email", "", "admin email address")
	name := flag.String("name", "Admin", "admin display name")
	password := flag.String("password", "", "admin password (min 8 characters)")
	project := flag.String("project", "", "optional project name to create")
	flag.Parse()

	if err := run(*orgID, *email, *name, *password, *project); err != nil {
		slog.Error("Seed failed", "error", err)
		os.Exit(1)
	}
}

func run(orgID, email, name, password, project string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Setup(cfg.LogLevel)

	if orgID == "" || email == "" || password == "" {
		return fmt.Errorf("flags -org, -email and -password are required")
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	authenticator := auth.NewPasswordAuthenticator(store)

	admin, err := authenticator.Register(ctx, orgID, email, name, models.OrgRoleAdmin, password)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	slog.Info("Admin user created", "id", admin.ID, "email", admin.Email, "organization", admin.OrganizationID)

	if project != "" {
		p := &models.Project{OrganizationID: orgID, Name: project}
		if err := store.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		slog.Info("Project created", "id", p.ID, "name", p.Name)
	}
	return nil
}
