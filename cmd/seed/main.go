package main

import (
	"context"
	"flag"
	"log"

	"github.com/AnthoniusHendriyanto/identity-core/config"
	"github.com/AnthoniusHendriyanto/identity-core/db"
	repo "github.com/AnthoniusHendriyanto/identity-core/internal/identity/repository/postgres"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/service"
)

// seed reconciles the baseline roles and the admin account. It is guarded by
// the same setup key the deployment configures, mirroring the one-time setup
// endpoint it replaces, and is safe to run repeatedly.
func main() {
	setupKey := flag.String("setup-key", "", "must match ADMIN_SETUP_KEY")
	flag.Parse()

	cfg := config.Load()

	if cfg.AdminSetupKey == "" || *setupKey != cfg.AdminSetupKey {
		log.Fatal("invalid setup key")
	}
	if cfg.AdminPassword == "" {
		log.Fatal("ADMIN_PASSWORD must be set to seed the admin user")
	}

	ctx := context.Background()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to set up database pool: %v", err)
	}
	defer dbPool.Close()

	userRepo := repo.NewPostgresRepository(dbPool)
	bootstrap := service.NewBootstrap(userRepo, service.NewBcryptHasher())

	admin, err := bootstrap.EnsureRolesAndAdmin(ctx, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	log.Printf("roles reconciled, admin user %s (%s) ready", admin.Username, admin.ID)
}
