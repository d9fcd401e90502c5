package main

import (
	"context"
	"flag"
	"log"
	"os"

	"scriptmentor/internal/app"
	"scriptmentor/internal/auth"
	"scriptmentor/internal/config"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/repository/postgres"
	"scriptmentor/internal/seed"
	"scriptmentor/internal/service/tokens"

	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed scripts")
	email := flag.String("email", "writer@example.com", "Seed user email (created through the auth admin API if missing)")
	password := flag.String("password", "scriptmentor-dev", "Password for a newly created seed user")
	userID := flag.String("user-id", "", "Seed this user id directly, skipping the auth admin API")
	tier := flag.String("tier", string(models.TierCreator), "Token tier for the seed user")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: Cannot run --drop-tables in production environment")
	}
	if !tokens.ValidTier(models.Tier(*tier)) {
		log.Fatalf("Unknown tier %q", *tier)
	}

	logger, logCloser, err := config.NewLogger(cfg, "seed", os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	logger.Info("seeding database",
		"environment", cfg.Environment,
		"driver", cfg.DatabaseDriver,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	if *dropTables && cfg.DatabaseDriver == "sqlite" {
		if err := os.Remove(cfg.SQLitePath); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to remove %s: %v", cfg.SQLitePath, err)
		}
		logger.Info("removed sqlite database", "path", cfg.SQLitePath)
	}

	services, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	if pg := services.Storage.Postgres; pg != nil && *dropTables {
		if err := postgres.DropSchema(ctx, pg); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		if err := postgres.EnsureSchema(ctx, pg); err != nil {
			log.Fatalf("Failed to run schema: %v", err)
		}
	}

	if *schemaOnly {
		logger.Info("schema setup complete (schema-only mode)")
		return
	}

	owner := *userID
	if owner == "" {
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			log.Fatalf("SUPABASE_URL and SUPABASE_KEY are required to create the seed user (or pass --user-id)")
		}
		owner, err = auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey).EnsureUser(ctx, *email, *password)
		if err != nil {
			log.Fatalf("Failed to ensure seed user: %v", err)
		}
		logger.Info("seed user ready", "email", *email, "user_id", owner)
	}

	report, err := seed.NewSeeder(services.Store, services.Ledger, logger).SeedUser(ctx, owner, models.Tier(*tier))
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	logger.Info("seeding complete", "created", report.Created, "skipped", report.Skipped)
}
