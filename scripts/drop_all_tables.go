package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"scriptmentor/internal/config"
	"scriptmentor/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.SupabaseDBURL == "" {
		log.Fatal("SUPABASE_DB_URL environment variable is required")
	}
	if cfg.Environment == "prod" {
		log.Fatal("refusing to drop tables in the prod environment")
	}

	logger, closer, err := config.NewLogger(cfg, "drop_all_tables", os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	if err := postgres.DropSchema(ctx, repoConfig); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}
	logger.Info("all tables dropped", "prefix", cfg.TablePrefix)
}
