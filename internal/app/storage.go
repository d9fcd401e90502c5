package app

import (
	"context"
	"fmt"
	"log/slog"

	"scriptmentor/internal/config"
	"scriptmentor/internal/domain/repositories"
	"scriptmentor/internal/repository/postgres"
	"scriptmentor/internal/repository/sqlite"
)

// Storage is the repository set for one database driver
type Storage struct {
	Scripts   repositories.ScriptRepository
	Tokens    repositories.TokenRepository
	TxManager repositories.TransactionManager

	// Postgres is set when the hosted store is in use; schema tooling needs it
	Postgres *postgres.RepositoryConfig

	close func()
}

// Close releases the database handle
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects to the configured database and makes sure the
// schema exists.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		if cfg.SupabaseDBURL == "" {
			return nil, fmt.Errorf("SUPABASE_DB_URL is required for the postgres driver")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
		if err != nil {
			return nil, err
		}
		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		if err := postgres.EnsureSchema(ctx, repoConfig); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("database connected", "driver", "postgres", "table_prefix", cfg.TablePrefix)
		return &Storage{
			Scripts:   postgres.NewScriptRepository(repoConfig),
			Tokens:    postgres.NewTokenRepository(repoConfig),
			TxManager: postgres.NewTransactionManager(pool, logger),
			Postgres:  repoConfig,
			close:     pool.Close,
		}, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("database connected", "driver", "sqlite", "path", cfg.SQLitePath)
		return &Storage{
			Scripts:   sqlite.NewScriptRepository(db, logger),
			Tokens:    sqlite.NewTokenRepository(db, logger),
			TxManager: sqlite.NewTransactionManager(db, logger),
			close:     func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q (want postgres or sqlite)", cfg.DatabaseDriver)
	}
}
