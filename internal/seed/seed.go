// Package seed fills a development database with sample scripts and a
// token account for one user.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/service/scripts"
)

// ScriptStore is the part of the script store the seeder writes through
type ScriptStore interface {
	Save(ctx context.Context, ownerID string, req *scripts.CreateScriptRequest) (*models.Script, error)
	GetAll(ctx context.Context, ownerID string) ([]models.ScriptRecord, error)
}

// AccountLedger opens and upgrades token accounts
type AccountLedger interface {
	Account(ctx context.Context, userID string) (*models.UserTokenAccount, error)
	SetTier(ctx context.Context, userID string, tier models.Tier) error
}

// Seeder writes sample data through the regular services, so seeded
// scripts are chunked and encrypted like any other.
type Seeder struct {
	store  ScriptStore
	ledger AccountLedger
	logger *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(store ScriptStore, ledger AccountLedger, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, ledger: ledger, logger: logger}
}

// Report counts what a seed run did
type Report struct {
	Created int
	Skipped int
}

// SeedUser opens the user's token account on the given tier and saves the
// sample scripts the user does not already have. Titles are the identity;
// running it twice creates nothing new.
func (s *Seeder) SeedUser(ctx context.Context, userID string, tier models.Tier) (Report, error) {
	var report Report

	account, err := s.ledger.Account(ctx, userID)
	if err != nil {
		return report, fmt.Errorf("open token account: %w", err)
	}
	if account.Tier != tier {
		if err := s.ledger.SetTier(ctx, userID, tier); err != nil {
			return report, err
		}
	}

	existing, err := s.store.GetAll(ctx, userID)
	if err != nil {
		return report, fmt.Errorf("list scripts: %w", err)
	}
	titles := make(map[string]bool, len(existing))
	for _, r := range existing {
		titles[r.Title] = true
	}

	for _, sample := range Samples() {
		if titles[sample.Title] {
			report.Skipped++
			continue
		}
		script, err := s.store.Save(ctx, userID, &scripts.CreateScriptRequest{
			Title:   sample.Title,
			Content: sample.Content,
		})
		if err != nil {
			return report, fmt.Errorf("save %q: %w", sample.Title, err)
		}
		report.Created++
		s.logger.Info("seeded script",
			"title", script.Title,
			"id", script.ID,
			"chunks", len(script.Chunks),
			"characters", len(script.Characters),
		)
	}
	return report, nil
}
