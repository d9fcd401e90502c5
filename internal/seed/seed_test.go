package seed

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/repository/sqlite"
	"scriptmentor/internal/service/chunking"
	"scriptmentor/internal/service/contentcrypto"
	"scriptmentor/internal/service/scripts"
	"scriptmentor/internal/service/tokens"
)

func TestSeedUser(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tasks := scripts.NewBackgroundRunner(logger, time.Second)
	t.Cleanup(tasks.Close)

	store := scripts.NewStore(
		sqlite.NewScriptRepository(db, logger),
		contentcrypto.New(contentcrypto.Config{Iterations: 1000}),
		chunking.New(),
		tasks,
		logger,
	)
	ledger := tokens.NewLedger(sqlite.NewTokenRepository(db, logger), sqlite.NewTransactionManager(db, logger), logger)
	seeder := NewSeeder(store, ledger, logger)
	ctx := context.Background()

	report, err := seeder.SeedUser(ctx, "writer-1", models.TierCreator)
	if err != nil {
		t.Fatalf("SeedUser() error = %v", err)
	}
	if report.Created != len(Samples()) || report.Skipped != 0 {
		t.Errorf("first run = %+v", report)
	}

	records, err := store.GetAll(ctx, "writer-1")
	if err != nil {
		t.Fatal(err)
	}
	var chunked int
	for _, r := range records {
		if !r.Encrypted() {
			t.Errorf("%q stored unencrypted", r.Title)
		}
		if len(r.Chunks) > 1 {
			chunked++
		}
	}
	if chunked != 1 {
		t.Errorf("%d chunked samples, want 1", chunked)
	}

	account, err := ledger.Account(ctx, "writer-1")
	if err != nil {
		t.Fatal(err)
	}
	if account.Tier != models.TierCreator || account.MonthlyAllowance != tokens.Allowance(models.TierCreator) {
		t.Errorf("account = %+v", account)
	}

	report, err = seeder.SeedUser(ctx, "writer-1", models.TierCreator)
	if err != nil {
		t.Fatalf("second SeedUser() error = %v", err)
	}
	if report.Created != 0 || report.Skipped != len(Samples()) {
		t.Errorf("second run = %+v", report)
	}
}
