package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/service/tokens"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id, owner string, created time.Time) *models.ScriptRecord {
	encrypted := true
	version := "v1"
	strategy := models.StrategyPages
	pages := 42
	return &models.ScriptRecord{
		ID:               id,
		OwnerID:          owner,
		Title:            "Title " + id,
		RawContent:       `{"ciphertext":"x"}`,
		ProcessedContent: `{"ciphertext":"y"}`,
		Characters:       map[string]models.Character{"ROSA": models.NewCharacter("ROSA")},
		Chunks: []models.StoredChunk{
			{ID: id + "-0", Title: "Pages 1-15", Content: []byte(`"plain"`), CharacterNames: []string{"ROSA"}, ChunkType: models.ChunkTypePages, ChunkIndex: 0},
		},
		ChunkingStrategy:  &strategy,
		TotalPages:        &pages,
		IsEncrypted:       &encrypted,
		EncryptionVersion: &version,
		FileSize:          1234,
		CreatedAt:         created,
		LastAccessedAt:    created,
	}
}

func TestScriptRepositoryRoundTrip(t *testing.T) {
	repo := NewScriptRepository(openTestDB(t), discardLogger())
	ctx := context.Background()

	in := record("s1", "user-1", base)
	if err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "s1", "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != in.Title || got.RawContent != in.RawContent || got.FileSize != 1234 {
		t.Errorf("scalar fields differ: %+v", got)
	}
	if !got.Encrypted() || *got.EncryptionVersion != "v1" || *got.ChunkingStrategy != models.StrategyPages || *got.TotalPages != 42 {
		t.Errorf("optional fields differ: %+v", got)
	}
	if len(got.Chunks) != 1 || string(got.Chunks[0].Content) != `"plain"` || got.Chunks[0].CharacterNames[0] != "ROSA" {
		t.Errorf("chunks = %+v", got.Chunks)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}

	if _, err := repo.GetByID(ctx, "s1", "someone-else"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other owner: err = %v, want ErrNotFound", err)
	}
}

func TestScriptRepositoryLegacyRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewScriptRepository(db, discardLogger())
	ctx := context.Background()

	legacy := &models.ScriptRecord{
		ID:             "old",
		OwnerID:        "user-1",
		Title:          "Legacy",
		RawContent:     "plain text",
		CreatedAt:      base,
		LastAccessedAt: base,
	}
	if err := repo.Create(ctx, legacy); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, record("new", "user-1", base)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "old", "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.IsEncrypted != nil || got.Chunks != nil || got.ChunkingStrategy != nil {
		t.Errorf("legacy row should have NULL optional columns: %+v", got)
	}

	unencrypted, err := repo.ListUnencrypted(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListUnencrypted: %v", err)
	}
	if len(unencrypted) != 1 || unencrypted[0].ID != "old" {
		t.Errorf("ListUnencrypted = %+v", unencrypted)
	}
}

func TestScriptRepositoryMutations(t *testing.T) {
	repo := NewScriptRepository(openTestDB(t), discardLogger())
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, record(id, "user-1", base.AddDate(0, 0, -10*i))); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	if err := repo.TouchLastAccessed(ctx, "c", "user-1", base.Add(time.Hour)); err != nil {
		t.Fatalf("TouchLastAccessed: %v", err)
	}
	list, err := repo.List(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" {
		t.Errorf("List order = %v", ids(list))
	}

	rec := record("a", "user-1", base)
	rec.Title = "Renamed"
	rec.Chunks = nil
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.GetByID(ctx, "a", "user-1")
	if got.Title != "Renamed" || got.Chunks != nil {
		t.Errorf("after update: %+v", got)
	}

	if err := repo.Update(ctx, record("zzz", "user-1", base)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update missing: err = %v, want ErrNotFound", err)
	}

	n, err := repo.DeleteCreatedBefore(ctx, "user-1", base.AddDate(0, 0, -5))
	if err != nil || n != 2 {
		t.Errorf("DeleteCreatedBefore = %d, %v; want 2", n, err)
	}

	if err := repo.Delete(ctx, "a", "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "a", "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func ids(records []models.ScriptRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestLedgerOnSQLite(t *testing.T) {
	db := openTestDB(t)
	logger := discardLogger()
	repo := NewTokenRepository(db, logger)
	ledger := tokens.NewLedger(repo, NewTransactionManager(db, logger), logger)
	ctx := context.Background()

	v, err := ledger.ValidateAction(ctx, "user-1", models.ActionSingleFeedback)
	if err != nil {
		t.Fatalf("ValidateAction: %v", err)
	}
	if v.CurrentBalance != 100 || v.Tier != models.TierFree {
		t.Errorf("new account = %+v, want free/100", v)
	}

	res, err := ledger.ProcessTransaction(ctx, "user-1", models.ActionSingleFeedback, models.TransactionRefs{ScriptID: "s1", MentorID: "alpha"})
	if err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}
	if !res.Success || res.UpdatedValidation.CurrentBalance != 90 {
		t.Errorf("result = %+v", res)
	}

	history, err := ledger.History(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || *history[0].ScriptID != "s1" || history[0].SceneID != nil {
		t.Errorf("history = %+v", history)
	}
}

func TestDeductNeverOverspends(t *testing.T) {
	db := openTestDB(t)
	logger := discardLogger()
	repo := NewTokenRepository(db, logger)
	ledger := tokens.NewLedger(repo, NewTransactionManager(db, logger), logger)
	ctx := context.Background()

	if err := repo.CreateAccount(ctx, &models.UserTokenAccount{
		UserID: "user-1", Balance: 35, Tier: models.TierFree, MonthlyAllowance: 100, LastResetDate: base,
	}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.ProcessTransaction(ctx, "user-1", models.ActionSingleFeedback, models.TransactionRefs{})
			if err != nil {
				t.Errorf("ProcessTransaction: %v", err)
				return
			}
			if res.Success {
				mu.Lock()
				completed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	account, err := repo.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if completed != 3 || account.Balance != 5 {
		t.Errorf("completed %d, balance %d; want 3 and 5", completed, account.Balance)
	}
}

func TestTokenRepositoryAccounts(t *testing.T) {
	repo := NewTokenRepository(openTestDB(t), discardLogger())
	ctx := context.Background()

	if _, err := repo.GetAccount(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetAccount missing: err = %v, want ErrNotFound", err)
	}

	due := &models.UserTokenAccount{UserID: "due", Balance: 3, Tier: models.TierCreator, MonthlyAllowance: 500, LastResetDate: base.AddDate(0, 0, -31)}
	fresh := &models.UserTokenAccount{UserID: "fresh", Balance: 3, Tier: models.TierFree, MonthlyAllowance: 100, LastResetDate: base.AddDate(0, 0, -2)}
	for _, a := range []*models.UserTokenAccount{due, fresh} {
		if err := repo.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
	}

	// a second create must not reset the balance
	again := *fresh
	again.Balance = 100
	if err := repo.CreateAccount(ctx, &again); err != nil {
		t.Fatalf("CreateAccount again: %v", err)
	}

	n, err := repo.ResetDue(ctx, base, tokens.ResetCycle)
	if err != nil || n != 1 {
		t.Fatalf("ResetDue = %d, %v; want 1", n, err)
	}
	got, _ := repo.GetAccount(ctx, "due")
	if got.Balance != 500 || !got.LastResetDate.Equal(base) {
		t.Errorf("due account = %+v", got)
	}
	got, _ = repo.GetAccount(ctx, "fresh")
	if got.Balance != 3 {
		t.Errorf("fresh balance = %d, want 3", got.Balance)
	}

	if err := repo.SetTier(ctx, "fresh", models.TierPro, 1500); err != nil {
		t.Fatalf("SetTier: %v", err)
	}
	got, _ = repo.GetAccount(ctx, "fresh")
	if got.Tier != models.TierPro || got.MonthlyAllowance != 1500 || got.Balance != 3 {
		t.Errorf("after SetTier = %+v", got)
	}
	if err := repo.SetTier(ctx, "nobody", models.TierPro, 1500); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetTier missing: err = %v", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	db := openTestDB(t)
	logger := discardLogger()
	repo := NewTokenRepository(db, logger)
	tm := NewTransactionManager(db, logger)
	ctx := context.Background()

	repo.CreateAccount(ctx, &models.UserTokenAccount{UserID: "u", Balance: 50, Tier: models.TierFree, MonthlyAllowance: 100, LastResetDate: base})

	boom := errors.New("boom")
	err := tm.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := repo.Deduct(ctx, "u", 20); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ExecTx err = %v, want boom", err)
	}
	got, _ := repo.GetAccount(ctx, "u")
	if got.Balance != 50 {
		t.Errorf("balance = %d, want 50 after rollback", got.Balance)
	}
}
