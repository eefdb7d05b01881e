package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"marketsim/internal/domain"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "marketsim.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	snap := domain.FeedSnapshot{
		Time: time.Now(),
		Instruments: map[string]domain.Instrument{
			"RELIANCE": {Symbol: "RELIANCE", CurrentPrice: 2985.45},
		},
	}
	acct, err := domain.NewAccount().Buy(snap, "RELIANCE")
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	acct = acct.ApplyDelta(50, domain.SourceReward, "Quiz: compounding")

	if err := repo.SaveAccount(ctx, "alice", acct); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	loaded, found, err := repo.LoadAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadAccount failed: %v", err)
	}
	if !found {
		t.Fatal("expected account to be found")
	}
	if loaded.Balance != acct.Balance {
		t.Errorf("balance mismatch: got %v, want %v", loaded.Balance, acct.Balance)
	}
	if len(loaded.Positions) != 1 || loaded.Positions[0].Symbol != "RELIANCE" {
		t.Errorf("positions mismatch: %+v", loaded.Positions)
	}
	if len(loaded.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(loaded.Transactions))
	}
	if loaded.Transactions[0].Label != "Bought RELIANCE" {
		t.Errorf("transaction order wrong: %+v", loaded.Transactions)
	}
	if loaded.Transactions[1].Source != domain.SourceReward {
		t.Errorf("expected reward source, got %s", loaded.Transactions[1].Source)
	}
}

func TestLoadMissingUser(t *testing.T) {
	repo := newTestRepo(t)

	_, found, err := repo.LoadAccount(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LoadAccount failed: %v", err)
	}
	if found {
		t.Fatal("expected found=false for unknown user")
	}
}

func TestSaveIsLastWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := domain.NewAccount().ApplyDelta(-100, domain.SourceTrade, "Bought TCS")
	if err := repo.SaveAccount(ctx, "bob", first); err != nil {
		t.Fatalf("first SaveAccount failed: %v", err)
	}

	second := domain.NewAccount().ApplyDelta(25, domain.SourceReward, "Quiz: diversification")
	if err := repo.SaveAccount(ctx, "bob", second); err != nil {
		t.Fatalf("second SaveAccount failed: %v", err)
	}

	loaded, _, err := repo.LoadAccount(ctx, "bob")
	if err != nil {
		t.Fatalf("LoadAccount failed: %v", err)
	}
	if loaded.Balance != second.Balance {
		t.Errorf("expected latest balance %v, got %v", second.Balance, loaded.Balance)
	}
	if len(loaded.Transactions) != 1 || loaded.Transactions[0].Source != domain.SourceReward {
		t.Errorf("expected only the latest transaction log, got %+v", loaded.Transactions)
	}
}

func TestEquitySnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now()
	old := now.AddDate(0, 0, -60)

	if err := repo.InsertEquitySnapshot(ctx, "alice", old.UnixMilli(), 10000, 10000); err != nil {
		t.Fatalf("InsertEquitySnapshot failed: %v", err)
	}
	if err := repo.InsertEquitySnapshot(ctx, "alice", now.UnixMilli(), 9500, 10200); err != nil {
		t.Fatalf("InsertEquitySnapshot failed: %v", err)
	}

	if err := repo.DeleteOldSnapshots(ctx, now.AddDate(0, 0, -30)); err != nil {
		t.Fatalf("DeleteOldSnapshots failed: %v", err)
	}

	var count int
	if err := repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM equity_snapshots WHERE user_id = ?`, "alice").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 snapshot after prune, got %d", count)
	}
}
