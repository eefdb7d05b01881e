package composite

import (
	"context"
	"errors"
	"testing"

	"marketsim/internal/domain"
	"marketsim/internal/infrastructure/storage/memory"
)

func TestFanOutWrites(t *testing.T) {
	a, b := memory.New(), memory.New()
	repo := New(a, b)
	ctx := context.Background()

	acct := domain.NewAccount().ApplyDelta(10, domain.SourceReward, "Quiz: saving")
	if err := repo.SaveAccount(ctx, "alice", acct); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	for i, backend := range []*memory.Repo{a, b} {
		got, found, err := backend.LoadAccount(ctx, "alice")
		if err != nil || !found {
			t.Fatalf("backend %d: found=%v err=%v", i, found, err)
		}
		if got.Balance != acct.Balance {
			t.Errorf("backend %d: balance %v, want %v", i, got.Balance, acct.Balance)
		}
	}

	if err := repo.InsertEquitySnapshot(ctx, "alice", 1, 10010, 10010); err != nil {
		t.Fatalf("InsertEquitySnapshot failed: %v", err)
	}
	if a.SnapshotCount() != 1 || b.SnapshotCount() != 1 {
		t.Errorf("snapshot fan-out missing: %d, %d", a.SnapshotCount(), b.SnapshotCount())
	}
}

func TestLoadReadsFirstHit(t *testing.T) {
	a, b := memory.New(), memory.New()
	ctx := context.Background()

	acct := domain.NewAccount().ApplyDelta(-100, domain.SourceTrade, "Bought TCS")
	if err := b.SaveAccount(ctx, "bob", acct); err != nil {
		t.Fatal(err)
	}

	got, found, err := New(a, b).LoadAccount(ctx, "bob")
	if err != nil {
		t.Fatalf("LoadAccount failed: %v", err)
	}
	if !found || got.Balance != acct.Balance {
		t.Errorf("found=%v balance=%v", found, got.Balance)
	}
}

func TestErroringBackendDoesNotMaskOthers(t *testing.T) {
	ok := memory.New()
	bad := &failingRepo{err: errors.New("connection refused")}
	repo := New(bad, ok)
	ctx := context.Background()

	acct := domain.NewAccount()
	if err := repo.SaveAccount(ctx, "carol", acct); err == nil {
		t.Error("expected first error to surface")
	}

	// the healthy backend still received the write
	if _, found, _ := ok.LoadAccount(ctx, "carol"); !found {
		t.Error("healthy backend missed the write")
	}

	// load skips the failing backend and serves the stored profile
	got, found, err := repo.LoadAccount(ctx, "carol")
	if err != nil {
		t.Fatalf("LoadAccount failed: %v", err)
	}
	if !found || got.Balance != acct.Balance {
		t.Errorf("found=%v balance=%v", found, got.Balance)
	}
}

type failingRepo struct {
	err error
}

func (r *failingRepo) LoadAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	return domain.Account{}, false, r.err
}

func (r *failingRepo) SaveAccount(ctx context.Context, userID string, acct domain.Account) error {
	return r.err
}

func (r *failingRepo) InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error {
	return r.err
}

func (r *failingRepo) Close() error { return nil }
