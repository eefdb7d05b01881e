package memory

import (
	"context"
	"sync"

	"marketsim/internal/application/port"
	"marketsim/internal/domain"
)

// Repo is the in-memory profile store: the default for tests and for running
// the simulation with no persistence at all. The core must work correctly
// against it alone.
type Repo struct {
	mu        sync.RWMutex
	accounts  map[string]domain.Account
	snapshots []equitySample
}

type equitySample struct {
	UserID  string
	Ts      int64
	Balance float64
	Equity  float64
}

func New() *Repo {
	return &Repo{accounts: make(map[string]domain.Account)}
}

func (r *Repo) LoadAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[userID]
	return acct, ok, nil
}

func (r *Repo) SaveAccount(ctx context.Context, userID string, acct domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[userID] = acct
	return nil
}

func (r *Repo) InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, equitySample{UserID: userID, Ts: ts, Balance: balance, Equity: equity})
	return nil
}

// SnapshotCount reports stored equity samples, for tests.
func (r *Repo) SnapshotCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}

func (r *Repo) Close() error { return nil }

var _ port.ProfileRepository = (*Repo)(nil)
