package composite

import (
	"context"

	"marketsim/internal/application/port"
	"marketsim/internal/domain"
)

// Repo fans writes out to every backend and reads from the first backend
// that has the profile. With last-write-wins semantics the backends converge
// on the most recent save.
type Repo struct {
	repos []port.ProfileRepository
}

func New(repos ...port.ProfileRepository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.ProfileRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) SaveAccount(ctx context.Context, userID string, acct domain.Account) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveAccount(ctx, userID, acct); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) LoadAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	var firstErr error
	for _, repo := range r.repos {
		acct, found, err := repo.LoadAccount(ctx, userID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if found {
			return acct, true, nil
		}
	}
	return domain.Account{}, false, firstErr
}

func (r *Repo) InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertEquitySnapshot(ctx, userID, ts, balance, equity); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.ProfileRepository = (*Repo)(nil)
