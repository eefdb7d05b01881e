package port

import (
	"context"

	"marketsim/internal/domain"
)

// ProfileRepository persists account state for resumption. The contract is
// "save this account state" / "hand back the account state to resume from",
// last-write-wins, no conflict resolution.
type ProfileRepository interface {
	// LoadAccount returns the stored account for userID. found is false for
	// an unknown user; that is not an error.
	LoadAccount(ctx context.Context, userID string) (acct domain.Account, found bool, err error)

	// SaveAccount replaces the stored state for userID.
	SaveAccount(ctx context.Context, userID string, acct domain.Account) error

	// InsertEquitySnapshot appends a periodic balance/equity sample.
	InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error

	// Connection management
	Close() error
}
