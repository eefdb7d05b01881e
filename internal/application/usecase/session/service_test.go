package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsim/internal/domain"
	"marketsim/internal/infrastructure/storage/memory"
)

func snapWith(prices map[string]float64) domain.FeedSnapshot {
	snap := domain.FeedSnapshot{
		Time:        time.Now(),
		Instruments: make(map[string]domain.Instrument, len(prices)),
	}
	for sym, p := range prices {
		snap.Instruments[sym] = domain.Instrument{Symbol: sym, CurrentPrice: p}
	}
	return snap
}

func testSession(t *testing.T, repo *memory.Repo) *Service {
	t.Helper()
	s := Load(context.Background(), repo, Config{
		UserID:       "tester",
		LoadTimeout:  time.Second,
		SaveDebounce: 20 * time.Millisecond,
	})
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadStartsFreshWhenStoreEmpty(t *testing.T) {
	s := testSession(t, memory.New())
	assert.Equal(t, float64(domain.StartingBalance), s.Account().Balance)
}

func TestLoadResumesStoredProfile(t *testing.T) {
	repo := memory.New()
	stored := domain.NewAccount().ApplyDelta(-1500, domain.SourceTrade, "Bought TCS")
	require.NoError(t, repo.SaveAccount(context.Background(), "tester", stored))

	s := testSession(t, repo)
	assert.Equal(t, 8500.0, s.Account().Balance)
	assert.Len(t, s.Account().Transactions, 1)
}

func TestLoadFallsBackOnSlowStore(t *testing.T) {
	repo := &slowRepo{delay: 200 * time.Millisecond}
	s := Load(context.Background(), repo, Config{
		UserID:      "tester",
		LoadTimeout: 20 * time.Millisecond,
	})
	defer s.Close()

	assert.Equal(t, float64(domain.StartingBalance), s.Account().Balance)
}

func TestBuyAndSellThroughSession(t *testing.T) {
	s := testSession(t, memory.New())
	snap := snapWith(map[string]float64{"RELIANCE": 2985.45})

	acct, err := s.Buy(snap, "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, 7014.55, acct.Balance)

	acct, err = s.Sell(snap, 0)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, acct.Balance)
	assert.Empty(t, acct.Positions)
}

func TestSellFirstBySymbol(t *testing.T) {
	s := testSession(t, memory.New())
	snap := snapWith(map[string]float64{"TCS": 4120.30, "SBIN": 840.15})

	_, err := s.Buy(snap, "TCS")
	require.NoError(t, err)
	_, err = s.Buy(snap, "SBIN")
	require.NoError(t, err)

	acct, err := s.SellFirst(snap, "SBIN")
	require.NoError(t, err)
	require.Len(t, acct.Positions, 1)
	assert.Equal(t, "TCS", acct.Positions[0].Symbol)

	_, err = s.SellFirst(snap, "SBIN")
	assert.ErrorIs(t, err, domain.ErrInvalidPosition)
}

func TestRejectedCommandKeepsState(t *testing.T) {
	s := testSession(t, memory.New())
	snap := snapWith(map[string]float64{"BAJFINANCE": 50000})

	_, err := s.Buy(snap, "BAJFINANCE")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, float64(domain.StartingBalance), s.Account().Balance)
	assert.Empty(t, s.Account().Transactions)
}

func TestRewardAndPenalty(t *testing.T) {
	s := testSession(t, memory.New())

	acct := s.Reward(75, "Quiz: emergency funds")
	assert.Equal(t, 10075.0, acct.Balance)
	assert.Equal(t, domain.SourceReward, acct.Transactions[0].Source)

	acct = s.Penalty(20000, "Lifestyle inflation")
	assert.Equal(t, 0.0, acct.Balance)
	assert.Equal(t, domain.SourcePenalty, acct.Transactions[1].Source)
}

func TestDebouncedSavePersists(t *testing.T) {
	repo := memory.New()
	s := testSession(t, repo)
	snap := snapWith(map[string]float64{"INFY": 1875.90})

	_, err := s.Buy(snap, "INFY")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		acct, found, _ := repo.LoadAccount(context.Background(), "tester")
		return found && acct.Balance == 8124.10
	}, time.Second, 10*time.Millisecond)
}

func TestCloseFlushesPendingSave(t *testing.T) {
	repo := memory.New()
	s := Load(context.Background(), repo, Config{
		UserID:       "tester",
		LoadTimeout:  time.Second,
		SaveDebounce: time.Hour, // debounce never fires on its own
	})
	snap := snapWith(map[string]float64{"INFY": 1875.90})

	_, err := s.Buy(snap, "INFY")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	acct, found, err := repo.LoadAccount(context.Background(), "tester")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 8124.10, acct.Balance)
}

// slowRepo simulates an unresponsive store.
type slowRepo struct {
	delay time.Duration
}

func (r *slowRepo) LoadAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	select {
	case <-ctx.Done():
		return domain.Account{}, false, ctx.Err()
	case <-time.After(r.delay):
		return domain.NewAccount(), true, nil
	}
}

func (r *slowRepo) SaveAccount(ctx context.Context, userID string, acct domain.Account) error {
	return nil
}

func (r *slowRepo) InsertEquitySnapshot(ctx context.Context, userID string, ts int64, balance, equity float64) error {
	return nil
}

func (r *slowRepo) Close() error { return nil }
