package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"marketsim/internal/application/port"
	"marketsim/internal/domain"
)

// Config holds session persistence tunables.
type Config struct {
	// UserID keys the account in the profile store.
	UserID string
	// LoadTimeout bounds the initial profile fetch; on expiry a fresh
	// default account is used, mirroring store unavailability.
	LoadTimeout time.Duration
	// SaveDebounce delays persistence after a mutation so rapid command
	// bursts collapse into one write.
	SaveDebounce time.Duration
}

// DefaultConfig returns the standard persistence parameters.
func DefaultConfig() Config {
	return Config{
		UserID:       "default",
		LoadTimeout:  4 * time.Second,
		SaveDebounce: 1500 * time.Millisecond,
	}
}

// Service owns one account and serializes every mutating command against it.
// All mutations go through domain.Account's pure functions; the service just
// holds the latest authoritative value and schedules debounced writes to the
// profile store. Save failures are logged and dropped: the session keeps
// working from memory and the next save wins.
type Service struct {
	cfg  Config
	repo port.ProfileRepository

	mu        sync.Mutex
	acct      domain.Account
	saveTimer *time.Timer
	closed    bool
}

// Load resumes the account from the profile store, falling back to a fresh
// default account when the store is empty, slow or unavailable.
func Load(ctx context.Context, repo port.ProfileRepository, cfg Config) *Service {
	if cfg.UserID == "" {
		cfg.UserID = DefaultConfig().UserID
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultConfig().LoadTimeout
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = DefaultConfig().SaveDebounce
	}

	s := &Service{cfg: cfg, repo: repo, acct: domain.NewAccount()}

	lctx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	defer cancel()

	acct, found, err := repo.LoadAccount(lctx, cfg.UserID)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("user", cfg.UserID).Msg("profile load failed, starting fresh")
	case found:
		s.acct = acct
		log.Info().Str("user", cfg.UserID).Float64("balance", acct.Balance).Msg("profile resumed")
	default:
		log.Info().Str("user", cfg.UserID).Msg("no stored profile, starting fresh")
	}
	return s
}

// Account returns the current authoritative account state.
func (s *Service) Account() domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct
}

// Buy executes a buy of symbol at the snapshot's price. The account is only
// replaced when the command succeeds; a rejection leaves no trace.
func (s *Service) Buy(snap domain.FeedSnapshot, symbol string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.acct.Buy(snap, symbol)
	if err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("buy rejected")
		return s.acct, err
	}
	s.replaceLocked(next)
	return next, nil
}

// Sell closes the position at index at the snapshot's price.
func (s *Service) Sell(snap domain.FeedSnapshot, index int) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.acct.Sell(snap, index)
	if err != nil {
		log.Debug().Err(err).Int("index", index).Msg("sell rejected")
		return s.acct, err
	}
	s.replaceLocked(next)
	return next, nil
}

// SellFirst closes the first open position on symbol, for callers that track
// holdings by symbol rather than index.
func (s *Service) SellFirst(snap domain.FeedSnapshot, symbol string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, pos := range s.acct.Positions {
		if pos.Symbol == symbol {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.acct, domain.ErrInvalidPosition
	}

	next, err := s.acct.Sell(snap, idx)
	if err != nil {
		return s.acct, err
	}
	s.replaceLocked(next)
	return next, nil
}

// ApplyDelta applies a non-trade balance change (rewards, penalties, system
// adjustments) through the ledger.
func (s *Service) ApplyDelta(amount float64, source, label string) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.acct.ApplyDelta(amount, source, label)
	s.replaceLocked(next)
	return next
}

// Reward credits amount with the reward source.
func (s *Service) Reward(amount float64, label string) domain.Account {
	return s.ApplyDelta(amount, domain.SourceReward, label)
}

// Penalty debits amount with the penalty source. The ledger clamp still
// applies: the balance never goes below zero.
func (s *Service) Penalty(amount float64, label string) domain.Account {
	return s.ApplyDelta(-amount, domain.SourcePenalty, label)
}

// Equity marks the account against the given snapshot.
func (s *Service) Equity(snap domain.FeedSnapshot) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct.Equity(snap)
}

// UserID returns the profile key this session persists under.
func (s *Service) UserID() string {
	return s.cfg.UserID
}

// replaceLocked installs the new account state and (re)arms the debounced
// save. Caller holds s.mu.
func (s *Service) replaceLocked(next domain.Account) {
	s.acct = next
	if s.closed {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.cfg.SaveDebounce, s.save)
}

func (s *Service) save() {
	s.mu.Lock()
	acct := s.acct
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.SaveAccount(ctx, s.cfg.UserID, acct); err != nil {
		log.Warn().Err(err).Str("user", s.cfg.UserID).Msg("profile save failed")
		return
	}
	log.Debug().Str("user", s.cfg.UserID).Float64("balance", acct.Balance).Msg("profile saved")
}

// Close flushes any pending save synchronously.
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	pending := s.saveTimer != nil && s.saveTimer.Stop()
	s.mu.Unlock()

	if pending {
		s.save()
	}
	return nil
}
