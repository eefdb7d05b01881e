package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"marketsim/internal/application/port"
	"marketsim/internal/application/usecase/feed"
	"marketsim/internal/application/usecase/session"
)

// Scheduler runs the periodic background jobs: equity snapshots marked
// against the live feed, and pruning of old samples where the backend
// supports it.
type Scheduler struct {
	cron    *cron.Cron
	feed    *feed.Service
	session *session.Service
	repo    port.ProfileRepository
}

// SnapshotPruner is implemented by backends that can discard old equity
// samples.
type SnapshotPruner interface {
	DeleteOldSnapshots(ctx context.Context, before time.Time) error
}

func New(f *feed.Service, s *session.Service, repo port.ProfileRepository) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		feed:    f,
		session: s,
		repo:    repo,
	}
}

// Register wires the equity snapshot job at equityCron (6-field spec with
// seconds) and a daily prune at midnight.
func (s *Scheduler) Register(equityCron string) error {
	if _, err := s.cron.AddFunc(equityCron, s.equitySnapshot); err != nil {
		return fmt.Errorf("register equity snapshot: %w", err)
	}
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.pruneSnapshots); err != nil {
		return fmt.Errorf("register snapshot prune: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) equitySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap := s.feed.Snapshot()
	acct := s.session.Account()
	equity := acct.Equity(snap)

	if err := s.repo.InsertEquitySnapshot(ctx, s.session.UserID(), time.Now().UnixMilli(), acct.Balance, equity); err != nil {
		log.Error().Err(err).Msg("equity snapshot failed")
		return
	}
	log.Debug().Float64("balance", acct.Balance).Float64("equity", equity).Msg("equity snapshot recorded")
}

func (s *Scheduler) pruneSnapshots() {
	pruner, ok := s.repo.(SnapshotPruner)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -30)
	if err := pruner.DeleteOldSnapshots(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("snapshot prune failed")
	}
}
