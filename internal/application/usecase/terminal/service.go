package terminal

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"marketsim/internal/application/port"
	"marketsim/internal/application/usecase/feed"
	"marketsim/internal/application/usecase/session"
	"marketsim/internal/domain"
	"marketsim/presentation"
)

// Broadcaster pushes feed/account state to attached UI clients.
type Broadcaster interface {
	Broadcast(snap domain.FeedSnapshot, acct domain.Account)
}

type ServiceDeps struct {
	Feed          *feed.Service
	Session       *session.Service
	Sink          port.Sink
	Broadcaster   Broadcaster // optional
	PrintEverySec int
}

// Service renders the live terminal view of the market: one overwritten
// ticker line per feed update plus a periodic timestamped snapshot line.
type Service struct {
	deps ServiceDeps
	r    *presentation.Renderer
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps, r: presentation.NewRenderer()}
}

func (s *Service) Run(ctx context.Context) error {
	if s.deps.Feed == nil {
		return errors.New("no feed")
	}

	updates, cancel := s.deps.Feed.Subscribe()
	defer cancel()

	every := s.deps.PrintEverySec
	if every <= 0 {
		every = 60
	}
	snapTicker := time.NewTicker(time.Duration(every) * time.Second)
	defer snapTicker.Stop()

	symbols := s.deps.Feed.Symbols()

	// initial live line from the pre-tick state
	first := s.deps.Feed.Snapshot()
	_ = s.deps.Sink.WriteLive(s.r.RenderLine(symbols, first, s.deps.Session.Account(), true))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapTicker.C:
			snap := s.deps.Feed.Snapshot()
			acct := s.deps.Session.Account()
			line := s.r.RenderLine(symbols, snap, acct, false)
			_ = s.deps.Sink.WriteSnapshot(now, line)

		case snap, ok := <-updates:
			if !ok {
				log.Info().Msg("feed closed, terminal exiting")
				return nil
			}
			acct := s.deps.Session.Account()
			_ = s.deps.Sink.WriteLive(s.r.RenderLine(symbols, snap, acct, true))
			if s.deps.Broadcaster != nil {
				s.deps.Broadcaster.Broadcast(snap, acct)
			}
		}
	}
}
