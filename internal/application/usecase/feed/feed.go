package feed

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"marketsim/internal/domain"
)

// Config holds the feed tunables.
type Config struct {
	// TickInterval is the wall-clock period between price advances.
	TickInterval time.Duration
	// Walk parameters, see domain.Walk. DriftProbability 0 disables the
	// upward drift entirely; a negative value selects the default.
	Volatility       float64
	DriftProbability float64
	DriftNudge       float64
	// Seed for the walk RNG; 0 picks a time-based seed.
	Seed int64
	// UpdateBuffer is the per-subscriber channel depth. Slow subscribers
	// miss updates instead of stalling the tick loop.
	UpdateBuffer int
	// PreseedSteps is how many walk steps of synthetic history each
	// instrument starts with, so charts are non-empty on first render.
	PreseedSteps int
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		TickInterval:     2 * time.Second,
		Volatility:       domain.DefaultVolatility,
		DriftProbability: domain.DefaultDriftProbability,
		DriftNudge:       domain.DefaultDriftNudge,
		UpdateBuffer:     8,
		PreseedSteps:     30,
	}
}

// Service owns the set of tradable instruments, advances all prices on a
// fixed schedule and publishes read-only snapshots. All mutation happens in
// Tick; consumers only ever see deep copies.
type Service struct {
	cfg  Config
	walk *domain.Walk

	mu    sync.RWMutex
	order []string
	insts map[string]*domain.Instrument

	subMu   sync.Mutex
	subs    map[int]chan domain.FeedSnapshot
	nextSub int
	dropped atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
}

// New builds one instrument per seed entry. The open price is a small
// synthetic offset below the live price so a daily change is visible from
// the first render, and the history is pre-seeded by walking forward from a
// lower starting point with the final point pinned to the seed price.
func New(cfg Config, seedPrices map[string]float64, displayNames map[string]string) *Service {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.UpdateBuffer <= 0 {
		cfg.UpdateBuffer = DefaultConfig().UpdateBuffer
	}
	if cfg.PreseedSteps <= 0 {
		cfg.PreseedSteps = DefaultConfig().PreseedSteps
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	walk := domain.NewWalk(seed)
	if cfg.Volatility > 0 {
		walk.Volatility = cfg.Volatility
	}
	if cfg.DriftProbability >= 0 {
		walk.DriftProbability = cfg.DriftProbability
	}
	if cfg.DriftNudge > 0 {
		walk.DriftNudge = cfg.DriftNudge
	}

	s := &Service{
		cfg:    cfg,
		walk:   walk,
		insts:  make(map[string]*domain.Instrument, len(seedPrices)),
		subs:   make(map[int]chan domain.FeedSnapshot),
		closed: make(chan struct{}),
	}

	order := make([]string, 0, len(seedPrices))
	for sym := range seedPrices {
		order = append(order, sym)
	}
	sort.Strings(order)
	s.order = order

	now := time.Now()
	for _, sym := range order {
		price := seedPrices[sym]
		name := displayNames[sym]
		if name == "" {
			name = sym
		}
		s.insts[sym] = &domain.Instrument{
			Symbol:       sym,
			DisplayName:  name,
			CurrentPrice: price,
			OpenPrice:    domain.Round2(price * 0.995),
			History:      s.preseedHistory(price, now),
		}
	}

	log.Info().Int("instruments", len(order)).Msg("feed initialized")
	return s
}

// preseedHistory walks forward from slightly below the seed price and pins
// the last point to the seed price itself, yielding PreseedSteps+1 points
// spaced one tick apart ending now.
func (s *Service) preseedHistory(price float64, now time.Time) []domain.PricePoint {
	steps := s.cfg.PreseedSteps
	hist := make([]domain.PricePoint, 0, steps+1)
	start := now.Add(-time.Duration(steps) * s.cfg.TickInterval)

	p := price * 0.98
	for i := 0; i < steps; i++ {
		p = s.walk.NextPrice(p)
		hist = append(hist, domain.PricePoint{
			Time:  start.Add(time.Duration(i) * s.cfg.TickInterval),
			Price: p,
		})
	}
	hist = append(hist, domain.PricePoint{Time: now, Price: price})
	return hist
}

// Symbols returns the instrument symbols in stable order.
func (s *Service) Symbols() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Tick advances every instrument one step and returns the resulting
// snapshot. Each tick is self-contained; no partial state carries over.
func (s *Service) Tick() domain.FeedSnapshot {
	now := time.Now()

	s.mu.Lock()
	for _, sym := range s.order {
		in := s.insts[sym]
		in.CurrentPrice = s.walk.NextPrice(in.CurrentPrice)
		in.History = append(in.History, domain.PricePoint{Time: now, Price: in.CurrentPrice})
		if len(in.History) > domain.HistoryCap {
			in.History = in.History[len(in.History)-domain.HistoryCap:]
		}
	}
	s.mu.Unlock()

	return s.Snapshot()
}

// Snapshot returns a deep-copied view of the current feed state. Callers may
// hold and read it freely; mutating it cannot affect the feed.
func (s *Service) Snapshot() domain.FeedSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := domain.FeedSnapshot{
		Time:        time.Now(),
		Instruments: make(map[string]domain.Instrument, len(s.insts)),
	}
	for sym, in := range s.insts {
		out.Instruments[sym] = in.Clone()
	}
	return out
}

// Subscribe registers for per-tick snapshots. The returned cancel func must
// be called when done. A subscriber that falls behind misses updates rather
// than blocking the feed.
func (s *Service) Subscribe() (<-chan domain.FeedSnapshot, func()) {
	ch := make(chan domain.FeedSnapshot, s.cfg.UpdateBuffer)

	s.subMu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if cur, ok := s.subs[key]; ok {
			delete(s.subs, key)
			close(cur)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// Dropped returns how many updates were discarded for slow subscribers.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Service) publish(snap domain.FeedSnapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			s.dropped.Add(1)
		}
	}
}

// Run drives the tick loop until the context is cancelled or Close is
// called. Teardown is clean: no tick fires after Run returns.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.cfg.TickInterval).Msg("feed running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case <-ticker.C:
			s.publish(s.Tick())
		}
	}
}

// Close stops the tick loop and closes all subscriber channels.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.subMu.Lock()
		for key, ch := range s.subs {
			delete(s.subs, key)
			close(ch)
		}
		s.subMu.Unlock()
	})
}
