package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"marketsim/internal/application/port"
	"marketsim/internal/application/usecase/feed"
	"marketsim/internal/application/usecase/session"
	"marketsim/internal/application/usecase/terminal"
	"marketsim/internal/infrastructure/config"
	"marketsim/internal/infrastructure/scheduler"
	"marketsim/internal/infrastructure/seed"
	compositerepo "marketsim/internal/infrastructure/storage/composite"
	memoryrepo "marketsim/internal/infrastructure/storage/memory"
	postgresrepo "marketsim/internal/infrastructure/storage/postgres"
	redisrepo "marketsim/internal/infrastructure/storage/redis"
	sqliterepo "marketsim/internal/infrastructure/storage/sqlite"
	"marketsim/internal/interfaces/console"
	"marketsim/internal/interfaces/ws"
)

// ServiceContext wires the whole application: storage, seed prices, feed,
// session, render boundaries. It is the single entry point for startup, and
// Close releases everything in reverse initialization order.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	redisClient *redisclient.Client
	redisRepo   *redisrepo.Repo
	profileRepo port.ProfileRepository

	Feed      *feed.Service
	Session   *session.Service
	Gateway   *ws.Gateway
	Scheduler *scheduler.Scheduler
	Sink      port.Sink

	closerChain []func() error
}

func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Sink:        console.NewSink(),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents builds everything in dependency order: storage first,
// then seed prices, feed, session, and finally the boundaries.
func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}

	seedPrices, err := sc.fetchSeedPrices()
	if err != nil {
		return err
	}

	sc.Feed = feed.New(feed.Config{
		TickInterval:     time.Duration(sc.Config.Feed.TickIntervalMs) * time.Millisecond,
		Volatility:       sc.Config.Feed.Volatility,
		DriftProbability: *sc.Config.Feed.DriftProbability,
		DriftNudge:       sc.Config.Feed.DriftNudge,
		Seed:             sc.Config.Feed.Seed,
	}, seedPrices, seed.DisplayNames)
	sc.closerChain = append(sc.closerChain, func() error {
		sc.Feed.Close()
		return nil
	})

	sc.Session = session.Load(sc.Ctx, sc.profileRepo, session.Config{
		UserID:       sc.Config.App.UserID,
		LoadTimeout:  time.Duration(sc.Config.Profile.LoadTimeoutMs) * time.Millisecond,
		SaveDebounce: time.Duration(sc.Config.Profile.SaveDebounceMs) * time.Millisecond,
	})
	sc.closerChain = append(sc.closerChain, sc.Session.Close)

	if sc.Config.Server.Enabled {
		sc.Gateway = ws.NewGateway(sc.Feed, sc.Session)
	}

	sc.Scheduler = scheduler.New(sc.Feed, sc.Session, sc.profileRepo)
	if err := sc.Scheduler.Register(sc.Config.Snapshot.Cron); err != nil {
		return err
	}

	log.Info().
		Int("instruments", len(seedPrices)).
		Bool("server", sc.Config.Server.Enabled).
		Msg("✓ All components initialized")
	return nil
}

// initializeStorage builds the profile store from the enabled backends. With
// none enabled the session runs purely in memory; with several, writes fan
// out through the composite repo.
func (sc *ServiceContext) initializeStorage() error {
	var backends []port.ProfileRepository

	if sc.Config.SQLite.Enabled {
		repo, err := sqliterepo.New(sc.Config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite repo creation failed: %w", err)
		}
		backends = append(backends, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing sqlite connection")
			return repo.Close()
		})
		log.Info().Str("path", sc.Config.SQLite.Path).Msg("✓ SQLite initialized")
	}

	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		backends = append(backends, sc.redisRepo)
	}

	if sc.Config.Postgres.Enabled {
		repo, err := postgresrepo.New(sc.Config.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres repo creation failed: %w", err)
		}
		backends = append(backends, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return repo.Close()
		})
		log.Info().Msg("✓ Postgres initialized")
	}

	switch len(backends) {
	case 0:
		sc.profileRepo = memoryrepo.New()
		log.Info().Msg("no storage backend enabled, profiles kept in memory")
	case 1:
		sc.profileRepo = backends[0]
	default:
		sc.profileRepo = compositerepo.New(backends...)
	}
	return nil
}

func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	ttl := time.Duration(sc.Config.Redis.TTLSeconds) * time.Second
	sc.redisRepo = redisrepo.New(rdb, sc.Config.Redis.Prefix, ttl, sc.Config.Redis.TickChannel)

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().Str("addr", sc.Config.Redis.Addr).Int("db", sc.Config.Redis.DB).Msg("✓ Redis initialized")
	return nil
}

// fetchSeedPrices resolves the configured seed source through the registry,
// makes one bounded attempt and falls back to the static table.
func (sc *ServiceContext) fetchSeedPrices() (map[string]float64, error) {
	factory, ok := seed.Get(sc.Config.SeedSource.Source)
	if !ok {
		return nil, fmt.Errorf("unknown seed source %q", sc.Config.SeedSource.Source)
	}
	src := factory(sc.Config.SeedSource.URL, time.Duration(sc.Config.SeedSource.TimeoutMs)*time.Millisecond)

	prices := seed.FetchOrFallback(sc.Ctx, src, time.Duration(sc.Config.SeedSource.TimeoutMs)*time.Millisecond)
	prices = seed.Filter(prices, sc.Config.Symbols.List)
	if len(prices) == 0 {
		return nil, ErrNoInstruments
	}
	return prices, nil
}

// BuildTerminalDeps assembles the terminal usecase dependencies.
func (sc *ServiceContext) BuildTerminalDeps() terminal.ServiceDeps {
	var broadcaster terminal.Broadcaster
	if sc.Gateway != nil {
		broadcaster = sc.Gateway
	}
	return terminal.ServiceDeps{
		Feed:          sc.Feed,
		Session:       sc.Session,
		Sink:          sc.Sink,
		Broadcaster:   broadcaster,
		PrintEverySec: sc.Config.App.PrintEverySec,
	}
}

// PublishTicks forwards feed updates to the Redis tick channel for external
// consumers. No-op unless Redis is enabled. Blocks until ctx is cancelled.
func (sc *ServiceContext) PublishTicks(ctx context.Context) {
	if sc.redisRepo == nil {
		return
	}
	updates, cancel := sc.Feed.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			for sym, in := range snap.Instruments {
				if err := sc.redisRepo.PublishTick(ctx, sym, in.CurrentPrice, snap.Time.UnixMilli()); err != nil {
					log.Debug().Err(err).Str("symbol", sym).Msg("tick publish failed")
				}
			}
		}
	}
}

// Close shuts down all resources in reverse initialization order.
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}
