package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketsim/internal/application/usecase/terminal"
	"marketsim/internal/infrastructure/config"
	"marketsim/internal/infrastructure/logger"
	"marketsim/internal/infrastructure/svc"

	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service initialization failed")
	}
	defer sc.Close()

	go sc.Feed.Run(ctx)
	go sc.PublishTicks(ctx)

	if sc.Gateway != nil {
		sc.Gateway.Start(cfg.Server.Addr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = sc.Gateway.Shutdown(sctx)
		}()
	}

	sc.Scheduler.Start()
	defer sc.Scheduler.Stop()

	log.Info().
		Str("config", *configPath).
		Str("user", cfg.App.UserID).
		Int("symbols", len(cfg.Symbols.List)).
		Msg("marketsim started")

	term := terminal.NewService(sc.BuildTerminalDeps())
	if err := term.Run(ctx); err != nil {
		log.Error().Err(err).Msg("terminal service exited")
	}
}
