package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/othello/bot"
	"github.com/domino14/othello/config"
)

const (
	GracefulShutdownTimeout = 20 * time.Second
)

func main() {
	// Determine the directory of the executable. We will use this
	// directory to find the data files if an absolute path is not
	// provided for these!
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("loading-config")
	}
	cfg.AdjustRelativePaths(exPath)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	log.Info().Str("exPath", exPath).Str("evaluator", cfg.GetString(config.ConfigEvaluator)).
		Str("book", cfg.GetString(config.ConfigBookPath)).Msg("loaded-config")

	// Resources are loaded before anything listens, so a bad book or model
	// stops the process here.
	b, err := bot.FromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("loading-resources")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.ListenAndServe(ctx, cfg.GetString(config.ConfigListenAddr))
	})
	if url := cfg.GetString(config.ConfigNatsURL); url != "" {
		nc, err := nats.Connect(url)
		if err != nil {
			log.Fatal().AnErr("natsConnectErr", err).Msg("nats-connect")
		}
		defer nc.Close()
		g.Go(func() error {
			return b.ServeNATS(ctx, nc, cfg.GetString(config.ConfigNatsSubject))
		})
	}

	<-ctx.Done()
	log.Info().Msg("got quit signal...")
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Err(err).Msg("server-error")
			os.Exit(1)
		}
	case <-time.After(GracefulShutdownTimeout):
		log.Warn().Msg("shutdown-timed-out")
	}
	log.Info().Msg("server gracefully shutting down")
}
