package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/othello/automatic"
	"github.com/domino14/othello/book"
	"github.com/domino14/othello/cache"
	"github.com/domino14/othello/config"
	"github.com/domino14/othello/search"
)

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	fs := pflag.NewFlagSet("bookgen", pflag.ContinueOnError)
	dbPath := fs.String("db", "./data/book.sqlite", "sqlite staging database")
	out := fs.String("out", "", "write the finished book here")
	compress := fs.String("compress", "zstd", "compression for -out: none, gzip or zstd")
	plies := fs.Int("plies", 8, "book depth in plies from the start")
	midDepth := fs.Int("mid-depth", 8, "midgame search depth")
	endDepth := fs.Int("end-depth", 20, "solve exactly at or below this many empties")
	threads := fs.Int("threads", 4, "positions solved in parallel")
	exportOnly := fs.Bool("export-only", false, "skip solving and just export the database")

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:], fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.AdjustRelativePaths(exPath)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	comp, err := book.ParseCompression(*compress)
	if err != nil || comp == book.Detect {
		log.Fatal().Str("compress", *compress).Msg("unknown-compression")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := book.OpenStore(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("opening-store")
	}
	defer store.Close()

	if !*exportOnly {
		ev, err := cache.Evaluator(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("loading-evaluator")
		}
		pow := cfg.GetInt(config.ConfigCacheSizePowerOf2)
		if pow <= 0 {
			pow = search.SizeForMemory(cfg.GetFloat64(config.ConfigCacheMemoryFraction))
		}
		bb := &automatic.BookBuilder{
			Store:             store,
			Evaluator:         ev,
			Plies:             *plies,
			MidDepth:          *midDepth,
			EndDepth:          *endDepth,
			Threads:           *threads,
			TableSizePowerOf2: pow,
		}
		start := time.Now()
		added, err := bb.Build(ctx)
		log.Info().Int("added", added).Dur("elapsed", time.Since(start)).Msg("book-build-done")
		if err != nil {
			log.Err(err).Msg("book-build-stopped")
			// whatever was solved is in the store; export only a complete build
			return
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("counting")
	}
	log.Info().Int("positions", n).Str("db", *dbPath).Msg("store-summary")
	if *out == "" {
		return
	}
	bk, err := store.Export(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("exporting")
	}
	if err := book.WriteFile(*out, bk, comp); err != nil {
		log.Fatal().Err(err).Msg("writing-book")
	}
	log.Info().Str("out", *out).Int("positions", bk.Len()).Msg("wrote-book")
}
