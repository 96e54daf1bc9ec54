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
	"github.com/domino14/othello/bot"
	"github.com/domino14/othello/cache"
	"github.com/domino14/othello/config"
	"github.com/domino14/othello/protocol"
)

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	suitePath := fs.String("suite", "", "YAML position suite to search")
	bins := fs.Int("bins", 12, "histogram bins")
	games := fs.Int("games", 0, "self-play games against -opponent")
	opponent := fs.String("opponent", config.EvaluatorHeuristic, "evaluator for the other side")
	threads := fs.Int("threads", 4, "games played in parallel")
	randomPlies := fs.Int("random", 8, "random opening plies per game")
	midDepth := fs.Int("mid", 4, "midgame depth for self-play")
	endDepth := fs.Int("end", 14, "endgame empties for self-play")
	seedsPath := fs.String("seeds", "", "opening seed file; created with -games seeds if missing")
	resultsPath := fs.String("results", "games.csv", "results file")
	positionsPath := fs.String("positions", "", "write every position reached as ply,black,white")

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
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}

	b, err := bot.FromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("loading-resources")
	}

	if *suitePath != "" {
		suite, err := automatic.LoadSuite(*suitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("loading-suite")
		}
		res, err := automatic.RunSuite(b, suite)
		if err != nil {
			log.Fatal().Err(err).Msg("running-suite")
		}
		fmt.Printf("%s: solved %d/%d, exact scores %d\n", suite.Name, res.Solved, res.Total, res.Scored)
		if len(res.Misses) > 0 {
			fmt.Printf("missed: %v\n", res.Misses)
		}
		fmt.Printf("seconds: %v\nnodes:   %v\n", &res.Seconds.Statistic, &res.Nodes.Statistic)
		fmt.Println("search time (s):")
		if err := res.Seconds.FprintHistogram(os.Stdout, *bins, 50); err != nil {
			log.Fatal().Err(err).Msg("histogram")
		}
	}

	if *games > 0 {
		opp, err := cache.EvaluatorNamed(cfg, *opponent)
		if err != nil {
			log.Fatal().Err(err).Msg("loading-opponent")
		}
		var seeds [][32]byte
		if *seedsPath != "" {
			seeds, err = automatic.LoadSeeds(*seedsPath)
			if os.IsNotExist(err) {
				seeds = automatic.GenerateSeeds(*games)
				err = automatic.SaveSeeds(seeds, *seedsPath)
			}
			if err != nil {
				log.Fatal().Err(err).Msg("seeds")
			}
		}
		params := protocol.Params{EndDepth: *endDepth, MidDepth: *midDepth, Exact: true}
		match := &automatic.Match{
			First:       automatic.Player{Name: cfg.GetString(config.ConfigEvaluator), Bot: b, Params: params},
			Second:      automatic.Player{Name: *opponent + "-opp", Bot: bot.NewBot(cfg, nil, opp), Params: params},
			NumGames:    *games,
			Threads:     *threads,
			RandomPlies: *randomPlies,
			Seeds:       seeds,
		}
		results, err := os.Create(*resultsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("creating-results")
		}
		match.Results = results
		if *positionsPath != "" {
			pf, err := os.Create(*positionsPath)
			if err != nil {
				log.Fatal().Err(err).Msg("creating-positions")
			}
			defer pf.Close()
			match.Positions = pf
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if _, err := match.Play(ctx); err != nil {
			log.Fatal().Err(err).Msg("match")
		}
		if err := results.Close(); err != nil {
			log.Fatal().Err(err).Msg("closing-results")
		}
		summary, err := automatic.AnalyzeLogFile(*resultsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("analyzing")
		}
		fmt.Print(summary)
	}
}
