package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/config"
	"github.com/domino14/othello/shell"
)

var (
	GitVersion string
)

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)
	fmt.Println("othello shell", GitVersion)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.AdjustRelativePaths(exPath)

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i any) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i any) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i any) string {
		return fmt.Sprintf("%s:", i)
	}

	var logger zerolog.Logger
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}

	quit := make(chan struct{})
	sig := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("got quit signal...")
		close(quit)
	}()

	sc := shell.NewShellController(cfg)
	go sc.Loop(sig)
	<-quit
}
