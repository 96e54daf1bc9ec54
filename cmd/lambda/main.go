package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/bot"
	"github.com/domino14/othello/config"
)

var b *bot.Bot
var nc *nats.Conn

func HandleRequest(ctx context.Context, evt bot.LambdaEvent) (string, error) {
	if nc == nil {
		return b.HandleLambda(ctx, nil, evt)
	}
	return b.HandleLambda(ctx, nc, evt)
}

func main() {
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

	b, err = bot.FromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("loading-resources")
	}
	if url := cfg.GetString(config.ConfigNatsURL); url != "" {
		nc, err = nats.Connect(url)
		if err != nil {
			log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
		}
	}

	lambda.Start(HandleRequest)
}
