package bot

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/protocol"
)

// LambdaEvent is the payload of a Lambda invocation. The answer is sent as
// a wire response on ReplyChannel when one is given.
type LambdaEvent struct {
	RequestID     string `json:"requestID"`
	Mover         uint64 `json:"mover"`
	Opponent      uint64 `json:"opponent"`
	RemainingTime uint16 `json:"remainingTime"`
	Params        uint16 `json:"params"`
	ReplyChannel  string `json:"replyChannel"`
}

// Requester is the part of *nats.Conn used to deliver Lambda replies.
type Requester interface {
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

const replyAttempts = 5

// HandleLambda answers evt and returns the move in algebraic notation.
// Delivery on the reply channel is retried until the receiver acknowledges.
func (b *Bot) HandleLambda(ctx context.Context, nc Requester, evt LambdaEvent) (string, error) {
	logger := log.With().Str("requestID", evt.RequestID).Logger()

	req := protocol.Request{
		Position:      board.Position{Mover: evt.Mover, Opponent: evt.Opponent},
		RemainingTime: evt.RemainingTime,
		Params:        protocol.DecodeParams(evt.Params),
	}
	ans, err := b.BestMove(req)
	if err != nil {
		return "", err
	}
	logger.Info().Str("move", ans.Move.String()).Int32("score", ans.Score).
		Stringer("source", ans.Source).Msg("lambda-best-move")

	if evt.ReplyChannel != "" && nc != nil {
		data := ans.Encode()
		err = retry.Do(
			func() error {
				// Only the acknowledgement matters, not its contents.
				_, err := nc.Request(evt.ReplyChannel, data, 3*time.Second)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(replyAttempts),
			retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
				logger.Err(err).Uint("n", n).Msg("did-not-receive-ack-try-again")
				return retry.BackOffDelay(n, err, config)
			}),
		)
		if err != nil {
			logger.Err(err).Msg("reply-failed")
		}
	}
	return ans.Move.String(), nil
}
