package bot

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// respond answers a NATS payload. Malformed or failed requests get an
// empty reply so the caller does not wait for its timeout.
func (b *Bot) respond(data []byte) []byte {
	resp, err := b.Handle(data)
	if err != nil {
		log.Err(err).Int("bytes", len(data)).Msg("nats-bad-request")
		return []byte{}
	}
	return resp
}

// ServeNATS answers requests on subject until ctx is done.
func (b *Bot) ServeNATS(ctx context.Context, nc *nats.Conn, subject string) error {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		log.Debug().Int("bytes", len(m.Data)).Msg("nats-recv")
		if err := m.Respond(b.respond(m.Data)); err != nil {
			log.Err(err).Msg("nats-respond-failed")
		}
	})
	if err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Str("subject", subject).Msg("nats-listening")

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		log.Err(err).Msg("nats-drain-failed")
	}
	return nil
}
