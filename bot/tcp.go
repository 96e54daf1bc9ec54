package bot

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/config"
	"github.com/domino14/othello/protocol"
)

// ListenAndServe serves TCP clients on addr until ctx is done.
func (b *Bot) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return b.Serve(ctx, ln)
}

// Serve accepts connections until ctx is done, answering one request per
// connection. It waits for in-flight connections before returning.
func (b *Bot) Serve(ctx context.Context, ln net.Listener) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("tcp-listening")
	var wg sync.WaitGroup
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				log.Info().Msg("tcp-server-stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.serveConn(conn)
		}()
	}
}

func (b *Bot) serveConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	timeout := b.config.GetDuration(config.ConfigReadTimeout)
	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
	}

	req, err := protocol.ReadRequest(conn)
	if err != nil {
		log.Err(err).Str("remote", remote).Msg("bad-request")
		return
	}
	ans, err := b.BestMove(req)
	if err != nil {
		log.Err(err).Str("remote", remote).Msg("request-failed")
		return
	}
	if _, err := conn.Write(ans.Encode()); err != nil {
		log.Err(err).Str("remote", remote).Msg("write-failed")
		return
	}
	log.Info().Str("remote", remote).Str("move", ans.Move.String()).
		Int32("score", ans.Score).Stringer("source", ans.Source).
		Uint64("nodes", ans.Nodes).Msg("best-move")

	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
		tc.CloseRead()
	}
}
