// Package bot answers move requests: it decides between the opening book,
// the endgame solver and a midgame search, and serves the answers over TCP,
// NATS and Lambda.
package bot

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/book"
	"github.com/domino14/othello/cache"
	"github.com/domino14/othello/config"
	"github.com/domino14/othello/eval"
	"github.com/domino14/othello/protocol"
	"github.com/domino14/othello/search"
)

// ForcedPassScore is sent with a Pass when the mover has no legal move but
// the game is not over. The client ignores the score.
const ForcedPassScore = math.MaxInt16

// Source says which part of the bot produced an answer.
type Source int

const (
	SourceTerminal Source = iota
	SourceForcedPass
	SourceEndgame
	SourceBook
	SourceMidgame
)

func (s Source) String() string {
	switch s {
	case SourceTerminal:
		return "terminal"
	case SourceForcedPass:
		return "forced-pass"
	case SourceEndgame:
		return "endgame"
	case SourceBook:
		return "book"
	case SourceMidgame:
		return "midgame"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Answer is a response plus how it was found.
type Answer struct {
	protocol.Response
	Source Source
	Nodes  uint64
	PV     []board.Move
}

type Bot struct {
	config *config.Config
	book   *book.Book
	mid    eval.Evaluator
	tables *search.TablePool
}

// NewBot builds a bot around an already loaded book and evaluator. bk may
// be nil.
func NewBot(cfg *config.Config, bk *book.Book, mid eval.Evaluator) *Bot {
	pow := cfg.GetInt(config.ConfigCacheSizePowerOf2)
	if pow <= 0 {
		pow = search.SizeForMemory(cfg.GetFloat64(config.ConfigCacheMemoryFraction))
	}
	return &Bot{
		config: cfg,
		book:   bk,
		mid:    mid,
		tables: search.NewTablePool(pow),
	}
}

// FromConfig loads the book and evaluator through the process-wide cache.
func FromConfig(cfg *config.Config) (*Bot, error) {
	bk, err := cache.Book(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading book: %w", err)
	}
	ev, err := cache.Evaluator(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading evaluator: %w", err)
	}
	return NewBot(cfg, bk, ev), nil
}

// effectiveParams applies the low-time depth caps.
func (b *Bot) effectiveParams(req protocol.Request) protocol.Params {
	params := req.Params
	if params.AdjustTime && req.Remaining() < b.config.GetDuration(config.ConfigLowTime) {
		params.MidDepth = min(params.MidDepth, b.config.GetInt(config.ConfigLowTimeMidDepth))
		params.EndDepth = min(params.EndDepth, b.config.GetInt(config.ConfigLowTimeEndDepth))
	}
	return params
}

// solveExactly decides between an exact and a win/loss/draw endgame solve.
// With AdaptiveWLD, only positions comfortably inside the endgame threshold
// are solved exactly.
func (b *Bot) solveExactly(params protocol.Params, empties int) bool {
	if params.AdaptiveWLD {
		return empties <= params.EndDepth-b.config.GetInt(config.ConfigAdaptiveExactMargin)
	}
	return params.Exact
}

// BestMove answers one request. Only an invalid position is an error;
// everything else produces a move.
func (b *Bot) BestMove(req protocol.Request) (Answer, error) {
	p := req.Position
	if !p.Valid() {
		return Answer{}, fmt.Errorf("%w: %016x/%016x", protocol.ErrOverlap, p.Mover, p.Opponent)
	}
	if p.GameOver() {
		return Answer{
			Response: protocol.Response{Move: board.Pass, Score: eval.ExactTerminal(p)},
			Source:   SourceTerminal,
		}, nil
	}
	if !p.HasMoves() {
		return Answer{
			Response: protocol.Response{Move: board.Pass, Score: ForcedPassScore},
			Source:   SourceForcedPass,
		}, nil
	}

	params := b.effectiveParams(req)
	empties := p.Empties()
	table := b.tables.Get()
	defer b.tables.Put(table)

	if empties <= params.EndDepth {
		exact := b.solveExactly(params, empties)
		var window int32 = 1
		if exact {
			window = board.NumCells
		}
		res, err := search.NewEndgame(table).Root(p, -window, window, search.MaxEndgameDepth)
		if err != nil {
			return Answer{}, fmt.Errorf("endgame solve: %w", err)
		}
		log.Debug().Int("empties", empties).Bool("exact", exact).
			Str("move", res.Move.String()).Int32("disks", res.Score).Msg("endgame-solved")
		return Answer{
			Response: protocol.Response{Move: res.Move, Score: eval.DiskScale * res.Score},
			Source:   SourceEndgame,
			Nodes:    res.Nodes,
			PV:       res.PV,
		}, nil
	}

	if params.UseBook && b.book != nil {
		hit, ok, err := b.book.Lookup(p)
		if err != nil {
			return Answer{}, fmt.Errorf("book lookup: %w", err)
		}
		if ok {
			log.Debug().Str("move", hit.Move.String()).Int32("score", hit.Score).Msg("book-hit")
			return Answer{
				Response: protocol.Response{Move: hit.Move, Score: hit.Score},
				Source:   SourceBook,
				PV:       []board.Move{hit.Move},
			}, nil
		}
	}

	depth := params.MidDepth
	if _, batched := b.mid.(eval.BatchEvaluator); batched {
		depth = max(2, depth)
	}
	res, err := search.NewMidgame(b.mid, table).Root(p, -eval.MaxScore, eval.MaxScore, depth)
	if err != nil {
		return Answer{}, fmt.Errorf("midgame search: %w", err)
	}
	return Answer{
		Response: protocol.Response{Move: res.Move, Score: res.Score},
		Source:   SourceMidgame,
		Nodes:    res.Nodes,
		PV:       res.PV,
	}, nil
}

// Handle decodes a wire request, answers it and encodes the response.
func (b *Bot) Handle(data []byte) ([]byte, error) {
	req, err := protocol.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	ans, err := b.BestMove(req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("move", ans.Move.String()).Int32("score", ans.Score).
		Stringer("source", ans.Source).Uint64("nodes", ans.Nodes).
		Stringer("params", req.Params).Msg("best-move")
	return ans.Encode(), nil
}
