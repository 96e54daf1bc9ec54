package automatic

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/book"
	"github.com/domino14/othello/eval"
	"github.com/domino14/othello/search"
	"github.com/domino14/othello/symmetry"
)

// BookBuilder solves every position within Plies of the start and stages
// the answers in a Store. Positions already in the store are skipped, so
// an interrupted build can be resumed.
type BookBuilder struct {
	Store     *book.Store
	Evaluator eval.Evaluator
	Plies     int
	MidDepth  int
	// Positions with at most EndDepth empties are solved exactly.
	EndDepth          int
	Threads           int
	TableSizePowerOf2 int
}

// BookFrontier returns one canonical image of every position reachable
// from the start in at most plies moves in which the mover has a move.
func BookFrontier(plies int) []board.Position {
	seen := map[board.Position]bool{}
	var out []board.Position
	level := []board.Position{board.Start()}
	for ply := 0; ply <= plies && len(level) > 0; ply++ {
		var next []board.Position
		for _, p := range level {
			canon, _ := symmetry.Canonicalize(p)
			if seen[canon] {
				continue
			}
			seen[canon] = true
			if !canon.HasMoves() {
				continue
			}
			out = append(out, canon)
			for _, m := range board.MoveList(canon.Moves()) {
				next = append(next, canon.Play(m))
			}
		}
		level = next
	}
	return out
}

func (bb *BookBuilder) solve(p board.Position, table *search.Table) (board.Move, int32, error) {
	if p.Empties() <= bb.EndDepth {
		res, err := search.NewEndgame(table).Root(p, -board.NumCells, board.NumCells, search.MaxEndgameDepth)
		if err != nil {
			return 0, 0, err
		}
		return res.Move, eval.DiskScale * res.Score, nil
	}
	res, err := search.NewMidgame(bb.Evaluator, table).Root(p, -eval.MaxScore, eval.MaxScore, bb.MidDepth)
	if err != nil {
		return 0, 0, err
	}
	return res.Move, res.Score, nil
}

// Build solves the missing positions and returns how many were added.
func (bb *BookBuilder) Build(ctx context.Context) (int, error) {
	frontier := BookFrontier(bb.Plies)
	var todo []board.Position
	for _, p := range frontier {
		has, err := bb.Store.Has(ctx, p)
		if err != nil {
			return 0, err
		}
		if !has {
			todo = append(todo, p)
		}
	}
	// random order so that a partial build covers every depth a little
	frand.Shuffle(len(todo), func(i, j int) { todo[i], todo[j] = todo[j], todo[i] })
	log.Info().Int("frontier", len(frontier)).Int("todo", len(todo)).Msg("book-build-starting")

	pool := search.NewTablePool(bb.TableSizePowerOf2)
	var added atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(bb.Threads, 1))
	for _, p := range todo {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			table := pool.Get()
			defer pool.Put(table)
			m, score, err := bb.solve(p, table)
			if err != nil {
				return fmt.Errorf("solving %s: %w", p.Compact(), err)
			}
			if err := bb.Store.Put(gctx, p, m, book.EvalToHalfDisks(score)); err != nil {
				return err
			}
			if n := added.Add(1); n%1000 == 0 {
				log.Info().Int64("added", n).Int("todo", len(todo)).Msg("book-build-progress")
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return int(added.Load()), err
}
