// Package eval holds the leaf evaluators used by the search: a weighted
// heuristic, rank-pattern positional tables, a learned model, and the
// terminal values for finished games.
package eval

import (
	"errors"

	"github.com/domino14/othello/board"
)

const (
	// DiskScale converts disks to centidisks.
	DiskScale = 100
	// WLDBase offsets a decided game so that any win outranks any
	// heuristic estimate.
	WLDBase = 65
	// MaxHeuristic bounds every non-terminal estimate.
	MaxHeuristic = 6400
	// MaxScore bounds every midgame score, terminal values included.
	MaxScore = DiskScale * (WLDBase + 64)
)

var ErrBatchSize = errors.New("evaluator returned wrong number of results")

// Evaluator scores a position from the mover's point of view, in
// centidisks. Higher is better for the mover.
type Evaluator interface {
	Evaluate(p board.Position) (int32, error)
}

// BatchEvaluator can score many positions in one call. The search uses it
// to evaluate all children of a node at once.
type BatchEvaluator interface {
	Evaluator
	EvaluateBatch(ps []board.Position) ([]int32, error)
}

// Exact is the final disc difference, in disks.
func Exact(p board.Position) int32 {
	return int32(p.DiscDiff())
}

// WLD scores a finished game as win/loss/draw, biased by the number of
// empties so that quicker wins are preferred. Units are disks.
func WLD(p board.Position) int32 {
	diff := p.DiscDiff()
	switch {
	case diff > 0:
		return int32(WLDBase + p.Empties())
	case diff < 0:
		return -int32(WLDBase + p.Empties())
	}
	return 0
}

// MidgameTerminal is the value of a finished game in a midgame search.
func MidgameTerminal(p board.Position) int32 {
	return DiskScale * WLD(p)
}

// ExactTerminal is the final disc difference in centidisks.
func ExactTerminal(p board.Position) int32 {
	return DiskScale * Exact(p)
}

func clamp(v, lim int32) int32 {
	if v > lim {
		return lim
	}
	if v < -lim {
		return -lim
	}
	return v
}
