package eval

import (
	"math/bits"

	"github.com/domino14/othello/board"
)

type region struct {
	mask   uint64
	weight int32
}

// The regions partition the board.
var regions = [...]region{
	{0x8100000000000081, 120}, // corners
	{0x4281000000008142, -20}, // C-squares
	{0x2400810000810024, 20},  // A-squares
	{0x1800008181000018, 5},   // B-squares
	{0x0042000000004200, -40}, // X-squares
	{0x003c424242423c00, -5},  // inner ring
	{0x0000240000240000, 15},  // inner diagonals
	{0x0000183c3c180000, 3},   // center
}

// Corner triangles two and three cells deep, one pair per corner.
var stableTriangles = [4][2]uint64{
	{0x0000000000000103, 0x0000000000010307}, // a1
	{0x00000000000080c0, 0x000000000080c0e0}, // h1
	{0x0301000000000000, 0x0703010000000000}, // a8
	{0xc080000000000000, 0xe0c0800000000000}, // h8
}

const (
	mobilityWeight  = 25
	stabilityWeight = 250
)

// Heuristic is a fast hand-tuned evaluator: regional disc weights, mobility
// and corner stability.
type Heuristic struct{}

func (Heuristic) Evaluate(p board.Position) (int32, error) {
	return HeuristicScore(p), nil
}

// HeuristicScore evaluates p in centidisks. Finished games get their
// terminal value instead.
func HeuristicScore(p board.Position) int32 {
	if p.GameOver() {
		return MidgameTerminal(p)
	}
	var sum int32
	for _, r := range regions {
		sum += r.weight * int32(bits.OnesCount64(p.Mover&r.mask)-bits.OnesCount64(p.Opponent&r.mask))
	}
	mobility := int32(board.MoveCount(p.Mover, p.Opponent) - board.MoveCount(p.Opponent, p.Mover))
	score := sum + mobilityWeight*mobility + stabilityWeight*stability(p.Mover, p.Opponent)
	return clamp(score, MaxHeuristic)
}

func stability(mover, opponent uint64) int32 {
	var s int32
	for _, tri := range stableTriangles {
		if mover&tri[0] == tri[0] {
			s++
			if mover&tri[1] == tri[1] {
				s++
			}
		}
		if opponent&tri[0] == tri[0] {
			s--
			if opponent&tri[1] == tri[1] {
				s--
			}
		}
	}
	return s
}
