package eval

import (
	"math/bits"

	"github.com/domino14/othello/board"
)

const corners uint64 = 0x8100000000000081

// FastestFirst is the endgame ordering key for a child position, seen from
// the child's mover (our opponent). Smaller is better for the parent:
// children that leave the opponent few replies, and no corner, come first.
func FastestFirst(child board.Position) int32 {
	moves := child.Moves()
	return int32(bits.OnesCount64(moves) + 2*bits.OnesCount64(moves&corners))
}
