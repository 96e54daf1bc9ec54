// Package symmetry maps Othello positions onto one representative of their
// class under the 8 symmetries of the square, and maps moves between images.
package symmetry

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/domino14/othello/board"
)

// A Transform is one of the 8 symmetries of the board.
type Transform uint8

const (
	Identity Transform = iota
	Rotate90
	Rotate180
	Rotate270
	FlipXAxis
	FlipYAxis
	FlipTopLeftDiagonal
	FlipTopRightDiagonal

	NumTransforms = 8
)

var ErrNoPreimage = errors.New("no preimage for cell under transform")

var transformNames = [NumTransforms]string{
	"identity", "rotate-90", "rotate-180", "rotate-270",
	"flip-x", "flip-y", "flip-a1h8", "flip-a8h1",
}

// tables[t][i] is the cell that the disk on cell i moves to under t.
var tables [NumTransforms][board.NumCells]uint8

func init() {
	// (row, col) -> (row, col) images for each transform.
	maps := [NumTransforms]func(r, c int) (int, int){
		func(r, c int) (int, int) { return r, c },
		func(r, c int) (int, int) { return 7 - c, r },
		func(r, c int) (int, int) { return 7 - r, 7 - c },
		func(r, c int) (int, int) { return c, 7 - r },
		func(r, c int) (int, int) { return 7 - r, c },
		func(r, c int) (int, int) { return r, 7 - c },
		func(r, c int) (int, int) { return c, r },
		func(r, c int) (int, int) { return 7 - c, 7 - r },
	}
	for t, f := range maps {
		for i := 0; i < board.NumCells; i++ {
			r, c := f(i/8, i%8)
			tables[t][i] = uint8(r*8 + c)
		}
	}
}

func (t Transform) String() string {
	if int(t) < NumTransforms {
		return transformNames[t]
	}
	return fmt.Sprintf("transform(%d)", uint8(t))
}

// Table returns the cell permutation for t.
func (t Transform) Table() [board.NumCells]uint8 {
	return tables[t]
}

// ApplyBits transforms a single bitboard.
func (t Transform) ApplyBits(bb uint64) uint64 {
	if t == Identity {
		return bb
	}
	tbl := &tables[t]
	var out uint64
	for bb != 0 {
		i := bits.TrailingZeros64(bb)
		bb &= bb - 1
		out |= uint64(1) << tbl[i]
	}
	return out
}

// Apply transforms both sides of the position.
func (t Transform) Apply(p board.Position) board.Position {
	return board.Position{Mover: t.ApplyBits(p.Mover), Opponent: t.ApplyBits(p.Opponent)}
}

// Move maps a move on the original board to the transformed board. Pass
// maps to itself.
func (t Transform) Move(m board.Move) board.Move {
	if m >= board.NumCells {
		return m
	}
	return board.Move(tables[t][m])
}

// Invert maps a move on the transformed board back to the original board.
func (t Transform) Invert(m board.Move) (board.Move, error) {
	if m == board.Pass {
		return m, nil
	}
	if int(t) >= NumTransforms {
		return 0, fmt.Errorf("%w: %v", ErrNoPreimage, t)
	}
	for i, img := range tables[t] {
		if board.Move(img) == m {
			return board.Move(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %v under %v", ErrNoPreimage, m, t)
}

// Canonicalize returns the lexicographically smallest image of p, comparing
// the mover bitboard first and the opponent second, together with the
// transform that produced it. Identity wins ties.
func Canonicalize(p board.Position) (board.Position, Transform) {
	best := p
	bestT := Identity
	for t := Rotate90; t < NumTransforms; t++ {
		img := t.Apply(p)
		if img.Mover < best.Mover || (img.Mover == best.Mover && img.Opponent < best.Opponent) {
			best = img
			bestT = t
		}
	}
	return best, bestT
}
