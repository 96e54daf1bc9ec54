// Package board implements the Othello board engine: bitboard move
// generation, move application and terminal detection over a position
// described from the point of view of the side to move.
package board

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// A Move is a cell index from 0 to 63, or Pass.
type Move uint8

// Pass is the move played when the side to move has no legal move. It is
// deliberately outside the 0..63 cell range.
const Pass Move = 65

// NumCells is the number of cells on the board.
const NumCells = 64

const (
	// Full is the bitboard with every cell occupied.
	Full uint64 = 0xffffffffffffffff

	startBlack uint64 = 0x0000000810000000
	startWhite uint64 = 0x0000001008000000
)

var (
	ErrBadMove     = errors.New("not a valid board coordinate")
	ErrBadPosition = errors.New("not a valid board string")
)

// String returns the move in algebraic notation, i.e. "d3". Column letters
// a-h map to bit index mod 8 and row numbers 1-8 to bit index / 8.
func (m Move) String() string {
	if m == Pass {
		return "pass"
	}
	if m >= NumCells {
		return fmt.Sprintf("invalid(%d)", uint8(m))
	}
	return string([]byte{'a' + byte(m%8), '1' + byte(m/8)})
}

// Bit returns the single-bit mask for this move. It is 0 for Pass.
func (m Move) Bit() uint64 {
	if m >= NumCells {
		return 0
	}
	return uint64(1) << m
}

// ParseMove parses algebraic notation ("d3", "H8") or "pass".
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "pass" || s == "ps" {
		return Pass, nil
	}
	if len(s) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadMove, s)
	}
	col := s[0]
	row := s[1]
	if col < 'a' || col > 'h' || row < '1' || row > '8' {
		return 0, fmt.Errorf("%w: %q", ErrBadMove, s)
	}
	return Move((row-'1')*8 + (col - 'a')), nil
}

// Position is a board seen from the side to move. It does not track whose
// color is on turn; the caller swaps the pair after every move or pass.
type Position struct {
	Mover    uint64
	Opponent uint64
}

// Start returns the standard starting position with black to move.
func Start() Position {
	return Position{Mover: startBlack, Opponent: startWhite}
}

// Valid reports whether no cell is claimed by both sides.
func (p Position) Valid() bool {
	return p.Mover&p.Opponent == 0
}

// Moves returns the bitmask of legal destination cells for the mover.
func (p Position) Moves() uint64 {
	return Moves(p.Mover, p.Opponent)
}

// HasMoves reports whether the mover has at least one legal move.
func (p Position) HasMoves() bool {
	return Moves(p.Mover, p.Opponent) != 0
}

// Play applies the move for the mover and returns the resulting position
// from the opponent's point of view. Playing Pass only swaps the sides.
func (p Position) Play(m Move) Position {
	if m == Pass {
		return p.Pass()
	}
	mover, opp := Flip(m, p.Mover, p.Opponent)
	return Position{Mover: opp, Opponent: mover}
}

// Pass hands the turn to the opponent without changing the board.
func (p Position) Pass() Position {
	return Position{Mover: p.Opponent, Opponent: p.Mover}
}

// GameOver reports whether neither side can move or the board is full.
func (p Position) GameOver() bool {
	return GameOver(p.Mover, p.Opponent)
}

// Empties is the number of unoccupied cells.
func (p Position) Empties() int {
	return Empties(p.Mover, p.Opponent)
}

// DiscDiff is the mover's disk count minus the opponent's.
func (p Position) DiscDiff() int {
	return DiscDiff(p.Mover, p.Opponent)
}

// Empties is the number of unoccupied cells.
func Empties(mover, opponent uint64) int {
	return bits.OnesCount64(^(mover | opponent))
}

// DiscDiff returns popcount(mover) - popcount(opponent).
func DiscDiff(mover, opponent uint64) int {
	return bits.OnesCount64(mover) - bits.OnesCount64(opponent)
}

// GameOver is true iff the board is full or neither side has a legal move.
// Both orderings are checked; an empty move mask for one side alone is a
// pass, not the end of the game.
func GameOver(p1, p2 uint64) bool {
	if p1|p2 == Full {
		return true
	}
	return Moves(p1, p2) == 0 && Moves(p2, p1) == 0
}

// MoveCount is the number of legal moves for mover.
func MoveCount(mover, opponent uint64) int {
	return bits.OnesCount64(Moves(mover, opponent))
}

// NextMove pops the lowest cell off the mask.
func NextMove(mask *uint64) Move {
	m := Move(bits.TrailingZeros64(*mask))
	*mask &= *mask - 1
	return m
}

// MoveList expands a move mask into cell indexes, lowest first.
func MoveList(mask uint64) []Move {
	moves := make([]Move, 0, bits.OnesCount64(mask))
	for mask != 0 {
		moves = append(moves, NextMove(&mask))
	}
	return moves
}

// String renders the board with row 1 on top. X is the mover, O the
// opponent, and legal moves for the mover are shown as dots.
func (p Position) String() string {
	var sb strings.Builder
	legal := p.Moves()
	sb.WriteString("   a b c d e f g h\n")
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&sb, "%d  ", row+1)
		for col := 0; col < 8; col++ {
			bit := uint64(1) << (row*8 + col)
			switch {
			case p.Mover&bit != 0:
				sb.WriteString("X ")
			case p.Opponent&bit != 0:
				sb.WriteString("O ")
			case legal&bit != 0:
				sb.WriteString(". ")
			default:
				sb.WriteString("- ")
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "X: %d  O: %d  empties: %d\n",
		bits.OnesCount64(p.Mover), bits.OnesCount64(p.Opponent), p.Empties())
	return sb.String()
}

// ParsePosition reads 64 cells, row 1 first, from s. X or B is a mover
// disk, O or W an opponent disk, and - or . an empty cell. Whitespace is
// ignored.
func ParsePosition(s string) (Position, error) {
	var p Position
	cell := 0
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		if cell >= NumCells {
			return Position{}, fmt.Errorf("%w: more than %d cells", ErrBadPosition, NumCells)
		}
		bit := uint64(1) << cell
		switch r {
		case 'X', 'x', 'B', 'b':
			p.Mover |= bit
		case 'O', 'o', 'W', 'w':
			p.Opponent |= bit
		case '-', '.':
		default:
			return Position{}, fmt.Errorf("%w: unexpected %q", ErrBadPosition, r)
		}
		cell++
	}
	if cell != NumCells {
		return Position{}, fmt.Errorf("%w: %d cells", ErrBadPosition, cell)
	}
	return p, nil
}

// Compact is the 64-character form read by ParsePosition.
func (p Position) Compact() string {
	b := make([]byte, NumCells)
	for i := range b {
		bit := uint64(1) << i
		switch {
		case p.Mover&bit != 0:
			b[i] = 'X'
		case p.Opponent&bit != 0:
			b[i] = 'O'
		default:
			b[i] = '-'
		}
	}
	return string(b)
}
