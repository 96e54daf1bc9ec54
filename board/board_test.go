package board

import (
	"errors"
	"math/bits"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/matryer/is"
)

// naiveFlips raycasts one cell at a time; it's the reference that the
// shift-based generator is checked against.
func naiveFlips(m Move, mover, opponent uint64) uint64 {
	var flips uint64
	row, col := int(m)/8, int(m)%8
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			var run uint64
			r, c := row+dr, col+dc
			for r >= 0 && r < 8 && c >= 0 && c < 8 {
				bit := uint64(1) << (r*8 + c)
				if opponent&bit != 0 {
					run |= bit
				} else {
					if mover&bit != 0 {
						flips |= run
					}
					break
				}
				r, c = r+dr, c+dc
			}
		}
	}
	return flips
}

func randomPlayout(rng *rand.Rand, visit func(Position)) {
	p := Start()
	for !p.GameOver() {
		visit(p)
		moves := MoveList(p.Moves())
		if len(moves) == 0 {
			p = p.Pass()
			continue
		}
		p = p.Play(moves[rng.IntN(len(moves))])
	}
	visit(p)
}

func TestStartPosition(t *testing.T) {
	is := is.New(t)
	p := Start()
	is.True(p.Valid())
	is.Equal(p.Empties(), 60)
	moves := MoveList(p.Moves())
	is.Equal(len(moves), 4)
	is.Equal(moves, []Move{19, 26, 37, 44})
	for _, m := range moves {
		is.Equal(bits.OnesCount64(Flips(m, p.Mover, p.Opponent)), 1)
		child := p.Play(m)
		// child is seen from white's point of view
		is.Equal(bits.OnesCount64(child.Opponent), 4)
		is.Equal(bits.OnesCount64(child.Mover), 1)
	}
}

func TestMoveNotation(t *testing.T) {
	is := is.New(t)
	for m := Move(0); m < NumCells; m++ {
		parsed, err := ParseMove(m.String())
		is.NoErr(err)
		is.Equal(parsed, m)
	}
	m, err := ParseMove("D3")
	is.NoErr(err)
	is.Equal(m, Move(19))
	m, err = ParseMove("pass")
	is.NoErr(err)
	is.Equal(m, Pass)
	_, err = ParseMove("i9")
	is.True(err != nil)
	is.Equal(Pass.Bit(), uint64(0))
}

func TestMoveLegalityClosure(t *testing.T) {
	is := is.New(t)
	rng := rand.New(rand.NewPCG(7, 11))
	for game := 0; game < 200; game++ {
		randomPlayout(rng, func(p Position) {
			is.True(p.Valid())
			legal := p.Moves()
			before := bits.OnesCount64(p.Mover)
			for _, m := range MoveList(legal) {
				mover, opp := Flip(m, p.Mover, p.Opponent)
				is.True(mover&opp == 0)
				is.True(bits.OnesCount64(mover) >= before+2)
				is.Equal(bits.OnesCount64(mover)+bits.OnesCount64(opp),
					bits.OnesCount64(p.Mover|p.Opponent)+1)
			}
			empty := ^(p.Mover | p.Opponent)
			for cell := Move(0); cell < NumCells; cell++ {
				if empty&cell.Bit() == 0 {
					continue
				}
				want := naiveFlips(cell, p.Mover, p.Opponent)
				is.Equal(Flips(cell, p.Mover, p.Opponent), want)
				is.Equal(legal&cell.Bit() != 0, want != 0)
			}
		})
	}
}

func TestGameOver(t *testing.T) {
	is := is.New(t)

	// full board, 40 vs 24
	full := Position{Mover: Full >> 24, Opponent: ^(Full >> 24)}
	is.True(full.Valid())
	is.True(full.GameOver())
	is.Equal(full.DiscDiff(), 16)
	is.Equal(full.Empties(), 0)

	// one side wiped out
	wiped := Position{Mover: 0x0000001818000000, Opponent: 0}
	is.True(wiped.GameOver())

	// mover stuck, opponent can still play: a pass, not the end
	stuck := Position{Mover: 1 << 1, Opponent: 1 << 0}
	is.Equal(stuck.Moves(), uint64(0))
	is.True(stuck.Pass().HasMoves())
	is.True(!stuck.GameOver())
	is.Equal(stuck.Play(Pass), stuck.Pass())
}

func TestNextMove(t *testing.T) {
	is := is.New(t)
	mask := uint64(1)<<3 | uint64(1)<<40
	is.Equal(NextMove(&mask), Move(3))
	is.Equal(NextMove(&mask), Move(40))
	is.Equal(mask, uint64(0))
}

func TestParsePosition(t *testing.T) {
	is := is.New(t)
	s := `
	--------
	--------
	--------
	---OX---
	---XO---
	--------
	--------
	--------`
	p, err := ParsePosition(s)
	is.NoErr(err)
	is.Equal(p, Start())
	is.Equal(p.Compact(), "---------------------------OX------XO---------------------------")

	again, err := ParsePosition(p.Compact())
	is.NoErr(err)
	is.Equal(again, p)

	_, err = ParsePosition("XO")
	is.True(errors.Is(err, ErrBadPosition))
	_, err = ParsePosition(strings.Repeat("-", 63) + "Z")
	is.True(errors.Is(err, ErrBadPosition))
}

func BenchmarkMoves(b *testing.B) {
	p := Position{Mover: 0x0000081c2c040000, Opponent: 0x00003c2010381c00}
	for i := 0; i < b.N; i++ {
		Moves(p.Mover, p.Opponent)
	}
}

func BenchmarkFlip(b *testing.B) {
	p := Start()
	for i := 0; i < b.N; i++ {
		Flip(19, p.Mover, p.Opponent)
	}
}
