package eval

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/domino14/othello/board"
)

const (
	// NumBanks is the number of game phases with their own tables.
	NumBanks = 8
	// TablesPerBank is one table per pair of mirrored ranks.
	TablesPerBank = 4
	patterns      = 256
)

// Tables holds rank-pattern weights: Tables[bank][rank][pattern] is the
// value of the 8-bit occupancy pattern of one side on that rank. Ranks 1
// and 8 share table 0, 2 and 7 table 1, and so on.
type Tables [NumBanks][TablesPerBank][patterns]int32

var rankTable = [8]int{0, 1, 2, 3, 3, 2, 1, 0}

// One quadrant of per-square weights, mirrored to the other three. All
// values are even since each cell is counted twice, once through its rank
// and once through its file.
var (
	openingWeights = [4][4]int32{
		{400, -60, 40, 20},
		{-60, -160, -10, -10},
		{40, -10, 10, 4},
		{20, -10, 4, 0},
	}
	endingWeights = [4][4]int32{
		{300, 100, 100, 100},
		{100, 60, 100, 100},
		{100, 100, 100, 100},
		{100, 100, 100, 100},
	}
)

var defaultTables Tables

func init() {
	for bank := 0; bank < NumBanks; bank++ {
		for rank := 0; rank < TablesPerBank; rank++ {
			for pat := 0; pat < patterns; pat++ {
				var v int32
				for col := 0; col < 8; col++ {
					if pat&(1<<col) == 0 {
						continue
					}
					qc := col
					if qc > 3 {
						qc = 7 - col
					}
					open := openingWeights[rank][qc]
					end := endingWeights[rank][qc]
					// bank 7 is the opening, bank 0 the last few moves
					w := (open*int32(bank) + end*int32(NumBanks-1-bank)) / (NumBanks - 1)
					v += w / 2
				}
				defaultTables[bank][rank][pat] = v
			}
		}
	}
}

// DefaultTables returns the built-in tables. The result must not be
// modified.
func DefaultTables() *Tables {
	return &defaultTables
}

// LoadPositionalTables reads NumBanks*4*256 little-endian int32 values.
func LoadPositionalTables(r io.Reader) (*Tables, error) {
	t := &Tables{}
	if err := binary.Read(r, binary.LittleEndian, t); err != nil {
		return nil, fmt.Errorf("reading positional tables: %w", err)
	}
	return t, nil
}

func LoadPositionalFile(path string) (*Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPositionalTables(f)
}

// Positional evaluates a position by summing rank-pattern weights for both
// sides over the board and its a1-h8 transpose.
type Positional struct {
	tables *Tables
}

// NewPositional returns an evaluator over t, or over the default tables if
// t is nil.
func NewPositional(t *Tables) *Positional {
	if t == nil {
		t = &defaultTables
	}
	return &Positional{tables: t}
}

func (e *Positional) Evaluate(p board.Position) (int32, error) {
	if p.GameOver() {
		return MidgameTerminal(p), nil
	}
	return e.Score(p), nil
}

// Score is the table value of p without the terminal check.
func (e *Positional) Score(p board.Position) int32 {
	bank := &e.tables[Bank(p.Empties())]
	v := sideScore(bank, p.Mover) - sideScore(bank, p.Opponent)
	return clamp(v, MaxHeuristic)
}

// Bank selects the table bank for a number of empties.
func Bank(empties int) int {
	b := empties / 8
	if b >= NumBanks {
		b = NumBanks - 1
	}
	return b
}

func sideScore(bank *[TablesPerBank][patterns]int32, bb uint64) int32 {
	t := flipDiagA1H8(bb)
	var v int32
	for rank := 0; rank < 8; rank++ {
		tbl := &bank[rankTable[rank]]
		v += tbl[(bb>>(rank*8))&0xff] + tbl[(t>>(rank*8))&0xff]
	}
	return v
}

// flipDiagA1H8 transposes a bitboard about the a1-h8 diagonal.
func flipDiagA1H8(x uint64) uint64 {
	const (
		k1 = 0x5500550055005500
		k2 = 0x3333000033330000
		k4 = 0x0f0f0f0f00000000
	)
	t := k4 & (x ^ (x << 28))
	x ^= t ^ (t >> 28)
	t = k2 & (x ^ (x << 14))
	x ^= t ^ (t >> 14)
	t = k1 & (x ^ (x << 7))
	x ^= t ^ (t >> 7)
	return x
}
