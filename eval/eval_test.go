package eval

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/symmetry"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func randomPositions(seed uint64, n int) []board.Position {
	rng := rand.New(rand.NewPCG(seed, 99))
	var out []board.Position
	for len(out) < n {
		p := board.Start()
		plies := 5 + rng.IntN(60)
		for i := 0; i < plies && !p.GameOver(); i++ {
			moves := board.MoveList(p.Moves())
			if len(moves) == 0 {
				p = p.Pass()
				continue
			}
			p = p.Play(moves[rng.IntN(len(moves))])
		}
		out = append(out, p)
	}
	return out
}

func TestRegionsPartitionBoard(t *testing.T) {
	is := is.New(t)
	var all uint64
	for _, r := range regions {
		is.Equal(all&r.mask, uint64(0))
		all |= r.mask
	}
	is.Equal(all, board.Full)
}

func TestTerminalValues(t *testing.T) {
	is := is.New(t)
	full := board.Position{Mover: board.Full >> 24, Opponent: ^(board.Full >> 24)}
	is.Equal(Exact(full), int32(16))
	is.Equal(WLD(full), int32(65))
	is.Equal(MidgameTerminal(full), int32(6500))
	is.Equal(ExactTerminal(full), int32(1600))

	tie := board.Position{Mover: board.Full >> 32, Opponent: ^(board.Full >> 32)}
	is.Equal(WLD(tie), int32(0))

	wiped := board.Position{Mover: 0, Opponent: 0x0000001818000000}
	is.Equal(WLD(wiped), int32(-(65 + 60)))
	is.True(-MidgameTerminal(wiped) <= MaxScore)
}

func TestHeuristic(t *testing.T) {
	is := is.New(t)
	h := Heuristic{}
	v, err := h.Evaluate(board.Start())
	is.NoErr(err)
	is.Equal(v, int32(0))

	for _, p := range randomPositions(1, 300) {
		v, err := h.Evaluate(p)
		is.NoErr(err)
		if p.GameOver() {
			is.Equal(v, MidgameTerminal(p))
			continue
		}
		is.True(v <= MaxHeuristic && v >= -MaxHeuristic)
		is.Equal(HeuristicScore(p.Pass()), -v)
	}
}

func TestStabilityTriangles(t *testing.T) {
	is := is.New(t)
	for _, tri := range stableTriangles {
		is.Equal(tri[0]&tri[1], tri[0])
		is.Equal(tri[0]&corners != 0, true)
	}
	is.Equal(stability(0x0000000000010307, 0), int32(2))
	is.Equal(stability(0x0000000000000103, 0xc080000000000000), int32(0))
}

func TestFlipDiag(t *testing.T) {
	is := is.New(t)
	is.Equal(flipDiagA1H8(1<<1), uint64(1)<<8)
	is.Equal(flipDiagA1H8(1<<63), uint64(1)<<63)
	is.Equal(flipDiagA1H8(0xff), uint64(0x0101010101010101))
	for _, p := range randomPositions(2, 50) {
		is.Equal(flipDiagA1H8(p.Mover), symmetry.FlipTopLeftDiagonal.ApplyBits(p.Mover))
	}
}

func TestPositionalSymmetric(t *testing.T) {
	is := is.New(t)
	e := NewPositional(nil)
	for _, p := range randomPositions(3, 200) {
		if p.GameOver() {
			continue
		}
		v, err := e.Evaluate(p)
		is.NoErr(err)
		is.Equal(e.Score(p.Pass()), -v)
		for tr := symmetry.Transform(0); tr < symmetry.NumTransforms; tr++ {
			is.Equal(e.Score(tr.Apply(p)), v)
		}
	}
}

func TestPositionalBanks(t *testing.T) {
	is := is.New(t)
	is.Equal(Bank(60), NumBanks-1)
	is.Equal(Bank(0), 0)
	is.Equal(Bank(15), 1)
	// a corner is worth more than an X-square in the opening tables
	op := DefaultTables()[NumBanks-1]
	is.True(op[0][1] > op[1][2])
	// and every disk counts in the last bank
	is.True(DefaultTables()[0][3][0x10] > 0)
}

func TestLoadPositionalTables(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr(binary.Write(&buf, binary.LittleEndian, DefaultTables()))
	is.Equal(buf.Len(), NumBanks*TablesPerBank*256*4)

	loaded, err := LoadPositionalTables(bytes.NewReader(buf.Bytes()))
	is.NoErr(err)
	is.Equal(*loaded, *DefaultTables())

	_, err = LoadPositionalTables(bytes.NewReader(buf.Bytes()[:1000]))
	is.True(err != nil)
}

func TestFastestFirst(t *testing.T) {
	is := is.New(t)
	p := board.Start()
	for _, m := range board.MoveList(p.Moves()) {
		// every reply count from the start is 3, none in a corner
		is.Equal(FastestFirst(p.Play(m)), int32(3))
	}
	// opponent to move with a1 available
	child := board.Position{Mover: 1 << 2, Opponent: 1 << 1}
	is.Equal(FastestFirst(child), int32(3))
}

// discModel predicts the disc difference over 64.
type discModel struct {
	calls []int
}

func (m *discModel) Predict(inputs []float32, n int) ([]float32, error) {
	m.calls = append(m.calls, n)
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for _, v := range inputs[i*InputSize : (i+1)*InputSize] {
			sum += v
		}
		out[i] = sum / 64
	}
	return out, nil
}

type shortModel struct{}

func (shortModel) Predict(inputs []float32, n int) ([]float32, error) {
	return make([]float32, n-1), nil
}

func TestNeuralDepthOne(t *testing.T) {
	is := is.New(t)
	m := &discModel{}
	n := NewNeural(m, 1)
	v, err := n.Evaluate(board.Start())
	is.NoErr(err)
	// every reply leaves white one disk against four
	is.Equal(v, int32(300))
	is.Equal(m.calls, []int{4})
}

func TestNeuralDepthN(t *testing.T) {
	is := is.New(t)
	m := &discModel{}
	n := NewNeural(m, 2)
	v, err := n.Evaluate(board.Start())
	is.NoErr(err)
	is.Equal(len(m.calls), 1)
	is.Equal(m.calls[0], 12)
	// after two plies the mover is back to black with 3 vs 3
	is.Equal(v, int32(0))
}

func TestNeuralEmptyBatchFallback(t *testing.T) {
	is := is.New(t)
	m := &discModel{}
	n := NewNeural(m, 1)
	// the only move, a1, captures everything and ends the game
	p := board.Position{Mover: 1 << 2, Opponent: 1 << 1}
	is.Equal(board.MoveList(p.Moves()), []board.Move{0})
	is.True(p.Play(0).GameOver())

	v, err := n.Evaluate(p)
	is.NoErr(err)
	is.Equal(m.calls, []int{1})
	is.Equal(v, int32(0))
}

func TestNeuralBatch(t *testing.T) {
	is := is.New(t)
	m := &discModel{}
	n := NewNeural(m, 1)
	full := board.Position{Mover: board.Full >> 24, Opponent: ^(board.Full >> 24)}
	vals, err := n.EvaluateBatch([]board.Position{board.Start(), full, board.Start().Pass()})
	is.NoErr(err)
	is.Equal(vals, []int32{0, 6500, 0})
	is.Equal(m.calls, []int{2})

	_, err = NewNeural(shortModel{}, 1).EvaluateBatch([]board.Position{board.Start()})
	is.True(errors.Is(err, ErrBatchSize))
}
