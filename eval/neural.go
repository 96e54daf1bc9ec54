package eval

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
)

// InputSize is the number of model inputs per position.
const InputSize = board.NumCells

// A Model maps n encoded positions (InputSize floats each, concatenated) to
// n outputs in [-1, 1], the expected final disc difference over 64 from the
// mover's point of view.
type Model interface {
	Predict(inputs []float32, n int) ([]float32, error)
}

// Neural is an evaluator backed by a learned model. Evaluate searches
// depth plies below the position, batching every leaf into one Predict
// call; EvaluateBatch predicts the given positions directly.
//
// A Neural is safe for concurrent use. Inference is serialized.
type Neural struct {
	mu    sync.Mutex
	model Model
	depth int
}

func NewNeural(m Model, depth int) *Neural {
	if depth < 0 {
		depth = 0
	}
	return &Neural{model: m, depth: depth}
}

// Depth is the lookahead that Evaluate performs.
func (n *Neural) Depth() int {
	return n.depth
}

// Encode writes the model inputs for p into dst.
func Encode(dst []float32, p board.Position) {
	for i := 0; i < board.NumCells; i++ {
		bit := uint64(1) << i
		switch {
		case p.Mover&bit != 0:
			dst[i] = 1
		case p.Opponent&bit != 0:
			dst[i] = -1
		default:
			dst[i] = 0
		}
	}
}

func toCentidisks(v float32) int32 {
	return clamp(int32(v*64*DiskScale), MaxHeuristic)
}

func (n *Neural) predict(ps []board.Position) ([]int32, error) {
	if len(ps) == 0 {
		return nil, nil
	}
	inputs := make([]float32, len(ps)*InputSize)
	for i, p := range ps {
		Encode(inputs[i*InputSize:(i+1)*InputSize], p)
	}
	n.mu.Lock()
	out, err := n.model.Predict(inputs, len(ps))
	n.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("model predict: %w", err)
	}
	if len(out) != len(ps) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBatchSize, len(out), len(ps))
	}
	vals := make([]int32, len(out))
	for i, v := range out {
		vals[i] = toCentidisks(v)
	}
	return vals, nil
}

// EvaluateBatch predicts each position. Finished games get their terminal
// value and are not sent to the model.
func (n *Neural) EvaluateBatch(ps []board.Position) ([]int32, error) {
	out := make([]int32, len(ps))
	live := make([]board.Position, 0, len(ps))
	idx := make([]int, 0, len(ps))
	for i, p := range ps {
		if p.GameOver() {
			out[i] = MidgameTerminal(p)
			continue
		}
		live = append(live, p)
		idx = append(idx, i)
	}
	vals, err := n.predict(live)
	if err != nil {
		return nil, err
	}
	for j, v := range vals {
		out[idx[j]] = v
	}
	return out, nil
}

func (n *Neural) Evaluate(p board.Position) (int32, error) {
	return n.PredictDepth(p, n.depth)
}

// PredictDepth runs a plain negamax depth plies deep, predicting all
// leaves in a single batch. If every line ends the game before depth is
// reached the batch is empty and the prediction is retried one ply
// shallower.
func (n *Neural) PredictDepth(p board.Position, depth int) (int32, error) {
	if p.GameOver() {
		return MidgameTerminal(p), nil
	}
	if depth <= 0 {
		vals, err := n.predict([]board.Position{p})
		if err != nil {
			return 0, err
		}
		return vals[0], nil
	}
	leaves := collectLeaves(nil, p, depth)
	if len(leaves) == 0 {
		log.Debug().Int("depth", depth).Msg("empty-leaf-batch")
		return n.PredictDepth(p, depth-1)
	}
	vals, err := n.predict(leaves)
	if err != nil {
		return 0, err
	}
	idx := 0
	return replay(vals, p, depth, &idx), nil
}

// collectLeaves appends the non-terminal positions depth plies below p in
// move-generation order.
func collectLeaves(dst []board.Position, p board.Position, depth int) []board.Position {
	if p.GameOver() {
		return dst
	}
	if depth <= 0 {
		return append(dst, p)
	}
	moves := p.Moves()
	if moves == 0 {
		return collectLeaves(dst, p.Pass(), depth-1)
	}
	for moves != 0 {
		dst = collectLeaves(dst, p.Play(board.NextMove(&moves)), depth-1)
	}
	return dst
}

// replay walks the tree in the same order as collectLeaves, consuming one
// prediction per leaf.
func replay(vals []int32, p board.Position, depth int, idx *int) int32 {
	if p.GameOver() {
		return MidgameTerminal(p)
	}
	if depth <= 0 {
		v := vals[*idx]
		*idx++
		return v
	}
	moves := p.Moves()
	if moves == 0 {
		return -replay(vals, p.Pass(), depth-1, idx)
	}
	best := int32(-MaxScore - 1)
	for moves != 0 {
		v := -replay(vals, p.Play(board.NextMove(&moves)), depth-1, idx)
		if v > best {
			best = v
		}
	}
	return best
}
