// Package search implements fail-soft negamax with alpha-beta pruning over
// Othello positions. A Strategy supplies the terminal value, the leaf
// evaluator and the move-ordering policy; the midgame search and the
// endgame solver are both strategies over the same searcher.
package search

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/eval"
)

const infinity = math.MaxInt32

// MaxEndgameDepth is larger than any game can last, passes included, so an
// endgame search always reaches the end of the game.
const MaxEndgameDepth = 2 * board.NumCells

var (
	ErrNoLeafEvaluator = errors.New("search reached a leaf with no evaluator")
)

// CutoffKind says what the ordering cutoff is measured in.
type CutoffKind int

const (
	// ByDepth orders children while the remaining depth is above the
	// cutoff.
	ByDepth CutoffKind = iota
	// ByEmpties orders children while the empties are above the cutoff.
	ByEmpties
)

// Strategy parameterizes the searcher.
type Strategy struct {
	Name string
	// Terminal scores a finished game.
	Terminal func(board.Position) int32
	// Leaf scores a position once the depth budget is spent. May be nil if
	// the depth budget can never run out.
	Leaf eval.Evaluator
	// OrderKey scores a child from the child's mover's point of view.
	// Children are searched in increasing key order.
	OrderKey    func(child board.Position) (int32, error)
	Cutoff      CutoffKind
	OrderCutoff int
}

// MidgameStrategy searches to a fixed depth with e at the leaves. Finished
// games are scored as win/loss/draw.
func MidgameStrategy(e eval.Evaluator) Strategy {
	return Strategy{
		Name:        "midgame",
		Terminal:    eval.MidgameTerminal,
		Leaf:        e,
		OrderKey:    e.Evaluate,
		Cutoff:      ByDepth,
		OrderCutoff: 2,
	}
}

// EndgameStrategy searches to the end of the game. Scores are final disc
// differences, in disks.
func EndgameStrategy() Strategy {
	return Strategy{
		Name:     "endgame",
		Terminal: eval.Exact,
		OrderKey: func(child board.Position) (int32, error) {
			return eval.FastestFirst(child), nil
		},
		Cutoff:      ByEmpties,
		OrderCutoff: 7,
	}
}

// Result is the outcome of a root search.
type Result struct {
	Move  board.Move
	Score int32
	Nodes uint64
	// PV is the best move followed by as much of the expected line as the
	// position cache remembers.
	PV []board.Move
}

// Searcher runs searches for one request at a time.
type Searcher struct {
	strat Strategy
	batch eval.BatchEvaluator
	table *Table
	nodes uint64
}

// New returns a searcher. table may be nil to search without a cache.
func New(strat Strategy, table *Table) *Searcher {
	s := &Searcher{strat: strat, table: table}
	if b, ok := strat.Leaf.(eval.BatchEvaluator); ok {
		s.batch = b
	}
	return s
}

func NewMidgame(e eval.Evaluator, table *Table) *Searcher {
	return New(MidgameStrategy(e), table)
}

func NewEndgame(table *Table) *Searcher {
	return New(EndgameStrategy(), table)
}

// Nodes is the number of positions visited since the last root search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

func (s *Searcher) Strategy() Strategy {
	return s.strat
}

type child struct {
	move board.Move
	pos  board.Position
	key  int32
	// scored children already carry their leaf value in key
	scored bool
}

func (s *Searcher) leaf(p board.Position) (int32, error) {
	if s.batch != nil {
		vals, err := s.batch.EvaluateBatch([]board.Position{p})
		if err != nil {
			return 0, err
		}
		if len(vals) != 1 {
			return 0, eval.ErrBatchSize
		}
		return vals[0], nil
	}
	if s.strat.Leaf == nil {
		return 0, ErrNoLeafEvaluator
	}
	return s.strat.Leaf.Evaluate(p)
}

func (s *Searcher) shouldOrder(p board.Position, depth int) bool {
	if s.strat.OrderKey == nil && s.batch == nil {
		return false
	}
	if s.strat.Cutoff == ByEmpties {
		return p.Empties() > s.strat.OrderCutoff
	}
	return depth > s.strat.OrderCutoff
}

// expand plays every move in the mask. When keyed, each child gets an
// ordering key; with a batch evaluator all children are evaluated in one
// call, and at depth 1 those values are the children's leaf values.
func (s *Searcher) expand(p board.Position, moves uint64, depth int, keyed bool) ([]child, error) {
	children := make([]child, 0, board.NumCells)
	for moves != 0 {
		m := board.NextMove(&moves)
		children = append(children, child{move: m, pos: p.Play(m)})
	}
	if s.batch != nil && (keyed || depth == 1) {
		ps := make([]board.Position, len(children))
		for i := range children {
			ps[i] = children[i].pos
		}
		vals, err := s.batch.EvaluateBatch(ps)
		if err != nil {
			return nil, fmt.Errorf("batch evaluating %d children: %w", len(ps), err)
		}
		if len(vals) != len(children) {
			return nil, fmt.Errorf("%w: got %d, want %d", eval.ErrBatchSize, len(vals), len(children))
		}
		for i := range children {
			children[i].key = vals[i]
			if depth == 1 {
				if children[i].pos.GameOver() {
					children[i].key = s.strat.Terminal(children[i].pos)
				}
				children[i].scored = true
			}
		}
	} else if keyed {
		for i := range children {
			k, err := s.strat.OrderKey(children[i].pos)
			if err != nil {
				return nil, err
			}
			children[i].key = k
		}
	}
	if keyed {
		slices.SortStableFunc(children, func(a, b child) int {
			switch {
			case a.key < b.key:
				return -1
			case a.key > b.key:
				return 1
			}
			return 0
		})
	}
	return children, nil
}

func (s *Searcher) probe(p board.Position, depth int, alpha, beta *int32) (int32, bool) {
	if s.table == nil {
		return 0, false
	}
	e, ok := s.table.lookup(p)
	if !ok || int(e.depth) != depth {
		return 0, false
	}
	switch e.flag {
	case TTExact:
		return e.score, true
	case TTLower:
		*alpha = max(*alpha, e.score)
	case TTUpper:
		*beta = min(*beta, e.score)
	}
	if *alpha >= *beta {
		return e.score, true
	}
	return 0, false
}

func (s *Searcher) record(p board.Position, depth int, alpha, beta, score int32, m board.Move) {
	if s.table == nil {
		return
	}
	e := TableEntry{score: score, depth: int16(depth), move: m}
	switch {
	case score <= alpha:
		e.flag = TTUpper
	case score >= beta:
		e.flag = TTLower
	default:
		e.flag = TTExact
	}
	s.table.store(p, e)
}

// Search returns the fail-soft negamax value of p from the mover's point of
// view. The result is not clamped to the window.
func (s *Searcher) Search(p board.Position, alpha, beta int32, depth int) (int32, error) {
	s.nodes++
	if p.GameOver() {
		return s.strat.Terminal(p), nil
	}
	if depth <= 0 {
		return s.leaf(p)
	}
	origAlpha, origBeta := alpha, beta
	if v, ok := s.probe(p, depth, &alpha, &beta); ok {
		return v, nil
	}

	moves := p.Moves()
	if moves == 0 {
		v, err := s.Search(p.Pass(), -beta, -alpha, depth-1)
		if err != nil {
			return 0, err
		}
		s.record(p, depth, origAlpha, origBeta, -v, board.Pass)
		return -v, nil
	}

	best := int32(-infinity)
	bestMove := board.Pass
	ordered := s.shouldOrder(p, depth)

	if ordered || (s.batch != nil && depth == 1) {
		children, err := s.expand(p, moves, depth, ordered)
		if err != nil {
			return 0, err
		}
		for _, c := range children {
			var v int32
			if c.scored {
				s.nodes++
				v = -c.key
			} else {
				v, err = s.Search(c.pos, -beta, -alpha, depth-1)
				if err != nil {
					return 0, err
				}
				v = -v
			}
			if v >= beta {
				s.record(p, depth, origAlpha, origBeta, v, c.move)
				return v, nil
			}
			if v > best {
				best = v
				bestMove = c.move
				if v > alpha {
					alpha = v
				}
			}
		}
	} else {
		for moves != 0 {
			m := board.NextMove(&moves)
			v, err := s.Search(p.Play(m), -beta, -alpha, depth-1)
			if err != nil {
				return 0, err
			}
			v = -v
			if v >= beta {
				s.record(p, depth, origAlpha, origBeta, v, m)
				return v, nil
			}
			if v > best {
				best = v
				bestMove = m
				if v > alpha {
					alpha = v
				}
			}
		}
	}
	s.record(p, depth, origAlpha, origBeta, best, bestMove)
	return best, nil
}

// Root searches p and returns the best move with its score. Children are
// always ordered at the root. A finished game or a spent depth budget
// returns Pass with the position's own value; a mover with no legal move
// returns Pass with the negated value of the opponent's search.
func (s *Searcher) Root(p board.Position, alpha, beta int32, depth int) (Result, error) {
	s.nodes = 1
	if s.table != nil {
		s.table.Reset()
	}
	if !p.Valid() {
		return Result{}, fmt.Errorf("search: overlapping position %016x/%016x", p.Mover, p.Opponent)
	}
	if p.GameOver() {
		return Result{Move: board.Pass, Score: s.strat.Terminal(p), Nodes: s.nodes}, nil
	}
	if depth <= 0 {
		v, err := s.leaf(p)
		if err != nil {
			return Result{}, err
		}
		return Result{Move: board.Pass, Score: v, Nodes: s.nodes}, nil
	}
	moves := p.Moves()
	if moves == 0 {
		v, err := s.Search(p.Pass(), -beta, -alpha, depth-1)
		if err != nil {
			return Result{}, err
		}
		return Result{Move: board.Pass, Score: -v, Nodes: s.nodes, PV: s.pv(p, board.Pass, depth)}, nil
	}

	children, err := s.expand(p, moves, depth, s.strat.OrderKey != nil || s.batch != nil)
	if err != nil {
		return Result{}, err
	}
	best := int32(-infinity)
	bestMove := board.Pass
	for _, c := range children {
		var v int32
		if c.scored {
			s.nodes++
			v = -c.key
		} else {
			v, err = s.Search(c.pos, -beta, -alpha, depth-1)
			if err != nil {
				return Result{}, err
			}
			v = -v
		}
		log.Trace().Str("move", c.move.String()).Int32("score", v).Msg("root-move")
		if v >= beta {
			best, bestMove = v, c.move
			break
		}
		if v > best {
			best = v
			bestMove = c.move
			if v > alpha {
				alpha = v
			}
		}
	}
	res := Result{Move: bestMove, Score: best, Nodes: s.nodes, PV: s.pv(p, bestMove, depth)}
	ev := log.Debug().Str("strategy", s.strat.Name).Int("depth", depth).
		Str("move", bestMove.String()).Int32("score", best).Uint64("nodes", s.nodes)
	if s.table != nil {
		st := s.table.Stats()
		ev = ev.Uint64("tt-lookups", st.Lookups).Uint64("tt-hits", st.Hits)
	}
	ev.Msg("root-search-done")
	return res, nil
}

// pv follows cached best moves from the position after first.
func (s *Searcher) pv(p board.Position, first board.Move, depth int) []board.Move {
	line := []board.Move{first}
	if s.table == nil {
		return line
	}
	cur := p.Play(first)
	for i := 1; i < depth && !cur.GameOver(); i++ {
		m, ok := s.table.BestMove(cur)
		if !ok {
			break
		}
		if m != board.Pass && cur.Moves()&m.Bit() == 0 {
			break
		}
		if m == board.Pass && cur.HasMoves() {
			break
		}
		line = append(line, m)
		cur = cur.Play(m)
	}
	return line
}
