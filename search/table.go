package search

import (
	"math"
	"sync"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/zobrist"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

const entrySize = 24

const (
	minSizePowerOf2 = 10
	maxSizePowerOf2 = 26
)

// TableEntry is one cached search result. The full position is stored, so
// a hit is never a collision.
type TableEntry struct {
	mover    uint64
	opponent uint64
	score    int32
	depth    int16
	flag     uint8
	move     board.Move
}

func (t TableEntry) valid() bool {
	return t.flag != 0
}

// Table is a fixed-size position cache for a single search. It is not safe
// for concurrent use; every request gets its own.
type Table struct {
	table    []TableEntry
	sizeMask uint64
	zobrist  *zobrist.Zobrist

	lookups      uint64
	hits         uint64
	created      uint64
	t2collisions uint64
}

// NewTable allocates 2^sizePowerOf2 entries.
func NewTable(sizePowerOf2 int, z *zobrist.Zobrist) *Table {
	sizePowerOf2 = min(max(sizePowerOf2, minSizePowerOf2), maxSizePowerOf2)
	if z == nil {
		z = zobrist.New()
	}
	n := 1 << sizePowerOf2
	return &Table{
		table:    make([]TableEntry, n),
		sizeMask: uint64(n - 1),
		zobrist:  z,
	}
}

// SizeForMemory picks the largest power of 2 whose table fits in the given
// fraction of system memory.
func SizeForMemory(fractionOfMemory float64) int {
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	p := minSizePowerOf2
	if desiredNElems >= 1 {
		p = int(math.Log2(desiredNElems))
	}
	p = min(max(p, minSizePowerOf2), maxSizePowerOf2)
	log.Debug().Int("size-power-of-2", p).
		Float64("desired-num-elems", desiredNElems).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("position-cache-size")
	return p
}

// Reset clears all entries and counters.
func (t *Table) Reset() {
	clear(t.table)
	t.lookups, t.hits, t.created, t.t2collisions = 0, 0, 0, 0
}

func (t *Table) lookup(p board.Position) (TableEntry, bool) {
	t.lookups++
	e := t.table[t.zobrist.Hash(p)&t.sizeMask]
	if e.mover != p.Mover || e.opponent != p.Opponent || !e.valid() {
		if e.valid() {
			t.t2collisions++
		}
		return TableEntry{}, false
	}
	t.hits++
	return e, true
}

func (t *Table) store(p board.Position, e TableEntry) {
	e.mover = p.Mover
	e.opponent = p.Opponent
	// always replace
	t.table[t.zobrist.Hash(p)&t.sizeMask] = e
	t.created++
}

// BestMove returns the cached best move for p, if any.
func (t *Table) BestMove(p board.Position) (board.Move, bool) {
	e, ok := t.lookup(p)
	if !ok {
		return 0, false
	}
	return e.move, true
}

// TableStats reports cache activity since the last Reset.
type TableStats struct {
	Lookups    uint64
	Hits       uint64
	Created    uint64
	Collisions uint64
}

func (t *Table) Stats() TableStats {
	return TableStats{Lookups: t.lookups, Hits: t.hits, Created: t.created, Collisions: t.t2collisions}
}

// TablePool recycles tables between requests. All tables share one set of
// hash keys.
type TablePool struct {
	sizePowerOf2 int
	zobrist      *zobrist.Zobrist
	pool         sync.Pool
}

func NewTablePool(sizePowerOf2 int) *TablePool {
	tp := &TablePool{sizePowerOf2: sizePowerOf2, zobrist: zobrist.New()}
	tp.pool.New = func() any {
		return NewTable(tp.sizePowerOf2, tp.zobrist)
	}
	return tp
}

// Get returns an empty table.
func (tp *TablePool) Get() *Table {
	t := tp.pool.Get().(*Table)
	t.Reset()
	return t
}

func (tp *TablePool) Put(t *Table) {
	if t != nil {
		tp.pool.Put(t)
	}
}
