// Package book is the opening book: a table from symmetry-canonical
// positions to the best move and its evaluation. One stored entry answers
// for all 8 symmetric images of its position.
package book

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/eval"
	"github.com/domino14/othello/symmetry"
)

// HalfDiskScale converts book evaluations (half disks) to centidisks.
const HalfDiskScale = eval.DiskScale / 2

// Key is a canonical position.
type Key struct {
	Mover    uint64
	Opponent uint64
}

// Entry is the stored answer for a canonical position. Move is expressed
// in the canonical frame; Eval is in half disks.
type Entry struct {
	Move board.Move
	Eval int8
}

// Hit is the answer to a lookup, in the frame of the queried position.
type Hit struct {
	Move board.Move
	// Score is in centidisks.
	Score int32
}

// Book is safe for concurrent lookups once loading is complete.
type Book struct {
	entries map[Key]Entry
}

func New() *Book {
	return &Book{entries: make(map[Key]Entry)}
}

// Len is the number of canonical positions.
func (b *Book) Len() int {
	return len(b.entries)
}

// Lookup canonicalizes p, queries the book, and maps the stored move back
// into p's frame. ok is false if p is not in the book.
func (b *Book) Lookup(p board.Position) (Hit, bool, error) {
	canon, t := symmetry.Canonicalize(p)
	e, found := b.entries[Key{canon.Mover, canon.Opponent}]
	if !found {
		return Hit{}, false, nil
	}
	m, err := t.Invert(e.Move)
	if err != nil {
		return Hit{}, false, fmt.Errorf("book entry %016x/%016x: %w", canon.Mover, canon.Opponent, err)
	}
	return Hit{Move: m, Score: int32(e.Eval) * HalfDiskScale}, true, nil
}

// Add stores move and eval (half disks) for p. The position is
// canonicalized and the move mapped into the canonical frame.
func (b *Book) Add(p board.Position, m board.Move, evalHalfDisks int8) error {
	if !p.Valid() {
		return fmt.Errorf("book: overlapping position %016x/%016x", p.Mover, p.Opponent)
	}
	if m != board.Pass && p.Moves()&m.Bit() == 0 {
		return fmt.Errorf("book: %v is not legal in %016x/%016x", m, p.Mover, p.Opponent)
	}
	canon, t := symmetry.Canonicalize(p)
	b.put(Key{canon.Mover, canon.Opponent}, Entry{Move: t.Move(m), Eval: evalHalfDisks})
	return nil
}

// put stores an entry that is already canonical.
func (b *Book) put(k Key, e Entry) {
	b.entries[k] = e
}

// Get returns the raw entry for a canonical key.
func (b *Book) Get(k Key) (Entry, bool) {
	e, ok := b.entries[k]
	return e, ok
}

// Record is a canonical key with its entry.
type Record struct {
	Key
	Entry
}

// Records returns every entry, sorted by key.
func (b *Book) Records() []Record {
	recs := make([]Record, 0, len(b.entries))
	for k, e := range b.entries {
		recs = append(recs, Record{k, e})
	}
	slices.SortFunc(recs, func(x, y Record) int {
		if c := cmp.Compare(x.Mover, y.Mover); c != 0 {
			return c
		}
		return cmp.Compare(x.Opponent, y.Opponent)
	})
	return recs
}

// EvalToHalfDisks converts a centidisk score to the book's unit, saturating
// at the int8 range.
func EvalToHalfDisks(centidisks int32) int8 {
	v := centidisks / HalfDiskScale
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}
