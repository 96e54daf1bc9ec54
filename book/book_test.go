package book

import (
	"bytes"
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/symmetry"
)

type sample struct {
	pos  board.Position
	move board.Move
	eval int8
}

// samples returns positions from random games, at most one per symmetry
// class, each with a legal move.
func samples(n int) []sample {
	rng := rand.New(rand.NewPCG(21, 4))
	seen := map[board.Position]bool{}
	var out []sample
	for len(out) < n {
		p := board.Start()
		plies := rng.IntN(20)
		for i := 0; i < plies && !p.GameOver(); i++ {
			moves := board.MoveList(p.Moves())
			if len(moves) == 0 {
				p = p.Pass()
				continue
			}
			p = p.Play(moves[rng.IntN(len(moves))])
		}
		moves := board.MoveList(p.Moves())
		canon, _ := symmetry.Canonicalize(p)
		if len(moves) == 0 || seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, sample{p, moves[rng.IntN(len(moves))], int8(rng.IntN(40) - 20)})
	}
	return out
}

func sameClass(a, b board.Position) bool {
	ca, _ := symmetry.Canonicalize(a)
	cb, _ := symmetry.Canonicalize(b)
	return ca == cb
}

func checkLookups(is *is.I, b *Book, ss []sample) {
	for _, s := range ss {
		for t := symmetry.Transform(0); t < symmetry.NumTransforms; t++ {
			img := t.Apply(s.pos)
			hit, ok, err := b.Lookup(img)
			is.NoErr(err)
			is.True(ok)
			is.Equal(hit.Score, int32(s.eval)*50)
			is.True(img.Moves()&hit.Move.Bit() != 0)
			// the answer is the stored move, up to the position's own symmetry
			is.True(sameClass(img.Play(hit.Move), img.Play(t.Move(s.move))))
		}
	}
}

func TestRoundTripAllImages(t *testing.T) {
	is := is.New(t)
	ss := samples(150)
	b := New()
	for _, s := range ss {
		is.NoErr(b.Add(s.pos, s.move, s.eval))
	}
	is.Equal(b.Len(), len(ss))
	checkLookups(is, b, ss)

	for _, c := range []Compression{None, Gzip, Zstd} {
		var buf bytes.Buffer
		is.NoErr(Write(&buf, b, c))
		if c == None {
			is.Equal(buf.Len(), len(ss)*RecordSize)
		}
		loaded, err := Read(&buf)
		is.NoErr(err)
		is.Equal(loaded.Len(), len(ss))
		checkLookups(is, loaded, ss)
	}
}

func TestLookupMiss(t *testing.T) {
	is := is.New(t)
	b := New()
	_, ok, err := b.Lookup(board.Start())
	is.NoErr(err)
	is.True(!ok)
}

func TestAddRejectsIllegal(t *testing.T) {
	is := is.New(t)
	b := New()
	is.True(b.Add(board.Start(), 0, 1) != nil)
	is.True(b.Add(board.Position{Mover: 3, Opponent: 1}, 0, 1) != nil)
	is.NoErr(b.Add(board.Start(), 19, 1))
}

func TestTruncatedTrailingRecord(t *testing.T) {
	is := is.New(t)
	b := New()
	for _, s := range samples(5) {
		is.NoErr(b.Add(s.pos, s.move, s.eval))
	}
	var buf bytes.Buffer
	is.NoErr(Write(&buf, b, None))
	data := buf.Bytes()
	loaded, err := Read(bytes.NewReader(data[:len(data)-7]))
	is.NoErr(err)
	is.Equal(loaded.Len(), 4)

	empty, err := Read(bytes.NewReader(nil))
	is.NoErr(err)
	is.Equal(empty.Len(), 0)
}

func TestCompressionHint(t *testing.T) {
	is := is.New(t)
	// the first key's low bytes spell the gzip magic number
	b := New()
	b.put(Key{Mover: 0x8b1f, Opponent: 1 << 40}, Entry{Move: board.Pass, Eval: 3})
	var buf bytes.Buffer
	is.NoErr(Write(&buf, b, None))
	is.True(bytes.HasPrefix(buf.Bytes(), gzipMagic))

	_, err := Read(bytes.NewReader(buf.Bytes()))
	is.True(err != nil)

	loaded, err := ReadCompressed(bytes.NewReader(buf.Bytes()), None)
	is.NoErr(err)
	is.Equal(loaded.Len(), 1)
	e, ok := loaded.Get(Key{Mover: 0x8b1f, Opponent: 1 << 40})
	is.True(ok)
	is.Equal(e.Eval, int8(3))

	for s, want := range map[string]Compression{"": Detect, "auto": Detect, "none": None, "GZIP": Gzip, "zstd": Zstd} {
		c, err := ParseCompression(s)
		is.NoErr(err)
		is.Equal(c, want)
	}
	_, err = ParseCompression("lz4")
	is.True(err != nil)
	is.True(Write(&buf, b, Detect) != nil)
}

func TestRecordsSorted(t *testing.T) {
	is := is.New(t)
	b := New()
	for _, s := range samples(30) {
		is.NoErr(b.Add(s.pos, s.move, s.eval))
	}
	recs := b.Records()
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		is.True(prev.Mover < cur.Mover || (prev.Mover == cur.Mover && prev.Opponent < cur.Opponent))
	}
}

func TestBadRecord(t *testing.T) {
	is := is.New(t)
	rec := make([]byte, RecordSize)
	rec[0], rec[8] = 1, 1 // overlapping
	_, err := Read(bytes.NewReader(rec))
	is.True(err != nil)
}

func TestEvalToHalfDisks(t *testing.T) {
	is := is.New(t)
	is.Equal(EvalToHalfDisks(250), int8(5))
	is.Equal(EvalToHalfDisks(-1000000), int8(-128))
	is.Equal(EvalToHalfDisks(1000000), int8(127))
}

func TestStoreExport(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	st, err := OpenStore(ctx, filepath.Join(t.TempDir(), "book.db"))
	is.NoErr(err)
	defer st.Close()

	ss := samples(40)
	for _, s := range ss {
		is.NoErr(st.Put(ctx, s.pos, s.move, s.eval))
	}
	// storing an image again replaces, not duplicates
	is.NoErr(st.Put(ctx, symmetry.Rotate180.Apply(ss[0].pos), symmetry.Rotate180.Move(ss[0].move), ss[0].eval))
	n, err := st.Count(ctx)
	is.NoErr(err)
	is.Equal(n, len(ss))

	has, err := st.Has(ctx, symmetry.FlipXAxis.Apply(ss[3].pos))
	is.NoErr(err)
	is.True(has)

	b, err := st.Export(ctx)
	is.NoErr(err)
	checkLookups(is, b, ss)
}
