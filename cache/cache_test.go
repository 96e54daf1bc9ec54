package cache

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/othello/board"
	"github.com/domino14/othello/book"
	"github.com/domino14/othello/config"
	"github.com/domino14/othello/eval"
)

func TestLoadOnce(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	cfg := config.DefaultConfig()
	calls := 0
	loader := func(cfg *config.Config, key string) (any, error) {
		calls++
		return key + "!", nil
	}
	for i := 0; i < 3; i++ {
		obj, err := Load(cfg, "thing", loader)
		is.NoErr(err)
		is.Equal(obj.(string), "thing!")
	}
	is.Equal(calls, 1)
}

func TestBookSharedAndMissing(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	cfg := config.DefaultConfig()

	b, err := Book(cfg)
	is.NoErr(err)
	is.True(b == nil)

	path := filepath.Join(t.TempDir(), "book.bin.gz")
	src := book.New()
	is.NoErr(src.Add(board.Start(), 19, 0))
	is.NoErr(book.WriteFile(path, src, book.Gzip))
	cfg.Set(config.ConfigBookPath, path)

	b1, err := Book(cfg)
	is.NoErr(err)
	b2, err := Book(cfg)
	is.NoErr(err)
	is.True(b1 == b2)
	is.Equal(b1.Len(), 1)

	raw := filepath.Join(t.TempDir(), "book.bin")
	is.NoErr(book.WriteFile(raw, src, book.None))
	cfg.Set(config.ConfigBookPath, raw)
	cfg.Set(config.ConfigBookCompression, "none")
	b3, err := Book(cfg)
	is.NoErr(err)
	is.Equal(b3.Len(), 1)
	cfg.Set(config.ConfigBookCompression, "auto")

	cfg.Set(config.ConfigBookPath, filepath.Join(t.TempDir(), "missing.bin"))
	_, err = Book(cfg)
	is.True(err != nil)
}

func TestEvaluators(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	cfg := config.DefaultConfig()

	e, err := Evaluator(cfg)
	is.NoErr(err)
	_, ok := e.(eval.Heuristic)
	is.True(ok)

	cfg.Set(config.ConfigEvaluator, config.EvaluatorPositional)
	e, err = Evaluator(cfg)
	is.NoErr(err)
	_, ok = e.(*eval.Positional)
	is.True(ok)

	var buf bytes.Buffer
	is.NoErr(binary.Write(&buf, binary.LittleEndian, eval.DefaultTables()))
	path := filepath.Join(t.TempDir(), "tables.bin")
	is.NoErr(os.WriteFile(path, buf.Bytes(), 0o644))
	cfg.Set(config.ConfigPositionalPath, path)
	e2, err := Evaluator(cfg)
	is.NoErr(err)
	is.True(e2 != e)

	cfg.Set(config.ConfigEvaluator, config.EvaluatorNeural)
	cfg.Set(config.ConfigModelPath, filepath.Join(t.TempDir(), "none.onnx"))
	_, err = Evaluator(cfg)
	is.True(err != nil)

	cfg.Set(config.ConfigEvaluator, "oracle")
	_, err = Evaluator(cfg)
	is.True(err != nil)
}
