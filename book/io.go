package book

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/domino14/othello/board"
)

// RecordSize is the size of one record on disk: mover u64, opponent u64,
// move u8, eval i8, little-endian.
const RecordSize = 18

// Compression selects the stream wrapper of a book file.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	// Detect reads the wrapper from the stream's magic bytes. Readers only.
	Detect
)

// ParseCompression accepts none, gzip, zstd and auto (or empty) for Detect.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Detect, nil
	case "none":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	}
	return 0, fmt.Errorf("unknown book compression %q", s)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

var ErrBadRecord = errors.New("bad book record")

// decompress wraps r for c. With Detect the magic bytes decide, and a raw
// book whose first key happens to start with a magic number is misread;
// pass None for such files.
func decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	if c == Detect {
		magic, _ := br.Peek(4)
		switch {
		case bytes.HasPrefix(magic, gzipMagic):
			c = Gzip
		case bytes.HasPrefix(magic, zstdMagic):
			c = Zstd
		default:
			c = None
		}
	}
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case Zstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case None:
		return br, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown book compression %d", c)
}

// Read loads a book from r, detecting its compression. A short trailing
// record ends the book.
func Read(r io.Reader) (*Book, error) {
	return ReadCompressed(r, Detect)
}

// ReadCompressed loads a book from r wrapped as c.
func ReadCompressed(r io.Reader, c Compression) (*Book, error) {
	b, _, err := read(r, c)
	return b, err
}

func read(r io.Reader, c Compression) (*Book, uint64, error) {
	rd, closer, err := decompress(r, c)
	if err != nil {
		return nil, 0, fmt.Errorf("opening book stream: %w", err)
	}
	defer closer()

	digest := xxhash.New()
	b := New()
	var buf [RecordSize]byte
	for {
		_, err := io.ReadFull(rd, buf[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("reading book: %w", err)
		}
		digest.Write(buf[:])
		k := Key{
			Mover:    binary.LittleEndian.Uint64(buf[0:8]),
			Opponent: binary.LittleEndian.Uint64(buf[8:16]),
		}
		e := Entry{Move: board.Move(buf[16]), Eval: int8(buf[17])}
		if k.Mover&k.Opponent != 0 {
			return nil, 0, fmt.Errorf("%w: overlapping key %016x/%016x", ErrBadRecord, k.Mover, k.Opponent)
		}
		if e.Move >= board.NumCells && e.Move != board.Pass {
			return nil, 0, fmt.Errorf("%w: move %d", ErrBadRecord, buf[16])
		}
		b.put(k, e)
	}
	return b, digest.Sum64(), nil
}

// ReadFile loads a book from disk and logs its size and digest.
func ReadFile(path string, c Compression) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, digest, err := read(f, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("path", path).Int("positions", b.Len()).
		Str("xxhash", fmt.Sprintf("%016x", digest)).Msg("loaded-opening-book")
	return b, nil
}

// Write emits every record sorted by key.
func Write(w io.Writer, b *Book, c Compression) error {
	var out io.Writer = w
	var closer io.Closer
	switch c {
	case Gzip:
		zw := gzip.NewWriter(w)
		out, closer = zw, zw
	case Zstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		out, closer = zw, zw
	case Detect:
		return errors.New("book: Detect is not a write compression")
	}
	bw := bufio.NewWriter(out)
	var buf [RecordSize]byte
	for _, rec := range b.Records() {
		binary.LittleEndian.PutUint64(buf[0:8], rec.Mover)
		binary.LittleEndian.PutUint64(buf[8:16], rec.Opponent)
		buf[16] = byte(rec.Move)
		buf[17] = byte(rec.Eval)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

func WriteFile(path string, b *Book, c Compression) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, b, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
