package zobrist

import (
	"lukechampine.com/frand"

	"github.com/domino14/othello/board"
)

const bignum = 1<<63 - 2

// Zobrist hashes an Othello position by tabulation: each byte of each
// bitboard indexes its own table of random keys and the keys are XORed
// together. This is the byte-wise form of per-cell Zobrist keys.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	moverTable    [8][256]uint64
	opponentTable [8][256]uint64
}

func (z *Zobrist) Initialize() {
	for i := 0; i < 8; i++ {
		for j := 0; j < 256; j++ {
			z.moverTable[i][j] = frand.Uint64n(bignum) + 1
			z.opponentTable[i][j] = frand.Uint64n(bignum) + 1
		}
	}
	// An empty byte contributes nothing.
	for i := 0; i < 8; i++ {
		z.moverTable[i][0] = 0
		z.opponentTable[i][0] = 0
	}
}

// New returns an initialized hasher with fresh random keys.
func New() *Zobrist {
	z := &Zobrist{}
	z.Initialize()
	return z
}

func (z *Zobrist) Hash(p board.Position) uint64 {
	var key uint64
	m, o := p.Mover, p.Opponent
	for i := 0; i < 8; i++ {
		key ^= z.moverTable[i][m&0xff]
		key ^= z.opponentTable[i][o&0xff]
		m >>= 8
		o >>= 8
	}
	return key
}

// https://stackoverflow.com/a/12996028/1737333
func hashUint64(x uint64) uint64 {
	x = (x ^ (x >> 30)) * uint64(0xbf58476d1ce4e5b9)
	x = (x ^ (x >> 27)) * uint64(0x94d049bb133111eb)
	x = x ^ (x >> 31)
	return x
}

// Mix is a keyless hash of the position. It is stable across processes,
// unlike Hash.
func Mix(p board.Position) uint64 {
	return hashUint64(p.Mover ^ hashUint64(p.Opponent))
}
