// Package protocol encodes and decodes the fixed-size binary request and
// response exchanged with move-server clients. All integers are big-endian.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/domino14/othello/board"
)

const (
	// RequestSize is mover u64, opponent u64, remaining time u16 in tenths
	// of a second, params u16.
	RequestSize = 20
	// ResponseSize is move u8 and score i16 in centidisks.
	ResponseSize = 3
)

const (
	MinEndDepth = 1
	MaxEndDepth = 22
	MinMidDepth = 1
	MaxMidDepth = 10
)

// Params bit layout, least significant first.
const (
	endDepthBits   = 0
	midDepthBits   = 5
	depthFieldMask = 0x1f

	adaptiveBit   = 1 << 10
	exactBit      = 1 << 11
	bookBit       = 1 << 12
	adjustTimeBit = 1 << 13
)

var (
	ErrShortRequest  = errors.New("request too short")
	ErrOverlap       = errors.New("mover and opponent overlap")
	ErrShortResponse = errors.New("response too short")
)

// Params are the per-request search options.
type Params struct {
	// EndDepth is the empties threshold at or below which the endgame is
	// solved.
	EndDepth int
	// MidDepth is the midgame search depth in plies.
	MidDepth int
	// AdaptiveWLD solves win/loss/draw only, unless the position is well
	// inside the endgame threshold.
	AdaptiveWLD bool
	// Exact solves for the exact disc difference rather than WLD.
	Exact      bool
	UseBook    bool
	AdjustTime bool
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// DecodeParams unpacks the bitfield, clamping the depths.
func DecodeParams(p uint16) Params {
	return Params{
		EndDepth:    clampInt(int(p>>endDepthBits)&depthFieldMask, MinEndDepth, MaxEndDepth),
		MidDepth:    clampInt(int(p>>midDepthBits)&depthFieldMask, MinMidDepth, MaxMidDepth),
		AdaptiveWLD: p&adaptiveBit != 0,
		Exact:       p&exactBit != 0,
		UseBook:     p&bookBit != 0,
		AdjustTime:  p&adjustTimeBit != 0,
	}
}

// Encode packs the params. Depths are clamped first.
func (p Params) Encode() uint16 {
	v := uint16(clampInt(p.EndDepth, MinEndDepth, MaxEndDepth)) << endDepthBits
	v |= uint16(clampInt(p.MidDepth, MinMidDepth, MaxMidDepth)) << midDepthBits
	if p.AdaptiveWLD {
		v |= adaptiveBit
	}
	if p.Exact {
		v |= exactBit
	}
	if p.UseBook {
		v |= bookBit
	}
	if p.AdjustTime {
		v |= adjustTimeBit
	}
	return v
}

func (p Params) String() string {
	return fmt.Sprintf("end=%d mid=%d adaptive=%v exact=%v book=%v time=%v",
		p.EndDepth, p.MidDepth, p.AdaptiveWLD, p.Exact, p.UseBook, p.AdjustTime)
}

type Request struct {
	Position board.Position
	// RemainingTime is in tenths of a second.
	RemainingTime uint16
	Params        Params
}

// Remaining is the client's remaining game time.
func (r Request) Remaining() time.Duration {
	return time.Duration(r.RemainingTime) * 100 * time.Millisecond
}

// DecodeRequest parses a request. Trailing bytes are ignored.
func DecodeRequest(b []byte) (Request, error) {
	if len(b) < RequestSize {
		return Request{}, fmt.Errorf("%w: %d bytes", ErrShortRequest, len(b))
	}
	p := board.Position{
		Mover:    binary.BigEndian.Uint64(b[0:8]),
		Opponent: binary.BigEndian.Uint64(b[8:16]),
	}
	if !p.Valid() {
		return Request{}, fmt.Errorf("%w: %016x/%016x", ErrOverlap, p.Mover, p.Opponent)
	}
	return Request{
		Position:      p,
		RemainingTime: binary.BigEndian.Uint16(b[16:18]),
		Params:        DecodeParams(binary.BigEndian.Uint16(b[18:20])),
	}, nil
}

// ReadRequest reads exactly one request from r.
func ReadRequest(r io.Reader) (Request, error) {
	var buf [RequestSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return Request{}, fmt.Errorf("%w: %d bytes", ErrShortRequest, n)
	}
	if err != nil {
		return Request{}, err
	}
	return DecodeRequest(buf[:])
}

func (r Request) Encode() []byte {
	b := make([]byte, RequestSize)
	binary.BigEndian.PutUint64(b[0:8], r.Position.Mover)
	binary.BigEndian.PutUint64(b[8:16], r.Position.Opponent)
	binary.BigEndian.PutUint16(b[16:18], r.RemainingTime)
	binary.BigEndian.PutUint16(b[18:20], r.Params.Encode())
	return b
}

type Response struct {
	Move board.Move
	// Score is in centidisks. It is clamped to int16 on the wire.
	Score int32
}

// ClampScore saturates s to the int16 range.
func ClampScore(s int32) int16 {
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}

func (r Response) Encode() []byte {
	b := make([]byte, ResponseSize)
	b[0] = byte(r.Move)
	binary.BigEndian.PutUint16(b[1:3], uint16(ClampScore(r.Score)))
	return b
}

func DecodeResponse(b []byte) (Response, error) {
	if len(b) < ResponseSize {
		return Response{}, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(b))
	}
	return Response{
		Move:  board.Move(b[0]),
		Score: int32(int16(binary.BigEndian.Uint16(b[1:3]))),
	}, nil
}
