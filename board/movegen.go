package board

const (
	notAFile uint64 = 0xfefefefefefefefe
	notHFile uint64 = 0x7f7f7f7f7f7f7f7f
)

// direction is a bit shift plus the mask that clears cells which wrapped
// around a board edge after the shift.
type direction struct {
	shift int
	mask  uint64
}

var directions = [8]direction{
	{1, notAFile},  // east
	{-1, notHFile}, // west
	{8, Full},      // north (towards row 8)
	{-8, Full},     // south
	{9, notAFile},  // north-east
	{7, notHFile},  // north-west
	{-7, notAFile}, // south-east
	{-9, notHFile}, // south-west
}

func (d direction) step(x uint64) uint64 {
	if d.shift > 0 {
		return (x << uint(d.shift)) & d.mask
	}
	return (x >> uint(-d.shift)) & d.mask
}

// Moves generates the legal destination cells for mover. Per direction, the
// run of opponent disks adjacent to a mover disk is propagated by repeated
// shift-and-mask; a run spans at most 6 interior cells so 6 steps suffice.
// The cell just beyond each run is a move if it is empty.
func Moves(mover, opponent uint64) uint64 {
	var moves uint64
	for _, d := range directions {
		run := d.step(mover) & opponent
		run |= d.step(run) & opponent
		run |= d.step(run) & opponent
		run |= d.step(run) & opponent
		run |= d.step(run) & opponent
		run |= d.step(run) & opponent
		moves |= d.step(run)
	}
	return moves &^ (mover | opponent)
}

// Flips returns the opponent disks captured by placing a disk at m. A run in
// one direction is only captured when a mover disk terminates it.
func Flips(m Move, mover, opponent uint64) uint64 {
	bit := m.Bit()
	if bit == 0 {
		return 0
	}
	var flips uint64
	for _, d := range directions {
		var run uint64
		x := d.step(bit)
		for x&opponent != 0 {
			run |= x
			x = d.step(x)
		}
		if x&mover != 0 {
			flips |= run
		}
	}
	return flips
}

// Flip places the mover's disk at m and flips the captured disks. It returns
// the new (mover, opponent) pair; the caller is responsible for swapping
// sides afterwards.
func Flip(m Move, mover, opponent uint64) (uint64, uint64) {
	flips := Flips(m, mover, opponent)
	return mover | flips | m.Bit(), opponent &^ flips
}
