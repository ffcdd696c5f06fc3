package tile

import (
	"fmt"
	"iter"
	"math/bits"

	"github.com/google/hilbert"
)

// Range is an inclusive rectangle of tiles at a single zoom level.
type Range struct {
	Z    uint32
	MinX uint32
	MaxX uint32
	MinY uint32
	MaxY uint32
}

func (r Range) String() string {
	return fmt.Sprintf("z%d x[%d..%d] y[%d..%d]", r.Z, r.MinX, r.MaxX, r.MinY, r.MaxY)
}

func (r Range) Width() uint32  { return r.MaxX - r.MinX + 1 }
func (r Range) Height() uint32 { return r.MaxY - r.MinY + 1 }

// Count returns the number of tiles in the range.
func (r Range) Count() int {
	return int(r.Width()) * int(r.Height())
}

func (r Range) Contains(tileID ID) bool {
	return tileID.Z == r.Z &&
		tileID.X >= r.MinX && tileID.X <= r.MaxX &&
		tileID.Y >= r.MinY && tileID.Y <= r.MaxY
}

// Tiles returns an iterator over all tiles in the range, column by column.
func (r Range) Tiles() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for x := r.MinX; x <= r.MaxX; x++ {
			for y := r.MinY; y <= r.MaxY; y++ {
				if !yield(ID{X: x, Y: y, Z: r.Z}) {
					return
				}
			}
		}
	}
}

// HilbertTiles returns an iterator over all tiles in the range ordered along Hilbert curves,
// so that consecutive tiles are adjacent whenever possible.
//
// The range is split into square blocks whose side is the shorter range dimension rounded up
// to a power of two, and each block is walked along its own curve. Elongated ranges thus cost
// a small constant factor over Count() instead of the square of the longer dimension.
func (r Range) HilbertTiles() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		side := uint32(1) << bits.Len32(min(r.Width(), r.Height())-1)
		h, err := hilbert.NewHilbert(int(side))
		if err != nil {
			panic(err) // side is always a power of two
		}
		for bx := r.MinX; bx <= r.MaxX; bx += side {
			for by := r.MinY; by <= r.MaxY; by += side {
				for t := range int(side) * int(side) {
					x, y, err := h.Map(t)
					if err != nil {
						panic(err)
					}
					tileID := ID{X: bx + uint32(x), Y: by + uint32(y), Z: r.Z}
					if tileID.X > r.MaxX || tileID.Y > r.MaxY {
						continue
					}
					if !yield(tileID) {
						return
					}
				}
			}
		}
	}
}
