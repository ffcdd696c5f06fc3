// Package mercator maps geographic coordinates to tile coordinates of the
// spherical Web Mercator tile grid (EPSG:3857, "slippy map" tiles).
//
// Project does not validate its inputs: latitudes beyond ±85.0511° and the
// longitude 180° produce coordinates outside of the tile grid. RangeForBBox
// clamps them to the grid.
package mercator

import (
	"math"

	"github.com/eak1mov/go-tilefetch/tile"
	"github.com/paulmach/orb"
)

// Project returns the column and row of the tile containing (lat, lon) at the given zoom.
func Project(lat, lon float64, zoom uint32) (x, y int) {
	n := math.Exp2(float64(zoom))
	latRad := lat * math.Pi / 180
	x = int(math.Floor((lon + 180) / 360 * n))
	y = int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))
	return x, y
}

// BoundingBox is a geographic rectangle given by two opposite corners in degrees.
// The corners may be given in either order.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Bound returns the normalized bound of the box, with longitude as X and latitude as Y.
func (b BoundingBox) Bound() orb.Bound {
	return orb.MultiPoint{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
	}.Bound()
}

// RangeForBBox returns the inclusive range of tiles covering the box at the given zoom.
// Both corners are projected independently, clamped to the tile grid and each
// axis is sorted afterwards.
func RangeForBBox(bbox BoundingBox, zoom uint32) tile.Range {
	x1, y1 := Project(bbox.MinLat, bbox.MinLon, zoom)
	x2, y2 := Project(bbox.MaxLat, bbox.MaxLon, zoom)
	x1, y1 = clamp(x1, zoom), clamp(y1, zoom)
	x2, y2 = clamp(x2, zoom), clamp(y2, zoom)
	return tile.Range{
		Z:    zoom,
		MinX: uint32(min(x1, x2)),
		MaxX: uint32(max(x1, x2)),
		MinY: uint32(min(y1, y2)),
		MaxY: uint32(max(y1, y2)),
	}
}

func clamp(v int, zoom uint32) int {
	last := int(1)<<zoom - 1
	return min(max(v, 0), last)
}
