package mercator_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/eak1mov/go-tilefetch/mercator"
	"github.com/eak1mov/go-tilefetch/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

func TestProject(t *testing.T) {
	for _, tc := range []struct {
		lat, lon float64
		zoom     uint32
		x, y     int
	}{
		{0, 0, 0, 0, 0},
		{0, 0, 1, 1, 1},
		{44.3381, 15.0630, 12, 2219, 1484},
		{44.2285, 15.3488, 12, 2222, 1485},
		{44.3381, 15.0630, 13, 4438, 2968},
		{85.05, 179.99, 5, 31, 0},
		{-85.05, -180, 5, 0, 31},
	} {
		x, y := mercator.Project(tc.lat, tc.lon, tc.zoom)
		if x != tc.x || y != tc.y {
			t.Errorf("Project(%v, %v, %v) = (%v, %v), want = (%v, %v)", tc.lat, tc.lon, tc.zoom, x, y, tc.x, tc.y)
		}
	}
}

func TestProjectInGrid(t *testing.T) {
	for zoom := range uint32(19) {
		n := 1 << zoom
		for lat := -85.0; lat <= 85.0; lat += 8.5 {
			for lon := -180.0; lon < 180.0; lon += 7.5 {
				x, y := mercator.Project(lat, lon, zoom)
				if x < 0 || x >= n || y < 0 || y >= n {
					t.Fatalf("Project(%v, %v, %v) = (%v, %v), out of [0, %v)", lat, lon, zoom, x, y, n)
				}
			}
		}
	}
}

func TestRangeForBBox(t *testing.T) {
	bbox := mercator.BoundingBox{MinLat: 44.3381, MinLon: 15.0630, MaxLat: 44.2285, MaxLon: 15.3488}

	want := tile.Range{Z: 12, MinX: 2219, MaxX: 2222, MinY: 1484, MaxY: 1485}
	if diff := cmp.Diff(want, mercator.RangeForBBox(bbox, 12)); diff != "" {
		t.Errorf("RangeForBBox mismatch (-want+got):\n%v", diff)
	}
}

func TestRangeForBBoxClamped(t *testing.T) {
	for _, tc := range []struct {
		bbox mercator.BoundingBox
		zoom uint32
		want tile.Range
	}{
		// Latitudes beyond 85.0511 project above row 0.
		{mercator.BoundingBox{MinLat: 86, MinLon: 0, MaxLat: 80, MaxLon: 10}, 2, tile.Range{Z: 2, MinX: 2, MaxX: 2, MinY: 0, MaxY: 0}},
		// Longitude 180 projects to column 2^z.
		{mercator.BoundingBox{MinLat: 44, MinLon: 170, MaxLat: 45, MaxLon: 180}, 3, tile.Range{Z: 3, MinX: 7, MaxX: 7, MinY: 2, MaxY: 2}},
		{mercator.BoundingBox{MinLat: -86, MinLon: -180, MaxLat: 86, MaxLon: 180}, 2, tile.Range{Z: 2, MinX: 0, MaxX: 3, MinY: 0, MaxY: 3}},
		{mercator.BoundingBox{MinLat: -86, MinLon: -180, MaxLat: 86, MaxLon: 180}, 0, tile.Range{Z: 0}},
	} {
		got := mercator.RangeForBBox(tc.bbox, tc.zoom)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("RangeForBBox(%+v, %v) mismatch (-want+got):\n%v", tc.bbox, tc.zoom, diff)
		}
		if n := len(slices.Collect(got.Tiles())); n != got.Count() {
			t.Errorf("RangeForBBox(%+v, %v): %v tiles, Count() = %v", tc.bbox, tc.zoom, n, got.Count())
		}
	}
}

func TestRangeForBBoxCornerOrder(t *testing.T) {
	corners := [][2]float64{
		{44.3381, 15.0630},
		{44.2285, 15.3488},
		{-33.9, 151.1},
		{-34.1, 151.3},
		{51.6, -0.5},
		{51.3, 0.3},
	}
	for i := 0; i < len(corners); i += 2 {
		a, b := corners[i], corners[i+1]
		for zoom := range uint32(18) {
			t.Run(fmt.Sprintf("%v-%v-z%v", a, b, zoom), func(t *testing.T) {
				ab := mercator.BoundingBox{MinLat: a[0], MinLon: a[1], MaxLat: b[0], MaxLon: b[1]}
				ba := mercator.BoundingBox{MinLat: b[0], MinLon: b[1], MaxLat: a[0], MaxLon: a[1]}
				r1 := mercator.RangeForBBox(ab, zoom)
				r2 := mercator.RangeForBBox(ba, zoom)
				if diff := cmp.Diff(r1, r2); diff != "" {
					t.Errorf("RangeForBBox not order independent (-ab+ba):\n%v", diff)
				}
				if r1.MinX > r1.MaxX || r1.MinY > r1.MaxY {
					t.Errorf("RangeForBBox = %v, bounds not sorted", r1)
				}
			})
		}
	}
}

func TestBound(t *testing.T) {
	bbox := mercator.BoundingBox{MinLat: 44.3381, MinLon: 15.3488, MaxLat: 44.2285, MaxLon: 15.0630}
	want := orb.Bound{Min: orb.Point{15.0630, 44.2285}, Max: orb.Point{15.3488, 44.3381}}
	if got := bbox.Bound(); !got.Equal(want) {
		t.Errorf("Bound() = %v, want = %v", got, want)
	}
}
