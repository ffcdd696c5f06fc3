package source_test

import (
	"errors"
	"testing"

	"github.com/eak1mov/go-tilefetch/source"
	"github.com/eak1mov/go-tilefetch/tile"
	"github.com/google/go-cmp/cmp"
)

func TestBuiltinURL(t *testing.T) {
	tileID := tile.ID{X: 2219, Y: 1484, Z: 12}
	for _, tc := range []struct {
		name   string
		url    string
		format string
	}{
		{"osm", "https://tile.openstreetmap.org/12/2219/1484.png", "png"},
		{"satellite", "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/12/1484/2219", "jpg"},
	} {
		s, err := source.Lookup(tc.name)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", tc.name, err)
		}
		if got := s.URL(tileID); got != tc.url {
			t.Errorf("%v: URL(%v) = %q, want = %q", tc.name, tileID, got, tc.url)
		}
		if s.Format != tc.format {
			t.Errorf("%v: Format = %q, want = %q", tc.name, s.Format, tc.format)
		}
		if err := s.Validate(); err != nil {
			t.Errorf("%v: Validate failed: %v", tc.name, err)
		}
	}
}

func TestNames(t *testing.T) {
	if diff := cmp.Diff([]string{"osm", "satellite"}, source.Names()); diff != "" {
		t.Errorf("Names mismatch (-want+got):\n%v", diff)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := source.Lookup("bing"); !errors.Is(err, source.ErrUnknownSource) {
		t.Errorf("Lookup(bing) error = %v, want = %v", err, source.ErrUnknownSource)
	}
}

func TestCustom(t *testing.T) {
	s, err := source.Custom("local", "http://localhost:8080/{z}/{x}/{y}.webp", "webp")
	if err != nil {
		t.Fatalf("Custom failed: %v", err)
	}
	if got, want := s.URL(tile.ID{X: 1, Y: 2, Z: 3}), "http://localhost:8080/3/1/2.webp"; got != want {
		t.Errorf("URL = %q, want = %q", got, want)
	}

	for _, tc := range [][2]string{
		{"http://localhost/{z}/{x}.png", "png"},
		{"http://localhost/{z}/{x}/{y}.png", ""},
	} {
		if _, err := source.Custom("bad", tc[0], tc[1]); !errors.Is(err, source.ErrInvalidTemplate) {
			t.Errorf("Custom(%q, %q) error = %v, want = %v", tc[0], tc[1], err, source.ErrInvalidTemplate)
		}
	}
}
