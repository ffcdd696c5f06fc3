// Package source describes remote tile servers.
package source

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilefetch/tile"
)

var (
	ErrUnknownSource   = errors.New("tilefetch: unknown tile source")
	ErrInvalidTemplate = errors.New("tilefetch: invalid url template")
)

// Source is a remote tile server addressed by an URL template with
// {z}, {x} and {y} placeholders. Placeholders may appear in any order.
type Source struct {
	Name        string
	URLTemplate string
	// Format is the tile image format, used as file extension and MBTiles "format".
	Format      string
	Attribution string
}

var builtin = []Source{
	{
		Name:        "osm",
		URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Format:      "png",
		Attribution: "© OpenStreetMap contributors",
	},
	{
		Name:        "satellite",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Format:      "jpg",
		Attribution: "Tiles © Esri",
	},
}

// Names returns the names of the built-in sources.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for _, s := range builtin {
		names = append(names, s.Name)
	}
	return names
}

// Lookup returns the built-in source with the given name.
func Lookup(name string) (Source, error) {
	i := slices.IndexFunc(builtin, func(s Source) bool { return s.Name == name })
	if i < 0 {
		return Source{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSource, name, strings.Join(Names(), ", "))
	}
	return builtin[i], nil
}

// Custom returns a source for a user supplied URL template.
func Custom(name, urlTemplate, format string) (Source, error) {
	s := Source{Name: name, URLTemplate: urlTemplate, Format: format}
	if err := s.Validate(); err != nil {
		return Source{}, err
	}
	return s, nil
}

func (s Source) Validate() error {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(s.URLTemplate, p) {
			return fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidTemplate, p, s.URLTemplate)
		}
	}
	if s.Format == "" {
		return fmt.Errorf("%w: empty tile format", ErrInvalidTemplate)
	}
	return nil
}

// URL returns the URL of the tile.
func (s Source) URL(tileID tile.ID) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(tileID.X), 10),
		"{y}", strconv.FormatUint(uint64(tileID.Y), 10),
		"{z}", strconv.FormatUint(uint64(tileID.Z), 10),
	).Replace(s.URLTemplate)
}
