package download

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilefetch/fetch"
	"github.com/eak1mov/go-tilefetch/mb"
	"github.com/eak1mov/go-tilefetch/mercator"
	"github.com/eak1mov/go-tilefetch/source"
)

// Job describes a complete download.
type Job struct {
	BBox      mercator.BoundingBox
	Zooms     []uint32
	Source    source.Source
	OutputDir string

	// ArchivePath is the MBTiles file to create. Empty means no archive.
	ArchivePath string
	// ArchiveName is the dataset name stored in the archive. Default: source name.
	ArchiveName string
}

// Run downloads all tiles of the job. When an archive path is set, the archive is
// recreated before any tile is fetched and committed after the last zoom level.
func Run(ctx context.Context, client *fetch.Client, job Job, opts Options) (Stats, error) {
	d, err := NewDownloader(client, job.Source, job.OutputDir, opts)
	if err != nil {
		return Stats{}, err
	}

	if job.ArchivePath == "" {
		stats, err := d.Run(ctx, job.BBox, job.Zooms, nil)
		d.logStats(stats)
		return stats, err
	}

	archive, err := mb.NewWriter(job.ArchivePath,
		mb.WithMetadata(Metadata(job)),
		mb.WithLogger(d.logger),
	)
	if err != nil {
		return Stats{}, fmt.Errorf("create archive: %w", err)
	}
	defer archive.Close()

	stats, err := d.Run(ctx, job.BBox, job.Zooms, archive)
	d.logStats(stats)
	if err != nil {
		return stats, err
	}

	if err := archive.Finalize(); err != nil {
		return stats, fmt.Errorf("finalize archive: %w", err)
	}
	d.logger.Info("tilefetch: archive written", "path", job.ArchivePath)
	return stats, nil
}

func (d *Downloader) logStats(stats Stats) {
	d.logger.Info("tilefetch: done",
		"tiles", stats.Tiles,
		"fetched", stats.Fetched,
		"cached", stats.Cached,
		"failed", stats.Failed)
}

// Metadata returns the MBTiles metadata of the job's archive.
func Metadata(job Job) map[string]string {
	name := job.ArchiveName
	if name == "" {
		name = job.Source.Name
	}

	bound := job.BBox.Bound()
	center := bound.Center()

	minZoom, maxZoom := uint32(0), uint32(0)
	if len(job.Zooms) > 0 {
		minZoom, maxZoom = slices.Min(job.Zooms), slices.Max(job.Zooms)
	}

	zooms := make([]string, 0, len(job.Zooms))
	for _, z := range job.Zooms {
		zooms = append(zooms, strconv.FormatUint(uint64(z), 10))
	}

	bounds := []string{
		formatFloat(bound.Min.Lon()),
		formatFloat(bound.Min.Lat()),
		formatFloat(bound.Max.Lon()),
		formatFloat(bound.Max.Lat()),
	}

	metadata := map[string]string{
		"name":        name,
		"type":        "baselayer",
		"version":     "1.0",
		"description": fmt.Sprintf("%s tiles, zoom levels %s", job.Source.Name, strings.Join(zooms, ",")),
		"format":      job.Source.Format,
		"bounds":      strings.Join(bounds, ","),
		"center":      fmt.Sprintf("%s,%s,%d", formatFloat(center.Lon()), formatFloat(center.Lat()), minZoom),
		"minzoom":     strconv.FormatUint(uint64(minZoom), 10),
		"maxzoom":     strconv.FormatUint(uint64(maxZoom), 10),
	}
	if job.Source.Attribution != "" {
		metadata["attribution"] = job.Source.Attribution
	}
	return metadata
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
