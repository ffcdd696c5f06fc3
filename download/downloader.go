// Package download fetches all tiles of a bounding box over a list of zoom levels,
// caching them in a tile directory and optionally packaging them into an archive.
package download

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eak1mov/go-tilefetch/fetch"
	"github.com/eak1mov/go-tilefetch/mercator"
	"github.com/eak1mov/go-tilefetch/source"
	"github.com/eak1mov/go-tilefetch/tile"
	"github.com/eak1mov/go-tilefetch/xyz"
	"golang.org/x/sync/errgroup"
)

// Progress receives one unit per processed tile.
// progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(n int) error
}

// Order selects the order in which tiles of a zoom level are visited.
type Order string

const (
	OrderColumns Order = "columns"
	OrderHilbert Order = "hilbert"
)

const DefaultDelay = 200 * time.Millisecond

// Options configures a Downloader.
type Options struct {
	// Delay is the pause after each tile, applied per worker.
	Delay time.Duration

	// Workers is the number of tiles processed in parallel. Values below 2 mean sequential.
	Workers int

	// Order of tiles within a zoom level. Default: OrderColumns.
	Order Order

	Progress Progress
	Logger   *slog.Logger
}

// Result describes a tile present on disk after FetchTile.
type Result struct {
	Path string
	// Data holds the tile data when it was downloaded, nil for cached tiles.
	Data   []byte
	Cached bool
}

// Stats counts tile outcomes.
type Stats struct {
	Tiles   int
	Fetched int
	Cached  int
	Failed  int
}

func (s *Stats) add(o Stats) {
	s.Tiles += o.Tiles
	s.Fetched += o.Fetched
	s.Cached += o.Cached
	s.Failed += o.Failed
}

// Downloader fetches tiles of a single source into a tile directory.
type Downloader struct {
	client *fetch.Client
	source source.Source
	cache  *xyz.Writer
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex // guards stats and progress
	stats Stats
}

// NewDownloader creates a Downloader storing tiles as "outputDir/{z}/{x}/{y}.<format>".
func NewDownloader(client *fetch.Client, src source.Source, outputDir string, opts Options) (*Downloader, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	cache, err := xyz.NewWriter(xyz.Pattern(outputDir, src.Format))
	if err != nil {
		return nil, err
	}
	if opts.Order == "" {
		opts.Order = OrderColumns
	}
	if opts.Order != OrderColumns && opts.Order != OrderHilbert {
		return nil, fmt.Errorf("tilefetch: unknown tile order %q", opts.Order)
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Downloader{
		client: client,
		source: src,
		cache:  cache,
		opts:   opts,
		logger: logger,
	}, nil
}

// FetchTile makes sure the tile is present on disk.
//
// An existing file is reused without any request. Otherwise the tile is downloaded and
// written atomically. A tile that could not be downloaded yields an error wrapping
// fetch.ErrAttemptsExhausted; other errors come from the filesystem or the context.
func (d *Downloader) FetchTile(ctx context.Context, tileID tile.ID) (Result, error) {
	path := d.cache.Path(tileID)

	exists, err := d.cache.Exists(tileID)
	if err != nil {
		return Result{}, fmt.Errorf("stat tile %v: %w", tileID, err)
	}
	if exists {
		return Result{Path: path, Cached: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Result{}, fmt.Errorf("create tile directory: %w", err)
	}

	data, err := d.client.Get(ctx, d.source.URL(tileID))
	if err != nil {
		return Result{}, err
	}

	if err := d.cache.WriteTile(tileID, data); err != nil {
		return Result{}, fmt.Errorf("write tile %v: %w", tileID, err)
	}
	return Result{Path: path, Data: data}, nil
}

// Run fetches all tiles covering bbox for each zoom level in the given order.
// When archive is not nil, every tile present on disk is also written to it;
// the archive is not finalized by Run.
//
// Tiles that fail to download are logged and skipped. Filesystem, archive and
// context errors abort the run.
func (d *Downloader) Run(ctx context.Context, bbox mercator.BoundingBox, zooms []uint32, archive tile.Writer) (Stats, error) {
	var total Stats
	for _, zoom := range zooms {
		r := mercator.RangeForBBox(bbox, zoom)
		d.logger.Info("tilefetch: zoom level",
			"zoom", zoom,
			"x", fmt.Sprintf("%d..%d", r.MinX, r.MaxX),
			"y", fmt.Sprintf("%d..%d", r.MinY, r.MaxY),
			"tiles", r.Count())

		d.stats = Stats{}
		var err error
		if d.opts.Workers > 1 {
			err = d.runParallel(ctx, d.tiles(r), archive)
		} else {
			err = d.runSequential(ctx, d.tiles(r), archive)
		}
		total.add(d.stats)
		if err != nil {
			return total, err
		}

		d.logger.Info("tilefetch: zoom level done",
			"zoom", zoom,
			"fetched", d.stats.Fetched,
			"cached", d.stats.Cached,
			"failed", d.stats.Failed)
	}
	return total, nil
}

func (d *Downloader) tiles(r tile.Range) iter.Seq[tile.ID] {
	if d.opts.Order == OrderHilbert {
		return r.HilbertTiles()
	}
	return r.Tiles()
}

func (d *Downloader) runSequential(ctx context.Context, tiles iter.Seq[tile.ID], archive tile.Writer) error {
	for tileID := range tiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.processTile(ctx, tileID, archive); err != nil {
			return err
		}
		if err := fetch.Sleep(ctx, d.opts.Delay); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) runParallel(ctx context.Context, tiles iter.Seq[tile.ID], archive tile.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for tileID := range tiles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := d.processTile(gctx, tileID, archive); err != nil {
				return err
			}
			return fetch.Sleep(gctx, d.opts.Delay)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (d *Downloader) processTile(ctx context.Context, tileID tile.ID, archive tile.Writer) error {
	result, err := d.FetchTile(ctx, tileID)

	d.mu.Lock()
	d.stats.Tiles++
	switch {
	case err == nil && result.Cached:
		d.stats.Cached++
	case err == nil:
		d.stats.Fetched++
	case errors.Is(err, fetch.ErrAttemptsExhausted):
		d.stats.Failed++
	}
	var progressErr error
	if d.opts.Progress != nil {
		progressErr = d.opts.Progress.Add(1)
	}
	d.mu.Unlock()

	// A failing progress sink never stops the download.
	if progressErr != nil {
		d.logger.Debug("tilefetch: progress update failed", "tile", tileID.String(), "err", progressErr)
	}

	if errors.Is(err, fetch.ErrAttemptsExhausted) {
		d.logger.Warn("tilefetch: tile skipped", "tile", tileID.String(), "err", err)
		return nil
	}
	if err != nil {
		return err
	}

	if archive == nil {
		return nil
	}
	data := result.Data
	if result.Cached {
		if data, err = os.ReadFile(result.Path); err != nil {
			return fmt.Errorf("read tile %v: %w", tileID, err)
		}
	}
	if err := archive.WriteTile(tileID, data); err != nil {
		return fmt.Errorf("archive tile %v: %w", tileID, err)
	}
	return nil
}
