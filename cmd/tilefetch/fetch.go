package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eak1mov/go-tilefetch/config"
	"github.com/eak1mov/go-tilefetch/download"
	"github.com/eak1mov/go-tilefetch/fetch"
	"github.com/eak1mov/go-tilefetch/mercator"
	"github.com/eak1mov/go-tilefetch/source"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type fetchCmd struct {
	configPath string
	bbox       string
	zoom       string
	source     string
	url        string
	format     string
	output     string
	archive    string
	name       string
	workers    int
	order      string
	delay      time.Duration
	timeout    time.Duration
	attempts   int
	backoff    time.Duration
	userAgent  string
}

func (c *fetchCmd) Name() string     { return "fetch" }
func (c *fetchCmd) Synopsis() string { return "download tiles of a bounding box" }
func (c *fetchCmd) Usage() string {
	return "tilefetch fetch -bbox <min_lat,min_lon,max_lat,max_lon> -zoom <levels> [-source <name> | -url <template>] [-o <dir>] [-mbtiles <path>]\n"
}
func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	defaults := config.Default()
	f.StringVar(&c.configPath, "config", "", "YAML configuration file")
	f.StringVar(&c.bbox, "bbox", "", "Bounding box: min_lat,min_lon,max_lat,max_lon")
	f.StringVar(&c.zoom, "zoom", "", "Zoom levels, e.g. 12,13 or 12-18")
	f.StringVar(&c.source, "source", defaults.Source, fmt.Sprintf("Tile source (%s)", strings.Join(source.Names(), ", ")))
	f.StringVar(&c.url, "url", "", "Custom tile URL template with {z}, {x} and {y}")
	f.StringVar(&c.format, "format", "", "Tile format of a custom URL template (default png)")
	f.StringVar(&c.output, "o", "", "Output directory (default tiles_<source>)")
	f.StringVar(&c.archive, "mbtiles", "", "Also package tiles into this MBTiles file")
	f.StringVar(&c.name, "name", "", "Dataset name stored in the MBTiles file (default source name)")
	f.IntVar(&c.workers, "workers", defaults.Workers, "Number of parallel downloads")
	f.StringVar(&c.order, "order", defaults.Order, "Tile order within a zoom level (columns, hilbert)")
	f.DurationVar(&c.delay, "delay", defaults.Delay, "Pause after each tile")
	f.DurationVar(&c.timeout, "timeout", defaults.Timeout, "Timeout of a single request")
	f.IntVar(&c.attempts, "attempts", defaults.Retry.Attempts, "Maximum number of requests per tile")
	f.DurationVar(&c.backoff, "backoff", defaults.Retry.Backoff, "Pause between attempts")
	f.StringVar(&c.userAgent, "user-agent", defaults.UserAgent, "User-Agent header")
}

// loadConfig layers the config file, the environment and the explicitly set flags.
func (c *fetchCmd) loadConfig(f *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(c.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	var err error
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "bbox":
			cfg.BBox, err = config.ParseBBox(c.bbox)
		case "zoom":
			cfg.Zooms, err = config.ParseZooms(c.zoom)
		case "source":
			cfg.Source = c.source
		case "url":
			cfg.URL = c.url
		case "format":
			cfg.Format = c.format
		case "o":
			cfg.Output = c.output
		case "mbtiles":
			cfg.Archive = c.archive
		case "name":
			cfg.Name = c.name
		case "workers":
			cfg.Workers = c.workers
		case "order":
			cfg.Order = c.order
		case "delay":
			cfg.Delay = c.delay
		case "timeout":
			cfg.Timeout = c.timeout
		case "attempts":
			cfg.Retry.Attempts = c.attempts
		case "backoff":
			cfg.Retry.Backoff = c.backoff
		case "user-agent":
			cfg.UserAgent = c.userAgent
		}
	})
	if err != nil {
		return config.Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := newLogger()

	cfg, err := c.loadConfig(f)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		return subcommands.ExitUsageError
	}

	src, err := cfg.TileSource()
	if err != nil {
		logger.Error("invalid tile source", "err", err)
		return subcommands.ExitUsageError
	}

	job := cfg.Job(src)
	total := 0
	for _, z := range job.Zooms {
		total += mercator.RangeForBBox(job.BBox, z).Count()
	}
	logger.Info("starting download",
		"source", src.Name,
		"zooms", job.Zooms,
		"tiles", total,
		"output", job.OutputDir,
		"mbtiles", job.ArchivePath)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetchOpts := cfg.FetchOptions()
	fetchOpts.Logger = logger
	client := fetch.NewClient(fetchOpts)

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(src.Name),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	stats, err := download.Run(ctx, client, job, download.Options{
		Delay:    cfg.Delay,
		Workers:  cfg.Workers,
		Order:    download.Order(cfg.Order),
		Progress: bar,
		Logger:   logger,
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err != nil {
		logger.Error("download failed", "err", err)
		return subcommands.ExitFailure
	}
	if stats.Failed > 0 {
		logger.Warn("some tiles could not be downloaded, run again to retry them", "failed", stats.Failed)
	}
	return subcommands.ExitSuccess
}
