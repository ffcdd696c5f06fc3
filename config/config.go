package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eak1mov/go-tilefetch/download"
	"github.com/eak1mov/go-tilefetch/fetch"
	"github.com/eak1mov/go-tilefetch/mercator"
	"github.com/eak1mov/go-tilefetch/source"
	"gopkg.in/yaml.v3"
)

// MaxZoom is the deepest zoom level accepted.
const MaxZoom = 30

// Config defines configuration of a tile download.
type Config struct {
	// BBox holds min_lat, min_lon, max_lat, max_lon.
	BBox      []float64
	Zooms     []uint32
	Source    string
	URL       string
	Format    string
	Output    string
	Archive   string
	Name      string
	Workers   int
	Order     string
	Delay     time.Duration
	Timeout   time.Duration
	UserAgent string
	Retry     RetryConfig
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts int
	Backoff  time.Duration
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Source:    "osm",
		Workers:   1,
		Order:     string(download.OrderColumns),
		Delay:     download.DefaultDelay,
		Timeout:   10 * time.Second,
		UserAgent: fetch.DefaultUserAgent,
		Retry: RetryConfig{
			Attempts: 5,
			Backoff:  time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and zoom lists.
type yamlConfig struct {
	BBox      []float64       `yaml:"bbox"`
	Zoom      string          `yaml:"zoom"`
	Source    string          `yaml:"source"`
	URL       string          `yaml:"url"`
	Format    string          `yaml:"format"`
	Output    string          `yaml:"output"`
	Archive   string          `yaml:"archive"`
	Name      string          `yaml:"name"`
	Workers   int             `yaml:"workers"`
	Order     string          `yaml:"order"`
	Delay     string          `yaml:"delay"`
	Timeout   string          `yaml:"timeout"`
	UserAgent string          `yaml:"user_agent"`
	Retry     yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts int    `yaml:"attempts"`
	Backoff  string `yaml:"backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BBox != nil {
		cfg.BBox = yc.BBox
	}
	if yc.Zoom != "" {
		zooms, err := ParseZooms(yc.Zoom)
		if err != nil {
			return Config{}, fmt.Errorf("parse zoom: %w", err)
		}
		cfg.Zooms = zooms
	}
	if yc.Source != "" {
		cfg.Source = yc.Source
	}
	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.Format != "" {
		cfg.Format = yc.Format
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Archive != "" {
		cfg.Archive = yc.Archive
	}
	if yc.Name != "" {
		cfg.Name = yc.Name
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Order != "" {
		cfg.Order = yc.Order
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"delay", yc.Delay, &cfg.Delay},
		{"timeout", yc.Timeout, &cfg.Timeout},
		{"retry.backoff", yc.Retry.Backoff, &cfg.Retry.Backoff},
	} {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TILEFETCH_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("TILEFETCH_BBOX"); v != "" {
		bbox, err := ParseBBox(v)
		if err != nil {
			return fmt.Errorf("parse TILEFETCH_BBOX: %w", err)
		}
		c.BBox = bbox
	}
	if v := os.Getenv("TILEFETCH_ZOOM"); v != "" {
		zooms, err := ParseZooms(v)
		if err != nil {
			return fmt.Errorf("parse TILEFETCH_ZOOM: %w", err)
		}
		c.Zooms = zooms
	}
	if v := os.Getenv("TILEFETCH_SOURCE"); v != "" {
		c.Source = v
	}
	if v := os.Getenv("TILEFETCH_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("TILEFETCH_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("TILEFETCH_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("TILEFETCH_ORDER"); v != "" {
		c.Order = v
	}
	if v := os.Getenv("TILEFETCH_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("TILEFETCH_ARCHIVE"); v != "" {
		c.Archive = v
	}
	if v := os.Getenv("TILEFETCH_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("TILEFETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse TILEFETCH_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("TILEFETCH_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse TILEFETCH_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("TILEFETCH_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse TILEFETCH_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("TILEFETCH_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse TILEFETCH_DELAY: %w", err)
		}
		c.Delay = d
	}
	if v := os.Getenv("TILEFETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse TILEFETCH_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.BBox) != 4 {
		return errors.New("config: bbox needs 4 values (min_lat, min_lon, max_lat, max_lon)")
	}
	if len(c.Zooms) == 0 {
		return errors.New("config: at least one zoom level is required")
	}
	for _, z := range c.Zooms {
		if z > MaxZoom {
			return fmt.Errorf("config: zoom level %d exceeds %d", z, MaxZoom)
		}
	}
	if c.URL == "" && c.Source == "" {
		return errors.New("config: source or url is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("config: retry attempts must be positive")
	}
	if c.Retry.Backoff < 0 || c.Delay < 0 {
		return errors.New("config: durations must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	switch download.Order(c.Order) {
	case download.OrderColumns, download.OrderHilbert:
	default:
		return fmt.Errorf("config: unknown order %q", c.Order)
	}
	return nil
}

// TileSource resolves the built-in source, or the custom URL template when set.
func (c *Config) TileSource() (source.Source, error) {
	if c.URL == "" {
		return source.Lookup(c.Source)
	}
	format := c.Format
	if format == "" {
		format = "png"
	}
	name := c.Source
	if name == "" || name == Default().Source {
		name = "custom"
	}
	return source.Custom(name, c.URL, format)
}

// OutputDir returns the tile directory, derived from the source name by default.
func (c *Config) OutputDir(src source.Source) string {
	if c.Output != "" {
		return c.Output
	}
	return "tiles_" + src.Name
}

func (c *Config) BoundingBox() mercator.BoundingBox {
	return mercator.BoundingBox{MinLat: c.BBox[0], MinLon: c.BBox[1], MaxLat: c.BBox[2], MaxLon: c.BBox[3]}
}

// FetchOptions returns the HTTP client options.
func (c *Config) FetchOptions() fetch.Options {
	opts := fetch.DefaultOptions()
	opts.Timeout = c.Timeout
	opts.MaxAttempts = c.Retry.Attempts
	opts.Backoff = c.Retry.Backoff
	opts.UserAgent = c.UserAgent
	opts.MaxIdleConnsPerHost = max(c.Workers, opts.MaxIdleConnsPerHost)
	return opts
}

// Job returns the download job for the given source.
func (c *Config) Job(src source.Source) download.Job {
	return download.Job{
		BBox:        c.BoundingBox(),
		Zooms:       c.Zooms,
		Source:      src,
		OutputDir:   c.OutputDir(src),
		ArchivePath: c.Archive,
		ArchiveName: c.Name,
	}
}

// ParseZooms parses a comma separated list of zoom levels and inclusive
// ranges, e.g. "12,13" or "12-14,16". Order and duplicates are kept.
func ParseZooms(s string) ([]uint32, error) {
	var zooms []uint32
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := parseZoom(lo)
		if err != nil {
			return nil, err
		}
		to := from
		if isRange {
			if to, err = parseZoom(hi); err != nil {
				return nil, err
			}
		}
		if to < from {
			return nil, fmt.Errorf("invalid zoom range %q", part)
		}
		for z := from; z <= to; z++ {
			zooms = append(zooms, z)
		}
	}
	if len(zooms) == 0 {
		return nil, fmt.Errorf("no zoom levels in %q", s)
	}
	return zooms, nil
}

func parseZoom(s string) (uint32, error) {
	z, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid zoom level %q", s)
	}
	if z > MaxZoom {
		return 0, fmt.Errorf("zoom level %d exceeds %d", z, MaxZoom)
	}
	return uint32(z), nil
}

// ParseBBox parses four comma or space separated floats: min_lat, min_lon, max_lat, max_lon.
func ParseBBox(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 4 {
		return nil, fmt.Errorf("bbox %q: expected 4 values, got %d", s, len(fields))
	}
	bbox := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bbox %q: %w", s, err)
		}
		bbox[i] = v
	}
	return bbox, nil
}
