package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/eak1mov/go-tilefetch/mb"
	"github.com/eak1mov/go-tilefetch/tile"
	"github.com/eak1mov/go-tilefetch/xyz"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	outputFormat string
	outputPath   string
	tileFormat   string
	name         string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between a tile directory and an MBTiles file" }
func (c *convertCmd) Usage() string {
	return "tilefetch convert -i <path> -o <path> [-if <format> | -of <format>] [-tf <png|jpg>] [-name <name>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path (tile directory or MBTiles file)")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, xyz)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, xyz)")
	f.StringVar(&c.tileFormat, "tf", "png", "Tile file extension in tile directories")
	f.StringVar(&c.name, "name", "", "Dataset name stored in the MBTiles file (default output file name)")
}

func (c *convertCmd) openReader(format string) (tile.Visitor, error) {
	switch format {
	case "mbtiles":
		return mb.NewReader(c.inputPath)
	case "xyz", "":
		return xyz.NewReader(xyz.Pattern(c.inputPath, c.tileFormat))
	default:
		return nil, fmt.Errorf("invalid input format: %q", c.inputFormat)
	}
}

func (c *convertCmd) metadata(reader tile.Visitor) (map[string]string, error) {
	if r, ok := reader.(*mb.Reader); ok {
		return r.ReadMetadata()
	}
	name := c.name
	if name == "" {
		name = filepath.Base(c.outputPath)
	}
	return map[string]string{
		"name":    name,
		"type":    "baselayer",
		"version": "1.0",
		"format":  c.tileFormat,
	}, nil
}

func (c *convertCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := newLogger()

	inputFormat := deduceFormat(c.inputFormat, c.inputPath)
	outputFormat := deduceFormat(c.outputFormat, c.outputPath)

	reader, err := c.openReader(inputFormat)
	if err != nil {
		logger.Error("cannot open input", "err", err)
		return subcommands.ExitFailure
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	var writer tile.Writer
	switch outputFormat {
	case "mbtiles":
		var metadata map[string]string
		metadata, err = c.metadata(reader)
		if err != nil {
			logger.Error("cannot read metadata", "err", err)
			return subcommands.ExitFailure
		}
		writer, err = mb.NewWriter(c.outputPath, mb.WithMetadata(metadata), mb.WithLogger(logger))
	case "xyz", "":
		writer, err = xyz.NewWriter(xyz.Pattern(c.outputPath, c.tileFormat))
	default:
		logger.Error("invalid output format", "format", c.outputFormat)
		return subcommands.ExitUsageError
	}
	if err != nil {
		logger.Error("cannot create output", "err", err)
		return subcommands.ExitFailure
	}
	if closer, ok := writer.(io.Closer); ok {
		defer closer.Close()
	}

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	n, err := tile.Copy(writer, reader, func(tile.ID) { bar.Add(1) })
	bar.Finish()
	fmt.Println()

	if err != nil {
		logger.Error("conversion failed", "err", err, "copied", n)
		return subcommands.ExitFailure
	}

	if err := writer.Finalize(); err != nil {
		logger.Error("finalize failed", "err", err)
		return subcommands.ExitFailure
	}
	logger.Info("conversion done", "tiles", n)

	return subcommands.ExitSuccess
}
