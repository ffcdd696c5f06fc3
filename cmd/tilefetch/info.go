package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"slices"

	"github.com/eak1mov/go-tilefetch/mb"
	"github.com/google/subcommands"
)

type infoCmd struct {
	inputPath string
}

func (c *infoCmd) Name() string     { return "info" }
func (c *infoCmd) Synopsis() string { return "print metadata and tile counts of an MBTiles file" }
func (c *infoCmd) Usage() string {
	return "tilefetch info -i <path>\n"
}
func (c *infoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input MBTiles file path")
}

func (c *infoCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := newLogger()

	reader, err := mb.NewReader(c.inputPath)
	if err != nil {
		logger.Error("cannot open input", "err", err)
		return subcommands.ExitFailure
	}
	defer reader.Close()

	metadata, err := reader.ReadMetadata()
	if err != nil {
		logger.Error("cannot read metadata", "err", err)
		return subcommands.ExitFailure
	}
	for _, name := range slices.Sorted(maps.Keys(metadata)) {
		fmt.Printf("%-12s %s\n", name, metadata[name])
	}

	counts, err := reader.CountTiles()
	if err != nil {
		logger.Error("cannot count tiles", "err", err)
		return subcommands.ExitFailure
	}
	total := 0
	for _, z := range slices.Sorted(maps.Keys(counts)) {
		fmt.Printf("zoom %-7d %d tiles\n", z, counts[z])
		total += counts[z]
	}
	fmt.Printf("total        %d tiles\n", total)

	return subcommands.ExitSuccess
}
