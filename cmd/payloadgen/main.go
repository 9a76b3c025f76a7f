// Package main implements payloadgen, a generator for combine-names
// request bodies used in load and acceptance testing.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360/namestream/payload"
)

func main() {
	var (
		sizeMB   = flag.Int64("size-mb", 1, "Approximate payload size in MiB")
		first    = flag.Int("first", 3, "Base first-name count before size scaling")
		last     = flag.Int("last", 3, "Base last-name count before size scaling")
		overlap  = flag.Float64("overlap", 0.5, "Fraction of min(first, last) sharing IDs across sides")
		nameLen  = flag.Int("name-len", payload.DefaultNameLength, "Characters per generated name")
		seed     = flag.Int64("seed", 0, "Random seed, 0 uses the current time")
		out      = flag.String("out", "test_input.json", "Output file path")
		cases    = flag.Bool("cases", false, "Generate the canonical case files instead of a single payload")
		casesDir = flag.String("cases-dir", ".", "Directory for case files when -cases is set")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	gen := payload.NewGenerator(*seed)
	targetSize := *sizeMB << 20

	if *cases {
		if err := writeCases(gen, targetSize, *casesDir, logger); err != nil {
			logger.Error("Case generation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	spec := payload.Spec{
		TargetSize:   targetSize,
		BaseFirst:    *first,
		BaseLast:     *last,
		OverlapRatio: *overlap,
		NameLength:   *nameLen,
	}

	stats, err := gen.WriteFile(*out, spec)
	if err != nil {
		logger.Error("Generation failed", "error", err)
		os.Exit(1)
	}

	report(*out, stats)
}

func writeCases(gen *payload.Generator, targetSize int64, dir string, logger *slog.Logger) error {
	for _, c := range payload.Cases(targetSize) {
		path := filepath.Join(dir, c.File)
		stats, err := gen.WriteFile(path, c.Spec)
		if err != nil {
			return fmt.Errorf("case %s: %w", c.Name, err)
		}
		report(path, stats)
	}
	return nil
}

func report(path string, stats payload.Stats) {
	fmt.Printf("%s: %.2f MB (%d first, %d last, %d overlapping)\n",
		path, float64(stats.BytesWritten)/(1<<20),
		stats.FirstNames, stats.LastNames, stats.Overlap)
}
