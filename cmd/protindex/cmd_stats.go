package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/store"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    protindex stats [options]

DESCRIPTION:
    Show statistics about the current index.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Show human-readable statistics
    protindex stats

    # JSON output
    protindex stats -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}

	latest, err := store.NewRunStore(db).Latest()
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Fatalf("Failed to read latest run: %v", err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"database":   cfg.Database.Path,
			"sequences":  stats.SequenceCount,
			"vectors":    stats.VectorCount,
			"runs":       stats.RunCount,
			"size_bytes": stats.SizeBytes,
			"latest_run": latest,
		})
		return
	}

	fmt.Println("📊 Index Statistics")
	fmt.Println()
	fmt.Printf("Database:   %s (%s)\n", cfg.Database.Path, humanize.Bytes(uint64(stats.SizeBytes)))
	fmt.Printf("Sequences:  %6s\n", humanize.Comma(stats.SequenceCount))
	fmt.Printf("Vectors:    %6s\n", humanize.Comma(stats.VectorCount))
	fmt.Printf("Runs:       %6s\n", humanize.Comma(stats.RunCount))

	if latest != nil {
		fmt.Println()
		fmt.Printf("Latest run: %s (%s, %s)\n", latest.ID, latest.Status, humanize.Time(latest.StartedAt))
		fmt.Printf("   Source:  %s\n", latest.FastaPath)
		fmt.Printf("   Encoder: %s (%s), dim %d\n", latest.Encoder, latest.Model, latest.Dimension)
		if latest.Error != "" {
			fmt.Printf("   Error:   %s\n", latest.Error)
		}
	}
}
