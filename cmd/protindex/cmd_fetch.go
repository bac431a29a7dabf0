package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/dataset"
	"github.com/DreamCats/protindex/internal/progress"
)

// handleFetch implements the fetch subcommand
func handleFetch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	url := fs.String("url", cfg.Dataset.URL, "Dataset archive URL (.tar.gz, .tgz or .zip)")
	retries := fs.Int("retries", cfg.Embedding.MaxRetries, "Download retry budget")
	timeout := fs.Duration("timeout", 30*time.Minute, "Download timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    protindex fetch [options]

DESCRIPTION:
    Download the dataset bundle and unpack it into the dataset directory.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Fetch the configured bundle
    protindex fetch

    # Fetch into a different directory
    protindex -data ./tutorial fetch -url https://example.org/bundle.tar.gz
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	fmt.Printf("📥 Fetching %s\n   into %s\n\n", *url, cfg.Dataset.Dir)

	fetcher := dataset.NewFetcher(*retries, *timeout, progress.Enabled())
	res, err := fetcher.Fetch(context.Background(), *url, cfg.Dataset.Dir)
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}

	fmt.Println("✅ Dataset ready")
	fmt.Printf("   Archive:   %s\n", humanize.Bytes(uint64(res.Downloaded)))
	fmt.Printf("   Extracted: %s in %s files\n", humanize.Bytes(uint64(res.Extracted)), humanize.Comma(int64(len(res.Files))))

	if fastas, err := dataset.Locate(cfg.Dataset.Dir, cfg.Dataset.FastaGlob); err == nil {
		for _, f := range fastas {
			fmt.Printf("   FASTA:     %s\n", f)
		}
	}
	if tables, err := dataset.Locate(cfg.Dataset.Dir, cfg.Dataset.MetadataGlob); err == nil {
		for _, f := range tables {
			fmt.Printf("   Metadata:  %s\n", f)
		}
	}
}
