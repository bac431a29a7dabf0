package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/dataset"
	"github.com/DreamCats/protindex/internal/indexer"
	"github.com/DreamCats/protindex/internal/progress"
	"github.com/DreamCats/protindex/internal/store"
)

// handleIndex implements the index subcommand
func handleIndex(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	fastaPath := fs.String("fasta", "", "FASTA file to index (default: located in the dataset directory)")
	reset := fs.Bool("clear", false, "Remove previously indexed data first")
	verbose := fs.Bool("v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    protindex index [options]

DESCRIPTION:
    Build the vector index for a FASTA file.
    This will:
      1. Stream records from the FASTA file
      2. Embed each sequence with the protein language model service
      3. Reduce per-residue embeddings to one vector per sequence
         (mean/max pooling, or an external encoder tool)
      4. Store sequences and vectors in the database
      5. Build the keyword index over record ids and descriptions

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Index the FASTA file found in the dataset directory
    protindex index

    # Index a specific file from scratch
    protindex index -fasta proteins.fa.gz -clear
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	path := *fastaPath
	if path == "" {
		var err error
		path, err = dataset.LocateOne(cfg.Dataset.Dir, cfg.Dataset.FastaGlob)
		if err != nil {
			log.Fatalf("Failed to locate FASTA file (run `protindex fetch` or pass -fasta): %v", err)
		}
	}
	if _, err := os.Stat(path); err != nil && path != "-" {
		log.Fatalf("FASTA file not readable: %v", err)
	}

	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	fmt.Printf("🏗️  Building index for: %s\n\n", path)

	idx, err := indexer.NewIndexer(cfg, progress.Enabled())
	if err != nil {
		log.Fatalf("Failed to create indexer: %v", err)
	}
	defer idx.Close()

	if *reset {
		if err := idx.Clear(); err != nil {
			log.Fatalf("Failed to clear index: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()
	run, err := idx.IndexFile(ctx, path)
	if err != nil {
		log.Fatalf("Indexing failed: %v", err)
	}
	duration := time.Since(startTime)

	seqCount, _ := store.NewSequenceStore(idx.DB()).Count()
	vectorCount, _ := store.NewVectorStore(idx.DB()).Count()

	fmt.Println()
	fmt.Println("✅ Indexing completed successfully!")
	fmt.Printf("\n⏱️  Duration: %v\n", duration)
	fmt.Println("\n📊 Statistics:")
	fmt.Printf("   Run:        %s\n", run.ID)
	fmt.Printf("   Encoder:    %s (%s)\n", run.Encoder, run.Model)
	fmt.Printf("   Dimension:  %6d\n", run.Dimension)
	fmt.Printf("   Sequences:  %6d\n", seqCount)
	fmt.Printf("   Vectors:    %6d\n", vectorCount)
}
