package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/embedding"
	"github.com/DreamCats/protindex/internal/fasta"
	"github.com/DreamCats/protindex/internal/indexer"
	"github.com/DreamCats/protindex/internal/store"
	"github.com/DreamCats/protindex/internal/textindex"
)

// handleSearch implements the search subcommand
func handleSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var topK int
	var metric string
	var textMode, seqMode, jsonOutput bool

	fs.IntVar(&topK, "k", cfg.Search.DefaultTopK, "Number of results to return")
	fs.StringVar(&metric, "metric", cfg.Search.Metric, "Vector metric: cosine | l2")
	fs.BoolVar(&textMode, "text", false, "Keyword search over record ids and descriptions")
	fs.BoolVar(&seqMode, "seq", false, "Query is an amino acid sequence to embed")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    protindex search [options] "<query>"

DESCRIPTION:
    By default the query is the id of an indexed record and the nearest
    stored vectors are returned. With -seq the query is embedded first;
    with -text it is matched against record ids and descriptions.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Neighbours of an indexed record
    protindex search "sp|P69905|HBA_HUMAN"

    # Neighbours of a new sequence, Euclidean distance
    protindex search -seq -metric l2 MVLSPADKTNVKAAWGKVGAHAGEY

    # Keyword lookup
    protindex search -text "lysozyme" -k 5
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	if textMode {
		searchText(cfg, query, topK, jsonOutput)
		return
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	vectorStore := store.NewVectorStore(db)
	sequenceStore := store.NewSequenceStore(db)

	var queryVector []float32
	exclude := ""
	if seqMode {
		queryVector, err = embedQuery(context.Background(), cfg, query)
		if err != nil {
			log.Fatalf("Failed to embed query: %v", err)
		}
	} else {
		queryVector, err = vectorStore.Get(query)
		if err != nil {
			log.Fatalf("Failed to load vector for %q: %v", query, err)
		}
		exclude = query
	}

	// Fetch one extra so the query record itself can be dropped
	results, err := vectorStore.Search(queryVector, topK+1, store.Metric(metric), sequenceStore)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	filtered := results[:0]
	for _, r := range results {
		if r.SequenceID != exclude {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"query":   query,
			"metric":  metric,
			"count":   len(filtered),
			"results": filtered,
		})
		return
	}
	outputVectorText(filtered, query, metric)
}

// embedQuery pools a raw sequence the same way the pooling encoders do
func embedQuery(ctx context.Context, cfg *config.Config, seq string) ([]float32, error) {
	mode := embedding.PoolMean
	if cfg.Encoder.Kind == string(embedding.PoolMax) {
		mode = embedding.PoolMax
	} else if cfg.Encoder.Kind == "external" {
		log.Printf("Warning: index was built by an external encoder; query uses mean pooling")
	}

	svc, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	emb, err := svc.Embed(ctx, fasta.Record{ID: "query", Seq: []byte(strings.ToUpper(seq))})
	if err != nil {
		return nil, err
	}
	return embedding.Pool(emb.Residues, mode)
}

func searchText(cfg *config.Config, query string, topK int, jsonOutput bool) {
	ix, err := textindex.Open(indexer.TextIndexDir(cfg.Database.Path))
	if err != nil {
		log.Fatalf("Failed to open text index (run `protindex index` first): %v", err)
	}
	defer ix.Close()

	hits, err := ix.Search(query, topK)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"query":   query,
			"count":   len(hits),
			"results": hits,
		})
		return
	}

	if len(hits) == 0 {
		fmt.Println("No results found")
		return
	}
	fmt.Printf("Found %d result(s) for: %s\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Printf("%d. %s\n", i+1, h.ID)
		if h.Description != "" {
			fmt.Printf("   %s\n", h.Description)
		}
		fmt.Printf("   Length: %d  Score: %.3f\n\n", h.Length, h.Score)
	}
}

// outputVectorText outputs nearest neighbours as human-readable text
func outputVectorText(results []store.ScoredResult, query, metric string) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d neighbour(s) of: %s (%s)\n\n", len(results), truncate(query, 60), metric)
	for i, r := range results {
		fmt.Printf("%d. %s\n", i+1, r.SequenceID)
		if r.Sequence != nil {
			if r.Sequence.Description != "" {
				fmt.Printf("   %s\n", r.Sequence.Description)
			}
			fmt.Printf("   Length:   %d\n", r.Sequence.Length)
		}
		fmt.Printf("   Score:    %.4f\n", r.Score)
		fmt.Printf("   Distance: %.4f\n\n", r.Distance)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// outputJSON prints v as indented JSON
func outputJSON(v interface{}) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}
	fmt.Println(string(jsonData))
}
