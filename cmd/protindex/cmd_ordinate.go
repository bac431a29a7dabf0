package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/dataset"
	"github.com/DreamCats/protindex/internal/metadata"
	"github.com/DreamCats/protindex/internal/ordination"
	"github.com/DreamCats/protindex/internal/plot"
	"github.com/DreamCats/protindex/internal/store"
)

// handleOrdinate implements the ordinate subcommand
func handleOrdinate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ordinate", flag.ExitOnError)
	metaPath := fs.String("metadata", "", "Metadata CSV (default: located in the dataset directory)")
	key := fs.String("key", cfg.Metadata.KeyColumn, "Metadata column holding the record key")
	column := fs.String("column", cfg.Metadata.CategoryColumn, "Metadata column used to colour points")
	keyFrom := fs.String("key-from", "accession", "Derive the key from record ids: accession | id")
	metric := fs.String("metric", cfg.Search.Metric, "Distance metric: cosine | l2")
	dims := fs.Int("dims", 2, "Number of principal coordinates to keep")
	out := fs.String("out", "pcoa.png", "Plot output (.png, .svg, .pdf)")
	tsvPath := fs.String("tsv", "", "Also write coordinates and categories as TSV")
	title := fs.String("title", cfg.Plot.Title, "Plot title")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    protindex ordinate [options]

DESCRIPTION:
    Project every stored vector with principal coordinates analysis,
    join the coordinates with a metadata table and draw a scatter plot
    with one colour per category.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Plot coloured by the configured category column
    protindex ordinate -out pcoa.png

    # Colour by another column and keep coordinates
    protindex ordinate -column family -tsv coords.tsv -out pcoa.svg
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if *dims < 2 {
		log.Fatalf("-dims must be at least 2, got %d", *dims)
	}

	keyFn := metadata.KeyFunc(metadata.UniProtAccession)
	switch *keyFrom {
	case "accession":
	case "id":
		keyFn = metadata.IdentityKey
	default:
		log.Fatalf("Unsupported -key-from: %s", *keyFrom)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	vectors, err := store.NewVectorStore(db).All()
	if err != nil {
		log.Fatalf("Failed to load vectors: %v", err)
	}
	ids := make([]string, len(vectors))
	values := make([][]float32, len(vectors))
	for i, v := range vectors {
		ids[i] = v.SequenceID
		values[i] = v.Values
	}

	log.Printf("Computing %s distances for %d vectors", *metric, len(vectors))
	dm, err := ordination.NewDistanceMatrix(ids, values, ordination.Metric(*metric))
	if err != nil {
		log.Fatalf("Failed to build distance matrix: %v", err)
	}
	res, err := ordination.PCoA(dm, *dims)
	if err != nil {
		log.Fatalf("PCoA failed: %v", err)
	}

	joined := joinMetadata(cfg, res, *metaPath, *key, *column, keyFn)
	if len(joined.Unmatched) > 0 {
		log.Printf("Warning: %d of %d records have no metadata row (first: %s)",
			len(joined.Unmatched), len(res.IDs), joined.Unmatched[0])
	}

	if *tsvPath != "" {
		if err := writeCoordinates(*tsvPath, *column, res, joined); err != nil {
			log.Fatalf("Failed to write coordinates: %v", err)
		}
		fmt.Printf("Coordinates: %s\n", *tsvPath)
	}

	err = plot.Scatter(joined.Points, *out, plot.Options{
		Title:        *title,
		XLabel:       plot.AxisLabel(0, res.ProportionExplained[0]),
		YLabel:       plot.AxisLabel(1, res.ProportionExplained[1]),
		WidthInches:  cfg.Plot.WidthInches,
		HeightInches: cfg.Plot.HeightInches,
	})
	if err != nil {
		log.Fatalf("Failed to draw plot: %v", err)
	}

	fmt.Printf("Plot:        %s (%d points)\n", *out, len(joined.Points))
	for k := 0; k < *dims && k < len(res.ProportionExplained); k++ {
		fmt.Printf("   PC%d explains %.1f%%\n", k+1, res.ProportionExplained[k]*100)
	}
}

// joinMetadata attaches categories from the metadata table. Without a table
// every record is plotted uncategorised.
func joinMetadata(cfg *config.Config, res *ordination.Result, path, key, column string, keyFn metadata.KeyFunc) *metadata.Joined {
	if path == "" {
		found, err := dataset.LocateOne(cfg.Dataset.Dir, cfg.Dataset.MetadataGlob)
		if err != nil {
			log.Printf("Warning: no metadata table (%v); plotting without categories", err)
			return uncategorised(res)
		}
		path = found
	}

	table, err := metadata.Load(path)
	if err != nil {
		log.Fatalf("Failed to load metadata: %v", err)
	}
	joined, err := metadata.Join(res, table, key, column, keyFn)
	if err != nil {
		log.Fatalf("Failed to join metadata: %v", err)
	}
	return joined
}

func uncategorised(res *ordination.Result) *metadata.Joined {
	out := &metadata.Joined{Points: make([]metadata.Point, len(res.IDs))}
	for i, id := range res.IDs {
		out.Points[i] = metadata.Point{ID: id, Coords: res.Coords[i]}
	}
	return out
}

// writeCoordinates writes id, category and every axis as tab separated values
func writeCoordinates(path, column string, res *ordination.Result, joined *metadata.Joined) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	header := []string{"id", column}
	for k := range res.Eigenvalues {
		header = append(header, fmt.Sprintf("PC%d", k+1))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, p := range joined.Points {
		row := []string{p.ID, p.Category}
		for _, c := range p.Coords {
			row = append(row, strconv.FormatFloat(c, 'g', 8, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
