package metadata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DreamCats/protindex/internal/ordination"
)

// ErrMissingColumn is returned when a required column is absent from the header
var ErrMissingColumn = errors.New("missing column")

// Table is a CSV file held in memory, header first
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// Load reads a CSV file with a header row
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. Rows with a wrong field count are rejected with their line number.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty metadata file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Columns: make([]string, len(header)), index: make(map[string]int, len(header))}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		t.Columns[i] = col
		if _, dup := t.index[col]; !dup {
			t.index[col] = i
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Column returns the position of a column
func (t *Table) Column(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q (have %s)", ErrMissingColumn, name, strings.Join(t.Columns, ", "))
	}
	return i, nil
}

// Dedupe returns a table keeping the first row for each distinct key value
func (t *Table) Dedupe(key string) (*Table, error) {
	ki, err := t.Column(key)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(t.Rows))
	out := &Table{Columns: t.Columns, index: t.index}
	for _, row := range t.Rows {
		k := strings.TrimSpace(row[ki])
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Lookup indexes rows by key; the table should already be deduplicated
func (t *Table) Lookup(key string) (map[string][]string, error) {
	ki, err := t.Column(key)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(t.Rows))
	for _, row := range t.Rows {
		k := strings.TrimSpace(row[ki])
		if _, ok := out[k]; !ok {
			out[k] = row
		}
	}
	return out, nil
}

// Point is one ordinated sample joined with its metadata row
type Point struct {
	ID       string
	Coords   []float64
	Category string
	Fields   map[string]string
}

// Joined is the result of joining ordination rows with metadata
type Joined struct {
	Points    []Point
	Unmatched []string // sample ids with no metadata row
}

// KeyFunc derives the metadata key from a sample id
type KeyFunc func(id string) string

// Join attaches metadata to each ordinated sample by key. Samples without a
// metadata row are listed in Unmatched rather than failing the join.
func Join(res *ordination.Result, t *Table, key, category string, keyFn KeyFunc) (*Joined, error) {
	deduped, err := t.Dedupe(key)
	if err != nil {
		return nil, err
	}
	ci, err := deduped.Column(category)
	if err != nil {
		return nil, err
	}
	lookup, err := deduped.Lookup(key)
	if err != nil {
		return nil, err
	}
	if keyFn == nil {
		keyFn = IdentityKey
	}

	out := &Joined{}
	for i, id := range res.IDs {
		row, ok := lookup[keyFn(id)]
		if !ok {
			out.Unmatched = append(out.Unmatched, id)
			continue
		}
		fields := make(map[string]string, len(deduped.Columns))
		for j, col := range deduped.Columns {
			fields[col] = row[j]
		}
		out.Points = append(out.Points, Point{
			ID:       id,
			Coords:   res.Coords[i],
			Category: row[ci],
			Fields:   fields,
		})
	}
	return out, nil
}

// IdentityKey uses the sample id as the key
func IdentityKey(id string) string {
	return id
}

// UniProtAccession extracts the accession from ids such as "sp|P69905|HBA_HUMAN".
// Ids without pipes are returned unchanged.
func UniProtAccession(id string) string {
	parts := strings.Split(id, "|")
	if len(parts) >= 3 && (parts[0] == "sp" || parts[0] == "tr") {
		return parts[1]
	}
	return id
}
