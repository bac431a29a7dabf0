package fasta

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const plain = `>sp|P69905|HBA_HUMAN Hemoglobin subunit alpha
MVLSPADKTN VKAAWGKVGA
hagey*

>seq2
nnKK
>empty
`

// writeGz creates a gzipped FASTA file with provided data, returns the file path.
func writeGz(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.fa.gz")
	fh, err := os.Create(path)
	if err != nil {
		t.Fatalf("tmp: %v", err)
	}
	gw := gzip.NewWriter(fh)
	if _, err := gw.Write([]byte(data)); err != nil {
		t.Fatalf("write gz: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := fh.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func collect(t *testing.T, r *Reader) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, rec)
	}
}

func TestReaderParsesRecords(t *testing.T) {
	recs := collect(t, NewReader(strings.NewReader(plain)))
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}

	if recs[0].ID != "sp|P69905|HBA_HUMAN" {
		t.Errorf("id = %q", recs[0].ID)
	}
	if recs[0].Description != "Hemoglobin subunit alpha" {
		t.Errorf("description = %q", recs[0].Description)
	}
	if got := string(recs[0].Seq); got != "MVLSPADKTNVKAAWGKVGAHAGEY" {
		t.Errorf("seq = %q", got)
	}
	if got := string(recs[1].Seq); got != "NNKK" {
		t.Errorf("seq2 = %q", got)
	}
	if recs[2].ID != "empty" || recs[2].Len() != 0 {
		t.Errorf("empty record = %+v", recs[2])
	}
}

func TestReaderIsNotRestartable(t *testing.T) {
	r := NewReader(strings.NewReader(">a\nAC\n"))
	if _, err := r.Next(); err != nil {
		t.Fatalf("first next: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := r.Next(); err != io.EOF {
			t.Fatalf("call %d: err = %v, want io.EOF", i, err)
		}
	}
}

func TestOpenGzip(t *testing.T) {
	path := writeGz(t, plain)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open gz: %v", err)
	}
	defer r.Close()

	recs := collect(t, r)
	if len(recs) != 3 || recs[1].ID != "seq2" {
		t.Fatalf("gzip parse failed: %+v", recs)
	}
}

func TestReadAllEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.fa")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadAll(path)
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err = %v, want ErrNoRecords", err)
	}
}

func TestScanCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Scan(ctx, strings.NewReader(plain), func(Record) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestScanStopsOnEmitError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := Scan(context.Background(), strings.NewReader(plain), func(Record) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err = %v, n = %d", err, n)
	}
}

func TestReaderKeepsEmptyHeaders(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantIDs []string
		wantSeq []string
	}{
		{name: "empty header without residues", in: ">\n>b\nAA\n", wantIDs: []string{"", "b"}, wantSeq: []string{"", "AA"}},
		{name: "empty header with residues", in: ">\nMKT\n>b\nAA\n", wantIDs: []string{"", "b"}, wantSeq: []string{"MKT", "AA"}},
		{name: "trailing empty header", in: ">a\nW\n>\n", wantIDs: []string{"a", ""}, wantSeq: []string{"W", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := collect(t, NewReader(strings.NewReader(tt.in)))
			if len(recs) != len(tt.wantIDs) {
				t.Fatalf("got %d records, want %d: %+v", len(recs), len(tt.wantIDs), recs)
			}
			for i, rec := range recs {
				if rec.ID != tt.wantIDs[i] || string(rec.Seq) != tt.wantSeq[i] {
					t.Errorf("record %d = %q/%q, want %q/%q", i, rec.ID, rec.Seq, tt.wantIDs[i], tt.wantSeq[i])
				}
			}
		})
	}
}

func TestOpenDetectsGzipByMagic(t *testing.T) {
	gz := writeGz(t, ">a\nMK\n")
	path := filepath.Join(t.TempDir(), "renamed.fa")
	if err := os.Rename(gz, path); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	recs := collect(t, r)
	if err := r.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if len(recs) != 1 || string(recs[0].Seq) != "MK" {
		t.Fatalf("records = %+v", recs)
	}
}
