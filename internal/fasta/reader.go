package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoRecords is returned when a FASTA source holds no records
var ErrNoRecords = errors.New("no fasta records found")

// allow very long single-line sequences
const maxLine = 64 * 1024 * 1024

// Record is a parsed FASTA sequence
type Record struct {
	ID          string
	Description string
	Seq         []byte
}

// Len returns the number of residues in the record
func (r Record) Len() int {
	return len(r.Seq)
}

// Reader pulls records one at a time from a FASTA stream.
// It cannot be rewound; once Next returns io.EOF it keeps returning io.EOF.
type Reader struct {
	sc      *bufio.Scanner
	closers []io.Closer // closed in order by Close
	pending []byte      // header line of the next record
	hasNext bool        // pending holds a header, possibly empty
	done    bool
	err     error
}

// NewReader wraps r in a pull-based FASTA reader
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return &Reader{sc: sc}
}

// Open opens a FASTA file for reading. Gzip input is detected by magic
// number or .gz suffix, and "-" reads stdin.
func Open(path string) (*Reader, error) {
	var f *os.File
	var owned []io.Closer
	if path == "-" {
		f = os.Stdin
	} else {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
		owned = append(owned, f)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(2)
	if !bytes.Equal(magic, gzipMagic) && !strings.HasSuffix(path, ".gz") {
		rd := NewReader(br)
		rd.closers = owned
		return rd, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		for _, c := range owned {
			c.Close()
		}
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	rd := NewReader(gz)
	rd.closers = append([]io.Closer{gz}, owned...)
	return rd, nil
}

var gzipMagic = []byte{0x1f, 0x8b}

// Next returns the next record, or io.EOF when the stream is exhausted
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}
	if r.done {
		return Record{}, io.EOF
	}

	header, seen := r.pending, r.hasNext
	r.pending, r.hasNext = nil, false
	var seq []byte

	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if !seen && len(seq) == 0 {
				header, seen = append([]byte(nil), line[1:]...), true
				continue
			}
			r.pending, r.hasNext = append([]byte(nil), line[1:]...), true
			return newRecord(header, seq), nil
		}
		seq = appendResidues(seq, line)
	}
	if err := r.sc.Err(); err != nil {
		r.err = fmt.Errorf("fasta scan: %w", err)
		return Record{}, r.err
	}

	r.done = true
	if !seen && len(seq) == 0 {
		return Record{}, io.EOF
	}
	return newRecord(header, seq), nil
}

// Close releases the underlying file, if the reader owns one
func (r *Reader) Close() error {
	r.done = true
	var err error
	for _, c := range r.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	r.closers = nil
	return err
}

// Scan parses FASTA from rd and calls emit for every record.
// It returns promptly when ctx is done.
func Scan(ctx context.Context, rd io.Reader, emit func(Record) error) error {
	r := NewReader(rd)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
}

// ReadAll loads every record of the file at path
func ReadAll(path string) ([]Record, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRecords, path)
	}
	return records, nil
}

func newRecord(header, seq []byte) Record {
	id, desc := parseHeader(header)
	if seq == nil {
		seq = []byte{}
	}
	return Record{ID: id, Description: desc, Seq: seq}
}

func parseHeader(hdr []byte) (string, string) {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i]), strings.TrimSpace(string(hdr[i+1:]))
	}
	return string(hdr), ""
}

// appendResidues upper-cases residues and drops whitespace and stop symbols
func appendResidues(dst, line []byte) []byte {
	for _, c := range line {
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '*':
			continue
		case c >= 'a' && c <= 'z':
			dst = append(dst, c-'a'+'A')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}
