package alignment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CIGAR operation symbols produced from structural alignment states
const (
	OpMatch     = 'M'
	OpInsertion = 'I'
	OpDeletion  = 'D'
)

var (
	// ErrMalformedCIGAR is returned when a CIGAR string cannot be parsed
	ErrMalformedCIGAR = errors.New("malformed cigar")
	// ErrTooLong is returned when an expansion would exceed MaxExpandedLength
	ErrTooLong = errors.New("cigar expands too far")
)

// stateSymbols maps the structural-alignment state alphabet to CIGAR ops.
// ':' is an aligned pair, '1' a gap in the second sequence, '2' a gap in the first.
var stateSymbols = map[byte]byte{
	':': OpMatch,
	'1': OpInsertion,
	'2': OpDeletion,
}

// Op is a single run-length token of a CIGAR string
type Op struct {
	Count  int
	Symbol rune
}

func (o Op) String() string {
	return strconv.Itoa(o.Count) + string(o.Symbol)
}

// StatesToCIGAR maps each alignment state to its CIGAR symbol.
// Unrecognized states produce no output.
func StatesToCIGAR(states string) string {
	var b strings.Builder
	b.Grow(len(states))
	for i := 0; i < len(states); i++ {
		if sym, ok := stateSymbols[states[i]]; ok {
			b.WriteByte(sym)
		}
	}
	return b.String()
}

// Condense run-length encodes a string of repeated symbols.
// "MMMIIII" becomes "3M4I"; an empty string stays empty. Runs are counted
// per character, so multi-byte symbols are kept whole.
func Condense(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	var prev rune
	count := 0
	for _, r := range s {
		if count > 0 && r == prev {
			count++
			continue
		}
		if count > 0 {
			b.WriteString(strconv.Itoa(count))
			b.WriteRune(prev)
		}
		prev, count = r, 1
	}
	b.WriteString(strconv.Itoa(count))
	b.WriteRune(prev)
	return b.String()
}

// FromStates converts alignment states straight to a condensed CIGAR string
func FromStates(states string) string {
	return Condense(StatesToCIGAR(states))
}

// Ops parses a condensed CIGAR string into its tokens
func Ops(cigar string) ([]Op, error) {
	ops := make([]Op, 0, len(cigar)/2)
	start := 0
	for i, c := range cigar {
		if c >= '0' && c <= '9' {
			continue
		}
		if i == start {
			return nil, fmt.Errorf("%w: symbol %q at offset %d has no count", ErrMalformedCIGAR, c, i)
		}
		count, err := strconv.Atoi(cigar[start:i])
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("%w: invalid count %q", ErrMalformedCIGAR, cigar[start:i])
		}
		ops = append(ops, Op{Count: count, Symbol: c})
		_, size := utf8.DecodeRuneInString(cigar[i:])
		start = i + size
	}
	if start != len(cigar) {
		return nil, fmt.Errorf("%w: trailing count %q", ErrMalformedCIGAR, cigar[start:])
	}
	return ops, nil
}

// MaxExpandedLength bounds the number of alignment columns Expand will produce
const MaxExpandedLength = 64 << 20

// Expand is the inverse of Condense. CIGARs describing more than
// MaxExpandedLength columns are rejected with ErrTooLong.
func Expand(cigar string) (string, error) {
	ops, err := Ops(cigar)
	if err != nil {
		return "", err
	}

	total := 0
	for _, op := range ops {
		if op.Count > MaxExpandedLength-total {
			return "", fmt.Errorf("%w: more than %d columns", ErrTooLong, MaxExpandedLength)
		}
		total += op.Count
	}

	var b strings.Builder
	b.Grow(total)
	for _, op := range ops {
		b.WriteString(strings.Repeat(string(op.Symbol), op.Count))
	}
	return b.String(), nil
}

// Stats summarizes the operations of a CIGAR string
type Stats struct {
	Matches    int `json:"matches"`
	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
	Length     int `json:"length"`
}

// Summarize counts match, insertion and deletion columns in a condensed CIGAR
func Summarize(cigar string) (Stats, error) {
	ops, err := Ops(cigar)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, op := range ops {
		switch op.Symbol {
		case OpMatch:
			st.Matches += op.Count
		case OpInsertion:
			st.Insertions += op.Count
		case OpDeletion:
			st.Deletions += op.Count
		}
		st.Length += op.Count
	}
	return st, nil
}
