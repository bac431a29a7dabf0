package main

import (
	"errors"
	"testing"

	"github.com/DreamCats/protindex/internal/alignment"
)

func TestConvertCigar(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		fromStates bool
		expand     bool
		wantCIGAR  string
		wantExpand string
	}{
		{name: "condense", in: "MMMIIII", wantCIGAR: "3M4I"},
		{name: "states", in: "::::11112222", fromStates: true, wantCIGAR: "4M4I4D"},
		{name: "expand", in: "2M1D", expand: true, wantCIGAR: "2M1D", wantExpand: "MMD"},
		{name: "empty", in: "", wantCIGAR: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := convertCigar(tt.in, tt.fromStates, tt.expand, true)
			if err != nil {
				t.Fatalf("convertCigar() error = %v", err)
			}
			if res.CIGAR != tt.wantCIGAR {
				t.Errorf("cigar = %q, want %q", res.CIGAR, tt.wantCIGAR)
			}
			if res.Expand != tt.wantExpand {
				t.Errorf("expanded = %q, want %q", res.Expand, tt.wantExpand)
			}
			if res.Stats == nil {
				t.Fatal("stats missing")
			}
		})
	}
}

func TestConvertCigarRejectsMalformed(t *testing.T) {
	if _, err := convertCigar("M3", false, true, false); err == nil {
		t.Fatal("expected error for malformed cigar")
	}
}

func TestConvertCigarRefusesOversizedExpansion(t *testing.T) {
	_, err := convertCigar("99999999999M", false, true, false)
	if !errors.Is(err, alignment.ErrTooLong) {
		t.Fatalf("err = %v, want ErrTooLong", err)
	}
}
