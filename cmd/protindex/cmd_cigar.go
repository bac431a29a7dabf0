package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/protindex/internal/alignment"
)

type cigarResult struct {
	Input  string           `json:"input"`
	CIGAR  string           `json:"cigar"`
	Expand string           `json:"expanded,omitempty"`
	Stats  *alignment.Stats `json:"stats,omitempty"`
}

// handleCigar implements the cigar subcommand
func handleCigar(args []string) {
	fs := flag.NewFlagSet("cigar", flag.ExitOnError)
	var fromStates, expand, withStats, jsonOutput bool
	fs.BoolVar(&fromStates, "states", false, "Inputs are alignment states (':' '1' '2') rather than M/I/D strings")
	fs.BoolVar(&expand, "expand", false, "Inputs are condensed CIGARs; print them expanded")
	fs.BoolVar(&withStats, "stats", false, "Print match/insertion/deletion counts")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    protindex cigar [options] <string>...

DESCRIPTION:
    Convert structural alignment states to CIGAR strings and condense
    runs of repeated operations into count-prefixed tokens.
    With no arguments, one input per line is read from stdin.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Condense an expanded CIGAR
    protindex cigar MMMIIII

    # Alignment states straight to a condensed CIGAR
    protindex cigar -states "::::11112222"

    # Expand and count
    protindex cigar -expand -stats 4M4I4D
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fromStates && expand {
		log.Fatalf("-states and -expand are mutually exclusive")
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				inputs = append(inputs, line)
			}
		}
		if err := sc.Err(); err != nil {
			log.Fatalf("Failed to read stdin: %v", err)
		}
	}

	results := make([]cigarResult, 0, len(inputs))
	for _, in := range inputs {
		res, err := convertCigar(in, fromStates, expand, withStats)
		if err != nil {
			log.Fatalf("%q: %v", in, err)
		}
		results = append(results, res)
	}

	if jsonOutput {
		jsonData, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal results: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	for _, res := range results {
		line := res.CIGAR
		if expand {
			line = res.Expand
		}
		if res.Stats != nil {
			line = fmt.Sprintf("%s\tM=%d I=%d D=%d len=%d", line,
				res.Stats.Matches, res.Stats.Insertions, res.Stats.Deletions, res.Stats.Length)
		}
		fmt.Println(line)
	}
}

// convertCigar produces the condensed CIGAR for one input and, when asked,
// its expansion and operation counts.
func convertCigar(in string, fromStates, expand, withStats bool) (cigarResult, error) {
	res := cigarResult{Input: in}
	switch {
	case fromStates:
		res.CIGAR = alignment.FromStates(in)
	case expand:
		res.CIGAR = in
	default:
		res.CIGAR = alignment.Condense(in)
	}

	if expand {
		full, err := alignment.Expand(res.CIGAR)
		if err != nil {
			return res, err
		}
		res.Expand = full
	}
	if withStats {
		st, err := alignment.Summarize(res.CIGAR)
		if err != nil {
			return res, err
		}
		res.Stats = &st
	}
	return res, nil
}
