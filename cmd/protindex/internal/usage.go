package internal

import (
	"fmt"
	"os"
)

const Version = "0.3.0"

// PrintUsage writes the protindex usage and command list to stderr
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `protindex - Protein Embedding Index and Ordination

Version: %s

USAGE:
    protindex [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.protindex/config/protindex.yaml)

    -data <dir>
        Override dataset directory

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    fetch
        Download and unpack the dataset bundle

    index
        Embed every sequence of a FASTA file and store the vectors

    search
        Find nearest sequences by vector, or records by keyword

    stats
        Show index statistics

    cigar
        Convert alignment states to CIGAR strings and condense them

    ordinate
        Run PCoA over stored vectors, join metadata and plot

EXAMPLES:
    # Download the tutorial bundle
    protindex fetch

    # Index the bundle's FASTA file
    protindex index

    # Nearest neighbours of a stored record
    protindex search "sp|P69905|HBA_HUMAN"

    # Keyword lookup
    protindex search -text hemoglobin

    # Alignment states to condensed CIGAR
    protindex cigar -states "::::11112222"

    # Scatter plot coloured by a metadata column
    protindex ordinate -column class -out pcoa.png

For detailed help on each command, use:
    protindex <command> -help
`, Version)
}
