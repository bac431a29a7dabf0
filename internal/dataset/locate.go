package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Locate returns the files under dir matching a doublestar pattern, sorted
func Locate(dir, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern: %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", pattern, dir, err)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}

// LocateOne returns the single file matching pattern, or an error naming all candidates
func LocateOne(dir, pattern string) (string, error) {
	matches, err := Locate(dir, pattern)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no file matching %q in %s", pattern, dir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d files match %q in %s: %v", len(matches), pattern, dir, matches)
	}
}
