// Package dataset downloads tutorial data bundles and finds the files the
// pipeline consumes inside them.
package dataset

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/DreamCats/protindex/internal/progress"
	"github.com/DreamCats/protindex/internal/runlog"
)

// ErrUnsafePath is returned for archive entries that would land outside the target directory
var ErrUnsafePath = errors.New("archive entry escapes target directory")

// Result summarizes a fetch
type Result struct {
	Dir        string
	Downloaded int64 // archive size in bytes
	Extracted  int64 // total bytes written
	Files      []string
}

// Fetcher downloads and unpacks dataset archives
type Fetcher struct {
	client   *retryablehttp.Client
	progress bool
}

// NewFetcher creates a fetcher with the given retry budget
func NewFetcher(retryMax int, timeout time.Duration, showProgress bool) *Fetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.HTTPClient.Timeout = timeout
	c.Logger = runlog.Leveled{}
	return &Fetcher{client: c, progress: showProgress}
}

// Fetch downloads the archive at url and extracts it into dir
func (f *Fetcher) Fetch(ctx context.Context, url, dir string) (*Result, error) {
	if url == "" {
		return nil, fmt.Errorf("dataset url is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	n, err := f.download(ctx, url, tmp)
	if err != nil {
		return nil, err
	}
	runlog.LogInfo("dataset downloaded", map[string]interface{}{"url": url, "bytes": n})

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind download: %w", err)
	}

	res := &Result{Dir: dir, Downloaded: n}
	if err := Extract(tmp, n, dir, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (f *Fetcher) download(ctx context.Context, url string, dst io.Writer) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("download %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	src := progress.WrapReader(f.progress, resp.Body, resp.ContentLength, "downloading")
	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}
	return n, nil
}

// Extract unpacks a gzip-compressed tar or zip archive read from r into dir.
// The format is detected from the leading magic bytes.
func Extract(r io.ReaderAt, size int64, dir string, res *Result) error {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return fmt.Errorf("read archive header: %w", err)
	}

	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		gz, err := gzip.NewReader(io.NewSectionReader(r, 0, size))
		if err != nil {
			return fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		return extractTar(tar.NewReader(gz), dir, res)
	case bytes.Equal(magic[:], []byte("PK\x03\x04")):
		zr, err := zip.NewReader(r, size)
		if errors.Is(err, zip.ErrInsecurePath) {
			return fmt.Errorf("%w: %v", ErrUnsafePath, err)
		}
		if err != nil {
			return fmt.Errorf("open zip: %w", err)
		}
		return extractZip(zr, dir, res)
	default:
		return fmt.Errorf("unsupported archive format (magic % x)", magic)
	}
}

func extractTar(tr *tar.Reader, dir string, res *Result) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, res); err != nil {
				return err
			}
		default:
			runlog.LogDebug("skipping archive entry", map[string]interface{}{"name": hdr.Name, "type": hdr.Typeflag})
		}
	}
}

func extractZip(zr *zip.Reader, dir string, res *Result) error {
	for _, f := range zr.File {
		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = writeFile(target, rc, res)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, src io.Reader, res *Result) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", target, err)
	}
	res.Extracted += n
	res.Files = append(res.Files, target)
	return nil
}

func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}
