package faa

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Fetcher downloads zip archives and extracts selected members.
type Fetcher struct {
	client  *Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher bounded by timeout per download.
func NewFetcher(client *Client, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{client: client, timeout: timeout, logger: logger}
}

// FetchAndExtract downloads the archive at url and writes each member whose
// base name matches one of wanted (case-insensitive) into dir. The result maps
// each wanted name that was found to its extracted path. Missing members are
// not an error; callers use Require.
func (f *Fetcher) FetchAndExtract(ctx context.Context, url, dir string, wanted ...string) (map[string]string, error) {
	payload, err := f.client.Get(ctx, url, f.timeout, "archive")
	if err != nil {
		return nil, err
	}
	files, err := Extract(payload, dir, wanted...)
	if err != nil {
		var fmtErr *ArchiveFormatError
		if errors.As(err, &fmtErr) {
			fmtErr.URL = url
		}
		return nil, err
	}
	f.logger.Info("archive extracted", "url", url, "size", humanize.Bytes(uint64(len(payload))), "members", len(files))
	return files, nil
}

// Extract writes the wanted members of an in-memory zip payload into dir.
// Nested paths are flattened to the member's base name.
func Extract(payload []byte, dir string, wanted ...string) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, &ArchiveFormatError{Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("faa: create extract dir: %w", err)
	}

	out := make(map[string]string, len(wanted))
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		base := path.Base(strings.ReplaceAll(zf.Name, `\`, "/"))
		name, ok := matchWanted(base, wanted)
		if !ok {
			continue
		}
		if _, dup := out[name]; dup {
			continue
		}
		dest := filepath.Join(dir, name)
		if err := extractFile(zf, dest); err != nil {
			return nil, err
		}
		out[name] = dest
	}
	return out, nil
}

// Require returns ErrMemberMissing naming the first of names absent from files.
func Require(files map[string]string, names ...string) error {
	for _, n := range names {
		if _, ok := files[n]; !ok {
			return fmt.Errorf("%w: %s", ErrMemberMissing, n)
		}
	}
	return nil
}

func matchWanted(base string, wanted []string) (string, bool) {
	for _, w := range wanted {
		if strings.EqualFold(base, w) {
			return w, true
		}
	}
	return "", false
}

func extractFile(zf *zip.File, dest string) error {
	rc, err := zf.Open()
	if err != nil {
		return &ArchiveFormatError{Err: fmt.Errorf("open %s: %w", zf.Name, err)}
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("faa: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return &ArchiveFormatError{Err: fmt.Errorf("read %s: %w", zf.Name, err)}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("faa: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("faa: rename %s: %w", dest, err)
	}
	return nil
}
