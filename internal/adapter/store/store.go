// Package store persists dataset artifacts to the output directory. Every
// write goes to a temp file in the same directory and is renamed into place,
// so readers never observe a partially written artifact.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Artifact file names.
const (
	MasterFile    = "faa_master.json"
	VersionFile   = "version.json"
	ObstaclesFile = "obstacles.json"
	AirportsFile  = "airports.json"
	MetadataFile  = "metadata.json"
	NoticesFile   = "notams.json"
)

// Store reads and writes artifacts under a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the absolute location of the named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether the named artifact is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// WriteJSON atomically replaces the named artifact with the JSON encoding of
// v and returns the xxh3 checksum of the bytes written.
func (s *Store) WriteJSON(name string, v any, indent bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", fmt.Errorf("store: encode %s: %w", name, err)
	}
	if err := s.writeAtomic(name, data); err != nil {
		return "", err
	}
	s.logger.Debug("artifact written", "file", name, "bytes", len(data))
	return Checksum(data), nil
}

// ReadJSON decodes the named artifact into v.
func (s *Store) ReadJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("store: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %s: %w", name, err)
	}
	return nil
}

// CountEntries returns the number of elements in a JSON array artifact or
// keys in a JSON object artifact. ok is false when the file is missing or
// unreadable.
func (s *Store) CountEntries(name string) (n int, ok bool) {
	var raw any
	if err := s.ReadJSON(name, &raw); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("artifact unreadable", "file", name, "error", err)
		}
		return 0, false
	}
	switch v := raw.(type) {
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	default:
		return 0, false
	}
}

// FileChecksum returns the xxh3 checksum of the named artifact on disk.
func (s *Store) FileChecksum(name string) (string, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return "", fmt.Errorf("store: read %s: %w", name, err)
	}
	return Checksum(data), nil
}

// Checksum renders the xxh3 hash of data as 16 hex digits.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

func (s *Store) writeAtomic(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("store: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		return fmt.Errorf("store: replace %s: %w", name, err)
	}
	return nil
}
