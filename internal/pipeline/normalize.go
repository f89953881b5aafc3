package pipeline

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"
	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"

	"golang.org/x/text/encoding/charmap"
)

// NASR lines run to about 1.5 KB; leave headroom for layout growth.
const maxLineBytes = 1 << 20

// ObstacleSet is the result of normalizing one Digital Obstacle File.
type ObstacleSet struct {
	Obstacles    []domain.Obstacle
	CurrencyDate string // "MM/DD/YY" from the file header, empty when absent
}

// Normalizer turns extracted source files into domain records, dropping and
// counting lines that do not decode.
type Normalizer struct {
	catalog *fixedwidth.Catalog
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewNormalizer creates a Normalizer that decodes with the given schemas.
func NewNormalizer(catalog *fixedwidth.Catalog, logger *slog.Logger, metrics *observability.Metrics) *Normalizer {
	return &Normalizer{catalog: catalog, logger: logger, metrics: metrics}
}

// Airports reads a Latin-1 NASR APT file.
func (n *Normalizer) Airports(path string) ([]domain.Airport, error) {
	s := n.catalog.MustSchema(fixedwidth.Airport)
	return normalizeFile(n, path, fixedwidth.Airport, s, true, domain.ParseAirport)
}

// Navaids reads a Latin-1 NASR NAV file.
func (n *Normalizer) Navaids(path string) ([]domain.Navaid, error) {
	s := n.catalog.MustSchema(fixedwidth.Navaid)
	return normalizeFile(n, path, fixedwidth.Navaid, s, true, domain.ParseNavaid)
}

// Fixes reads a Latin-1 NASR FIX file.
func (n *Normalizer) Fixes(path string) ([]domain.Fix, error) {
	s := n.catalog.MustSchema(fixedwidth.Fix)
	return normalizeFile(n, path, fixedwidth.Fix, s, true, domain.ParseFix)
}

// Obstacles reads a DOF.DAT file, capturing its currency date header.
func (n *Normalizer) Obstacles(path string) (ObstacleSet, error) {
	s := n.catalog.MustSchema(fixedwidth.Obstacle)
	var set ObstacleSet
	parse := func(line string, s fixedwidth.Schema) (domain.Obstacle, error) {
		if date, ok := domain.ParseCurrencyDate(line); ok {
			set.CurrencyDate = date
			return domain.Obstacle{}, domain.ErrNotRecord
		}
		return domain.ParseObstacle(line, s)
	}
	obstacles, err := normalizeFile(n, path, fixedwidth.Obstacle, s, false, parse)
	if err != nil {
		return ObstacleSet{}, err
	}
	set.Obstacles = obstacles
	return set, nil
}

// normalizeFile applies parse to every line of path. Lines that are not
// records of the family are skipped silently; every other rejection is
// counted by reason.
func normalizeFile[T any](n *Normalizer, path, family string, s fixedwidth.Schema, latin1 bool, parse func(string, fixedwidth.Schema) (T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", family, err)
	}
	defer f.Close()

	var r io.Reader = f
	if latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(f)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	sc.Split(scanLinesWithEOL)

	var (
		out     []T
		dropped = map[string]int{}
	)
	for sc.Scan() {
		line := sc.Text()
		if !latin1 {
			line = strings.ToValidUTF8(line, "")
		}
		rec, err := parse(line, s)
		if err != nil {
			if errors.Is(err, domain.ErrNotRecord) {
				continue
			}
			reason := dropReason(err)
			dropped[reason]++
			n.metrics.LinesDropped.WithLabelValues(family, reason).Inc()
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s file: %w", family, err)
	}

	n.metrics.RecordsParsed.WithLabelValues(family).Add(float64(len(out)))
	n.logger.Info("records normalized", "family", family, "records", len(out), "dropped", dropped)
	return out, nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingID):
		return "missing_id"
	case errors.Is(err, domain.ErrBadCoordinate):
		return "bad_coordinate"
	case errors.Is(err, domain.ErrBadHeight):
		return "bad_height"
	case errors.Is(err, domain.ErrBelowMinHeight):
		return "below_min_height"
	default:
		return "other"
	}
}

// scanLinesWithEOL is bufio.ScanLines without stripping the terminator, so a
// schema's minimum length counts the line ending as the published layouts do.
// Field extraction trims it.
func scanLinesWithEOL(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
