// Package fixture builds synthetic NASR and DOF source files in the published
// fixed-width layouts. Tests and the genfixture command use it to exercise the
// pipeline without reaching the FAA.
package fixture

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"

	"golang.org/x/text/encoding/charmap"
)

// Airport is one APT base record.
type Airport struct {
	ID, Name, Lat, Lon, Elev string
}

// Navaid is one NAV1 base record.
type Navaid struct {
	ID, Type, Name, Lat, Lon string
}

// Fix is one FIX1 base record.
type Fix struct {
	ID, Lat, Lon string
}

// Obstacle is one DOF data line.
type Obstacle struct {
	OAS, State, City, Lat, Lon, AGL string
}

// Builder encodes records against a schema catalog.
type Builder struct {
	catalog *fixedwidth.Catalog
}

// NewBuilder creates a Builder for the given catalog.
func NewBuilder(c *fixedwidth.Catalog) *Builder {
	return &Builder{catalog: c}
}

func (b *Builder) AirportLine(a Airport) string {
	return fixedwidth.Encode(b.catalog.MustSchema(fixedwidth.Airport), fixedwidth.Values{
		"id": a.ID, "name": a.Name, "lat": a.Lat, "lon": a.Lon, "elev": a.Elev,
	})
}

func (b *Builder) NavaidLine(n Navaid) string {
	return fixedwidth.Encode(b.catalog.MustSchema(fixedwidth.Navaid), fixedwidth.Values{
		"id": n.ID, "type": n.Type, "name": n.Name, "lat": n.Lat, "lon": n.Lon,
	})
}

func (b *Builder) FixLine(f Fix) string {
	return fixedwidth.Encode(b.catalog.MustSchema(fixedwidth.Fix), fixedwidth.Values{
		"id": f.ID, "lat": f.Lat, "lon": f.Lon,
	})
}

func (b *Builder) ObstacleLine(o Obstacle) string {
	return fixedwidth.Encode(b.catalog.MustSchema(fixedwidth.Obstacle), fixedwidth.Values{
		"oas": o.OAS, "state": o.State, "city": o.City, "lat": o.Lat, "lon": o.Lon, "agl": o.AGL,
	})
}

// NASRFile joins lines with CRLF and encodes them as Latin-1, as published.
// Characters outside Latin-1 are replaced.
func NASRFile(lines ...string) []byte {
	text := strings.Join(lines, "\r\n") + "\r\n"
	enc, err := charmap.ISO8859_1.NewEncoder().String(text)
	if err != nil {
		enc = text
	}
	return []byte(enc)
}

// DOFFile renders a Digital Obstacle File with its currency header and
// column banner ahead of the data lines.
func DOFFile(currencyDate string, lines ...string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "  CURRENCY DATE = %s\n", currencyDate)
	buf.WriteString("OAS#      V CO ST CITY             LATITUDE     LONGITUDE    OBSTACLE            AGL   AMSL  LT H AC MARINT   FAA   ACTION JDATE\n")
	buf.WriteString(strings.Repeat("-", 140) + "\n")
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Zip packs members into an archive with entries in name order.
func Zip(members map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(members))
	for n := range members {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", n, err)
		}
		if _, err := w.Write(members[n]); err != nil {
			return nil, fmt.Errorf("write %s: %w", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
