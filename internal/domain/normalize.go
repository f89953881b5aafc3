package domain

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cwmauze/genesys-waypoint-tools/internal/fixedwidth"
)

// MinObstacleAGL is the lowest obstacle height, in feet, kept in the dataset.
const MinObstacleAGL = 200

// UnknownAGL marks a notice whose text carries no height.
const UnknownAGL = "Unknown"

// Reasons a line produces no record.
var (
	ErrNotRecord      = errors.New("line is not a record of this type")
	ErrMissingID      = errors.New("missing identifier")
	ErrBadCoordinate  = errors.New("unparsable coordinate")
	ErrBadHeight      = errors.New("non-numeric height")
	ErrBelowMinHeight = errors.New("height below threshold")
)

const currencyDatePrefix = "  CURRENCY DATE ="

// ParseAirport decodes one line of the NASR APT file.
func ParseAirport(line string, s fixedwidth.Schema) (Airport, error) {
	if !s.Matches(line) {
		return Airport{}, ErrNotRecord
	}
	v := fixedwidth.Extract(line, s)
	if v.Get("id") == "" {
		return Airport{}, ErrMissingID
	}
	lat, lon, err := compactPair(v)
	if err != nil {
		return Airport{}, err
	}
	elev := v.Get("elev")
	if elev == "" {
		elev = "0"
	}
	return Airport{
		ID:        v.Get("id"),
		Name:      v.Get("name"),
		Lat:       lat,
		Lon:       lon,
		Elevation: elev,
	}, nil
}

// ParseNavaid decodes one base record of the NASR NAV file.
func ParseNavaid(line string, s fixedwidth.Schema) (Navaid, error) {
	if !s.Matches(line) {
		return Navaid{}, ErrNotRecord
	}
	v := fixedwidth.Extract(line, s)
	if v.Get("id") == "" {
		return Navaid{}, ErrMissingID
	}
	lat, lon, err := compactPair(v)
	if err != nil {
		return Navaid{}, err
	}
	raw := v.Get("type")
	return Navaid{
		ID:      v.Get("id"),
		Name:    v.Get("name"),
		Lat:     lat,
		Lon:     lon,
		Type:    SimplifyNavaidType(raw),
		RawType: raw,
	}, nil
}

// ParseFix decodes one base record of the NASR FIX file.
func ParseFix(line string, s fixedwidth.Schema) (Fix, error) {
	if !s.Matches(line) {
		return Fix{}, ErrNotRecord
	}
	v := fixedwidth.Extract(line, s)
	if v.Get("id") == "" {
		return Fix{}, ErrMissingID
	}
	lat, lon, err := compactPair(v)
	if err != nil {
		return Fix{}, err
	}
	return Fix{ID: v.Get("id"), Lat: lat, Lon: lon}, nil
}

// ParseObstacle decodes one data line of the Digital Obstacle File. Lines
// whose height is not a plain integer, or is under MinObstacleAGL, are
// rejected.
func ParseObstacle(line string, s fixedwidth.Schema) (Obstacle, error) {
	if !s.Matches(line) {
		return Obstacle{}, ErrNotRecord
	}
	v := fixedwidth.Extract(line, s)

	aglText := v.Get("agl")
	if !isDigits(aglText) {
		return Obstacle{}, ErrBadHeight
	}
	agl, err := strconv.Atoi(aglText)
	if err != nil {
		return Obstacle{}, ErrBadHeight
	}
	if agl < MinObstacleAGL {
		return Obstacle{}, ErrBelowMinHeight
	}

	if v.Get("oas") == "" {
		return Obstacle{}, ErrMissingID
	}
	lat, okLat := ParseSpacedDMS(v.Get("lat"))
	lon, okLon := ParseSpacedDMS(v.Get("lon"))
	if !okLat || !okLon {
		return Obstacle{}, ErrBadCoordinate
	}

	return Obstacle{
		ID:    v.Get("oas"),
		State: strings.ToUpper(v.Get("state")),
		City:  v.Get("city"),
		Lat:   lat,
		Lon:   lon,
		AGL:   agl,
	}, nil
}

// ParseCurrencyDate extracts the edition date from the DOF header line
// "  CURRENCY DATE = 01/18/26".
func ParseCurrencyDate(line string) (string, bool) {
	if !strings.HasPrefix(line, currencyDatePrefix) {
		return "", false
	}
	date := strings.TrimSpace(strings.TrimPrefix(line, currencyDatePrefix))
	return date, date != ""
}

// SimplifyNavaidType maps a published facility type to the single category
// the target avionics accept. Every subtype (VOR, VORTAC, VOR/DME, NDB, ...)
// becomes "VOR"; the published type is kept alongside as the raw type.
func SimplifyNavaidType(string) string {
	return "VOR"
}

func compactPair(v fixedwidth.Values) (float64, float64, error) {
	lat, okLat := ParseCompactDMS(v.Get("lat"))
	lon, okLon := ParseCompactDMS(v.Get("lon"))
	if !okLat || !okLon {
		return 0, 0, ErrBadCoordinate
	}
	return lat, lon, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
