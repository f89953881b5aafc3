package nms

import (
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"

	jsoniter "github.com/json-iterator/go"
)

// Notice service response types.

type response struct {
	Data struct {
		GeoJSON []Feature `json:"geojson"`
	} `json:"data"`
}

// Feature is one notice in the GeoJSON response.
type Feature struct {
	Geometry   Geometry `json:"geometry"`
	Properties struct {
		CoreNOTAMData struct {
			Notam struct {
				Text string `json:"text"`
			} `json:"notam"`
		} `json:"coreNOTAMData"`
	} `json:"properties"`
}

// Text returns the notice body as published.
func (f Feature) Text() string {
	return f.Properties.CoreNOTAMData.Notam.Text
}

func (f Feature) toRaw() domain.RawNotice {
	lon, lat, ok := f.Geometry.FirstPoint()
	return domain.RawNotice{Text: f.Text(), Lon: lon, Lat: lat, HasPoint: ok}
}

// Geometry is a GeoJSON geometry or geometry collection. Coordinates are kept
// raw because their shape depends on Type.
type Geometry struct {
	Type        string              `json:"type"`
	Coordinates jsoniter.RawMessage `json:"coordinates,omitempty"`
	Geometries  []Geometry          `json:"geometries,omitempty"`
}

// FirstPoint returns the first Point in the geometry, searching a
// collection's members in order.
func (g Geometry) FirstPoint() (lon, lat float64, ok bool) {
	if g.Type == "Point" {
		return g.point()
	}
	for _, member := range g.Geometries {
		if member.Type == "Point" {
			if lon, lat, ok := member.point(); ok {
				return lon, lat, true
			}
		}
	}
	return 0, 0, false
}

func (g Geometry) point() (lon, lat float64, ok bool) {
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil || len(coords) < 2 {
		return 0, 0, false
	}
	return coords[0], coords[1], true
}
