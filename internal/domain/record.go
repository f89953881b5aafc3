package domain

// Kind tags a normalized record with its source family.
type Kind string

const (
	KindAirport  Kind = "APT"
	KindNavaid   Kind = "NAV"
	KindFix      Kind = "FIX"
	KindObstacle Kind = "OBS"
)

// Geo is a WGS-84 latitude/longitude pair in signed decimal degrees.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Record is the behavior shared by every normalized record.
type Record interface {
	Kind() Kind
	Ident() string
	Position() Geo
}

// Airport is a landing facility from the NASR APT file.
type Airport struct {
	ID        string
	Name      string
	Lat       float64
	Lon       float64
	Elevation string // feet MSL as published; "0" when blank
}

func (a Airport) Kind() Kind { return KindAirport }
func (a Airport) Ident() string { return a.ID }
func (a Airport) Position() Geo { return Geo{Lat: a.Lat, Lon: a.Lon} }
func (a Airport) Summary() AirportSummary {
	return AirportSummary{Name: a.Name, Lat: a.Lat, Lon: a.Lon}
}

// Navaid is a radio navigation aid from the NASR NAV file.
type Navaid struct {
	ID      string
	Name    string
	Lat     float64
	Lon     float64
	Type    string // simplified category, see SimplifyNavaidType
	RawType string // facility type exactly as published, e.g. "VORTAC"
}

func (n Navaid) Kind() Kind { return KindNavaid }
func (n Navaid) Ident() string { return n.ID }
func (n Navaid) Position() Geo { return Geo{Lat: n.Lat, Lon: n.Lon} }

// Fix is a named reporting point from the NASR FIX file. The source carries
// no separate name, so the identifier doubles as one.
type Fix struct {
	ID  string
	Lat float64
	Lon float64
}

func (f Fix) Kind() Kind { return KindFix }
func (f Fix) Ident() string { return f.ID }
func (f Fix) Position() Geo { return Geo{Lat: f.Lat, Lon: f.Lon} }

// Obstacle is a verified man-made obstruction from the Digital Obstacle File.
type Obstacle struct {
	ID    string  `json:"id"` // OAS number, e.g. "48-012345"
	State string  `json:"state"`
	City  string  `json:"city"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	AGL   int     `json:"agl"` // feet above ground level
}

func (o Obstacle) Kind() Kind { return KindObstacle }
func (o Obstacle) Ident() string { return o.ID }
func (o Obstacle) Position() Geo { return Geo{Lat: o.Lat, Lon: o.Lon} }

// Waypoint is the flat entry written to the combined master list.
type Waypoint struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Elev string  `json:"elev,omitempty"`
	Type string  `json:"type"`
	Desc string  `json:"desc,omitempty"`
}

// AirportSummary is the per-airport value in the split airports dataset,
// which is keyed by airport identifier.
type AirportSummary struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ToWaypoint converts a NASR record to its master-list entry. Obstacles are not
// part of the master list and yield ok=false.
func ToWaypoint(r Record) (Waypoint, bool) {
	switch v := r.(type) {
	case Airport:
		return Waypoint{ID: v.ID, Name: v.Name, Lat: v.Lat, Lon: v.Lon, Elev: v.Elevation, Type: string(KindAirport)}, true
	case Navaid:
		return Waypoint{ID: v.ID, Name: v.Name, Lat: v.Lat, Lon: v.Lon, Type: v.Type, Desc: v.RawType}, true
	case Fix:
		return Waypoint{ID: v.ID, Name: v.ID, Lat: v.Lat, Lon: v.Lon, Type: string(KindFix)}, true
	default:
		return Waypoint{}, false
	}
}

// Notice is an obstruction NOTAM reporting an unlit or unmonitored obstacle.
type Notice struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	AGL  string  `json:"agl"` // digits, or "Unknown" when the text states no height
	Text string  `json:"text"`
}
