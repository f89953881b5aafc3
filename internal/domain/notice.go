package domain

import (
	"regexp"
	"strings"
)

var (
	// aglRe finds a height such as "1049 FT AGL", "1049FT AGL" or "350 AGL".
	aglRe = regexp.MustCompile(`(\d+)\s?(?:FT)?\s?AGL`)

	outageTokens = []string{"OUT", "U/S", "UNMON", "UNLIT", "OBSCURED"}
)

// IsUnlitObstacle reports whether NOTAM text describes an obstacle whose
// lighting is out of service. All three must appear, ignoring case: the
// obstacle marker OBST, a lighting reference (LGT or LIGHT), and at least one
// outage token. Tokens match as substrings, as they do in the source feed's
// contractions.
func IsUnlitObstacle(text string) bool {
	t := strings.ToUpper(text)
	if !strings.Contains(t, "OBST") {
		return false
	}
	if !strings.Contains(t, "LGT") && !strings.Contains(t, "LIGHT") {
		return false
	}
	for _, w := range outageTokens {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// ExtractAGL returns the first above-ground height in the text, or UnknownAGL.
func ExtractAGL(text string) string {
	m := aglRe.FindStringSubmatch(strings.ToUpper(text))
	if len(m) != 2 {
		return UnknownAGL
	}
	return m[1]
}

// NewNotice builds a Notice from classified NOTAM text and a point given in
// GeoJSON order (longitude first).
func NewNotice(text string, lon, lat float64) Notice {
	upper := strings.ToUpper(text)
	return Notice{
		Lat:  round6(lat),
		Lon:  round6(lon),
		AGL:  ExtractAGL(upper),
		Text: upper,
	}
}

// RawNotice is a notice as received from the notice service, before
// classification. HasPoint is false when its geometry carries no point.
type RawNotice struct {
	Text     string
	Lon      float64
	Lat      float64
	HasPoint bool
}
