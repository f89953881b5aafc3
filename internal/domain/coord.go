package domain

import (
	"math"
	"strconv"
	"strings"
)

// ParseCompactDMS converts the NASR coordinate dialect "DD-MM-SS.sssH" to
// signed decimal degrees rounded to six places. A leading '-' or an S/W
// hemisphere makes the result negative. When the text is not three
// hyphen-separated parts it is read as a single decimal number.
func ParseCompactDMS(raw string) (float64, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	}
	if strings.ContainsAny(s, "SW") {
		sign = -1
	}
	s = strings.NewReplacer("N", "", "S", "", "E", "", "W", "").Replace(s)

	var dd float64
	parts := strings.Split(s, "-")
	if len(parts) == 3 {
		deg, err1 := strconv.ParseFloat(parts[0], 64)
		mins, err2 := strconv.ParseFloat(parts[1], 64)
		sec, err3 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, false
		}
		dd = deg + mins/60 + sec/3600
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		dd = v
	}
	if math.IsNaN(dd) || math.IsInf(dd, 0) {
		return 0, false
	}
	return round6(dd * sign), true
}

// ParseSpacedDMS converts the DOF coordinate dialect "DD MM SS.ssH" to signed
// decimal degrees. The hemisphere letter is the final character and must be
// one of N, S, E or W.
func ParseSpacedDMS(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 {
		return 0, false
	}

	hemi := s[len(s)-1]
	switch hemi {
	case 'N', 'S', 'E', 'W', 'n', 's', 'e', 'w':
	default:
		return 0, false
	}

	parts := strings.Fields(s[:len(s)-1])
	if len(parts) != 3 {
		return 0, false
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		vals[i] = v
	}

	dd := vals[0] + vals[1]/60 + vals[2]/3600
	if hemi == 'S' || hemi == 'W' || hemi == 's' || hemi == 'w' {
		dd = -dd
	}
	return round6(dd), true
}

// CompactToDecimal is ParseCompactDMS with failures reported as 0.0.
// Callers that can tell a real coordinate from a failure should use
// ParseCompactDMS instead.
func CompactToDecimal(raw string) float64 {
	v, _ := ParseCompactDMS(raw)
	return v
}

// SpacedToDecimal is ParseSpacedDMS with failures reported as 0.0.
func SpacedToDecimal(raw string) float64 {
	v, _ := ParseSpacedDMS(raw)
	return v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
