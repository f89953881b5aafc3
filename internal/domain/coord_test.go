package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCompactDMS(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"35-20-04.532N", 35.334592},
		{"097-39-50.120W", -97.663922},
		{"33-56-32.000S", -33.942222},
		{"151-10-38.000E", 151.177222},
		{"  35-20-04.532n  ", 35.334592},
		{"-35.5", -35.5},
		{"-35-30-00.000", -35.5},
		{"35.5N", 35.5},
		{"00-00-00.000N", 0},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseCompactDMS(tc.in)
			assert.True(t, ok)
			assert.InDelta(t, tc.want, got, 1e-6)
		})
	}
}

func TestParseCompactDMS_MatchesFormula(t *testing.T) {
	for deg := 0; deg < 90; deg += 7 {
		for mins := 0; mins < 60; mins += 11 {
			for _, sec := range []float64{0, 4.532, 17.25, 59.999} {
				want := float64(deg) + float64(mins)/60 + sec/3600
				north, ok := ParseCompactDMS(formatCompact(deg, mins, sec, 'N'))
				assert.True(t, ok)
				assert.InDelta(t, want, north, 1e-6)

				south, ok := ParseCompactDMS(formatCompact(deg, mins, sec, 'S'))
				assert.True(t, ok)
				assert.InDelta(t, -want, south, 1e-6)
			}
		}
	}
}

func TestParseCompactDMS_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "N", "AB-CD-EF", "35-20N", "35-20-04-01N", "35-xx-04.5N", "--"} {
		t.Run(in, func(t *testing.T) {
			got, ok := ParseCompactDMS(in)
			assert.False(t, ok)
			assert.Zero(t, got)
			assert.NotPanics(t, func() { assert.Zero(t, CompactToDecimal(in)) })
		})
	}
}

func TestParseSpacedDMS(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"35 20 04.53N", 35.334592},
		{"097 39 50.12W", -97.663922},
		{"  45 00 00.00S ", -45},
		{"010 30 00.00E", 10.5},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseSpacedDMS(tc.in)
			assert.True(t, ok)
			assert.InDelta(t, tc.want, got, 1e-5)
		})
	}
}

func TestParseSpacedDMS_Malformed(t *testing.T) {
	for _, in := range []string{"", "N", "35 20N", "35 20 04 01N", "35 xx 04.53N", "35 20 04.53", "35-20-04.53N"} {
		t.Run(in, func(t *testing.T) {
			got, ok := ParseSpacedDMS(in)
			assert.False(t, ok)
			assert.Zero(t, got)
			assert.Zero(t, SpacedToDecimal(in))
		})
	}
}

func formatCompact(deg, mins int, sec float64, hemi byte) string {
	return fmt.Sprintf("%02d-%02d-%06.3f%c", deg, mins, sec, hemi)
}
