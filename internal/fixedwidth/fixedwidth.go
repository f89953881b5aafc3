// Package fixedwidth decodes positional text records whose fields occupy
// fixed character ranges. Layouts are described by a Schema; the decoder
// itself knows nothing about any particular file.
package fixedwidth

import (
	"strings"
)

// Field is one named character range. Offsets are 0-indexed and End is exclusive.
type Field struct {
	Name  string `yaml:"name"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

// Schema describes one record layout.
type Schema struct {
	Name string `yaml:"-"`

	// Marker is the line prefix identifying records of this layout. Empty
	// means every line is a candidate.
	Marker string `yaml:"marker"`

	// MinLength rejects lines with fewer characters than this, counting any
	// line terminator the caller leaves attached.
	MinLength int `yaml:"min_length"`

	// SkipPrefixes lists header and separator prefixes to ignore.
	SkipPrefixes []string `yaml:"skip_prefixes"`

	Fields []Field `yaml:"fields"`
}

// Values maps field names to trimmed field text.
type Values map[string]string

// Get returns the value for name, or "" when absent.
func (v Values) Get(name string) string {
	return v[name]
}

// Matches reports whether line is a record of this layout: it carries the
// marker prefix, is long enough, and does not start with a skipped prefix.
func (s Schema) Matches(line string) bool {
	if s.Marker != "" && !strings.HasPrefix(line, s.Marker) {
		return false
	}
	if s.MinLength > 0 && len([]rune(line)) < s.MinLength {
		return false
	}
	for _, p := range s.SkipPrefixes {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	return true
}

// Width is the smallest line length that holds every field.
func (s Schema) Width() int {
	w := 0
	for _, f := range s.Fields {
		if f.End > w {
			w = f.End
		}
	}
	return w
}

// Field looks up a field definition by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Extract slices every schema field out of line and trims surrounding
// whitespace. Offsets count characters, not bytes. A field that runs past the
// end of a short line yields whatever text is present, or "" when the line
// ends before the field starts.
func Extract(line string, s Schema) Values {
	runes := []rune(line)
	out := make(Values, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = slice(runes, f.Start, f.End)
	}
	return out
}

func slice(runes []rune, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return strings.TrimSpace(string(runes[start:end]))
}

// Encode lays values out at their schema offsets, prefixed by the marker and
// padded with spaces to the schema width or minimum length, whichever is
// larger. Values longer than their field are truncated. It is the inverse of
// Extract for well-formed input.
func Encode(s Schema, values Values) string {
	width := s.Width()
	if s.MinLength > width {
		width = s.MinLength
	}
	if len(s.Marker) > width {
		width = len(s.Marker)
	}
	buf := []rune(strings.Repeat(" ", width))
	copy(buf, []rune(s.Marker))
	for _, f := range s.Fields {
		v := []rune(values[f.Name])
		if n := f.End - f.Start; len(v) > n {
			v = v[:n]
		}
		copy(buf[f.Start:], v)
	}
	return string(buf)
}
