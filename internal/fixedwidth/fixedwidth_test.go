package fixedwidth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	Name:   "test",
	Marker: "REC",
	Fields: []Field{
		{Name: "id", Start: 3, End: 8},
		{Name: "name", Start: 8, End: 20},
		{Name: "tail", Start: 30, End: 40},
	},
}

func TestExtract_TrimsFields(t *testing.T) {
	line := "REC AB  Some Place  " + strings.Repeat(" ", 10) + "  tail  "
	v := Extract(line, testSchema)

	assert.Equal(t, "AB", v.Get("id"))
	assert.Equal(t, "Some Place", v.Get("name"))
	assert.Equal(t, "tail", v.Get("tail"))
}

func TestExtract_ShortLineYieldsEmpty(t *testing.T) {
	v := Extract("REC12", testSchema)

	assert.Equal(t, "12", v.Get("id"))
	assert.Empty(t, v.Get("name"))
	assert.Empty(t, v.Get("tail"))
}

func TestExtract_EmptyLine(t *testing.T) {
	assert.NotPanics(t, func() {
		v := Extract("", testSchema)
		assert.Len(t, v, 3)
		for _, f := range testSchema.Fields {
			assert.Empty(t, v.Get(f.Name))
		}
	})
}

func TestExtract_CountsCharactersNotBytes(t *testing.T) {
	// "Ñ" is two bytes in UTF-8 but one character in the Latin-1 source.
	line := "REC  X  ÑANDU Field"
	v := Extract(line, testSchema)
	assert.Equal(t, "ÑANDU Field", v.Get("name"))
}

func TestSchema_Matches(t *testing.T) {
	s := Schema{Marker: "NAV1", MinLength: 10, SkipPrefixes: []string{"NAV1X"}}

	assert.True(t, s.Matches("NAV1 ABC DEF"))
	assert.False(t, s.Matches("NAV2 ABC DEF"))
	assert.False(t, s.Matches("NAV1 A"))
	assert.False(t, s.Matches("NAV1X ABCDEFG"))
}

func TestEncode_RoundTrip(t *testing.T) {
	in := Values{"id": "KAUS", "name": "AUSTIN", "tail": "END"}
	line := Encode(testSchema, in)

	assert.True(t, strings.HasPrefix(line, "REC"))
	assert.Len(t, line, testSchema.Width())
	assert.Equal(t, in, Extract(line, testSchema))
}

func TestEncode_TruncatesLongValues(t *testing.T) {
	line := Encode(testSchema, Values{"id": "TOOLONGID"})
	assert.Equal(t, "TOOLO", Extract(line, testSchema).Get("id"))
}

func TestEncode_PadsToMinLength(t *testing.T) {
	s := Schema{MinLength: 50, Fields: []Field{{Name: "a", Start: 0, End: 5}}}
	assert.Len(t, Encode(s, Values{"a": "x"}), 50)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{Airport, Fix, Navaid, Obstacle}, c.Names())

	apt := c.MustSchema(Airport)
	assert.Equal(t, "APT", apt.Marker)
	f, ok := apt.Field("lat")
	require.True(t, ok)
	assert.Equal(t, Field{Name: "lat", Start: 523, End: 538}, f)

	obs := c.MustSchema(Obstacle)
	assert.Empty(t, obs.Marker)
	assert.Equal(t, 100, obs.MinLength)
	assert.Contains(t, obs.SkipPrefixes, "CUR")
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "empty", doc: "", want: "no schemas"},
		{name: "no fields", doc: "a:\n  marker: X\n", want: "no fields"},
		{name: "bad range", doc: "a:\n  fields:\n    - {name: x, start: 5, end: 5}\n", want: "invalid range"},
		{name: "duplicate", doc: "a:\n  fields:\n    - {name: x, start: 0, end: 1}\n    - {name: x, start: 1, end: 2}\n", want: "duplicate"},
		{name: "not yaml", doc: "a: [", want: "decode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMustSchema_Unknown(t *testing.T) {
	assert.Panics(t, func() { DefaultCatalog().MustSchema("runway") })
}
