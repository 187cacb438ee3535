package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLookup_WeatherScenario(t *testing.T) {
	records := []RawIncident{
		{Weather: V("Clear")},
		{Weather: V(" Clear ")},
		{Weather: V("Rain")},
		{Weather: V("")},
	}

	lookup, err := BuildLookup(records, WeatherConditions)
	require.NoError(t, err)

	assert.Equal(t, 2, lookup.Len())
	assert.Equal(t, []CategoryRow{{ID: 1, Value: "Clear"}, {ID: 2, Value: "Rain"}}, lookup.Rows())

	id, ok := lookup.ID("Clear")
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = lookup.ID("")
	assert.False(t, ok, "empty values never get an id")
}

func TestBuildLookup_IdsAreDenseAndUnique(t *testing.T) {
	values := []string{"Dry", "Wet", " Dry", "", "Snow", "   ", "Wet ", "Ice", "Slush", "Dry"}
	records := make([]RawIncident, 0, len(values)+1)
	for _, v := range values {
		records = append(records, RawIncident{RoadSurface: V(v)})
	}
	records = append(records, RawIncident{})

	lookup, err := BuildLookup(records, RoadSurfaces)
	require.NoError(t, err)

	distinct := map[string]struct{}{}
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			distinct[s] = struct{}{}
		}
	}
	require.Equal(t, len(distinct), lookup.Len())

	seen := map[int]bool{}
	for i, row := range lookup.Rows() {
		assert.Equal(t, i+1, row.ID)
		assert.False(t, seen[row.ID])
		seen[row.ID] = true
	}
	assert.Equal(t, []string{"Dry", "Wet", "Snow", "Ice", "Slush"}, rowValues(lookup.Rows()))
}

func TestBuildLookup_CaseSensitive(t *testing.T) {
	records := []RawIncident{{Weather: V("Rain")}, {Weather: V("RAIN")}}
	lookup, err := BuildLookup(records, WeatherConditions)
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.Len())
}

func TestBuildLookup_UnknownField(t *testing.T) {
	bad := Category{Key: "bogus", SourceField: "no_such_field", Table: "bogus", Column: "v"}
	_, err := BuildLookup([]RawIncident{{}}, bad)
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), "bogus")
}

func TestBuildLookup_Empty(t *testing.T) {
	lookup, err := BuildLookup(nil, LightConditions)
	require.NoError(t, err)
	assert.Equal(t, 0, lookup.Len())
	assert.Empty(t, lookup.Rows())
}

func TestBuildLookups_Independent(t *testing.T) {
	records := []RawIncident{
		{Weather: V("Clear"), AmbientLight: V("Daylight")},
		{Weather: V("Cloudy"), AmbientLight: V("Daylight")},
	}
	lookups, err := BuildLookups(records)
	require.NoError(t, err)

	require.Len(t, lookups, len(Categories()))
	assert.Equal(t, 2, lookups[WeatherConditions.Key].Len())
	assert.Equal(t, 1, lookups[LightConditions.Key].Len())
	assert.Equal(t, 0, lookups[EventLocations.Key].Len())
}

func TestResolveCategoryID(t *testing.T) {
	records := []RawIncident{{Weather: V("Clear")}, {Weather: V("Rain")}}
	lookup, err := BuildLookup(records, WeatherConditions)
	require.NoError(t, err)

	tests := []struct {
		name     string
		raw      Value
		expected int
	}{
		{"known", V("Rain"), 2},
		{"known padded", V("  Rain\t"), 2},
		{"unknown falls back", V("Fog"), FallbackCategoryID},
		{"empty falls back", V(" "), FallbackCategoryID},
		{"absent falls back", Value{}, FallbackCategoryID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveCategoryID(lookup, tt.raw))
		})
	}

	t.Run("nil lookup falls back", func(t *testing.T) {
		assert.Equal(t, FallbackCategoryID, ResolveCategoryID(nil, V("Rain")))
	})
}

func TestCategories_Unique(t *testing.T) {
	keys := map[string]bool{}
	tables := map[string]bool{}
	for _, c := range Categories() {
		assert.False(t, keys[c.Key], "duplicate key %s", c.Key)
		assert.False(t, tables[c.Table], "duplicate table %s", c.Table)
		keys[c.Key] = true
		tables[c.Table] = true

		_, err := RawIncident{}.Field(c.SourceField)
		assert.NoError(t, err, fmt.Sprintf("category %s source field", c.Key))
	}
	assert.Len(t, keys, 8)
}

func rowValues(rows []CategoryRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}
