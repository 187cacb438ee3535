package domain

import "fmt"

// FallbackCategoryID is the id assigned to an incident whose categorical value
// is empty or missing from the lookup.
const FallbackCategoryID = 1

// Category describes one categorical source attribute and the lookup table it
// is normalized into.
type Category struct {
	Key         string // counts key in the load summary
	SourceField string // raw field name
	Table       string
	Column      string // value column in Table
}

// The eight categorical attributes, in load order.
var (
	LightConditions       = Category{Key: "light_conditions", SourceField: FieldAmbientLight, Table: "light_conditions", Column: "light_condition"}
	WeatherConditions     = Category{Key: "weather_conditions", SourceField: FieldWeather, Table: "weather_conditions", Column: "weather_condition"}
	RoadSurfaces          = Category{Key: "road_surfaces", SourceField: FieldRoadSurface, Table: "road_surface", Column: "road_surface"}
	TrafficControlDevices = Category{Key: "traffic_control_devices", SourceField: FieldTrafficControl, Table: "traffic_control_device_type", Column: "tcd_type"}
	IntersectionTypes     = Category{Key: "intersection_types", SourceField: FieldJunction, Table: "roadway_intersection_type", Column: "rwi_type"}
	RoadTypes             = Category{Key: "road_types", SourceField: FieldTrafficway, Table: "trafficway", Column: "trafficway"}
	CollisionTypes        = Category{Key: "collision_types", SourceField: FieldCollisionManner, Table: "collision_manner", Column: "cm_type"}
	EventLocations        = Category{Key: "event_locations", SourceField: FieldHarmfulEventLocation, Table: "harmful_event_location", Column: "he_location"}
)

// Categories returns all categories in load order.
func Categories() []Category {
	return []Category{
		LightConditions,
		WeatherConditions,
		RoadSurfaces,
		TrafficControlDevices,
		IntersectionTypes,
		RoadTypes,
		CollisionTypes,
		EventLocations,
	}
}

// CategoryRow is one persisted lookup entry.
type CategoryRow struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// CategoryLookup maps trimmed categorical values to surrogate ids assigned in
// first-seen order. Ids are exactly 1..Len().
type CategoryLookup struct {
	Category Category
	values   []string
	index    map[string]int
}

func newLookup(c Category) *CategoryLookup {
	return &CategoryLookup{Category: c, index: make(map[string]int)}
}

// add assigns the next id to value unless it is already known.
func (l *CategoryLookup) add(value string) {
	if _, ok := l.index[value]; ok {
		return
	}
	l.values = append(l.values, value)
	l.index[value] = len(l.values)
}

// Len returns the number of distinct values.
func (l *CategoryLookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.values)
}

// ID returns the id of an exact (already trimmed) value.
func (l *CategoryLookup) ID(value string) (int, bool) {
	if l == nil {
		return 0, false
	}
	id, ok := l.index[value]
	return id, ok
}

// Rows returns the lookup as persistence rows in id order.
func (l *CategoryLookup) Rows() []CategoryRow {
	if l == nil {
		return nil
	}
	rows := make([]CategoryRow, len(l.values))
	for i, v := range l.values {
		rows[i] = CategoryRow{ID: i + 1, Value: v}
	}
	return rows
}

// BuildLookup folds the batch into a lookup for one category. Values are
// trimmed; empty values never receive an id. Ids are not reconciled with
// anything persisted by earlier runs.
func BuildLookup(records []RawIncident, c Category) (*CategoryLookup, error) {
	lookup := newLookup(c)
	for i, rec := range records {
		v, err := rec.Field(c.SourceField)
		if err != nil {
			return nil, fmt.Errorf("build %s lookup: record %d: %w", c.Key, i, err)
		}
		if s := v.Trimmed(); s != "" {
			lookup.add(s)
		}
	}
	return lookup, nil
}

// ResolveCategoryID returns the id for a raw value, falling back to
// FallbackCategoryID when the trimmed value is empty or unknown.
//
// The fallback does not point at a reserved "Unknown" row: id 1 is whichever
// value the batch saw first.
func ResolveCategoryID(lookup *CategoryLookup, raw Value) int {
	s := raw.Trimmed()
	if s == "" {
		return FallbackCategoryID
	}
	if id, ok := lookup.ID(s); ok {
		return id
	}
	return FallbackCategoryID
}

// Lookups holds the lookups built for one batch, keyed by Category.Key.
type Lookups map[string]*CategoryLookup

// BuildLookups builds every category lookup for the batch.
func BuildLookups(records []RawIncident) (Lookups, error) {
	out := make(Lookups, len(Categories()))
	for _, c := range Categories() {
		l, err := BuildLookup(records, c)
		if err != nil {
			return nil, err
		}
		out[c.Key] = l
	}
	return out, nil
}
