package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/crash-data-etl/internal/domain"
)

// Category ids are not declared as foreign keys: the fallback id 1 may point
// at an empty lookup table when a batch carries no values for a category.
const incidentsTable = `CREATE TABLE IF NOT EXISTS incidents (
	id INTEGER PRIMARY KEY,
	crash_num TEXT UNIQUE,
	incident_date TEXT,
	first_harmful_event TEXT,
	light_conditions_id INTEGER NOT NULL,
	weather_conditions_id INTEGER NOT NULL,
	road_surface_id INTEGER NOT NULL,
	traffic_control_device_type_id INTEGER NOT NULL,
	roadway_intersection_type_id INTEGER NOT NULL,
	trafficway_id INTEGER NOT NULL,
	collision_manner_id INTEGER NOT NULL,
	harmful_event_location_id INTEGER NOT NULL,
	is_work_zone TEXT,
	cnt_fatal_injury INTEGER NOT NULL DEFAULT 0,
	cnt_sus_serious_injury INTEGER NOT NULL DEFAULT 0,
	cnt_sus_minor_injury INTEGER NOT NULL DEFAULT 0,
	cnt_pedestrian INTEGER NOT NULL DEFAULT 0,
	cnt_cyclist INTEGER NOT NULL DEFAULT 0,
	is_hit_and_run TEXT,
	incident_location TEXT,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	geo_source TEXT,
	formatted_address TEXT,
	place_name TEXT,
	geo_confidence DOUBLE PRECISION,
	loaded_at TEXT
)`

func (s *Store) migrate(ctx context.Context) error {
	stmts := make([]string, 0, len(domain.Categories())+4)
	for _, c := range domain.Categories() {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, %s TEXT NOT NULL UNIQUE)`,
			c.Table, c.Column))
	}
	stmts = append(stmts,
		incidentsTable,
		`DROP VIEW IF EXISTS incidents_view`,
		viewDefinition(),
	)

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// viewLabels maps each category to the label column it exposes in incidents_view.
var viewLabels = []struct {
	category domain.Category
	fk       string
	label    string
}{
	{domain.LightConditions, "light_conditions_id", "light_condition"},
	{domain.WeatherConditions, "weather_conditions_id", "weather_condition"},
	{domain.RoadSurfaces, "road_surface_id", "road_surface"},
	{domain.TrafficControlDevices, "traffic_control_device_type_id", "traffic_control_device"},
	{domain.IntersectionTypes, "roadway_intersection_type_id", "intersection_type"},
	{domain.RoadTypes, "trafficway_id", "trafficway"},
	{domain.CollisionTypes, "collision_manner_id", "collision_manner"},
	{domain.EventLocations, "harmful_event_location_id", "harmful_event_location"},
}

func viewDefinition() string {
	var cols, joins strings.Builder
	for i, v := range viewLabels {
		alias := fmt.Sprintf("c%d", i)
		fmt.Fprintf(&cols, ",\n\t%s.%s AS %s", alias, v.category.Column, v.label)
		fmt.Fprintf(&joins, "\nLEFT JOIN %s %s ON %s.id = i.%s", v.category.Table, alias, alias, v.fk)
	}
	return `CREATE VIEW incidents_view AS
SELECT
	i.id AS incident_id,
	i.crash_num,
	i.incident_date,
	i.first_harmful_event,
	i.is_work_zone,
	i.cnt_fatal_injury,
	i.cnt_sus_serious_injury,
	i.cnt_sus_minor_injury,
	i.cnt_pedestrian,
	i.cnt_cyclist,
	i.is_hit_and_run,
	i.incident_location,
	i.latitude,
	i.longitude,
	i.light_conditions_id,
	i.weather_conditions_id,
	i.road_surface_id,
	i.traffic_control_device_type_id,
	i.roadway_intersection_type_id,
	i.trafficway_id,
	i.collision_manner_id,
	i.harmful_event_location_id` + cols.String() + `
FROM incidents i` + joins.String()
}
