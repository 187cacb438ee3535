package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/couchcryptid/crash-data-etl/internal/domain"
)

// InsertCategoryValue stores one lookup row unless a row with the same id or
// value already exists. It reports whether a row was written.
func (s *Store) InsertCategoryValue(ctx context.Context, c domain.Category, row domain.CategoryRow) (bool, error) {
	q := fmt.Sprintf(`INSERT INTO %s (id, %s) VALUES (?, ?) ON CONFLICT DO NOTHING`, c.Table, c.Column)
	res, err := s.exec(ctx, q, row.ID, row.Value)
	if err != nil {
		return false, fmt.Errorf("insert %s row %d: %w", c.Table, row.ID, err)
	}
	return affected(res), nil
}

// InsertIncident stores one incident unless its id or crash number is
// already present. It reports whether a row was written.
func (s *Store) InsertIncident(ctx context.Context, n domain.NormalizedIncident) (bool, error) {
	var geoSource, formatted, placeName *string
	var confidence *float64
	if n.GeoSource != "" {
		geoSource = &n.GeoSource
	}
	if n.FormattedAddress != "" {
		formatted = &n.FormattedAddress
	}
	if n.PlaceName != "" {
		placeName = &n.PlaceName
	}
	if n.GeoSource == domain.GeoSourceGeocoded {
		confidence = &n.GeoConfidence
	}

	res, err := s.exec(ctx, `INSERT INTO incidents (
		id, crash_num, incident_date, first_harmful_event,
		light_conditions_id, weather_conditions_id, road_surface_id, traffic_control_device_type_id,
		roadway_intersection_type_id, trafficway_id, collision_manner_id, harmful_event_location_id,
		is_work_zone, cnt_fatal_injury, cnt_sus_serious_injury, cnt_sus_minor_injury,
		cnt_pedestrian, cnt_cyclist, is_hit_and_run, incident_location,
		latitude, longitude, geo_source, formatted_address, place_name, geo_confidence, loaded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`,
		n.ID, n.CrashNum, n.IncidentDate, n.FirstHarmfulEvent,
		n.LightConditionID, n.WeatherConditionID, n.RoadSurfaceID, n.TrafficControlDeviceID,
		n.IntersectionTypeID, n.TrafficwayID, n.CollisionMannerID, n.HarmfulEventLocationID,
		n.WorkZone, n.FatalInjuries, n.SeriousInjuries, n.MinorInjuries,
		n.Pedestrians, n.Cyclists, n.HitAndRun, n.Location,
		n.Latitude, n.Longitude, geoSource, formatted, placeName, confidence, n.LoadedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("insert incident %d: %w", n.ID, err)
	}
	return affected(res), nil
}

// ListIncidents returns every row of incidents_view ordered by incident id.
func (s *Store) ListIncidents(ctx context.Context) ([]domain.IncidentRecord, error) {
	rows, err := s.query(ctx, `SELECT
		incident_id, crash_num, incident_date, first_harmful_event,
		light_condition, weather_condition, road_surface, traffic_control_device,
		intersection_type, trafficway, collision_manner, harmful_event_location,
		is_work_zone, cnt_fatal_injury, cnt_sus_serious_injury, cnt_sus_minor_injury,
		cnt_pedestrian, cnt_cyclist, is_hit_and_run, incident_location, latitude, longitude,
		light_conditions_id, weather_conditions_id, road_surface_id, traffic_control_device_type_id,
		roadway_intersection_type_id, trafficway_id, collision_manner_id, harmful_event_location_id
	FROM incidents_view ORDER BY incident_id`)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	out := []domain.IncidentRecord{}
	for rows.Next() {
		var (
			r                                            domain.IncidentRecord
			crash, date, event, workZone, hitRun, where  sql.NullString
			light, weather, surface, tcd, junction, road sql.NullString
			collision, eventLoc                          sql.NullString
			lat, lon                                     sql.NullFloat64
		)
		if err := rows.Scan(
			&r.IncidentID, &crash, &date, &event,
			&light, &weather, &surface, &tcd,
			&junction, &road, &collision, &eventLoc,
			&workZone, &r.FatalInjuries, &r.SeriousInjuries, &r.MinorInjuries,
			&r.Pedestrians, &r.Cyclists, &hitRun, &where, &lat, &lon,
			&r.LightConditionID, &r.WeatherConditionID, &r.RoadSurfaceID, &r.TrafficControlDeviceID,
			&r.IntersectionTypeID, &r.TrafficwayID, &r.CollisionMannerID, &r.HarmfulEventLocationID,
		); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		r.CrashNum = nullString(crash)
		r.IncidentDate = nullString(date)
		r.FirstHarmfulEvent = nullString(event)
		r.LightCondition = nullString(light)
		r.WeatherCondition = nullString(weather)
		r.RoadSurface = nullString(surface)
		r.TrafficControlDevice = nullString(tcd)
		r.IntersectionType = nullString(junction)
		r.Trafficway = nullString(road)
		r.CollisionManner = nullString(collision)
		r.HarmfulEventLocation = nullString(eventLoc)
		r.IsWorkZone = nullString(workZone)
		r.IsHitAndRun = nullString(hitRun)
		r.IncidentLocation = nullString(where)
		r.Latitude = nullFloat(lat)
		r.Longitude = nullFloat(lon)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return out, nil
}

// Retrieve returns up to k incidents_view rows ranked against the query
// terms, each rendered as a text passage.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	records, err := s.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	return domain.RankPassages(query, records, k), nil
}

func affected(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
