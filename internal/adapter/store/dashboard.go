package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/crash-data-etl/internal/domain"
)

// Dashboard computes every aggregate shown on the dashboard. Group counts
// skip null keys and are ordered by descending total.
func (s *Store) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var d domain.Dashboard

	row := s.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(cnt_fatal_injury), 0),
		COALESCE(SUM(cnt_sus_serious_injury), 0),
		COALESCE(SUM(cnt_sus_minor_injury), 0),
		COUNT(*)
	FROM incidents_view`)
	if err := row.Scan(&d.Summary.FatalInjuries, &d.Summary.SeriousInjuries, &d.Summary.MinorInjuries, &d.Summary.TotalIncidents); err != nil {
		return domain.Dashboard{}, fmt.Errorf("summary: %w", err)
	}

	byWeather, err := s.groupCounts(ctx, "weather_condition")
	if err != nil {
		return domain.Dashboard{}, err
	}
	d.ByWeather = make([]domain.WeatherCount, len(byWeather))
	for i, g := range byWeather {
		d.ByWeather[i] = domain.WeatherCount{WeatherCondition: g.key, Total: g.total}
	}

	byLight, err := s.groupCounts(ctx, "light_condition")
	if err != nil {
		return domain.Dashboard{}, err
	}
	d.ByLight = make([]domain.LightCount, len(byLight))
	for i, g := range byLight {
		d.ByLight[i] = domain.LightCount{LightCondition: g.key, Total: g.total}
	}

	byCollision, err := s.groupCounts(ctx, "collision_manner")
	if err != nil {
		return domain.Dashboard{}, err
	}
	d.ByCollision = make([]domain.CollisionCount, len(byCollision))
	for i, g := range byCollision {
		d.ByCollision[i] = domain.CollisionCount{CollisionManner: g.key, Total: g.total}
	}

	byWorkZone, err := s.groupCounts(ctx, "is_work_zone")
	if err != nil {
		return domain.Dashboard{}, err
	}
	d.ByWorkZone = make([]domain.WorkZoneCount, len(byWorkZone))
	for i, g := range byWorkZone {
		d.ByWorkZone[i] = domain.WorkZoneCount{IsWorkZone: g.key, Total: g.total}
	}

	if d.MonthlyTrends, err = s.monthlyTrends(ctx); err != nil {
		return domain.Dashboard{}, err
	}
	if d.GeoPoints, err = s.geoPoints(ctx, domain.GeoPointLimit); err != nil {
		return domain.Dashboard{}, err
	}
	return d, nil
}

type groupCount struct {
	key   string
	total int64
}

// groupCounts counts incidents per value of a view column. column is always
// one of the fixed label names above, never caller input.
func (s *Store) groupCounts(ctx context.Context, column string) ([]groupCount, error) {
	q := fmt.Sprintf(`SELECT %[1]s, COUNT(*) AS total
	FROM incidents_view
	WHERE %[1]s IS NOT NULL
	GROUP BY %[1]s
	ORDER BY total DESC, %[1]s`, column)

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", column, err)
	}
	defer rows.Close()

	var out []groupCount
	for rows.Next() {
		var g groupCount
		if err := rows.Scan(&g.key, &g.total); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) monthlyTrends(ctx context.Context) ([]domain.MonthlyCount, error) {
	rows, err := s.query(ctx, `SELECT substr(incident_date, 1, 7) AS month, COUNT(*) AS total
	FROM incidents_view
	WHERE incident_date IS NOT NULL
	GROUP BY substr(incident_date, 1, 7)
	ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	defer rows.Close()

	out := []domain.MonthlyCount{}
	for rows.Next() {
		var m domain.MonthlyCount
		if err := rows.Scan(&m.Month, &m.Total); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) geoPoints(ctx context.Context, limit int) ([]domain.GeoPoint, error) {
	rows, err := s.query(ctx, `SELECT incident_id, incident_location, latitude, longitude, cnt_fatal_injury, cnt_sus_serious_injury
	FROM incidents_view
	WHERE latitude IS NOT NULL AND longitude IS NOT NULL
	ORDER BY incident_id
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("geo points: %w", err)
	}
	defer rows.Close()

	out := []domain.GeoPoint{}
	for rows.Next() {
		var (
			p     domain.GeoPoint
			where sql.NullString
		)
		if err := rows.Scan(&p.IncidentID, &where, &p.Latitude, &p.Longitude, &p.FatalInjuries, &p.SeriousInjuries); err != nil {
			return nil, fmt.Errorf("scan geo point: %w", err)
		}
		p.IncidentLocation = nullString(where)
		out = append(out, p)
	}
	return out, rows.Err()
}
