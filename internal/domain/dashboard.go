package domain

// GeoPointLimit caps the number of map points returned by the dashboard.
const GeoPointLimit = 2000

// IncidentRecord is one row of incidents_view: the normalized incident with
// its category ids resolved back to readable labels.
type IncidentRecord struct {
	IncidentID             int      `json:"incident_id"`
	CrashNum               *string  `json:"crash_num"`
	IncidentDate           *string  `json:"incident_date"`
	FirstHarmfulEvent      *string  `json:"first_harmful_event"`
	LightCondition         *string  `json:"light_condition"`
	WeatherCondition       *string  `json:"weather_condition"`
	RoadSurface            *string  `json:"road_surface"`
	TrafficControlDevice   *string  `json:"traffic_control_device"`
	IntersectionType       *string  `json:"intersection_type"`
	Trafficway             *string  `json:"trafficway"`
	CollisionManner        *string  `json:"collision_manner"`
	HarmfulEventLocation   *string  `json:"harmful_event_location"`
	IsWorkZone             *string  `json:"is_work_zone"`
	FatalInjuries          int      `json:"cnt_fatal_injury"`
	SeriousInjuries        int      `json:"cnt_sus_serious_injury"`
	MinorInjuries          int      `json:"cnt_sus_minor_injury"`
	Pedestrians            int      `json:"cnt_pedestrian"`
	Cyclists               int      `json:"cnt_cyclist"`
	IsHitAndRun            *string  `json:"is_hit_and_run"`
	IncidentLocation       *string  `json:"incident_location"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	LightConditionID       int      `json:"light_conditions_id"`
	WeatherConditionID     int      `json:"weather_conditions_id"`
	RoadSurfaceID          int      `json:"road_surface_id"`
	TrafficControlDeviceID int      `json:"traffic_control_device_type_id"`
	IntersectionTypeID     int      `json:"roadway_intersection_type_id"`
	TrafficwayID           int      `json:"trafficway_id"`
	CollisionMannerID      int      `json:"collision_manner_id"`
	HarmfulEventLocationID int      `json:"harmful_event_location_id"`
}

// Summary holds the dashboard headline totals.
type Summary struct {
	FatalInjuries   int64 `json:"fatal_injuries"`
	SeriousInjuries int64 `json:"serious_injuries"`
	MinorInjuries   int64 `json:"minor_injuries"`
	TotalIncidents  int64 `json:"total_incidents"`
}

// WeatherCount is an incident count for one weather condition.
type WeatherCount struct {
	WeatherCondition string `json:"weather_condition"`
	Total            int64  `json:"total"`
}

// LightCount is an incident count for one light condition.
type LightCount struct {
	LightCondition string `json:"light_condition"`
	Total          int64  `json:"total"`
}

// CollisionCount is an incident count for one manner of collision.
type CollisionCount struct {
	CollisionManner string `json:"collision_manner"`
	Total           int64  `json:"total"`
}

// WorkZoneCount is an incident count for one work-zone flag value.
type WorkZoneCount struct {
	IsWorkZone string `json:"is_work_zone"`
	Total      int64  `json:"total"`
}

// MonthlyCount is an incident count for one YYYY-MM month.
type MonthlyCount struct {
	Month string `json:"month"`
	Total int64  `json:"total"`
}

// GeoPoint is the minimal incident shape used for map plotting.
type GeoPoint struct {
	IncidentID       int     `json:"incident_id"`
	IncidentLocation *string `json:"incident_location"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FatalInjuries    int     `json:"cnt_fatal_injury"`
	SeriousInjuries  int     `json:"cnt_sus_serious_injury"`
}

// Dashboard is the full aggregate payload for GET /v1/dashboard.
type Dashboard struct {
	Summary       Summary          `json:"summary"`
	ByWeather     []WeatherCount   `json:"by_weather"`
	ByLight       []LightCount     `json:"by_light"`
	ByCollision   []CollisionCount `json:"by_collision"`
	ByWorkZone    []WorkZoneCount  `json:"by_workzone"`
	MonthlyTrends []MonthlyCount   `json:"monthly_trends"`
	GeoPoints     []GeoPoint       `json:"geo_points"`
}
