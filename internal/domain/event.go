package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source field names in the Somerville crash dataset (Socrata resource mtik-28va).
const (
	FieldCrashNum             = "crashnum"
	FieldCrashDate            = "dtcrash"
	FieldAmbientLight         = "ambntlightdesc"
	FieldWeather              = "weathcond1desc"
	FieldRoadSurface          = "roadsurfdesc"
	FieldTrafficControl       = "trafcntrltypedesc"
	FieldJunction             = "rdwyjuncdesc"
	FieldTrafficway           = "trafydescrdesc"
	FieldCollisionManner      = "manrcolldesc"
	FieldHarmfulEventLocation = "hrmfeventdesc1"
	FieldFirstHarmfulEvent    = "hrmfeventdesc2"
	FieldWorkZone             = "workzonerelddesc"
	FieldFatalInjury          = "fatalinjury"
	FieldSeriousInjury        = "suspectedseriousinjury"
	FieldMinorInjury          = "suspectedminorinjury"
	FieldPedestrians          = "nonmotoristpedestrian"
	FieldCyclists             = "nonmotoristcyclist"
	FieldHitAndRun            = "hitrunflag"
	FieldAddress              = "address"
	FieldLatitude             = "latitude"
	FieldLongitude            = "longitude"
)

// ErrUnknownField is returned when a source field name is not part of the raw schema.
var ErrUnknownField = errors.New("unknown source field")

// Value is a single raw source field. Socrata serializes most columns as
// strings, but exports occasionally carry bare numbers or booleans, so any
// scalar is accepted and kept as its textual form. JSON null and absent keys
// both leave Present false.
type Value struct {
	Raw     string
	Present bool
}

// V builds a present Value. Handy for fixtures.
func V(s string) Value { return Value{Raw: s, Present: true} }

// Trimmed returns the value with surrounding whitespace removed, or "" when absent.
func (v Value) Trimmed() string {
	if !v.Present {
		return ""
	}
	return strings.TrimSpace(v.Raw)
}

// Ptr returns a pointer to the raw text, or nil when the field is absent.
func (v Value) Ptr() *string {
	if !v.Present {
		return nil
	}
	s := v.Raw
	return &s
}

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = V(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if b {
			*v = V("1")
		} else {
			*v = V("")
		}
	case '{', '[':
		return fmt.Errorf("unsupported nested value %s", truncate(string(data), 40))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = V(n.String())
	}
	return nil
}

// MarshalJSON writes the raw text, or null when absent.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Present {
		return []byte("null"), nil
	}
	return json.Marshal(v.Raw)
}

// RawIncident is one crash record as published by the open-data API.
// Every field is optional.
type RawIncident struct {
	CrashNum             Value `json:"crashnum"`
	CrashDate            Value `json:"dtcrash"`
	AmbientLight         Value `json:"ambntlightdesc"`
	Weather              Value `json:"weathcond1desc"`
	RoadSurface          Value `json:"roadsurfdesc"`
	TrafficControl       Value `json:"trafcntrltypedesc"`
	Junction             Value `json:"rdwyjuncdesc"`
	Trafficway           Value `json:"trafydescrdesc"`
	CollisionManner      Value `json:"manrcolldesc"`
	HarmfulEventLocation Value `json:"hrmfeventdesc1"`
	FirstHarmfulEvent    Value `json:"hrmfeventdesc2"`
	WorkZone             Value `json:"workzonerelddesc"`
	FatalInjury          Value `json:"fatalinjury"`
	SeriousInjury        Value `json:"suspectedseriousinjury"`
	MinorInjury          Value `json:"suspectedminorinjury"`
	Pedestrians          Value `json:"nonmotoristpedestrian"`
	Cyclists             Value `json:"nonmotoristcyclist"`
	HitAndRun            Value `json:"hitrunflag"`
	Address              Value `json:"address"`
	Latitude             Value `json:"latitude"`
	Longitude            Value `json:"longitude"`
}

// Field returns the named source field.
func (r RawIncident) Field(name string) (Value, error) {
	switch name {
	case FieldCrashNum:
		return r.CrashNum, nil
	case FieldCrashDate:
		return r.CrashDate, nil
	case FieldAmbientLight:
		return r.AmbientLight, nil
	case FieldWeather:
		return r.Weather, nil
	case FieldRoadSurface:
		return r.RoadSurface, nil
	case FieldTrafficControl:
		return r.TrafficControl, nil
	case FieldJunction:
		return r.Junction, nil
	case FieldTrafficway:
		return r.Trafficway, nil
	case FieldCollisionManner:
		return r.CollisionManner, nil
	case FieldHarmfulEventLocation:
		return r.HarmfulEventLocation, nil
	case FieldFirstHarmfulEvent:
		return r.FirstHarmfulEvent, nil
	case FieldWorkZone:
		return r.WorkZone, nil
	case FieldFatalInjury:
		return r.FatalInjury, nil
	case FieldSeriousInjury:
		return r.SeriousInjury, nil
	case FieldMinorInjury:
		return r.MinorInjury, nil
	case FieldPedestrians:
		return r.Pedestrians, nil
	case FieldCyclists:
		return r.Cyclists, nil
	case FieldHitAndRun:
		return r.HitAndRun, nil
	case FieldAddress:
		return r.Address, nil
	case FieldLatitude:
		return r.Latitude, nil
	case FieldLongitude:
		return r.Longitude, nil
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// DecodeRawIncidents parses the JSON array returned by the source API.
func DecodeRawIncidents(data []byte) ([]RawIncident, error) {
	var records []RawIncident
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode raw incidents: %w", err)
	}
	return records, nil
}

// NormalizedIncident is one incident row with every categorical attribute
// replaced by its surrogate id.
type NormalizedIncident struct {
	ID                     int       `json:"id"`
	CrashNum               *string   `json:"crash_num"`
	IncidentDate           *string   `json:"incident_date"`
	FirstHarmfulEvent      *string   `json:"first_harmful_event"`
	LightConditionID       int       `json:"light_conditions_id"`
	WeatherConditionID     int       `json:"weather_conditions_id"`
	RoadSurfaceID          int       `json:"road_surface_id"`
	TrafficControlDeviceID int       `json:"traffic_control_device_type_id"`
	IntersectionTypeID     int       `json:"roadway_intersection_type_id"`
	TrafficwayID           int       `json:"trafficway_id"`
	CollisionMannerID      int       `json:"collision_manner_id"`
	HarmfulEventLocationID int       `json:"harmful_event_location_id"`
	WorkZone               *string   `json:"is_work_zone"`
	FatalInjuries          int       `json:"cnt_fatal_injury"`
	SeriousInjuries        int       `json:"cnt_sus_serious_injury"`
	MinorInjuries          int       `json:"cnt_sus_minor_injury"`
	Pedestrians            int       `json:"cnt_pedestrian"`
	Cyclists               int       `json:"cnt_cyclist"`
	HitAndRun              *string   `json:"is_hit_and_run"`
	Location               *string   `json:"incident_location"`
	Latitude               *float64  `json:"latitude"`
	Longitude              *float64  `json:"longitude"`
	GeoSource              string    `json:"geo_source,omitempty"` // "source", "geocoded", "failed"
	FormattedAddress       string    `json:"formatted_address,omitempty"`
	PlaceName              string    `json:"place_name,omitempty"`
	GeoConfidence          float64   `json:"geo_confidence,omitempty"`
	LoadedAt               time.Time `json:"loaded_at"`
}

// Key returns the natural key used for deduplication, or "" when the source
// record had no crash number.
func (n NormalizedIncident) Key() string {
	if n.CrashNum == nil {
		return ""
	}
	return *n.CrashNum
}

// CategoryIDs returns the foreign-key ids in category order.
func (n NormalizedIncident) CategoryIDs() map[string]int {
	return map[string]int{
		LightConditions.Key:       n.LightConditionID,
		WeatherConditions.Key:     n.WeatherConditionID,
		RoadSurfaces.Key:          n.RoadSurfaceID,
		TrafficControlDevices.Key: n.TrafficControlDeviceID,
		IntersectionTypes.Key:     n.IntersectionTypeID,
		RoadTypes.Key:             n.TrafficwayID,
		CollisionTypes.Key:        n.CollisionMannerID,
		EventLocations.Key:        n.HarmfulEventLocationID,
	}
}

// LoadResult summarizes one load invocation.
type LoadResult struct {
	RunID    string
	Fetched  int
	Counts   map[string]int
	Duration time.Duration
}

// CountsKeyIncidents is the counts entry holding the number of normalized incidents.
const CountsKeyIncidents = "incidents"

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
