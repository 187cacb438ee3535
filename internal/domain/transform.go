package domain

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeIncidents resolves every raw record against the batch lookups.
// Surrogate ids follow processing order starting at 1.
func NormalizeIncidents(records []RawIncident, lookups Lookups) []NormalizedIncident {
	out := make([]NormalizedIncident, 0, len(records))
	for i, rec := range records {
		out = append(out, NormalizeIncident(i+1, rec, lookups))
	}
	return out
}

// NormalizeIncident builds one normalized row. Category values are resolved
// through ResolveCategoryID, counts default to 0, passthrough fields are nil
// when absent from the source record.
func NormalizeIncident(id int, rec RawIncident, lookups Lookups) NormalizedIncident {
	n := NormalizedIncident{
		ID:                     id,
		CrashNum:               rec.CrashNum.Ptr(),
		IncidentDate:           rec.CrashDate.Ptr(),
		FirstHarmfulEvent:      trimmedPtr(rec.FirstHarmfulEvent),
		LightConditionID:       ResolveCategoryID(lookups[LightConditions.Key], rec.AmbientLight),
		WeatherConditionID:     ResolveCategoryID(lookups[WeatherConditions.Key], rec.Weather),
		RoadSurfaceID:          ResolveCategoryID(lookups[RoadSurfaces.Key], rec.RoadSurface),
		TrafficControlDeviceID: ResolveCategoryID(lookups[TrafficControlDevices.Key], rec.TrafficControl),
		IntersectionTypeID:     ResolveCategoryID(lookups[IntersectionTypes.Key], rec.Junction),
		TrafficwayID:           ResolveCategoryID(lookups[RoadTypes.Key], rec.Trafficway),
		CollisionMannerID:      ResolveCategoryID(lookups[CollisionTypes.Key], rec.CollisionManner),
		HarmfulEventLocationID: ResolveCategoryID(lookups[EventLocations.Key], rec.HarmfulEventLocation),
		WorkZone:               rec.WorkZone.Ptr(),
		FatalInjuries:          parseCount(rec.FatalInjury),
		SeriousInjuries:        parseCount(rec.SeriousInjury),
		MinorInjuries:          parseCount(rec.MinorInjury),
		Pedestrians:            parseCount(rec.Pedestrians),
		Cyclists:               parseCount(rec.Cyclists),
		HitAndRun:              rec.HitAndRun.Ptr(),
		Location:               rec.Address.Ptr(),
		Latitude:               parseCoordinate(rec.Latitude),
		Longitude:              parseCoordinate(rec.Longitude),
		LoadedAt:               clock.Now().UTC(),
	}
	if n.Latitude != nil && n.Longitude != nil {
		n.GeoSource = GeoSourceOriginal
	}
	return n
}

func trimmedPtr(v Value) *string {
	if !v.Present {
		return nil
	}
	s := strings.TrimSpace(v.Raw)
	return &s
}

// parseCount reads an integer count. Decimal strings are truncated toward
// zero; anything else, including values beyond the int range, counts as 0.
func parseCount(v Value) int {
	s := v.Trimmed()
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0
	}
	return int(f)
}

// parseCoordinate reads a latitude or longitude. Unparsable text is treated
// as absent.
func parseCoordinate(v Value) *float64 {
	s := v.Trimmed()
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
