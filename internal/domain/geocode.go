package domain

import (
	"context"
	"log/slog"
	"strings"
)

// Values stored in NormalizedIncident.GeoSource.
const (
	GeoSourceOriginal = "source"
	GeoSourceGeocoded = "geocoded"
	GeoSourceFailed   = "failed"
)

// EnrichWithGeocoding fills in coordinates for an incident that has a street
// address but no latitude/longitude. Incidents that already carry coordinates,
// have no address, or hit a geocoder error are returned unchanged apart from
// GeoSource.
func EnrichWithGeocoding(ctx context.Context, incident NormalizedIncident, geocoder Geocoder, logger *slog.Logger) NormalizedIncident {
	if geocoder == nil {
		return incident
	}
	if incident.Latitude != nil && incident.Longitude != nil {
		return incident
	}
	if incident.Location == nil || strings.TrimSpace(*incident.Location) == "" {
		return incident
	}

	result, err := geocoder.ForwardGeocode(ctx, strings.TrimSpace(*incident.Location))
	if err != nil {
		logger.Warn("forward geocoding failed",
			"incident_id", incident.ID,
			"crash_num", incident.Key(),
			"address", *incident.Location,
			"error", err,
		)
		incident.GeoSource = GeoSourceFailed
		return incident
	}
	if result.Lat == 0 && result.Lon == 0 {
		return incident
	}

	lat, lon := result.Lat, result.Lon
	incident.Latitude = &lat
	incident.Longitude = &lon
	incident.FormattedAddress = result.FormattedAddress
	incident.PlaceName = result.PlaceName
	incident.GeoConfidence = result.Confidence
	incident.GeoSource = GeoSourceGeocoded
	return incident
}
