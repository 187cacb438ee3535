// Package domain models motor-vehicle crash reports published by the City of
// Somerville, MA open-data portal and their normalized relational form.
//
// # Data Source
//
// Crash reports come from the Socrata resource mtik-28va
// (https://data.somervillema.gov/resource/mtik-28va.json), one flat JSON
// object per crash. Field names follow the MassDOT crash data dictionary,
// e.g. "weathcond1desc" for the first weather condition and "ambntlightdesc"
// for ambient light. Socrata returns every column as a string; missing values
// are omitted from the object rather than sent as null.
//
// # Categories
//
// Eight descriptive columns repeat a small set of values and are normalized
// into lookup tables with surrogate integer ids:
//
//	ambntlightdesc     → light_conditions
//	weathcond1desc     → weather_conditions
//	roadsurfdesc       → road_surface
//	trafcntrltypedesc  → traffic_control_device_type
//	rdwyjuncdesc       → roadway_intersection_type
//	trafydescrdesc     → trafficway
//	manrcolldesc       → collision_manner
//	hrmfeventdesc1     → harmful_event_location
//
// Values are trimmed before comparison and blank values are skipped. Ids are
// assigned 1..N in the order values are first seen within one batch; see
// [BuildLookup]. An incident whose value is blank or unknown is linked to id 1
// by [ResolveCategoryID].
//
// # Incidents
//
// "crashnum" is the natural key. Each normalized incident also gets a
// surrogate id in processing order, which is not stable across loads. Injury
// and non-motorist counts ("fatalinjury", "suspectedseriousinjury",
// "suspectedminorinjury", "nonmotoristpedestrian", "nonmotoristcyclist")
// default to 0 when blank or unparsable. Date, flags, address and coordinates
// pass through unchanged, with coordinates parsed to floating point.
package domain
