// Package types defines the domain record shapes shared by the decoders,
// the record validator, and the persistence layer, plus the platform-wide
// error and secret types.
//
// Decoded candidate records use pointer fields for every attribute an
// upstream feed may omit, including attributes the persisted schema requires.
// This keeps "missing" distinct from a zero value until the record validator
// has ruled on it; the `validate` tags mirror the column constraints of the
// persisted schema (varchar ceilings, coordinate ranges, non-negative
// counters).
package types

import "time"

// VehiclePosition is a single point-in-time observation of a transit vehicle,
// decoded from either a GTFS-Realtime or a SIRI-VM feed. Stored rows are
// immutable observations: append-only, keyed loosely by
// (vehicle_id, api_timestamp), duplicates across runs accepted.
type VehiclePosition struct {
	VehicleID           string     `json:"vehicle_id" validate:"required,max=50"`
	TripID              *string    `json:"trip_id" validate:"omitempty,max=100"`
	RouteID             *string    `json:"route_id" validate:"omitempty,max=50"`
	StartDate           *time.Time `json:"start_date" validate:"-"`
	Latitude            *float64   `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude           *float64   `json:"longitude" validate:"required,min=-180,max=180"`
	Bearing             *float64   `json:"bearing" validate:"omitempty,min=0,max=360"`
	SpeedMPS            *float64   `json:"speed_mps" validate:"omitempty,gte=0"`
	CurrentStopSequence *int       `json:"current_stop_sequence" validate:"omitempty,gte=0"`
	CurrentStatus       *string    `json:"current_status" validate:"omitempty,max=50"`
	APITimestamp        time.Time  `json:"api_timestamp" validate:"required"`
}

// Key identifies the record in skip logs.
func (v VehiclePosition) Key() string { return v.VehicleID }

// BikeStation is slowly-changing reference data for one docking station,
// decoded from a GBFS station_information feed. At most one row exists per
// StationID; writes are full-replace upserts.
type BikeStation struct {
	StationID         string     `json:"station_id" validate:"required,max=50"`
	Name              string     `json:"name" validate:"required,max=255"`
	Latitude          *float64   `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude         *float64   `json:"longitude" validate:"required,min=-180,max=180"`
	Capacity          *int       `json:"capacity" validate:"omitempty,gte=0"`
	RentalMethods     *string    `json:"rental_methods" validate:"omitempty,max=255"`
	ExternalID        *string    `json:"external_id" validate:"omitempty,max=255"`
	Address           *string    `json:"address" validate:"omitempty,max=255"`
	RegionID          *string    `json:"region_id" validate:"omitempty,max=50"`
	IsChargingStation *bool      `json:"is_charging_station" validate:"-"`
	ParkingType       *string    `json:"parking_type" validate:"omitempty,max=50"`
	LastUpdated       *time.Time `json:"last_updated" validate:"-"`
}

// Key identifies the record in skip logs.
func (s BikeStation) Key() string { return s.StationID }

// BikeStationStatus is a real-time occupancy snapshot, one row per station
// per fetch, decoded from a GBFS station_status feed. Append-only; the
// StationID reference to BikeStation is advisory and not checked on insert.
type BikeStationStatus struct {
	StationID            string    `json:"station_id" validate:"required,max=50"`
	NumBikesAvailable    *int      `json:"num_bikes_available" validate:"required,gte=0"`
	NumDocksAvailable    *int      `json:"num_docks_available" validate:"required,gte=0"`
	NumEbikesAvailable   *int      `json:"num_ebikes_available" validate:"omitempty,gte=0"`
	NumScootersAvailable *int      `json:"num_scooters_available" validate:"omitempty,gte=0"`
	IsRenting            *bool     `json:"is_renting" validate:"required"`
	IsReturning          *bool     `json:"is_returning" validate:"required"`
	IsInstalled          *bool     `json:"is_installed" validate:"required"`
	LastReported         time.Time `json:"last_reported" validate:"required"`
}

// Key identifies the record in skip logs.
func (s BikeStationStatus) Key() string { return s.StationID }

// WeatherReading is one observation for a fixed monitored location per fetch.
// Append-only; APITimestamp is the observation instant reported by the
// source, never the fetch time.
type WeatherReading struct {
	LocationName       string    `json:"location_name" validate:"required,max=50"`
	Latitude           *float64  `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude          *float64  `json:"longitude" validate:"required,min=-180,max=180"`
	TemperatureCelsius *float64  `json:"temperature_celsius" validate:"-"`
	HumidityPercent    *int      `json:"humidity_percent" validate:"omitempty,gte=0,lte=100"`
	WindSpeedMPS       *float64  `json:"wind_speed_mps" validate:"omitempty,gte=0"`
	WeatherCondition   *string   `json:"weather_condition" validate:"omitempty,max=255"`
	WeatherDescription *string   `json:"weather_description" validate:"omitempty,max=255"`
	Precipitation1hMM  *float64  `json:"precipitation_1h_mm" validate:"omitempty,gte=0"`
	APITimestamp       time.Time `json:"api_timestamp" validate:"required"`
}

// Key identifies the record in skip logs.
func (w WeatherReading) Key() string { return w.LocationName }

// Keyed is implemented by every domain record so batch validation can log
// the identifying key of a rejected record.
type Keyed interface {
	Key() string
}
