package ingest

import (
	"context"

	"github.com/jamiefw/flux/internal/types"
)

// The store interfaces below are the slices of db.Store each collector
// needs. Collectors depend on these rather than the concrete store so tests
// can observe persisted batches without a database.

// VehicleStore persists vehicle position batches.
type VehicleStore interface {
	SaveVehiclePositions(ctx context.Context, records []types.VehiclePosition) error
}

// BikeshareStore persists station reference and occupancy batches.
type BikeshareStore interface {
	SaveBikeStations(ctx context.Context, records []types.BikeStation) error
	SaveBikeStationStatus(ctx context.Context, records []types.BikeStationStatus) error
}

// WeatherStore persists weather reading batches.
type WeatherStore interface {
	SaveWeatherReadings(ctx context.Context, records []types.WeatherReading) error
}
