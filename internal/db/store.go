package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jamiefw/flux/internal/types"
)

// Store is the persistence facade. The Save methods used by the collectors
// write their whole batch inside one transaction: either every record of the
// run lands or none do. The read methods back the operational stats surface
// and run directly on the pool.
type Store struct {
	conn Conn
}

// NewStore creates a Store backed by the given pool.
func NewStore(conn Conn) *Store {
	return &Store{conn: conn}
}

// SaveVehiclePositions appends a batch of vehicle position observations.
func (s *Store) SaveVehiclePositions(ctx context.Context, records []types.VehiclePosition) error {
	if len(records) == 0 {
		return nil
	}
	return WithTx(ctx, s.conn, func(tx pgx.Tx) error {
		return NewVehiclePositionRepository(tx).InsertBatch(ctx, records)
	})
}

// SaveBikeStations upserts a batch of station reference records.
func (s *Store) SaveBikeStations(ctx context.Context, records []types.BikeStation) error {
	if len(records) == 0 {
		return nil
	}
	return WithTx(ctx, s.conn, func(tx pgx.Tx) error {
		return NewBikeStationRepository(tx).UpsertBatch(ctx, records)
	})
}

// SaveBikeStationStatus appends a batch of occupancy snapshots.
func (s *Store) SaveBikeStationStatus(ctx context.Context, records []types.BikeStationStatus) error {
	if len(records) == 0 {
		return nil
	}
	return WithTx(ctx, s.conn, func(tx pgx.Tx) error {
		return NewBikeStationStatusRepository(tx).InsertBatch(ctx, records)
	})
}

// SaveWeatherReadings appends a batch of weather readings.
func (s *Store) SaveWeatherReadings(ctx context.Context, records []types.WeatherReading) error {
	if len(records) == 0 {
		return nil
	}
	return WithTx(ctx, s.conn, func(tx pgx.Tx) error {
		return NewWeatherRepository(tx).InsertBatch(ctx, records)
	})
}

// VehiclePositionsSince returns how many vehicle observations carry an
// api_timestamp at or after cutoff.
func (s *Store) VehiclePositionsSince(ctx context.Context, cutoff time.Time) (int64, error) {
	return NewVehiclePositionRepository(s.conn).CountSince(ctx, cutoff)
}

// BikeStationCount returns the number of known bike stations.
func (s *Store) BikeStationCount(ctx context.Context) (int64, error) {
	return NewBikeStationRepository(s.conn).Count(ctx)
}

// LatestVehiclePositions returns the most recent observation per vehicle on
// the given route.
func (s *Store) LatestVehiclePositions(ctx context.Context, routeID string, limit int) ([]types.VehiclePosition, error) {
	return NewVehiclePositionRepository(s.conn).LatestByRoute(ctx, routeID, limit)
}
