package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamiefw/flux/internal/types"
)

// BikeStationRepository provides data access for the bike_stations reference
// table. Station identity is the GBFS station_id; writes are full-replace
// upserts so re-ingesting the same discovery snapshot is idempotent.
type BikeStationRepository struct {
	db DBTX
}

// NewBikeStationRepository creates a repository backed by the given database
// connection (pool or transaction).
func NewBikeStationRepository(db DBTX) *BikeStationRepository {
	return &BikeStationRepository{db: db}
}

// UpsertBatch writes a batch of station reference records in a single
// multi-row INSERT ... ON CONFLICT. An existing station row is fully
// replaced: every mutable column takes the incoming value, including columns
// the feed omitted (which become NULL). Partial merges would let stale
// attributes survive a station reconfiguration.
func (r *BikeStationRepository) UpsertBatch(ctx context.Context, records []types.BikeStation) error {
	if len(records) == 0 {
		return nil
	}

	const colCount = 12
	var sb strings.Builder
	sb.WriteString(`INSERT INTO bike_stations (
		station_id, name, latitude, longitude,
		capacity, rental_methods, external_id, address,
		region_id, is_charging_station, parking_type, last_updated
	) VALUES `)

	args := make([]any, 0, len(records)*colCount)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * colCount
		sb.WriteString("(")
		for j := 0; j < colCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j+1)
		}
		sb.WriteString(")")

		args = append(args,
			rec.StationID,
			rec.Name,
			rec.Latitude,
			rec.Longitude,
			rec.Capacity,
			rec.RentalMethods,
			rec.ExternalID,
			rec.Address,
			rec.RegionID,
			rec.IsChargingStation,
			rec.ParkingType,
			rec.LastUpdated,
		)
	}

	sb.WriteString(` ON CONFLICT (station_id) DO UPDATE SET
		name = EXCLUDED.name,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		capacity = EXCLUDED.capacity,
		rental_methods = EXCLUDED.rental_methods,
		external_id = EXCLUDED.external_id,
		address = EXCLUDED.address,
		region_id = EXCLUDED.region_id,
		is_charging_station = EXCLUDED.is_charging_station,
		parking_type = EXCLUDED.parking_type,
		last_updated = EXCLUDED.last_updated,
		updated_at = NOW()`)

	_, err := r.db.Exec(ctx, sb.String(), args...)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert bike station batch", err)
	}
	return nil
}

// Count returns the number of known stations.
func (r *BikeStationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bike_stations`).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count bike stations", err)
	}
	return count, nil
}

// BikeStationStatusRepository provides data access for the
// bike_station_status table. Rows are append-only occupancy snapshots; the
// station_id reference is advisory and deliberately not enforced on insert,
// so a status batch never fails because the information feed lagged behind.
type BikeStationStatusRepository struct {
	db DBTX
}

// NewBikeStationStatusRepository creates a repository backed by the given
// database connection (pool or transaction).
func NewBikeStationStatusRepository(db DBTX) *BikeStationStatusRepository {
	return &BikeStationStatusRepository{db: db}
}

// InsertBatch appends a batch of occupancy snapshots in a single multi-row
// INSERT.
func (r *BikeStationStatusRepository) InsertBatch(ctx context.Context, records []types.BikeStationStatus) error {
	if len(records) == 0 {
		return nil
	}

	const colCount = 9
	var sb strings.Builder
	sb.WriteString(`INSERT INTO bike_station_status (
		station_id, num_bikes_available, num_docks_available,
		num_ebikes_available, num_scooters_available,
		is_renting, is_returning, is_installed, last_reported
	) VALUES `)

	args := make([]any, 0, len(records)*colCount)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * colCount
		sb.WriteString("(")
		for j := 0; j < colCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j+1)
		}
		sb.WriteString(")")

		args = append(args,
			rec.StationID,
			rec.NumBikesAvailable,
			rec.NumDocksAvailable,
			rec.NumEbikesAvailable,
			rec.NumScootersAvailable,
			rec.IsRenting,
			rec.IsReturning,
			rec.IsInstalled,
			rec.LastReported,
		)
	}

	_, err := r.db.Exec(ctx, sb.String(), args...)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert bike station status batch", err)
	}
	return nil
}
