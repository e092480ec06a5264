package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jamiefw/flux/internal/types"
)

// VehiclePositionRepository provides data access for the vehicle_positions
// table. Rows are append-only observations; there is no update path and
// duplicate observations across runs are accepted.
type VehiclePositionRepository struct {
	db DBTX
}

// NewVehiclePositionRepository creates a repository backed by the given
// database connection (pool or transaction).
func NewVehiclePositionRepository(db DBTX) *VehiclePositionRepository {
	return &VehiclePositionRepository{db: db}
}

// InsertBatch appends a batch of vehicle position observations in a single
// multi-row INSERT. The statement is atomic on its own; callers that persist
// multiple tables per run wrap it in WithTx.
func (r *VehiclePositionRepository) InsertBatch(ctx context.Context, records []types.VehiclePosition) error {
	if len(records) == 0 {
		return nil
	}

	const colCount = 11
	var sb strings.Builder
	sb.WriteString(`INSERT INTO vehicle_positions (
		vehicle_id, trip_id, route_id, start_date,
		latitude, longitude, bearing, speed,
		current_stop_sequence, current_status, api_timestamp
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
			rec.VehicleID,
			rec.TripID,
			rec.RouteID,
			rec.StartDate,
			rec.Latitude,
			rec.Longitude,
			rec.Bearing,
			rec.SpeedMPS,
			rec.CurrentStopSequence,
			rec.CurrentStatus,
			rec.APITimestamp,
		)
	}

	_, err := r.db.Exec(ctx, sb.String(), args...)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert vehicle position batch", err)
	}
	return nil
}

// CountSince returns the number of observations with api_timestamp at or
// after the cutoff. Backs the recent-ingest figure on the stats surface.
func (r *VehiclePositionRepository) CountSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM vehicle_positions WHERE api_timestamp >= $1`,
		cutoff,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count vehicle positions", err)
	}
	return count, nil
}

// LatestByRoute returns the most recent observation per vehicle on a route.
// Backs the per-route vehicle listing on the stats surface.
func (r *VehiclePositionRepository) LatestByRoute(ctx context.Context, routeID string, limit int) ([]types.VehiclePosition, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (vehicle_id)
			vehicle_id, trip_id, route_id, start_date,
			latitude, longitude, bearing, speed,
			current_stop_sequence, current_status, api_timestamp
		 FROM vehicle_positions
		 WHERE route_id = $1
		 ORDER BY vehicle_id, api_timestamp DESC
		 LIMIT $2`,
		routeID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query vehicle positions by route", err)
	}
	defer rows.Close()

	var results []types.VehiclePosition
	for rows.Next() {
		rec, scanErr := scanVehiclePosition(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan vehicle position row", scanErr)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating vehicle position rows", err)
	}
	return results, nil
}

func scanVehiclePosition(rows pgx.Rows) (types.VehiclePosition, error) {
	var rec types.VehiclePosition
	err := rows.Scan(
		&rec.VehicleID,
		&rec.TripID,
		&rec.RouteID,
		&rec.StartDate,
		&rec.Latitude,
		&rec.Longitude,
		&rec.Bearing,
		&rec.SpeedMPS,
		&rec.CurrentStopSequence,
		&rec.CurrentStatus,
		&rec.APITimestamp,
	)
	return rec, err
}
