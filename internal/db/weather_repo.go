package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamiefw/flux/internal/types"
)

// WeatherRepository provides data access for the weather_data table. Rows
// are append-only observations keyed loosely by (location_name,
// api_timestamp); a provider serving the same observation across two fetches
// produces two rows and downstream consumers dedupe on read.
type WeatherRepository struct {
	db DBTX
}

// NewWeatherRepository creates a repository backed by the given database
// connection (pool or transaction).
func NewWeatherRepository(db DBTX) *WeatherRepository {
	return &WeatherRepository{db: db}
}

// InsertBatch appends a batch of weather readings in a single multi-row
// INSERT.
func (r *WeatherRepository) InsertBatch(ctx context.Context, records []types.WeatherReading) error {
	if len(records) == 0 {
		return nil
	}

	const colCount = 10
	var sb strings.Builder
	sb.WriteString(`INSERT INTO weather_data (
		location_name, latitude, longitude,
		temperature, humidity, wind_speed,
		weather_condition, weather_description, precipitation_1h,
		api_timestamp
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
			rec.LocationName,
			rec.Latitude,
			rec.Longitude,
			rec.TemperatureCelsius,
			rec.HumidityPercent,
			rec.WindSpeedMPS,
			rec.WeatherCondition,
			rec.WeatherDescription,
			rec.Precipitation1hMM,
			rec.APITimestamp,
		)
	}

	_, err := r.db.Exec(ctx, sb.String(), args...)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert weather batch", err)
	}
	return nil
}
