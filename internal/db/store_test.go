package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockConn adds transaction support to mockDBTX so it satisfies Conn.
type mockConn struct {
	mockDBTX
}

func (m *mockConn) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(pgx.Tx), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestStoreReads(t *testing.T) {
	ctx := context.Background()

	t.Run("VehiclePositionsSince queries the observations table", func(t *testing.T) {
		conn := new(mockConn)
		store := NewStore(conn)

		var gotSQL string
		conn.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
			Run(func(args mock.Arguments) { gotSQL = args.String(1) }).
			Return(&mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*int64) = 1200
				return nil
			}})

		count, err := store.VehiclePositionsSince(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1200), count)
		assert.Contains(t, gotSQL, "vehicle_positions")
	})

	t.Run("BikeStationCount queries the reference table", func(t *testing.T) {
		conn := new(mockConn)
		store := NewStore(conn)

		var gotSQL string
		conn.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
			Run(func(args mock.Arguments) { gotSQL = args.String(1) }).
			Return(&mockRow{scanFn: func(dest ...any) error {
				*dest[0].(*int64) = 340
				return nil
			}})

		count, err := store.BikeStationCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(340), count)
		assert.Contains(t, gotSQL, "bike_stations")
	})

	t.Run("LatestVehiclePositions queries by route", func(t *testing.T) {
		conn := new(mockConn)
		store := NewStore(conn)

		var gotArgs []any
		conn.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
			Run(func(args mock.Arguments) { gotArgs = args.Get(2).([]any) }).
			Return(&mockRows{}, nil)

		results, err := store.LatestVehiclePositions(ctx, "14", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, []any{"14", 5}, gotArgs)
	})
}
