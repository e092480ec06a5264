package decode

import (
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/jamiefw/flux/internal/types"
)

func marshalFeed(t *testing.T, fm *gtfsrtpb.FeedMessage) []byte {
	t.Helper()
	payload, err := proto.Marshal(fm)
	require.NoError(t, err)
	return payload
}

func TestVehiclePositionsFromGTFSRT(t *testing.T) {
	decodedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("decodes full and sparse entities from one feed", func(t *testing.T) {
		fm := &gtfsrtpb.FeedMessage{
			Header: &gtfsrtpb.FeedHeader{
				GtfsRealtimeVersion: proto.String("2.0"),
				Timestamp:           proto.Uint64(1690000000),
			},
			Entity: []*gtfsrtpb.FeedEntity{
				{
					Id: proto.String("1"),
					Vehicle: &gtfsrtpb.VehiclePosition{
						Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String("5730")},
						Trip: &gtfsrtpb.TripDescriptor{
							TripId:    proto.String("11277599"),
							RouteId:   proto.String("14R"),
							StartDate: proto.String("20260301"),
						},
						Position: &gtfsrtpb.Position{
							Latitude:  proto.Float32(37.7749),
							Longitude: proto.Float32(-122.4194),
							Bearing:   proto.Float32(135),
							Speed:     proto.Float32(6.7),
						},
						CurrentStopSequence: proto.Uint32(12),
						CurrentStatus:       gtfsrtpb.VehiclePosition_IN_TRANSIT_TO.Enum(),
						Timestamp:           proto.Uint64(1700000000),
					},
				},
				{
					Id: proto.String("2"),
					Vehicle: &gtfsrtpb.VehiclePosition{
						Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String("5731")},
						Position: &gtfsrtpb.Position{
							Latitude:  proto.Float32(37.76),
							Longitude: proto.Float32(-122.42),
						},
					},
				},
			},
		}

		records, err := VehiclePositionsFromGTFSRT(marshalFeed(t, fm), decodedAt)
		require.NoError(t, err)
		require.Len(t, records, 2)

		full := records[0]
		assert.Equal(t, "5730", full.VehicleID)
		require.NotNil(t, full.TripID)
		assert.Equal(t, "11277599", *full.TripID)
		require.NotNil(t, full.RouteID)
		assert.Equal(t, "14R", *full.RouteID)
		require.NotNil(t, full.StartDate)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *full.StartDate)
		require.NotNil(t, full.Latitude)
		assert.InDelta(t, 37.7749, *full.Latitude, 0.0001)
		require.NotNil(t, full.Bearing)
		assert.InDelta(t, 135, *full.Bearing, 0.001)
		require.NotNil(t, full.SpeedMPS)
		assert.InDelta(t, 6.7, *full.SpeedMPS, 0.001)
		require.NotNil(t, full.CurrentStopSequence)
		assert.Equal(t, 12, *full.CurrentStopSequence)
		require.NotNil(t, full.CurrentStatus)
		assert.Equal(t, "IN_TRANSIT_TO", *full.CurrentStatus)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), full.APITimestamp)

		// The sparse entity keeps its missing attributes nil and gets the
		// decode instant, not the feed header timestamp.
		sparse := records[1]
		assert.Equal(t, "5731", sparse.VehicleID)
		assert.Nil(t, sparse.TripID)
		assert.Nil(t, sparse.RouteID)
		assert.Nil(t, sparse.CurrentStatus)
		assert.Equal(t, decodedAt, sparse.APITimestamp)
	})

	t.Run("ignores entities without a vehicle position", func(t *testing.T) {
		fm := &gtfsrtpb.FeedMessage{
			Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
			Entity: []*gtfsrtpb.FeedEntity{
				{
					Id:    proto.String("alert-1"),
					Alert: &gtfsrtpb.Alert{},
				},
			},
		}

		records, err := VehiclePositionsFromGTFSRT(marshalFeed(t, fm), decodedAt)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("rejects a payload that is not a feed message", func(t *testing.T) {
		_, err := VehiclePositionsFromGTFSRT([]byte("<html>not protobuf</html>"), decodedAt)
		require.Error(t, err)
		assert.Equal(t, types.ErrCodeDecodeFailed, types.CodeOf(err))
	})

	t.Run("decodes an empty feed to zero records", func(t *testing.T) {
		fm := &gtfsrtpb.FeedMessage{
			Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		}

		records, err := VehiclePositionsFromGTFSRT(marshalFeed(t, fm), decodedAt)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
