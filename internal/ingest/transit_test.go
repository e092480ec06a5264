package ingest

import (
	"context"
	"strings"
	"testing"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/jamiefw/flux/internal/config"
	"github.com/jamiefw/flux/internal/types"
)

func transitConfig() config.TransitConfig {
	return config.TransitConfig{
		SFBayAPIToken:       types.SecretString("token-123"),
		SFMTAAgencyID:       "SF",
		VehiclePositionsURL: "http://transit.test/VehiclePositions",
	}
}

func gtfsPayload(t *testing.T, vehicleIDs ...string) []byte {
	t.Helper()
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
	}
	for i, id := range vehicleIDs {
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{
			Id: proto.String(string(rune('1' + i))),
			Vehicle: &gtfsrtpb.VehiclePosition{
				Vehicle:   &gtfsrtpb.VehicleDescriptor{Id: proto.String(id)},
				Position:  &gtfsrtpb.Position{Latitude: proto.Float32(37.77), Longitude: proto.Float32(-122.41)},
				Timestamp: proto.Uint64(1700000000),
			},
		})
	}
	payload, err := proto.Marshal(fm)
	require.NoError(t, err)
	return payload
}

func TestTransitCollector_Collect(t *testing.T) {
	ctx := context.Background()

	t.Run("stores all decoded positions", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string][]byte{
			"http://transit.test/VehiclePositions": gtfsPayload(t, "5730", "5731"),
		}}
		store := &fakeStore{}
		c := NewTransitCollector(transitConfig(), fetcher, store, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeSuccess, result.Outcome)
		assert.Equal(t, 2, result.Fetched)
		assert.Equal(t, 2, result.Stored)
		assert.Zero(t, result.Skipped)
		require.Len(t, store.vehicleBatches, 1)
		assert.Len(t, store.vehicleBatches[0], 2)

		// The credential travels as a query parameter on the fetch URL.
		require.Len(t, fetcher.calls, 1)
		assert.Contains(t, fetcher.calls[0], "api_key=token-123")
		assert.Contains(t, fetcher.calls[0], "agency=SF")
	})

	t.Run("missing credential fails before any network call", func(t *testing.T) {
		cfg := transitConfig()
		cfg.SFBayAPIToken = ""
		fetcher := &fakeFetcher{}
		c := NewTransitCollector(cfg, fetcher, &fakeStore{}, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Equal(t, types.ErrCodeConfigMissingCredential, types.CodeOf(result.Err))
		assert.Empty(t, fetcher.calls)
	})

	t.Run("fetch failure fails the run", func(t *testing.T) {
		fetcher := &fakeFetcher{err: types.NewAppError(types.ErrCodeFetchExhausted, "gone", nil)}
		store := &fakeStore{}
		c := NewTransitCollector(transitConfig(), fetcher, store, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Equal(t, types.ErrCodeFetchExhausted, types.CodeOf(result.Err))
		assert.Empty(t, store.vehicleBatches)
	})

	t.Run("undecodable payload fails the run", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string][]byte{
			"http://transit.test/VehiclePositions": []byte("<html>garbage</html>"),
		}}
		c := NewTransitCollector(transitConfig(), fetcher, &fakeStore{}, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Equal(t, types.ErrCodeDecodeFailed, types.CodeOf(result.Err))
	})

	t.Run("persist failure fails the run", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string][]byte{
			"http://transit.test/VehiclePositions": gtfsPayload(t, "5730"),
		}}
		store := &fakeStore{vehicleErr: types.NewAppError(types.ErrCodeInternalDB, "insert failed", nil)}
		c := NewTransitCollector(transitConfig(), fetcher, store, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Equal(t, types.ErrCodeInternalDB, types.CodeOf(result.Err))
	})

	t.Run("empty feed is no_data", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string][]byte{
			"http://transit.test/VehiclePositions": gtfsPayload(t),
		}}
		store := &fakeStore{}
		c := NewTransitCollector(transitConfig(), fetcher, store, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeNoData, result.Outcome)
	})
}

func TestSiriCollector_Collect(t *testing.T) {
	ctx := context.Background()
	cfg := config.TransitConfig{
		MTABusAPIKey: types.SecretString("mta-key"),
		MTAAgencyID:  "MTA NYCT",
		MTALineRef:   "MTA NYCT_M15",
		SiriVMURL:    "http://siri.test/vehicle-monitoring.json",
	}

	t.Run("stores decoded journeys", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string][]byte{
			"http://siri.test/vehicle-monitoring.json": []byte(`{"Siri":{"ServiceDelivery":{"VehicleMonitoringDelivery":[{"VehicleActivity":[
				{"RecordedAtTime":"2026-03-01T12:00:05Z","MonitoredVehicleJourney":{
					"VehicleRef":"MTA NYCT_7533","LineRef":"MTA NYCT_M15",
					"VehicleLocation":{"Latitude":40.7128,"Longitude":-74.0060}}}
			]}]}}}`),
		}}
		store := &fakeStore{}
		c := NewSiriCollector(cfg, fetcher, store, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeSuccess, result.Outcome)
		assert.Equal(t, 1, result.Stored)
		require.Len(t, store.vehicleBatches, 1)
		assert.Equal(t, "MTA NYCT_7533", store.vehicleBatches[0][0].VehicleID)

		require.Len(t, fetcher.calls, 1)
		assert.Contains(t, fetcher.calls[0], "key=mta-key")
		assert.True(t, strings.Contains(fetcher.calls[0], "LineRef=MTA+NYCT_M15") ||
			strings.Contains(fetcher.calls[0], "LineRef=MTA%20NYCT_M15"))
	})

	t.Run("empty delivery is no_data", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string][]byte{
			"http://siri.test/vehicle-monitoring.json": []byte(`{"Siri":{"ServiceDelivery":{"VehicleMonitoringDelivery":[{}]}}}`),
		}}
		store := &fakeStore{}
		c := NewSiriCollector(cfg, fetcher, store, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeNoData, result.Outcome)
		assert.Zero(t, result.Stored)
	})

	t.Run("missing credential fails before any network call", func(t *testing.T) {
		noKey := cfg
		noKey.MTABusAPIKey = ""
		fetcher := &fakeFetcher{}
		c := NewSiriCollector(noKey, fetcher, &fakeStore{}, nil)

		result := c.Collect(ctx)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Equal(t, types.ErrCodeConfigMissingCredential, types.CodeOf(result.Err))
		assert.Empty(t, fetcher.calls)
	})
}
