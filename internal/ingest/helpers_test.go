package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jamiefw/flux/internal/types"
)

// fakeFetcher serves canned payloads by URL prefix, so tests never depend on
// the exact query-string ordering of the built URL.
type fakeFetcher struct {
	responses map[string][]byte
	err       error
	calls     []string
}

func (f *fakeFetcher) GetBytes(_ context.Context, rawURL string) ([]byte, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	for prefix, body := range f.responses {
		if strings.HasPrefix(rawURL, prefix) {
			return body, nil
		}
	}
	return nil, fmt.Errorf("unexpected fetch of %s", rawURL)
}

func (f *fakeFetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := f.GetBytes(ctx, rawURL)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// fakeStore records every persisted batch.
type fakeStore struct {
	vehicleBatches [][]types.VehiclePosition
	stationBatches [][]types.BikeStation
	statusBatches  [][]types.BikeStationStatus
	weatherBatches [][]types.WeatherReading

	vehicleErr error
	stationErr error
	statusErr  error
	weatherErr error
}

func (s *fakeStore) SaveVehiclePositions(_ context.Context, records []types.VehiclePosition) error {
	if s.vehicleErr != nil {
		return s.vehicleErr
	}
	s.vehicleBatches = append(s.vehicleBatches, records)
	return nil
}

func (s *fakeStore) SaveBikeStations(_ context.Context, records []types.BikeStation) error {
	if s.stationErr != nil {
		return s.stationErr
	}
	s.stationBatches = append(s.stationBatches, records)
	return nil
}

func (s *fakeStore) SaveBikeStationStatus(_ context.Context, records []types.BikeStationStatus) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statusBatches = append(s.statusBatches, records)
	return nil
}

func (s *fakeStore) SaveWeatherReadings(_ context.Context, records []types.WeatherReading) error {
	if s.weatherErr != nil {
		return s.weatherErr
	}
	s.weatherBatches = append(s.weatherBatches, records)
	return nil
}

// fakeDirectory resolves feed names to fixed URLs.
type fakeDirectory struct {
	system string
	urls   map[string]string
	err    error
}

func (d *fakeDirectory) System() string { return d.system }

func (d *fakeDirectory) URL(_ context.Context, name string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	u, ok := d.urls[name]
	if !ok {
		return "", fmt.Errorf("no url for feed %s", name)
	}
	return u, nil
}
