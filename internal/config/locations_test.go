package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocationsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLocations(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		locs, err := LoadLocations(WeatherConfig{})
		require.NoError(t, err)
		require.Len(t, locs, 2)
		assert.Equal(t, "San Francisco", locs[0].Name)
		assert.Equal(t, "New York City", locs[1].Name)
	})

	t.Run("reads a YAML file", func(t *testing.T) {
		path := writeLocationsFile(t, `
locations:
  - name: Oakland
    lat: 37.8044
    lon: -122.2712
`)
		locs, err := LoadLocations(WeatherConfig{LocationsFile: path})
		require.NoError(t, err)
		require.Len(t, locs, 1)
		assert.Equal(t, "Oakland", locs[0].Name)
		assert.InDelta(t, 37.8044, locs[0].Latitude, 1e-9)
		assert.InDelta(t, -122.2712, locs[0].Longitude, 1e-9)
	})

	t.Run("missing file is an error, not a fallback", func(t *testing.T) {
		_, err := LoadLocations(WeatherConfig{LocationsFile: "/nonexistent/locations.yaml"})
		require.Error(t, err)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, ErrLocations, cfgErr.Type)
	})

	t.Run("malformed YAML is an error", func(t *testing.T) {
		path := writeLocationsFile(t, "locations: [not: valid: yaml")
		_, err := LoadLocations(WeatherConfig{LocationsFile: path})
		require.Error(t, err)
	})

	t.Run("empty locations list is an error", func(t *testing.T) {
		path := writeLocationsFile(t, "locations: []")
		_, err := LoadLocations(WeatherConfig{LocationsFile: path})
		require.Error(t, err)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, ErrLocations, cfgErr.Type)
	})
}
