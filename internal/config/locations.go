package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Location is one fixed monitored point for weather collection. Name is the
// stable identifier stored with every reading, not a free-form place name.
type Location struct {
	Name      string  `yaml:"name" validate:"required,max=50"`
	Latitude  float64 `yaml:"lat" validate:"min=-90,max=90"`
	Longitude float64 `yaml:"lon" validate:"min=-180,max=180"`
}

// DefaultLocations are the built-in monitored points used when no locations
// file is configured.
var DefaultLocations = []Location{
	{Name: "San Francisco", Latitude: 37.7749, Longitude: -122.4194},
	{Name: "New York City", Latitude: 40.7128, Longitude: -74.0060},
}

// locationsFile is the YAML shape of a weather locations file:
//
//	locations:
//	  - name: San Francisco
//	    lat: 37.7749
//	    lon: -122.4194
type locationsFile struct {
	Locations []Location `yaml:"locations"`
}

// LoadLocations resolves the monitored weather locations for the given
// config: the YAML file when one is configured, the built-in defaults
// otherwise. An unreadable or empty file is an error rather than a silent
// fallback so a typoed path does not quietly change what gets monitored.
func LoadLocations(cfg WeatherConfig) ([]Location, error) {
	if cfg.LocationsFile == "" {
		return DefaultLocations, nil
	}

	raw, err := os.ReadFile(cfg.LocationsFile)
	if err != nil {
		return nil, &ConfigError{
			Type:    ErrLocations,
			Message: fmt.Sprintf("failed to read weather locations file %s", cfg.LocationsFile),
			Err:     err,
		}
	}

	var lf locationsFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return nil, &ConfigError{
			Type:    ErrLocations,
			Message: fmt.Sprintf("failed to parse weather locations file %s", cfg.LocationsFile),
			Err:     err,
		}
	}
	if len(lf.Locations) == 0 {
		return nil, &ConfigError{
			Type:    ErrLocations,
			Message: fmt.Sprintf("weather locations file %s defines no locations", cfg.LocationsFile),
		}
	}

	return lf.Locations, nil
}
