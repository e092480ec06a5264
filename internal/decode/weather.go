package decode

import (
	"github.com/jamiefw/flux/internal/types"
)

// ReadingFromWeather decodes an OpenWeather current-conditions response into
// a candidate reading for one monitored location. The location name and
// coordinates come from configuration, not the payload, so readings stay
// keyed to the stable monitored point even when the provider resolves the
// query to a nearby station.
//
// A response without the dt observation timestamp is skipped outright
// (nil record, nil error): a reading without an observation instant is
// useless and there is no defensible fallback for it.
func ReadingFromWeather(payload []byte, name string, lat, lon float64) (*types.WeatherReading, error) {
	root, err := unmarshalObj(payload, "payload is not a valid weather response")
	if err != nil {
		return nil, err
	}

	observedAt, ok := root.epoch("dt")
	if !ok {
		return nil, nil
	}

	rec := &types.WeatherReading{
		LocationName: name,
		Latitude:     f64Ptr(lat),
		Longitude:    f64Ptr(lon),
		APITimestamp: observedAt,
	}

	if main, ok := root.child("main"); ok {
		if temp, ok := main.f64("temp"); ok {
			rec.TemperatureCelsius = f64Ptr(temp)
		}
		if humidity, ok := main.integer("humidity"); ok {
			rec.HumidityPercent = intPtr(humidity)
		}
	}
	if wind, ok := root.child("wind"); ok {
		if speed, ok := wind.f64("speed"); ok {
			rec.WindSpeedMPS = f64Ptr(speed)
		}
	}
	if conditions, ok := root.list("weather"); ok && len(conditions) > 0 {
		if first, ok := asObj(conditions[0]); ok {
			if cond, ok := first.str("main"); ok {
				rec.WeatherCondition = strPtr(cond)
			}
			if desc, ok := first.str("description"); ok {
				rec.WeatherDescription = strPtr(desc)
			}
		}
	}

	// Rain takes precedence over snow when both report a 1h volume.
	if rain, ok := root.child("rain"); ok {
		if mm, ok := rain.f64("1h"); ok {
			rec.Precipitation1hMM = f64Ptr(mm)
		}
	}
	if rec.Precipitation1hMM == nil {
		if snow, ok := root.child("snow"); ok {
			if mm, ok := snow.f64("1h"); ok {
				rec.Precipitation1hMM = f64Ptr(mm)
			}
		}
	}

	return rec, nil
}
