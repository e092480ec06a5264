package decode

import (
	"strings"

	"github.com/jamiefw/flux/internal/types"
)

// StationsFromGBFS decodes a GBFS station_information feed into candidate
// bikeshare station reference records. The feed-level last_updated instant is
// stamped on every station so the upsert can record when the reference data
// was last observed.
func StationsFromGBFS(payload []byte) ([]types.BikeStation, error) {
	root, stations, err := gbfsStations(payload, "station_information")
	if err != nil {
		return nil, err
	}
	feedUpdated, feedUpdatedOK := root.epoch("last_updated")

	records := make([]types.BikeStation, 0, len(stations))
	for _, raw := range stations {
		st, ok := asObj(raw)
		if !ok {
			continue
		}

		rec := types.BikeStation{}
		if id, ok := st.str("station_id"); ok {
			rec.StationID = id
		}
		if name, ok := st.str("name"); ok {
			rec.Name = name
		}
		if lat, ok := st.f64("lat"); ok {
			rec.Latitude = f64Ptr(lat)
		}
		if lon, ok := st.f64("lon"); ok {
			rec.Longitude = f64Ptr(lon)
		}
		if capacity, ok := st.integer("capacity"); ok {
			rec.Capacity = intPtr(capacity)
		}
		if methods, ok := st.list("rental_methods"); ok {
			if joined := joinStrings(methods); joined != "" {
				rec.RentalMethods = strPtr(joined)
			}
		}
		if ext, ok := st.str("external_id"); ok {
			rec.ExternalID = strPtr(ext)
		}
		if addr, ok := st.str("address"); ok {
			rec.Address = strPtr(addr)
		}
		if region, ok := st.str("region_id"); ok {
			rec.RegionID = strPtr(region)
		}
		if charging, ok := st.boolish("is_charging_station"); ok {
			rec.IsChargingStation = boolPtr(charging)
		}
		if parking, ok := st.str("station_type"); ok {
			rec.ParkingType = strPtr(parking)
		}
		if feedUpdatedOK {
			rec.LastUpdated = timePtr(feedUpdated)
		}

		records = append(records, rec)
	}
	return records, nil
}

// StationStatusFromGBFS decodes a GBFS station_status feed into candidate
// occupancy snapshot records. A station that omits its own last_reported
// falls back to the feed-level last_updated instant; when neither is present
// LastReported stays zero and the record validator rejects the record.
func StationStatusFromGBFS(payload []byte) ([]types.BikeStationStatus, error) {
	root, stations, err := gbfsStations(payload, "station_status")
	if err != nil {
		return nil, err
	}
	feedUpdated, feedUpdatedOK := root.epoch("last_updated")

	records := make([]types.BikeStationStatus, 0, len(stations))
	for _, raw := range stations {
		st, ok := asObj(raw)
		if !ok {
			continue
		}

		rec := types.BikeStationStatus{}
		if id, ok := st.str("station_id"); ok {
			rec.StationID = id
		}
		if n, ok := st.integer("num_bikes_available"); ok {
			rec.NumBikesAvailable = intPtr(n)
		}
		if n, ok := st.integer("num_docks_available"); ok {
			rec.NumDocksAvailable = intPtr(n)
		}
		if n, ok := st.integer("num_ebikes_available"); ok {
			rec.NumEbikesAvailable = intPtr(n)
		}
		if n, ok := st.integer("num_scooters_available"); ok {
			rec.NumScootersAvailable = intPtr(n)
		}
		if b, ok := st.boolish("is_renting"); ok {
			rec.IsRenting = boolPtr(b)
		}
		if b, ok := st.boolish("is_returning"); ok {
			rec.IsReturning = boolPtr(b)
		}
		if b, ok := st.boolish("is_installed"); ok {
			rec.IsInstalled = boolPtr(b)
		}
		if reported, ok := st.epoch("last_reported"); ok {
			rec.LastReported = reported
		} else if feedUpdatedOK {
			rec.LastReported = feedUpdated
		}

		records = append(records, rec)
	}
	return records, nil
}

// gbfsStations unmarshals a GBFS feed and returns its root object together
// with the data.stations list. A missing or empty list is not an error; the
// collector reports the run as no_data.
func gbfsStations(payload []byte, feedName string) (obj, []any, error) {
	root, err := unmarshalObj(payload, "payload is not a valid GBFS "+feedName+" feed")
	if err != nil {
		return nil, nil, err
	}
	data, ok := root.child("data")
	if !ok {
		return root, nil, nil
	}
	stations, _ := data.list("stations")
	return root, stations, nil
}

// joinStrings joins the string members of a loose JSON list with commas,
// ignoring non-string members.
func joinStrings(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}
