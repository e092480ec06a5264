package decode

import (
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/jamiefw/flux/internal/types"
)

// gtfsStartDateLayout is the GTFS service date encoding, YYYYMMDD.
const gtfsStartDateLayout = "20060102"

// VehiclePositionsFromGTFSRT decodes a GTFS-Realtime protobuf feed into
// candidate vehicle position records. Feed entities that carry no vehicle
// position payload (alerts, trip updates) are ignored. decodedAt is used as
// the observation instant for entities that omit their own timestamp; the
// feed header timestamp is deliberately not consulted, so one stale header
// cannot stamp every entity in the feed.
func VehiclePositionsFromGTFSRT(payload []byte, decodedAt time.Time) ([]types.VehiclePosition, error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(payload, &fm); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeDecodeFailed,
			"payload is not a valid GTFS-Realtime feed message",
			err,
		)
	}

	records := make([]types.VehiclePosition, 0, len(fm.Entity))
	for _, entity := range fm.Entity {
		v := entity.GetVehicle()
		if v == nil {
			continue
		}

		rec := types.VehiclePosition{
			VehicleID:    v.GetVehicle().GetId(),
			APITimestamp: decodedAt.UTC(),
		}

		if trip := v.GetTrip(); trip != nil {
			if trip.TripId != nil {
				rec.TripID = strPtr(trip.GetTripId())
			}
			if trip.RouteId != nil {
				rec.RouteID = strPtr(trip.GetRouteId())
			}
			if trip.StartDate != nil {
				if d, err := time.ParseInLocation(gtfsStartDateLayout, trip.GetStartDate(), time.UTC); err == nil {
					rec.StartDate = timePtr(d)
				}
			}
		}

		if pos := v.GetPosition(); pos != nil {
			if pos.Latitude != nil {
				rec.Latitude = f64Ptr(float64(pos.GetLatitude()))
			}
			if pos.Longitude != nil {
				rec.Longitude = f64Ptr(float64(pos.GetLongitude()))
			}
			if pos.Bearing != nil {
				rec.Bearing = f64Ptr(float64(pos.GetBearing()))
			}
			if pos.Speed != nil {
				rec.SpeedMPS = f64Ptr(float64(pos.GetSpeed()))
			}
		}

		if v.CurrentStopSequence != nil {
			rec.CurrentStopSequence = intPtr(int(v.GetCurrentStopSequence()))
		}
		if v.CurrentStatus != nil {
			rec.CurrentStatus = strPtr(v.GetCurrentStatus().String())
		}
		if v.Timestamp != nil && v.GetTimestamp() > 0 {
			rec.APITimestamp = time.Unix(int64(v.GetTimestamp()), 0).UTC()
		}

		records = append(records, rec)
	}
	return records, nil
}
