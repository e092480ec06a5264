package decode

import (
	"time"

	"github.com/jamiefw/flux/internal/types"
)

// VehiclePositionsFromSiri decodes a SIRI-VM service delivery document into
// candidate vehicle position records.
//
// The document is navigated loosely: any missing structural level
// (ServiceDelivery, the delivery list, the activity list) yields zero records
// without error, matching an upstream that legitimately serves an empty
// delivery when no vehicles are active on the monitored line. An activity
// whose RecordedAtTime is missing or unparsable is skipped; the observation
// instant is never substituted for vehicle positions.
func VehiclePositionsFromSiri(payload []byte) ([]types.VehiclePosition, error) {
	root, err := unmarshalObj(payload, "payload is not a valid SIRI service delivery document")
	if err != nil {
		return nil, err
	}

	activities := siriVehicleActivities(root)
	records := make([]types.VehiclePosition, 0, len(activities))
	for _, raw := range activities {
		activity, ok := asObj(raw)
		if !ok {
			continue
		}

		recordedAt, ok := activity.str("RecordedAtTime")
		if !ok {
			continue
		}
		// RFC 3339 covers both the "Z" and the "+00:00" offset spellings the
		// upstream alternates between.
		ts, err := time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			continue
		}

		journey, ok := activity.child("MonitoredVehicleJourney")
		if !ok {
			continue
		}

		rec := types.VehiclePosition{
			APITimestamp: ts.UTC(),
		}
		if ref, ok := journey.str("VehicleRef"); ok {
			rec.VehicleID = ref
		}
		if line, ok := journey.str("LineRef"); ok {
			rec.RouteID = strPtr(line)
		}
		if framed, ok := journey.child("FramedVehicleJourneyRef"); ok {
			if j, ok := framed.str("DatedVehicleJourneyRef"); ok {
				rec.TripID = strPtr(j)
			}
			if frame, ok := framed.str("DataFrameRef"); ok {
				if d, err := time.ParseInLocation("2006-01-02", frame, time.UTC); err == nil {
					rec.StartDate = timePtr(d)
				}
			}
		}
		if loc, ok := journey.child("VehicleLocation"); ok {
			if lat, ok := loc.f64("Latitude"); ok {
				rec.Latitude = f64Ptr(lat)
			}
			if lon, ok := loc.f64("Longitude"); ok {
				rec.Longitude = f64Ptr(lon)
			}
		}
		if bearing, ok := journey.f64("Bearing"); ok {
			rec.Bearing = f64Ptr(bearing)
		}
		if status, ok := journey.str("ProgressStatus"); ok {
			rec.CurrentStatus = strPtr(status)
		}

		records = append(records, rec)
	}
	return records, nil
}

// siriVehicleActivities walks Siri.ServiceDelivery.VehicleMonitoringDelivery
// and returns the VehicleActivity list of the first delivery. The upstream
// serves exactly one delivery per response; trailing deliveries are not read.
func siriVehicleActivities(root obj) []any {
	siri, ok := root.child("Siri")
	if !ok {
		return nil
	}
	delivery, ok := siri.child("ServiceDelivery")
	if !ok {
		return nil
	}
	deliveries, ok := delivery.list("VehicleMonitoringDelivery")
	if !ok || len(deliveries) == 0 {
		return nil
	}

	vmd, ok := asObj(deliveries[0])
	if !ok {
		return nil
	}
	acts, _ := vmd.list("VehicleActivity")
	return acts
}
