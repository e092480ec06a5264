package core

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jamiefw/flux/internal/types"
)

// recentIngestWindow is the lookback used for the recent-ingest figure on
// GET /stats.
const recentIngestWindow = time.Hour

// StatsStore is the read surface backing the stats endpoints. Satisfied by
// *db.Store.
type StatsStore interface {
	VehiclePositionsSince(ctx context.Context, cutoff time.Time) (int64, error)
	BikeStationCount(ctx context.Context) (int64, error)
	LatestVehiclePositions(ctx context.Context, routeID string, limit int) ([]types.VehiclePosition, error)
}

type statsResponse struct {
	VehiclePositionsLastHour int64 `json:"vehicle_positions_last_hour"`
	BikeStations             int64 `json:"bike_stations"`
}

type routeVehiclesResponse struct {
	RouteID  string                  `json:"route_id"`
	Vehicles []types.VehiclePosition `json:"vehicles"`
}

// HandleStats reports ingestion throughput figures: vehicle observations
// landed in the last hour and the number of known bike stations.
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vehicles, err := s.Stats.VehiclePositionsSince(ctx, time.Now().Add(-recentIngestWindow))
	if err != nil {
		s.storeError(w, r, "counting recent vehicle positions", err)
		return
	}
	stations, err := s.Stats.BikeStationCount(ctx)
	if err != nil {
		s.storeError(w, r, "counting bike stations", err)
		return
	}

	JSON(w, r, http.StatusOK, statsResponse{
		VehiclePositionsLastHour: vehicles,
		BikeStations:             stations,
	})
}

// HandleRouteVehicles lists the latest stored observation per vehicle on the
// requested route. An unknown route is not an error; it has zero vehicles.
func (s *Server) HandleRouteVehicles(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			JSON(w, r, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	vehicles, err := s.Stats.LatestVehiclePositions(r.Context(), routeID, limit)
	if err != nil {
		s.storeError(w, r, "listing route vehicles", err)
		return
	}
	if vehicles == nil {
		vehicles = []types.VehiclePosition{}
	}

	JSON(w, r, http.StatusOK, routeVehiclesResponse{
		RouteID:  routeID,
		Vehicles: vehicles,
	})
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, what string, err error) {
	s.Logger.ErrorContext(r.Context(), "stats query failed",
		"operation", what,
		"error", err,
	)
	JSON(w, r, types.CodeOf(err).HTTPStatus(), map[string]string{
		"error": "stats unavailable",
	})
}
