package ingest

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/jamiefw/flux/internal/config"
	"github.com/jamiefw/flux/internal/decode"
	"github.com/jamiefw/flux/internal/feed"
)

// SourceMTABus is the SIRI-VM vehicle monitoring source (MTA Bus Time).
const SourceMTABus = "mta-bus"

// SiriCollector ingests the MTA Bus Time SIRI-VM feed for one monitored
// line.
type SiriCollector struct {
	cfg    config.TransitConfig
	client feed.Fetcher
	store  VehicleStore
	logger *slog.Logger
}

// NewSiriCollector creates the MTA Bus Time collector.
func NewSiriCollector(cfg config.TransitConfig, client feed.Fetcher, store VehicleStore, logger *slog.Logger) *SiriCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiriCollector{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger,
	}
}

// Source implements Collector.
func (c *SiriCollector) Source() string { return SourceMTABus }

// Collect fetches, decodes, validates, and persists one service delivery.
// An empty delivery (no vehicles active on the line) is a no_data run, not
// a failure.
func (c *SiriCollector) Collect(ctx context.Context) RunResult {
	if !c.cfg.MTABusAPIKey.IsSet() {
		return failedRun(missingCredential("MTA_BUS_API_KEY"))
	}

	fetchURL := feed.URLWithQuery(c.cfg.SiriVMURL, url.Values{
		"key":         {c.cfg.MTABusAPIKey.Unmask()},
		"version":     {"2"},
		"OperatorRef": {c.cfg.MTAAgencyID},
		"LineRef":     {c.cfg.MTALineRef},
	})

	payload, err := c.client.GetBytes(ctx, fetchURL)
	if err != nil {
		return failedRun(err)
	}

	candidates, err := decode.VehiclePositionsFromSiri(payload)
	if err != nil {
		return failedRun(err)
	}

	valid, skips := FilterValid(ctx, c.logger, c.Source(), candidates)
	if err := c.store.SaveVehiclePositions(ctx, valid); err != nil {
		return failedRun(err)
	}

	return RunResult{
		Fetched:   len(candidates),
		Validated: len(valid),
		Stored:    len(valid),
		Skipped:   len(skips),
		Outcome:   outcomeFor(len(candidates), len(skips)),
	}
}
