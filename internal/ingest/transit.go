package ingest

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/jamiefw/flux/internal/config"
	"github.com/jamiefw/flux/internal/decode"
	"github.com/jamiefw/flux/internal/feed"
)

// SourceSFMTA is the GTFS-Realtime vehicle positions source (SFMTA via the
// 511 SF Bay regional feed).
const SourceSFMTA = "sfmta"

// TransitCollector ingests the SFMTA GTFS-Realtime vehicle positions feed.
type TransitCollector struct {
	cfg    config.TransitConfig
	client feed.Fetcher
	store  VehicleStore
	logger *slog.Logger
	now    func() time.Time
}

// NewTransitCollector creates the SFMTA collector.
func NewTransitCollector(cfg config.TransitConfig, client feed.Fetcher, store VehicleStore, logger *slog.Logger) *TransitCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransitCollector{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Source implements Collector.
func (c *TransitCollector) Source() string { return SourceSFMTA }

// Collect fetches, decodes, validates, and persists one feed snapshot.
func (c *TransitCollector) Collect(ctx context.Context) RunResult {
	if !c.cfg.SFBayAPIToken.IsSet() {
		return failedRun(missingCredential("SFBAY_API_TOKEN"))
	}

	fetchURL := feed.URLWithQuery(c.cfg.VehiclePositionsURL, url.Values{
		"api_key": {c.cfg.SFBayAPIToken.Unmask()},
		"agency":  {c.cfg.SFMTAAgencyID},
	})

	payload, err := c.client.GetBytes(ctx, fetchURL)
	if err != nil {
		return failedRun(err)
	}

	candidates, err := decode.VehiclePositionsFromGTFSRT(payload, c.now())
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
