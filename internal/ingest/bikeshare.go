package ingest

import (
	"context"
	"log/slog"

	"github.com/jamiefw/flux/internal/decode"
	"github.com/jamiefw/flux/internal/feed"
)

// FeedDirectory resolves GBFS feed names to URLs for one bikeshare system.
// Satisfied by *feed.Directory.
type FeedDirectory interface {
	System() string
	URL(ctx context.Context, name string) (string, error)
}

// BikeshareCollector ingests one GBFS system: the station_information feed
// into the reference table (upsert) and the station_status feed into the
// snapshot table (append). One collector instance exists per configured
// system.
type BikeshareCollector struct {
	directory FeedDirectory
	client    feed.Fetcher
	store     BikeshareStore
	logger    *slog.Logger
}

// NewBikeshareCollector creates a collector for the system served by
// directory.
func NewBikeshareCollector(directory FeedDirectory, client feed.Fetcher, store BikeshareStore, logger *slog.Logger) *BikeshareCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &BikeshareCollector{
		directory: directory,
		client:    client,
		store:     store,
		logger:    logger,
	}
}

// Source implements Collector.
func (c *BikeshareCollector) Source() string { return c.directory.System() }

// Collect ingests both feeds of the system. The reference feed and the
// snapshot feed are independent phases: a failing station_information fetch
// degrades the run but the occupancy snapshots are still collected, since
// the snapshot series is the one that cannot be backfilled later.
func (c *BikeshareCollector) Collect(ctx context.Context) RunResult {
	var result RunResult

	infoErr := c.collectInformation(ctx, &result)
	if infoErr != nil {
		c.logger.WarnContext(ctx, "station information phase failed, continuing with status",
			"source", c.Source(),
			"error", infoErr,
		)
	}

	if err := c.collectStatus(ctx, &result); err != nil {
		// The information phase may already have committed; its counters
		// stay in the report so the partial write is visible.
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	result.Outcome = outcomeFor(result.Fetched, result.Skipped)
	if infoErr != nil && result.Outcome == OutcomeSuccess {
		result.Outcome = OutcomeDegraded
	}
	return result
}

func (c *BikeshareCollector) collectInformation(ctx context.Context, result *RunResult) error {
	infoURL, err := c.directory.URL(ctx, feed.GBFSStationInformation)
	if err != nil {
		return err
	}
	payload, err := c.client.GetBytes(ctx, infoURL)
	if err != nil {
		return err
	}
	candidates, err := decode.StationsFromGBFS(payload)
	if err != nil {
		return err
	}

	valid, skips := FilterValid(ctx, c.logger, c.Source(), candidates)
	if err := c.store.SaveBikeStations(ctx, valid); err != nil {
		return err
	}

	result.Fetched += len(candidates)
	result.Validated += len(valid)
	result.Stored += len(valid)
	result.Skipped += len(skips)
	return nil
}

func (c *BikeshareCollector) collectStatus(ctx context.Context, result *RunResult) error {
	statusURL, err := c.directory.URL(ctx, feed.GBFSStationStatus)
	if err != nil {
		return err
	}
	payload, err := c.client.GetBytes(ctx, statusURL)
	if err != nil {
		return err
	}
	candidates, err := decode.StationStatusFromGBFS(payload)
	if err != nil {
		return err
	}

	valid, skips := FilterValid(ctx, c.logger, c.Source(), candidates)
	if err := c.store.SaveBikeStationStatus(ctx, valid); err != nil {
		return err
	}

	result.Fetched += len(candidates)
	result.Validated += len(valid)
	result.Stored += len(valid)
	result.Skipped += len(skips)
	return nil
}
