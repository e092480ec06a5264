package ingest

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/jamiefw/flux/internal/config"
	"github.com/jamiefw/flux/internal/decode"
	"github.com/jamiefw/flux/internal/feed"
	"github.com/jamiefw/flux/internal/types"
)

// SourceWeather is the current-conditions source covering all monitored
// locations.
const SourceWeather = "weather"

// WeatherCollector ingests current conditions for every monitored location
// in one run. Locations fail independently: one unreachable location
// degrades the run instead of aborting it, and only a run where every
// location failed counts as failed.
type WeatherCollector struct {
	cfg       config.WeatherConfig
	locations []config.Location
	client    feed.Fetcher
	store     WeatherStore
	logger    *slog.Logger
}

// NewWeatherCollector creates the weather collector over the given
// monitored locations.
func NewWeatherCollector(cfg config.WeatherConfig, locations []config.Location, client feed.Fetcher, store WeatherStore, logger *slog.Logger) *WeatherCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherCollector{
		cfg:       cfg,
		locations: locations,
		client:    client,
		store:     store,
		logger:    logger,
	}
}

// Source implements Collector.
func (c *WeatherCollector) Source() string { return SourceWeather }

// Collect fetches every monitored location, then persists all surviving
// readings as one batch.
func (c *WeatherCollector) Collect(ctx context.Context) RunResult {
	if !c.cfg.APIKey.IsSet() {
		return failedRun(missingCredential("OPENWEATHER_API_KEY"))
	}

	var (
		candidates       []types.WeatherReading
		locationsFailed  int
		skippedNoInstant int
	)
	for _, loc := range c.locations {
		rec, err := c.fetchLocation(ctx, loc)
		if err != nil {
			locationsFailed++
			c.logger.WarnContext(ctx, "weather location failed",
				"source", c.Source(),
				"location", loc.Name,
				"error", err,
			)
			continue
		}
		if rec == nil {
			// The provider served a response without an observation instant.
			skippedNoInstant++
			c.logger.WarnContext(ctx, "skipping weather reading without observation timestamp",
				"source", c.Source(),
				"location", loc.Name,
			)
			continue
		}
		candidates = append(candidates, *rec)
	}

	if locationsFailed == len(c.locations) && len(c.locations) > 0 {
		return failedRun(types.NewAppError(
			types.ErrCodeFetchFailed,
			"all weather locations failed",
			nil,
		))
	}

	valid, skips := FilterValid(ctx, c.logger, c.Source(), candidates)
	if err := c.store.SaveWeatherReadings(ctx, valid); err != nil {
		return failedRun(err)
	}

	skipped := len(skips) + skippedNoInstant
	result := RunResult{
		Fetched:   len(candidates),
		Validated: len(valid),
		Stored:    len(valid),
		Skipped:   skipped,
		Outcome:   outcomeFor(len(candidates)+skippedNoInstant, skipped),
	}
	if locationsFailed > 0 && result.Outcome == OutcomeSuccess {
		result.Outcome = OutcomeDegraded
	}
	return result
}

func (c *WeatherCollector) fetchLocation(ctx context.Context, loc config.Location) (*types.WeatherReading, error) {
	fetchURL := feed.URLWithQuery(c.cfg.APIURL, url.Values{
		"lat":   {strconv.FormatFloat(loc.Latitude, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(loc.Longitude, 'f', -1, 64)},
		"appid": {c.cfg.APIKey.Unmask()},
		"units": {"metric"},
	})

	payload, err := c.client.GetBytes(ctx, fetchURL)
	if err != nil {
		return nil, err
	}
	return decode.ReadingFromWeather(payload, loc.Name, loc.Latitude, loc.Longitude)
}
