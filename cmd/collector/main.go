// Package main is the entrypoint for the Flux collector.
//
// The collector runs one ingestion pass per invocation: fetch each
// configured source, decode and validate the records, and persist the
// surviving batches. It runs in two modes:
//
//   - CLI mode (local/cron): `collector -source all` or `-source sfmta`.
//     The process exits non-zero when any requested source fails.
//   - Lambda mode: detected from the Lambda runtime environment, the
//     process registers a handler invoked on a schedule (EventBridge) with
//     an optional {"source": "..."} payload.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jamiefw/flux/internal/config"
	"github.com/jamiefw/flux/internal/db"
	"github.com/jamiefw/flux/internal/feed"
	"github.com/jamiefw/flux/internal/ingest"
	"github.com/jamiefw/flux/internal/metrics"
)

// sourceAll requests every registered collector.
const sourceAll = "all"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	sourceFlag := flag.String("source", sourceAll, "source to collect (all, sfmta, mta-bus, citibike, baywheels, weather)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("flux collector starting",
		"environment", cfg.Environment,
		"source", *sourceFlag,
	)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	runner, err := buildRunner(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		lambda.Start(newLambdaHandler(runner, *sourceFlag))
		return nil
	}

	return runOnce(ctx, runner, *sourceFlag)
}

// buildRunner wires the collectors over shared infrastructure. Each source
// gets its own feed client so one flapping upstream trips only its own
// circuit breaker.
func buildRunner(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*ingest.Runner, error) {
	store := db.NewStore(pool)
	policy := feed.RetryPolicy{
		MaxAttempts: cfg.Feed.MaxAttempts,
		Delay:       cfg.Feed.RetryDelay,
	}

	newClient := func(name string) *feed.Client {
		httpClient := &http.Client{Timeout: cfg.Feed.Timeout}
		return feed.NewClient(httpClient, name, policy, cfg.Feed.UserAgent, logger)
	}

	collectors := []ingest.Collector{
		ingest.NewTransitCollector(cfg.Transit, newClient(ingest.SourceSFMTA), store, logger),
		ingest.NewSiriCollector(cfg.Transit, newClient(ingest.SourceMTABus), store, logger),
	}

	for _, system := range cfg.Bikeshare.Systems() {
		client := newClient(system.Name)
		directory := feed.NewDirectory(client, system.Name, system.DiscoveryURL, logger)
		collectors = append(collectors, ingest.NewBikeshareCollector(directory, client, store, logger))
	}

	locations, err := config.LoadLocations(cfg.Weather)
	if err != nil {
		return nil, fmt.Errorf("loading weather locations: %w", err)
	}
	collectors = append(collectors,
		ingest.NewWeatherCollector(cfg.Weather, locations, newClient(ingest.SourceWeather), store, logger))

	recorder, err := buildRecorder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return ingest.NewRunner(logger, recorder, collectors...), nil
}

func buildRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (metrics.RunRecorder, error) {
	if !cfg.Observability.EnableMetrics {
		return metrics.Noop{}, nil
	}
	client, err := metrics.NewCloudWatchClient(ctx, cfg.Observability.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("creating cloudwatch client: %w", err)
	}
	return metrics.NewCloudWatchRecorder(client, cfg.Observability.MetricNamespace, logger), nil
}

// runOnce executes one collection pass in CLI mode.
func runOnce(ctx context.Context, runner *ingest.Runner, source string) error {
	if source == sourceAll {
		_, err := runner.RunAll(ctx)
		return err
	}

	result, err := runner.Run(ctx, source)
	if err != nil {
		return err
	}
	if result.Outcome == ingest.OutcomeFailed {
		return fmt.Errorf("collection failed for %s: %w", source, result.Err)
	}
	return nil
}

// collectEvent is the Lambda invocation payload. An empty Source falls back
// to the -source flag baked into the deployment (normally "all").
type collectEvent struct {
	Source string `json:"source"`
}

func newLambdaHandler(runner *ingest.Runner, defaultSource string) func(ctx context.Context, event collectEvent) error {
	return func(ctx context.Context, event collectEvent) error {
		source := event.Source
		if source == "" {
			source = defaultSource
		}
		return runOnce(ctx, runner, source)
	}
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// newLogger creates the structured JSON logger for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
