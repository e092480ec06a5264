package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamiefw/flux/internal/metrics"
	"github.com/jamiefw/flux/internal/types"
)

// Outcome classifies a finished collector run.
type Outcome string

const (
	// OutcomeSuccess means every decoded record was stored.
	OutcomeSuccess Outcome = "success"
	// OutcomeDegraded means the run stored data but skipped records or lost
	// part of its fan-out (e.g. one weather location failing).
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailed means nothing was stored.
	OutcomeFailed Outcome = "failed"
	// OutcomeNoData means the upstream was healthy but had nothing to report.
	OutcomeNoData Outcome = "no_data"
)

// RunResult summarizes one collector run. Fetched counts decoded candidate
// records, Validated the records that passed per-record validation, Stored
// the records persisted. Err is set only for failed runs.
type RunResult struct {
	RunID     uuid.UUID
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	Fetched   int
	Validated int
	Stored    int
	Skipped   int
	Outcome   Outcome
	Err       error
}

// Collector is one ingestion source. Collect never panics and never returns
// an error directly: failures are part of the RunResult so the runner treats
// every source uniformly.
type Collector interface {
	Source() string
	Collect(ctx context.Context) RunResult
}

// Runner dispatches collector runs by source name, logs each run summary,
// and emits run metrics.
type Runner struct {
	collectors map[string]Collector
	logger     *slog.Logger
	recorder   metrics.RunRecorder
}

// NewRunner creates a Runner over the given collectors.
func NewRunner(logger *slog.Logger, recorder metrics.RunRecorder, collectors ...Collector) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	byName := make(map[string]Collector, len(collectors))
	for _, c := range collectors {
		byName[c.Source()] = c
	}
	return &Runner{
		collectors: byName,
		logger:     logger,
		recorder:   recorder,
	}
}

// Sources returns the registered source names, sorted.
func (r *Runner) Sources() []string {
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one collector by source name.
func (r *Runner) Run(ctx context.Context, source string) (RunResult, error) {
	c, ok := r.collectors[source]
	if !ok {
		return RunResult{}, fmt.Errorf("unknown source %q (have %v)", source, r.Sources())
	}
	return r.collect(ctx, c), nil
}

// RunAll executes every registered collector concurrently. One failing
// source never stops the others; the returned error is non-nil when at
// least one run failed, after all runs finished.
func (r *Runner) RunAll(ctx context.Context) ([]RunResult, error) {
	sources := r.Sources()
	results := make([]RunResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		c := r.collectors[source]
		g.Go(func() error {
			results[i] = r.collect(gctx, c)
			// Always nil: a failed run is recorded in its result and must not
			// cancel the sibling collectors through the group context.
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, res := range results {
		if res.Outcome == OutcomeFailed {
			failed = append(failed, res.Source)
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("collection failed for sources %v", failed)
	}
	return results, nil
}

// collect runs one collector and handles the shared bookkeeping: run ID,
// timing, summary log, metrics.
func (r *Runner) collect(ctx context.Context, c Collector) RunResult {
	runID := uuid.New()
	start := time.Now()

	logger := r.logger.With("run_id", runID, "source", c.Source())
	logger.InfoContext(ctx, "collection run started")

	result := c.Collect(ctx)
	result.RunID = runID
	result.Source = c.Source()
	result.StartedAt = start
	result.Duration = time.Since(start)

	attrs := []any{
		"outcome", string(result.Outcome),
		"fetched", result.Fetched,
		"validated", result.Validated,
		"stored", result.Stored,
		"skipped", result.Skipped,
		"duration_ms", result.Duration.Milliseconds(),
	}
	switch result.Outcome {
	case OutcomeFailed:
		logger.ErrorContext(ctx, "collection run failed", append(attrs, "error", result.Err)...)
	case OutcomeDegraded:
		logger.WarnContext(ctx, "collection run degraded", attrs...)
	default:
		logger.InfoContext(ctx, "collection run finished", attrs...)
	}

	r.recorder.RecordRun(ctx, result.Source, string(result.Outcome), result.Stored, result.Skipped, result.Duration)
	return result
}

// failedRun builds a RunResult for a run that stored nothing.
func failedRun(err error) RunResult {
	return RunResult{Outcome: OutcomeFailed, Err: err}
}

// outcomeFor classifies a run whose persist step succeeded. A run where
// every record was skipped still counts as degraded, not failed: the
// pipeline worked, the upstream data did not.
func outcomeFor(fetched, skipped int) Outcome {
	switch {
	case fetched == 0:
		return OutcomeNoData
	case skipped > 0:
		return OutcomeDegraded
	default:
		return OutcomeSuccess
	}
}

// missingCredential builds the failure every collector returns when its
// credential is absent: no network call is made with an empty secret.
func missingCredential(name string) error {
	return types.NewAppError(
		types.ErrCodeConfigMissingCredential,
		fmt.Sprintf("%s is not configured", name),
		nil,
	)
}
