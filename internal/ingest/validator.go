// Package ingest contains the per-source collectors and the run
// orchestration around them. Each collector composes the same pipeline:
// fetch the upstream payload, decode it into candidate records, validate
// each record independently, and persist the surviving batch in one
// transaction. A bad record is skipped and logged, never fatal; a bad batch
// write rolls the whole run back.
package ingest

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/jamiefw/flux/internal/types"
)

// validate is the shared record validator. validator.Validate is
// goroutine-safe and caches struct metadata, so one instance serves all
// collectors.
var validate = validator.New()

// Skip describes one record rejected by validation.
type Skip struct {
	Key    string
	Reason string
}

// FilterValid validates each candidate record independently and partitions
// the batch into records to persist and records to skip. Order is preserved.
// Each skip is logged at warn with the record key so a drifting upstream
// shows up in logs before anyone queries the tables.
func FilterValid[T types.Keyed](ctx context.Context, logger *slog.Logger, source string, records []T) ([]T, []Skip) {
	valid := make([]T, 0, len(records))
	var skips []Skip

	for _, rec := range records {
		if err := validate.Struct(rec); err != nil {
			skip := Skip{Key: rec.Key(), Reason: err.Error()}
			skips = append(skips, skip)
			logger.WarnContext(ctx, "skipping invalid record",
				"source", source,
				"record_key", skip.Key,
				"reason", skip.Reason,
			)
			continue
		}
		valid = append(valid, rec)
	}
	return valid, skips
}
