package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppiankov/casefile/internal/extract"
	"github.com/ppiankov/casefile/internal/metrics"
	"github.com/ppiankov/casefile/internal/model"
	"github.com/ppiankov/casefile/internal/source"
)

// Unit is the retryable remote stage run for each extracted document
type Unit interface {
	Run(ctx context.Context, item source.Item, text string) Outcome
}

// Summary describes a finished run
type Summary struct {
	Total    int
	Success  int
	Failed   int
	Cached   int
	Duration time.Duration
}

// Driver processes items one at a time, in order
type Driver struct {
	extractor extract.Extractor
	unit      Unit
	limiter   *Limiter
	progress  Progress
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDriver creates a batch driver. limiter, progress and m may be nil.
func NewDriver(extractor extract.Extractor, unit Unit, limiter *Limiter, progress Progress, m *metrics.Metrics, logger *slog.Logger) *Driver {
	if progress == nil {
		progress = NopProgress{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		extractor: extractor,
		unit:      unit,
		limiter:   limiter,
		progress:  progress,
		metrics:   m,
		logger:    logger,
	}
}

// Run processes every item and returns one record per item in input order.
//
// Per-item failures never stop the run. Cancelling ctx does: the records
// gathered so far are dropped and ctx's error is returned.
func (d *Driver) Run(ctx context.Context, items []source.Item) ([]model.CaseRecord, error) {
	start := time.Now()
	records := make([]model.CaseRecord, 0, len(items))
	summary := Summary{Total: len(items)}

	d.logger.Info("batch.start", "items", len(items))
	d.progress.Begin(len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.progress.Step(i+1, len(items), item.Name)

		out := d.process(ctx, item)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records = append(records, out.Record(item.ID))
		d.tally(&summary, out)

		if i < len(items)-1 {
			if err := d.limiter.Cooldown(ctx); err != nil {
				return nil, err
			}
		}
	}

	summary.Duration = time.Since(start)
	d.progress.Finish(summary)
	if d.metrics != nil {
		d.metrics.ObserveRun(start, time.Now())
	}
	d.logger.Info("batch.done",
		"total", summary.Total,
		"success", summary.Success,
		"failed", summary.Failed,
		"cached", summary.Cached,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return records, nil
}

// process moves one item from Extracting to Succeeded or Failed
func (d *Driver) process(ctx context.Context, item source.Item) Outcome {
	text, err := d.extractor.Extract(ctx, item.ID)
	if err != nil {
		d.logger.Error("batch.item.extract_failed", "source", item.ID, "error", err)
		return Outcome{Kind: OutcomeExtraction, Err: err}
	}
	return d.unit.Run(ctx, item, text)
}

func (d *Driver) tally(s *Summary, out Outcome) {
	switch out.Kind {
	case OutcomeSuccess:
		s.Success++
		if out.Cached {
			s.Cached++
		}
	case OutcomeExtraction, OutcomeTransport, OutcomeMalformed, OutcomeValidation:
		s.Failed++
	}
	if d.metrics != nil {
		d.metrics.ItemsTotal.WithLabelValues(out.Kind.String()).Inc()
	}
}
