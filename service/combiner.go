// Package service orchestrates the combine-names request pipeline:
// streaming ingestion into per-side accumulators, then the ordered
// merge-join over the sealed cursors.
package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/health"
	"github.com/c360/namestream/ingest"
	"github.com/c360/namestream/merge"
	"github.com/c360/namestream/metric"
	"github.com/c360/namestream/name"
	"github.com/c360/namestream/spill"
)

// Combiner processes combine-names requests. Each request is fully
// self-contained: ingestion and merge run as a sequential pipeline over
// request-scoped state, so a single Combiner serves any number of
// concurrent requests without locking.
type Combiner struct {
	ingestor *ingest.Ingestor
	engine   *merge.Engine
	spillCfg spill.Config
	metrics  *metric.Metrics // nil disables instrumentation
	logger   *slog.Logger

	startTime time.Time
	requests  atomic.Int64
	failures  atomic.Int64
}

// NewCombiner creates a combiner service
func NewCombiner(spillCfg spill.Config, registry *metric.MetricsRegistry, logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = slog.Default()
	}

	var metrics *metric.Metrics
	if registry != nil {
		metrics = registry.CoreMetrics()
	}

	return &Combiner{
		ingestor:  ingest.New(logger),
		engine:    merge.NewEngine(logger),
		spillCfg:  spillCfg,
		metrics:   metrics,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Process runs one request's pipeline: decode the streamed body into the
// two per-side accumulators, seal them, and join. All request-scoped
// resources (spill directories, run file handles) are released before
// returning, on success, error and cancellation alike. A failed request
// yields no partial result.
func (c *Combiner) Process(ctx context.Context, body io.Reader) (*merge.Result, error) {
	c.requests.Add(1)

	firstRuns := spill.NewRuns(name.SideFirst, c.spillCfg, c.logger)
	defer func() { _ = firstRuns.Close() }()
	lastRuns := spill.NewRuns(name.SideLast, c.spillCfg, c.logger)
	defer func() { _ = lastRuns.Close() }()

	ingestStart := time.Now()
	if err := c.ingestor.Decode(ctx, body, firstRuns, lastRuns); err != nil {
		return nil, c.fail(err)
	}
	c.observeIngest(firstRuns, lastRuns, time.Since(ingestStart))

	// The merge requires both sequences fully decoded; a request
	// cancelled during ingestion never reaches this point with ctx
	// intact, but re-check so a cancel racing the final read does not
	// waste a sort.
	if err := ctx.Err(); err != nil {
		return nil, c.fail(errors.WrapTransient(err, "Combiner", "Process", "pre-merge check"))
	}

	mergeStart := time.Now()
	firstCursor, err := firstRuns.Seal()
	if err != nil {
		return nil, c.fail(err)
	}
	defer func() { _ = firstCursor.Close() }()

	lastCursor, err := lastRuns.Seal()
	if err != nil {
		return nil, c.fail(err)
	}
	defer func() { _ = lastCursor.Close() }()

	result, err := c.engine.Join(firstCursor, lastCursor)
	if err != nil {
		return nil, c.fail(err)
	}
	c.observeMerge(result, time.Since(mergeStart))

	c.logger.Debug("Request processed",
		"first_entries", firstRuns.Count(),
		"last_entries", lastRuns.Count(),
		"pairs", len(result.Pairs),
		"unpaired", len(result.Unpaired))

	return result, nil
}

// fail records a pipeline failure and passes the error through
func (c *Combiner) fail(err error) error {
	c.failures.Add(1)
	if c.metrics != nil {
		c.metrics.RecordError(errors.Classify(err).String())
	}
	return err
}

func (c *Combiner) observeIngest(firstRuns, lastRuns *spill.Runs, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordProcessingDuration("ingest", elapsed)
	c.metrics.RecordEntriesIngested(name.SideFirst.String(), firstRuns.Count())
	c.metrics.RecordEntriesIngested(name.SideLast.String(), lastRuns.Count())
	c.metrics.RecordSpillRuns(name.SideFirst.String(), firstRuns.SpilledRuns())
	c.metrics.RecordSpillRuns(name.SideLast.String(), lastRuns.SpilledRuns())
}

func (c *Combiner) observeMerge(result *merge.Result, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordProcessingDuration("merge", elapsed)

	var unpairedFirst, unpairedLast int
	for _, u := range result.Unpaired {
		if u.Side == name.SideFirst {
			unpairedFirst++
		} else {
			unpairedLast++
		}
	}
	c.metrics.RecordMergeOutput(len(result.Pairs), unpairedFirst, unpairedLast)
}

// Health reports the combiner's health. The combiner is pure computation
// over request-scoped state, so it is healthy whenever the process is up;
// the counters give operators a view of recent activity.
func (c *Combiner) Health() health.Status {
	return health.Healthy("combiner").WithMetrics(&health.Metrics{
		Uptime:            time.Since(c.startTime),
		ErrorCount:        int(c.failures.Load()),
		RequestsProcessed: c.requests.Load(),
	})
}
