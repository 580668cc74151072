package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drivebase/catalog-cli/internal/model"
	"github.com/drivebase/catalog-cli/internal/store"
)

// Summary is the final run report.
type Summary struct {
	Partitions      int           `json:"partitions"`
	PartitionsTotal int           `json:"partitions_total"`
	Processed       int           `json:"processed"`
	Succeeded       int           `json:"succeeded"`
	Failed          int           `json:"failed"`
	Skipped         int           `json:"skipped"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Orchestrator runs the partition worklist and aggregates statistics.
type Orchestrator struct {
	fetcher *PartitionFetcher
	store   store.Store
	workers int

	mu      sync.Mutex
	summary Summary
}

// NewOrchestrator creates an Orchestrator. workers is the number of
// partitions processed concurrently; 1 (the default) preserves strictly
// sequential processing.
func NewOrchestrator(fetcher *PartitionFetcher, st store.Store, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{fetcher: fetcher, store: st, workers: workers}
}

// Run processes every partition in the worklist. Cancellation stops new
// partitions but is not an error: the summary always reflects all work
// completed before the interruption. Per-partition store errors are recorded
// and the run moves on to the next partition.
func (o *Orchestrator) Run(ctx context.Context, worklist []model.MakePartition) (*Summary, error) {
	log := zap.L().With(zap.String("component", "ingest.orchestrator"))
	start := time.Now()

	o.mu.Lock()
	o.summary = Summary{PartitionsTotal: len(worklist)}
	o.mu.Unlock()

	expected := 0
	for _, p := range worklist {
		expected += p.Expected
	}
	log.Info("starting import",
		zap.Int("partitions", len(worklist)),
		zap.Int("expected_records", expected),
		zap.Int("workers", o.workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, part := range worklist {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A goroutine can win its worker slot after cancellation;
			// only partitions that actually start are counted.
			if gctx.Err() != nil {
				return nil
			}
			o.runPartition(gctx, part)
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	o.summary.Elapsed = time.Since(start)
	summary := o.summary
	o.mu.Unlock()

	if ctx.Err() != nil {
		log.Warn("import interrupted")
	}
	log.Info("import summary",
		zap.Int("partitions", summary.Partitions),
		zap.Int("partitions_total", summary.PartitionsTotal),
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return &summary, nil
}

// runPartition processes one partition and records it in the run log. A
// partition failure never fails the run.
func (o *Orchestrator) runPartition(ctx context.Context, part model.MakePartition) {
	log := zap.L().With(zap.String("make", part.Name))

	runID, err := o.store.StartRun(ctx, part.Name)
	if err != nil {
		log.Error("failed to record run start", zap.Error(err))
	}

	counts, runErr := o.fetcher.Run(ctx, part)

	status := model.RunComplete
	errMsg := ""
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), ctx.Err() != nil:
		// Interrupted, not failed: keep whatever committed.
		status = model.RunComplete
		errMsg = "interrupted"
	default:
		status = model.RunFailed
		errMsg = runErr.Error()
		log.Error("partition failed", zap.Error(runErr))
	}

	if runID != "" {
		if err := o.store.CompleteRun(context.WithoutCancel(ctx), runID, status, counts, errMsg); err != nil {
			log.Error("failed to record run completion", zap.Error(err))
		}
	}

	o.mu.Lock()
	o.summary.Partitions++
	o.summary.Processed += counts.Processed
	o.summary.Succeeded += counts.Succeeded
	o.summary.Failed += counts.Failed
	o.summary.Skipped += counts.Skipped
	o.mu.Unlock()
}
