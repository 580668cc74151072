package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/drivebase/catalog-cli/internal/catalog"
	"github.com/drivebase/catalog-cli/internal/model"
	"github.com/drivebase/catalog-cli/internal/resilience"
	"github.com/drivebase/catalog-cli/internal/store"
)

// PageSource supplies catalog pages for a partition. *catalog.Client is the
// production implementation; tests substitute their own.
type PageSource interface {
	Page(ctx context.Context, makeName string, offset int) (*catalog.Page, error)
	PageSize() int
}

// PartitionFetcher walks one manufacturer partition page by page. Each page
// is normalized and persisted in its own transaction; transient transport
// errors retry the same offset until success or cancellation.
type PartitionFetcher struct {
	source        PageSource
	store         store.Store
	norm          *Normalizer
	retryInterval time.Duration
	progressEvery int
}

// NewPartitionFetcher creates a PartitionFetcher. retryInterval is the fixed
// backoff between transient fetch failures; progressEvery is the record count
// interval between progress reports.
func NewPartitionFetcher(source PageSource, st store.Store, norm *Normalizer, retryInterval time.Duration, progressEvery int) *PartitionFetcher {
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}
	if progressEvery <= 0 {
		progressEvery = 100
	}
	return &PartitionFetcher{
		source:        source,
		store:         st,
		norm:          norm,
		retryInterval: retryInterval,
		progressEvery: progressEvery,
	}
}

// Run fetches and persists every page of one partition. The counters
// accumulated before an error are always returned. Only an empty results
// page ends the partition; the expected-count hint is used for progress
// reporting alone.
func (f *PartitionFetcher) Run(ctx context.Context, part model.MakePartition) (store.RunCounts, error) {
	log := zap.L().With(zap.String("make", part.Name))
	log.Info("processing partition", zap.Int("expected", part.Expected))

	var counts store.RunCounts
	total := part.Expected
	offset := 0
	lastReported := 0

	for {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		page, err := resilience.ForeverVal(ctx, resilience.ForeverConfig{
			Interval: f.retryInterval,
			OnRetry: func(attempt int, err error) {
				log.Warn("page fetch failed, retrying same offset",
					zap.Int("offset", offset),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			},
		}, func(ctx context.Context) (*catalog.Page, error) {
			return f.source.Page(ctx, part.Name, offset)
		})
		if err != nil {
			return counts, err
		}

		if page.TotalCount > 0 {
			total = page.TotalCount
		}
		if len(page.Results) == 0 {
			break
		}

		pageCounts, err := f.processPage(ctx, page.Results)
		counts.Processed += pageCounts.Processed
		counts.Succeeded += pageCounts.Succeeded
		counts.Failed += pageCounts.Failed
		counts.Skipped += pageCounts.Skipped
		if err != nil {
			return counts, err
		}

		if counts.Processed-lastReported >= f.progressEvery || counts.Processed >= total {
			lastReported = counts.Processed
			log.Info("partition progress",
				zap.Int("processed", counts.Processed),
				zap.Int("total", total),
				zap.Int("succeeded", counts.Succeeded),
				zap.Int("failed", counts.Failed),
				zap.Int("skipped", counts.Skipped),
			)
		}

		offset += f.source.PageSize()
	}

	log.Info("partition complete",
		zap.Int("processed", counts.Processed),
		zap.Int("succeeded", counts.Succeeded),
		zap.Int("failed", counts.Failed),
		zap.Int("skipped", counts.Skipped),
	)
	return counts, nil
}

// processPage normalizes and upserts one page inside a single transaction.
// A store error rolls the whole page back; record-level skips and failures
// are counted and the page continues.
func (f *PartitionFetcher) processPage(ctx context.Context, records []catalog.RawRecord) (store.RunCounts, error) {
	var counts store.RunCounts

	tx, err := f.store.Begin(ctx)
	if err != nil {
		return counts, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, rec := range records {
		counts.Processed++

		res, err := f.norm.Normalize(ctx, tx, rec)
		if err != nil {
			return counts, err
		}

		switch res.Outcome {
		case OutcomeSuccess:
			if err := tx.UpsertVehicle(ctx, res.Vehicle); err != nil {
				return counts, err
			}
			counts.Succeeded++
		case OutcomeSkip:
			counts.Skipped++
			zap.L().Info("record skipped",
				zap.String("reason", res.Reason),
				zap.String("external_id", rec.UpstreamID()),
			)
		case OutcomeFail:
			counts.Failed++
			zap.L().Error("record failed",
				zap.Error(res.Err),
				zap.Any("record", rec),
			)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return counts, err
	}
	return counts, nil
}
