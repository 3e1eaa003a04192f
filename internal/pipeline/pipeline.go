package pipeline

import (
	"context"
	"fmt"

	"fitfinder/ingest/internal/domain"
	"fitfinder/ingest/internal/domain/task"
	"fitfinder/ingest/internal/metrics"

	log "github.com/sirupsen/logrus"
)

type CatalogWalker interface {
	Walk(ctx context.Context, baseURL string) (*domain.CatalogResults, error)
}

type DetailFetcher interface {
	GetItemDetail(ctx context.Context, detailLink string) (*domain.ItemDetail, error)
}

type ItemStore interface {
	ItemExists(ctx context.Context, name string) (bool, error)
	// InsertItem stores the item and its variants atomically.
	InsertItem(ctx context.Context, item domain.Item, variants domain.ItemVariants) (domain.InsertOutcome, error)
}

type TaskTracker interface {
	Start(ctx context.Context, taskID int64) error
	ReportProgress(ctx context.Context, taskID int64, processed, total int) error
	Complete(ctx context.Context, taskID int64, summary domain.ProcessingSummary) error
	Fail(ctx context.Context, taskID int64, cause error)
}

type Options struct {
	// MaxItems caps the entries processed per run; 0 means no cap.
	MaxItems         int
	ProgressInterval int
}

// Pipeline runs one scrape task: walk the listing, then fetch, dedupe and
// persist every entry in listing order.
type Pipeline struct {
	walker  CatalogWalker
	details DetailFetcher
	items   ItemStore
	tracker TaskTracker
	opts    Options
}

func New(walker CatalogWalker, details DetailFetcher, items ItemStore, tracker TaskTracker, opts Options) *Pipeline {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 10
	}
	return &Pipeline{
		walker:  walker,
		details: details,
		items:   items,
		tracker: tracker,
		opts:    opts,
	}
}

// Run executes t start to finish. On any fatal error the task is marked
// failed and the error is returned so the queue can redeliver.
func (p *Pipeline) Run(ctx context.Context, t *task.ScrapeTask) (domain.ProcessingSummary, error) {
	logger := log.WithField("task_id", t.TaskID)

	if err := p.tracker.Start(ctx, t.TaskID); err != nil {
		return domain.ProcessingSummary{}, fmt.Errorf("failed to start task %d: %w", t.TaskID, err)
	}
	logger.Infof("🚀 Ingesting catalog %s", t.URL)

	summary, err := p.run(ctx, t)
	if err != nil {
		p.tracker.Fail(ctx, t.TaskID, err)
		return summary, err
	}

	if err := p.tracker.Complete(ctx, t.TaskID, summary); err != nil {
		p.tracker.Fail(ctx, t.TaskID, err)
		return summary, fmt.Errorf("failed to complete task %d: %w", t.TaskID, err)
	}

	logger.Infof("✅ Task completed: %s entries processed", summary.Progress())
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, t *task.ScrapeTask) (domain.ProcessingSummary, error) {
	results, err := p.walker.Walk(ctx, t.URL)
	if err != nil {
		return domain.ProcessingSummary{}, fmt.Errorf("failed to walk catalog: %w", err)
	}

	entries := results.Entries()
	log.WithField("task_id", t.TaskID).Infof("📚 Catalog is %d pages, %d entries", len(results.Pages), len(entries))

	return p.Ingest(ctx, t.TaskID, entries)
}

// Ingest processes entries in order and reports progress every
// ProgressInterval entries.
func (p *Pipeline) Ingest(ctx context.Context, taskID int64, entries []domain.ListingEntry) (domain.ProcessingSummary, error) {
	logger := log.WithField("task_id", taskID)
	summary := domain.ProcessingSummary{Total: len(entries)}

	for _, entry := range entries {
		if p.opts.MaxItems > 0 && summary.Processed >= p.opts.MaxItems {
			logger.Infof("Reached item cap of %d, %d entries left unprocessed", p.opts.MaxItems, summary.Total-summary.Processed)
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Processed++
		if summary.Processed%p.opts.ProgressInterval == 0 {
			if err := p.tracker.ReportProgress(ctx, taskID, summary.Processed, summary.Total); err != nil {
				return summary, fmt.Errorf("failed to report progress: %w", err)
			}
		}

		if err := p.ingestEntry(ctx, logger, entry); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (p *Pipeline) ingestEntry(ctx context.Context, logger *log.Entry, entry domain.ListingEntry) error {
	detail, err := p.details.GetItemDetail(ctx, entry.DetailLink)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warnf("Skipping %q: %v", entry.Title, err)
		metrics.ItemsSkipped.WithLabelValues(metrics.SkipNoDetail).Inc()
		return nil
	}

	exists, err := p.items.ItemExists(ctx, entry.Title)
	if err != nil {
		return err
	}
	if exists {
		logger.Debugf("Item %q already exists, skipping", entry.Title)
		metrics.ItemsSkipped.WithLabelValues(metrics.SkipDuplicate).Inc()
		return nil
	}

	variants, truncated := detail.Variants()
	if truncated {
		logger.Warnf("Item %q has %d colors but %d photo links, keeping %d",
			entry.Title, len(detail.Colors), len(detail.PhotoLinks), len(variants.Colors))
	}

	outcome, err := p.items.InsertItem(ctx, domain.Item{
		Name:   entry.Title,
		Price:  entry.Price,
		Gender: detail.Gender,
	}, variants)
	if err != nil {
		return err
	}
	if outcome.Status == domain.InsertStatusAlreadyExists {
		logger.Infof("Item %q was inserted concurrently, skipping", entry.Title)
		metrics.ItemsSkipped.WithLabelValues(metrics.SkipConflict).Inc()
		return nil
	}

	metrics.ItemsInserted.Inc()
	return nil
}
