// Package tracker owns the scraping task lifecycle:
//
//	queued --> in_progress --> completed
//	                       \-> failed
//
// completed and failed are terminal. Every write goes to the task table
// first and is then mirrored to the status cache on a best-effort basis.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fitfinder/ingest/internal/domain"
	"fitfinder/ingest/internal/metrics"
	"fitfinder/ingest/internal/repository"
	"fitfinder/ingest/internal/state"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidTransition = errors.New("invalid task status transition")

type Tracker struct {
	repo  repository.TaskRepository
	cache state.StatusCache

	mu           sync.Mutex
	lastProgress map[int64]int
}

// New returns a Tracker. cache may be nil.
func New(repo repository.TaskRepository, cache state.StatusCache) *Tracker {
	return &Tracker{
		repo:         repo,
		cache:        cache,
		lastProgress: make(map[int64]int),
	}
}

// SetStatus moves the task to next, rejecting moves that would break the
// state machine with ErrInvalidTransition.
func (t *Tracker) SetStatus(ctx context.Context, taskID int64, next domain.TaskStatus) error {
	task, err := t.repo.TransitionStatus(ctx, taskID, next, domain.Predecessors(next))
	if err != nil {
		return err
	}
	if task == nil {
		current, err := t.repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: task %d is %s, cannot move to %s", ErrInvalidTransition, taskID, current.Status, next)
	}

	t.mirror(ctx, task)
	return nil
}

// SetProgress stores a raw "<processed>/<total>" string.
func (t *Tracker) SetProgress(ctx context.Context, taskID int64, progress string) error {
	task, err := t.repo.UpdateProgress(ctx, taskID, progress)
	if err != nil {
		return err
	}
	t.mirror(ctx, task)
	return nil
}

// ReportProgress records processed/total unless it would move the counter
// backwards within the current run.
func (t *Tracker) ReportProgress(ctx context.Context, taskID int64, processed, total int) error {
	t.mu.Lock()
	last, seen := t.lastProgress[taskID]
	if seen && processed < last {
		t.mu.Unlock()
		log.WithField("task_id", taskID).Warnf("Ignoring progress %d/%d below last reported %d", processed, total, last)
		return nil
	}
	t.lastProgress[taskID] = processed
	t.mu.Unlock()

	return t.SetProgress(ctx, taskID, domain.FormatProgress(processed, total))
}

func (t *Tracker) Start(ctx context.Context, taskID int64) error {
	t.forget(taskID)
	return t.SetStatus(ctx, taskID, domain.TaskStatusInProgress)
}

func (t *Tracker) Complete(ctx context.Context, taskID int64, summary domain.ProcessingSummary) error {
	defer t.forget(taskID)

	if err := t.SetProgress(ctx, taskID, summary.Progress()); err != nil {
		return err
	}
	if err := t.SetStatus(ctx, taskID, domain.TaskStatusCompleted); err != nil {
		return err
	}
	metrics.TaskRuns.WithLabelValues(domain.TaskStatusCompleted.String()).Inc()
	return nil
}

// Fail marks the task failed. A failure to record the status is logged and
// swallowed so the caller can return the original cause.
func (t *Tracker) Fail(ctx context.Context, taskID int64, cause error) {
	defer t.forget(taskID)

	logger := log.WithField("task_id", taskID)
	logger.Errorf("❌ Task failed: %v", cause)

	// The run's context may already be cancelled; the status write must
	// still go out.
	if err := t.SetStatus(context.WithoutCancel(ctx), taskID, domain.TaskStatusFailed); err != nil {
		logger.Errorf("Failed to update task status to failed: %v", err)
		return
	}
	metrics.TaskRuns.WithLabelValues(domain.TaskStatusFailed.String()).Inc()
}

func (t *Tracker) forget(taskID int64) {
	t.mu.Lock()
	delete(t.lastProgress, taskID)
	t.mu.Unlock()
}

func (t *Tracker) mirror(ctx context.Context, task *domain.ScrapingTask) {
	if t.cache == nil || task == nil {
		return
	}
	if err := t.cache.Put(ctx, task); err != nil {
		logger := log.WithField("task_id", task.ID)
		logger.Warnf("Failed to mirror task status: %v", err)
		if err := t.cache.Invalidate(ctx, task.ID); err != nil {
			logger.Warnf("Failed to drop cached task status: %v", err)
		}
	}
}
