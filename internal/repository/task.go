package repository

import (
	"context"
	"errors"
	"fmt"

	"fitfinder/ingest/internal/domain"

	"github.com/jackc/pgx/v5"
)

type TaskRepository interface {
	CreateTask(ctx context.Context, sourceURL string) (*domain.ScrapingTask, error)
	GetTask(ctx context.Context, id int64) (*domain.ScrapingTask, error)
	// TransitionStatus moves the task to next only if its current status is
	// one of from. It returns nil, nil when no row matched.
	TransitionStatus(ctx context.Context, id int64, next domain.TaskStatus, from []domain.TaskStatus) (*domain.ScrapingTask, error)
	UpdateProgress(ctx context.Context, id int64, progress string) (*domain.ScrapingTask, error)
}

const taskColumns = `taskid, task_url, task_status, task_progress`

type taskRepository struct {
	db Querier
}

func NewTaskRepository(db Querier) TaskRepository {
	return &taskRepository{
		db: db,
	}
}

func (r *taskRepository) CreateTask(ctx context.Context, sourceURL string) (*domain.ScrapingTask, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO scraping_tasks (task_url, task_status, task_progress) VALUES ($1, $2, $3) RETURNING `+taskColumns,
		sourceURL, domain.TaskStatusQueued.String(), domain.ProgressNotAvailable,
	)
	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) GetTask(ctx context.Context, id int64) (*domain.ScrapingTask, error) {
	row := r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM scraping_tasks WHERE taskid = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return task, nil
}

func (r *taskRepository) TransitionStatus(ctx context.Context, id int64, next domain.TaskStatus, from []domain.TaskStatus) (*domain.ScrapingTask, error) {
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, s.String())
	}

	row := r.db.QueryRow(ctx,
		`UPDATE scraping_tasks SET task_status = $2
         WHERE taskid = $1 AND task_status = ANY($3)
         RETURNING `+taskColumns,
		id, next.String(), allowed,
	)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set task %d status to %s: %w", id, next, err)
	}
	return task, nil
}

func (r *taskRepository) UpdateProgress(ctx context.Context, id int64, progress string) (*domain.ScrapingTask, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE scraping_tasks SET task_progress = $2 WHERE taskid = $1 RETURNING `+taskColumns,
		id, progress,
	)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set task %d progress: %w", id, err)
	}
	return task, nil
}

func scanTask(row pgx.Row) (*domain.ScrapingTask, error) {
	var (
		task   domain.ScrapingTask
		status string
	)
	if err := row.Scan(&task.ID, &task.SourceURL, &status, &task.Progress); err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatus(status)
	return &task, nil
}
