package domain

import "fmt"

type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// ProgressNotAvailable is stored on freshly submitted tasks.
const ProgressNotAvailable = "not available yet"

func (s TaskStatus) String() string {
	return string(s)
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next keeps the status
// sequence monotonic. Re-entering in_progress is allowed so a reclaimed
// delivery can restart a run whose worker died.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusQueued:
		return next == TaskStatusInProgress || next == TaskStatusFailed
	case TaskStatusInProgress:
		return next == TaskStatusInProgress || next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// ScrapingTask is the persisted record of one ingestion run.
type ScrapingTask struct {
	ID        int64      `json:"task_id"`
	SourceURL string     `json:"task_url"`
	Status    TaskStatus `json:"task_status"`
	Progress  string     `json:"task_progress"`
}

type ProcessingSummary struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

func (s ProcessingSummary) Progress() string {
	return FormatProgress(s.Processed, s.Total)
}

func FormatProgress(processed, total int) string {
	return fmt.Sprintf("%d/%d", processed, total)
}

var taskStatuses = []TaskStatus{TaskStatusQueued, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed}

// Predecessors lists the statuses that may move to next.
func Predecessors(next TaskStatus) []TaskStatus {
	var from []TaskStatus
	for _, s := range taskStatuses {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}
