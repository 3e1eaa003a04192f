package task

import "errors"

const ScrapeTaskType = "ScrapeTask"

// ScrapeTask is the queue message that triggers one ingestion run.
type ScrapeTask struct {
	TaskID int64  `json:"taskid"`
	URL    string `json:"url"`
}

func (t *ScrapeTask) TaskType() string {
	return ScrapeTaskType
}

func (t *ScrapeTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

func (t *ScrapeTask) Validate() error {
	if t.TaskID <= 0 {
		return errors.New("scrape task has no task id")
	}
	if t.URL == "" {
		return errors.New("scrape task has no url")
	}
	return nil
}
