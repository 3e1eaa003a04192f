package task

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnexpectedTaskType = errors.New("unexpected task type")

// Task is a unit of work carried on the queue stream named after TaskType.
type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task any) ([]byte, error) {
	return json.Marshal(task)
}

// Decode unmarshals data into a new T after checking that the message was
// written for T.
func Decode[T any, PT interface {
	*T
	Task
}](taskType string, data []byte) (PT, error) {
	t := PT(new(T))
	if taskType != t.TaskType() {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedTaskType, taskType, t.TaskType())
	}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", taskType, err)
	}
	return t, nil
}
