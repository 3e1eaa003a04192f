package queue

import (
	"testing"

	"fitfinder/ingest/internal/domain/task"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamName(t *testing.T) {
	assert.Equal(t, "fitfinder:stream:ScrapeTask", StreamName(task.ScrapeTaskType))
}

func TestDecodeMessage(t *testing.T) {
	payload, err := (&task.ScrapeTask{TaskID: 4, URL: "https://shop.example/c"}).TaskValue()
	require.NoError(t, err)

	taskType, data, err := DecodeMessage(&redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"task_type": task.ScrapeTaskType, "task_data": string(payload)},
	})
	require.NoError(t, err)
	assert.Equal(t, task.ScrapeTaskType, taskType)

	decoded, err := task.Decode[task.ScrapeTask](taskType, data)
	require.NoError(t, err)
	assert.Equal(t, int64(4), decoded.TaskID)
	assert.Equal(t, "https://shop.example/c", decoded.URL)
}

func TestDecodeMessageRejectsMissingFields(t *testing.T) {
	_, _, err := DecodeMessage(&redis.XMessage{ID: "1-0", Values: map[string]interface{}{"task_data": "{}"}})
	assert.Error(t, err)

	_, _, err = DecodeMessage(&redis.XMessage{ID: "1-0", Values: map[string]interface{}{"task_type": "ScrapeTask"}})
	assert.Error(t, err)
}
