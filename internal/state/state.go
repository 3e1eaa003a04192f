package state

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fitfinder/ingest/internal/domain"

	"github.com/redis/go-redis/v9"
)

// StatusCache mirrors each task's status and progress for polling clients.
// The relational store stays the source of truth.
type StatusCache interface {
	Put(ctx context.Context, task *domain.ScrapingTask) error
	Get(ctx context.Context, taskID int64) (*domain.ScrapingTask, bool, error)
	Invalidate(ctx context.Context, taskID int64) error
}

type redisStatusCache struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

func NewRedisStatusCache(redisClient *redis.Client, ttl time.Duration) StatusCache {
	return &redisStatusCache{
		redisClient: redisClient,
		keyPrefix:   "fitfinder:task:",
		ttl:         ttl,
	}
}

func (s *redisStatusCache) key(taskID int64) string {
	return s.keyPrefix + strconv.FormatInt(taskID, 10)
}

func (s *redisStatusCache) Put(ctx context.Context, task *domain.ScrapingTask) error {
	key := s.key(task.ID)

	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeTask(task))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache status for task %d: %w", task.ID, err)
	}
	return nil
}

func (s *redisStatusCache) Get(ctx context.Context, taskID int64) (*domain.ScrapingTask, bool, error) {
	fields, err := s.redisClient.HGetAll(ctx, s.key(taskID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached status for task %d: %w", taskID, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	task, ok := decodeTask(taskID, fields)
	return task, ok, nil
}

func (s *redisStatusCache) Invalidate(ctx context.Context, taskID int64) error {
	if err := s.redisClient.Del(ctx, s.key(taskID)).Err(); err != nil {
		return fmt.Errorf("failed to drop cached status for task %d: %w", taskID, err)
	}
	return nil
}

func encodeTask(task *domain.ScrapingTask) map[string]any {
	return map[string]any{
		"url":      task.SourceURL,
		"status":   task.Status.String(),
		"progress": task.Progress,
	}
}

// decodeTask rejects entries with an unknown status so a bad cache entry
// falls through to the store.
func decodeTask(taskID int64, fields map[string]string) (*domain.ScrapingTask, bool) {
	status := domain.TaskStatus(fields["status"])
	if !status.Valid() {
		return nil, false
	}
	return &domain.ScrapingTask{
		ID:        taskID,
		SourceURL: fields["url"],
		Status:    status,
		Progress:  fields["progress"],
	}, true
}
