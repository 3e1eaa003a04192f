package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"fitfinder/ingest/internal/domain"
	"fitfinder/ingest/internal/domain/task"
	"fitfinder/ingest/internal/queue"
	"fitfinder/ingest/internal/repository"
	"fitfinder/ingest/internal/state"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidURL = errors.New("invalid catalog url")

type Runner interface {
	Run(ctx context.Context, t *task.ScrapeTask) (domain.ProcessingSummary, error)
}

type TaskFailer interface {
	Fail(ctx context.Context, taskID int64, cause error)
}

type Service struct {
	tasks       repository.TaskRepository
	cache       state.StatusCache
	tracker     TaskFailer
	queue       queue.Queue
	runner      Runner
	groupName   string
	minIdleTime time.Duration
	heartbeat   time.Duration

	// running holds the ids of tasks with a run in this process.
	running sync.Map
}

func NewService(
	tasks repository.TaskRepository,
	cache state.StatusCache,
	tracker TaskFailer,
	queue queue.Queue,
	runner Runner,
	groupName string,
	minIdleTime int,
) *Service {
	if minIdleTime <= 0 {
		minIdleTime = 60
	}
	return &Service{
		tasks:       tasks,
		cache:       cache,
		tracker:     tracker,
		queue:       queue,
		runner:      runner,
		groupName:   groupName,
		minIdleTime: time.Duration(minIdleTime) * time.Second,
		heartbeat:   time.Duration(minIdleTime) * time.Second / 3,
	}
}

// Submit records a queued task for catalogURL and puts it on the task stream.
func (s *Service) Submit(ctx context.Context, catalogURL string) (*domain.ScrapingTask, error) {
	if err := validateCatalogURL(catalogURL); err != nil {
		return nil, err
	}

	created, err := s.tasks.CreateTask(ctx, catalogURL)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, created)

	if _, err := s.queue.AddTask(ctx, &task.ScrapeTask{TaskID: created.ID, URL: created.SourceURL}); err != nil {
		s.tracker.Fail(ctx, created.ID, err)
		return nil, fmt.Errorf("failed to enqueue task %d: %w", created.ID, err)
	}

	log.WithField("task_id", created.ID).Infof("📥 Queued catalog %s", catalogURL)
	return created, nil
}

// Poll returns the current status and progress of a task. Only terminal
// statuses are answered from the cache; anything still moving is read
// from the task table.
func (s *Service) Poll(ctx context.Context, taskID int64) (*domain.ScrapingTask, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, taskID)
		if err != nil {
			log.WithField("task_id", taskID).Warnf("Status cache unavailable: %v", err)
		} else if ok && cached.Status.IsTerminal() {
			return cached, nil
		}
	}

	current, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, current)
	return current, nil
}

func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	s.runWorkersForStream(ctx, &wg, numWorkers, queue.StreamName(task.ScrapeTaskType))

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName string) {
	instance := uuid.NewString()

	// Auto-claimer picks up deliveries whose run failed or whose worker died.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		consumer := fmt.Sprintf("autoclaimer-%s", instance)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				claimedMessages, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				for _, msg := range claimedMessages {
					log.Infof("🔄 Redelivering message %s from %s", msg.ID, streamName)
					if err := s.processMessage(ctx, streamName, consumer, &msg); err != nil {
						log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("worker-%d-%s", workerID, instance)
			log.Infof("🚀 Starting worker %d as consumer %s", workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 Worker %d stopping", workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
					if err != nil {
						if ctx.Err() == nil {
							log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
							time.Sleep(time.Second)
						}
						continue
					}

					if msg != nil {
						if err := s.processMessage(ctx, streamName, consumer, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

// processMessage runs the task in msg. The message is acknowledged when
// the run succeeds or can never succeed; a failed run leaves it pending so
// the auto-claimer redelivers it. While the run is going the delivery is
// kept fresh so no other consumer claims it.
func (s *Service) processMessage(ctx context.Context, streamName, consumer string, msg *redis.XMessage) error {
	scrape, err := decodeScrapeTask(msg)
	if err != nil {
		log.Errorf("❌ Dropping malformed message %s: %v", msg.ID, err)
		return s.ack(ctx, streamName, msg.ID)
	}

	logger := log.WithField("task_id", scrape.TaskID)

	current, err := s.tasks.GetTask(ctx, scrape.TaskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		logger.Warnf("Dropping message %s for unknown task", msg.ID)
		return s.ack(ctx, streamName, msg.ID)
	}
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		logger.Infof("Task already %s, dropping message %s", current.Status, msg.ID)
		return s.ack(ctx, streamName, msg.ID)
	}

	if _, busy := s.running.LoadOrStore(scrape.TaskID, struct{}{}); busy {
		logger.Infof("Task is already running, leaving message %s pending", msg.ID)
		return nil
	}
	defer s.running.Delete(scrape.TaskID)

	stop := s.keepAlive(ctx, streamName, consumer, msg.ID)
	_, err = s.runner.Run(ctx, scrape)
	stop()
	if err != nil {
		return fmt.Errorf("task %d: %w", scrape.TaskID, err)
	}

	return s.ack(ctx, streamName, msg.ID)
}

// keepAlive touches msgID every heartbeat until stop is called.
func (s *Service) keepAlive(ctx context.Context, streamName, consumer, msgID string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.queue.Touch(ctx, s.groupName, consumer, streamName, msgID); err != nil && ctx.Err() == nil {
					log.Warnf("Failed to refresh message %s: %v", msgID, err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *Service) ack(ctx context.Context, streamName, msgID string) error {
	if err := s.queue.AckTask(ctx, streamName, s.groupName, msgID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msgID, err)
	}
	return nil
}

func (s *Service) mirror(ctx context.Context, t *domain.ScrapingTask) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, t); err != nil {
		logger := log.WithField("task_id", t.ID)
		logger.Warnf("Failed to cache task status: %v", err)
		if err := s.cache.Invalidate(ctx, t.ID); err != nil {
			logger.Warnf("Failed to drop cached task status: %v", err)
		}
	}
}

func decodeScrapeTask(msg *redis.XMessage) (*task.ScrapeTask, error) {
	taskType, data, err := queue.DecodeMessage(msg)
	if err != nil {
		return nil, err
	}
	scrape, err := task.Decode[task.ScrapeTask](taskType, data)
	if err != nil {
		return nil, err
	}
	if err := scrape.Validate(); err != nil {
		return nil, err
	}
	return scrape, nil
}

func validateCatalogURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must be an absolute http(s) url", ErrInvalidURL, raw)
	}
	return nil
}
