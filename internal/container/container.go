package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fitfinder/ingest/internal/catalog"
	"fitfinder/ingest/internal/client"
	"fitfinder/ingest/internal/config"
	"fitfinder/ingest/internal/metrics"
	"fitfinder/ingest/internal/pipeline"
	"fitfinder/ingest/internal/proxy"
	"fitfinder/ingest/internal/queue"
	"fitfinder/ingest/internal/repository"
	"fitfinder/ingest/internal/service"
	"fitfinder/ingest/internal/state"
	"fitfinder/ingest/internal/tracker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config  *config.Config
	Client  client.CatalogClient
	Tasks   repository.TaskRepository
	Items   repository.ItemRepository
	Queue   queue.Queue
	Cache   state.StatusCache
	Tracker *tracker.Tracker

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	db, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	container.db = db
	log.Info("✅ Connected to Postgres successfully")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	container.redis = rdb

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis.ConsumerGroup)
	if err != nil {
		container.Close()
		return nil, err
	}
	container.Queue = redisQueue

	proxySupplier, err := proxy.NewProxySupplier(ctx, cfg.Catalog.Proxies, cfg.Catalog.ProxyProbeURL)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	container.Client = client.NewCatalogClient(cfg.Catalog, proxySupplier)
	container.Tasks = repository.NewTaskRepository(db)
	container.Items = repository.NewItemRepository(db)
	container.Cache = state.NewRedisStatusCache(rdb, time.Duration(cfg.Redis.StatusTTL)*time.Second)
	container.Tracker = tracker.New(container.Tasks, container.Cache)

	ingest := pipeline.New(
		catalog.NewWalker(container.Client, cfg.Catalog.MaxPages),
		container.Client,
		container.Items,
		container.Tracker,
		pipeline.Options{
			MaxItems:         cfg.Catalog.MaxItems,
			ProgressInterval: cfg.Catalog.ProgressInterval,
		},
	)

	container.Service = service.NewService(
		container.Tasks,
		container.Cache,
		container.Tracker,
		redisQueue,
		ingest,
		cfg.Redis.ConsumerGroup,
		cfg.Redis.MinIdleTime,
	)

	return container, nil
}

// Run starts the stream workers and, when enabled, the metrics endpoint.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Service.RunWorkers(ctx, c.Config.Worker.Count)
	})

	if c.Config.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(ctx, c.Config.Metrics.Port)
		})
	}

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
