package container

import (
	"context"
	"errors"
	"fmt"

	"cropadvisor/adapters/cache"
	"cropadvisor/adapters/events"
	"cropadvisor/adapters/model"
	"cropadvisor/adapters/mqtt"
	"cropadvisor/adapters/sqlstore"
	"cropadvisor/internal"
	"cropadvisor/internal/api"
	"cropadvisor/internal/config"
	"cropadvisor/internal/farmers"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/migration"
	"cropadvisor/internal/modelstore"
	"cropadvisor/internal/recommend"
	"cropadvisor/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB      *sqlx.DB
	Metrics *metrics.Metrics
	Models  *modelstore.Store

	// Repositories (data access layer)
	FarmerRepo         ports.FarmerRepository
	RecommendationRepo ports.RecommendationRepository

	// Cache tiers; Redis is nil when not configured or unreachable
	LocalCache *cache.LocalCache
	RedisCache *cache.RedisCache

	// Event delivery
	Kafka     ports.EventPublisher
	EventHub  *api.EventHub
	Publisher ports.EventPublisher

	// Services
	Farmers     *farmers.Service
	Recommender *recommend.Service
	Server      *api.Server
	Subscriber  *mqtt.Subscriber
}

// New creates a new dependency injection container and wires every
// component the configuration enables.
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	c.Models = modelstore.New(model.NewLoader(model.Options{
		ManifestPath:  cfg.Model.ManifestPath,
		RemoteURL:     cfg.Model.RemoteURL,
		RemoteTimeout: cfg.Model.RemoteTimeout,
	}), logger)

	if cfg.Database.Enabled() {
		if err := c.initDatabase(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	var resultCache ports.ResultCache
	if cfg.Cache.Enabled {
		resultCache = c.initCache(ctx)
	}

	if err := c.initEvents(); err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize events: %w", err)
	}

	c.Recommender = recommend.NewService(c.Models, recommend.Options{
		Cache:            resultCache,
		History:          c.RecommendationRepo,
		Farmers:          c.FarmerRepo,
		Events:           c.Publisher,
		Metrics:          c.Metrics,
		Logger:           logger,
		BatchConcurrency: cfg.Batch.Concurrency,
	})

	c.Server = api.NewServer(api.Deps{
		Recommender: c.Recommender,
		Farmers:     c.Farmers,
		Hub:         c.EventHub,
		Metrics:     c.Metrics,
		Logger:      logger,
		MaxRows:     cfg.Batch.MaxRows,
	})

	if cfg.Ingest.MQTTBroker != "" {
		c.Subscriber = mqtt.NewSubscriber(mqtt.Config{
			Broker:   cfg.Ingest.MQTTBroker,
			Topic:    cfg.Ingest.Topic,
			ClientID: cfg.Ingest.ClientID,
			QoS:      1,
		}, c.Recommender, c.Metrics, logger)
	}

	logger.Info("Container initialized (database=%t, cache=%t, redis=%t, kafka=%t, mqtt=%t)",
		c.DB != nil, resultCache != nil, c.RedisCache != nil, c.Kafka != nil, c.Subscriber != nil)
	return c, nil
}

// initDatabase opens the database, applies migrations and builds the
// repositories and the farmer service on top of it.
func (c *Container) initDatabase(ctx context.Context) error {
	db, err := sqlstore.Open(c.Config.Database.URL, c.Config.Database.MaxOpenConns, c.Config.Database.ConnMaxLifetime)
	if err != nil {
		return err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migration failed: %w", err)
	}

	c.DB = db
	c.FarmerRepo = sqlstore.NewFarmerRepository(db)
	c.RecommendationRepo = sqlstore.NewRecommendationRepository(db)
	c.Farmers = farmers.NewService(c.FarmerRepo, c.Config.Database.BcryptCost, c.Logger)
	return nil
}

// initCache builds the local tier and, when configured, the shared Redis
// tier. An unreachable Redis degrades to local-only caching.
func (c *Container) initCache(ctx context.Context) ports.ResultCache {
	cfg := c.Config.Cache
	c.LocalCache = cache.NewLocalCache(cfg.TTL, cfg.MaxItems)
	if cfg.RedisAddr == "" {
		return c.LocalCache
	}

	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
	if err != nil {
		c.Logger.Warn("Redis cache unavailable, continuing with local cache only: %v", err)
		return c.LocalCache
	}
	c.RedisCache = redisCache
	return cache.NewTieredCache(c.LocalCache, redisCache)
}

func (c *Container) initEvents() error {
	c.EventHub = api.NewEventHub(c.Logger)
	publishers := []ports.EventPublisher{c.EventHub}

	if len(c.Config.Events.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(c.Config.Events.KafkaBrokers, c.Config.Events.Topic)
		if err != nil {
			return err
		}
		c.Kafka = kafka
		publishers = append(publishers, kafka)
	}

	c.Publisher = events.NewFanout(publishers...)
	return nil
}

// StartIngest connects the MQTT subscriber when one is configured
func (c *Container) StartIngest() error {
	if c.Subscriber == nil {
		return nil
	}
	return c.Subscriber.Start()
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if c.Subscriber != nil {
		c.Subscriber.Stop()
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
	} else if c.EventHub != nil {
		c.EventHub.Close()
	}
	if c.LocalCache != nil {
		c.LocalCache.Close()
	}
	if c.RedisCache != nil {
		if err := c.RedisCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
