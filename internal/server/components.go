package server

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sngm3741/avero-reporting/api/internal/config"
	"github.com/sngm3741/avero-reporting/api/internal/infrastructure/avero"
	mongodoc "github.com/sngm3741/avero-reporting/api/internal/infrastructure/mongo"
	"github.com/sngm3741/avero-reporting/api/internal/infrastructure/redisstore"
	"github.com/sngm3741/avero-reporting/api/internal/observability/metrics"
	reportingapp "github.com/sngm3741/avero-reporting/api/internal/reporting/application"
)

// Components はレポート生成・集計・同期のアプリケーションサービスを束ねたもの。
// HTTP サーバーと cmd/generate の双方がここから依存を受け取る。
type Components struct {
	Database   *mongo.Database
	Redis      *redis.Client
	Queries    reportingapp.ReportQueryService
	Generation reportingapp.GenerationService
	Sync       reportingapp.SyncService
}

// ComponentOptions overrides values that normally come from Config.
type ComponentOptions struct {
	// AveroAuth replaces AVERO_API_KEY when set.
	AveroAuth string
}

// CollectionNames maps Config onto the Mongo collection set.
func CollectionNames(cfg config.Config) mongodoc.Collections {
	return mongodoc.Collections{
		Businesses:   cfg.BusinessCollection,
		Employees:    cfg.EmployeeCollection,
		OrderedItems: cfg.OrderedItemCollection,
		LaborEntries: cfg.LaborEntryCollection,
		EGS:          cfg.EGSCollection,
		FCP:          cfg.FCPCollection,
		LCP:          cfg.LCPCollection,
	}
}

// NewComponents wires Mongo, Redis, the Avero client and metrics into the application services.
// Redis and the Avero client are optional: without them runs are not locked across processes,
// results are not cached, and Sync is nil.
func NewComponents(ctx context.Context, cfg config.Config, client *mongo.Client, opts ComponentOptions) (*Components, error) {
	logger := cfg.Logger
	db := client.Database(cfg.MongoDatabase)
	names := CollectionNames(cfg)
	m := metrics.ReportingWithConfig(metrics.Config{Environment: cfg.Environment})

	if err := mongodoc.EnsureIndexes(ctx, db, names); err != nil {
		logger.WithError(err).Warn("failed to ensure indexes")
	}

	c := &Components{Database: db}

	var (
		locker reportingapp.RunLocker
		cache  reportingapp.ResultCache
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unavailable; running without lock and cache")
		} else {
			c.Redis = rdb
			locker = redisstore.NewLocker(rdb)
			cache = redisstore.NewResultCache(rdb, cfg.ReportCacheTTL)
		}
	}

	generation, err := reportingapp.NewGenerationService(reportingapp.GeneratorDeps{
		Reader:    mongodoc.NewFactReader(db, names),
		Store:     mongodoc.NewFactStore(db, names),
		Locker:    locker,
		Cache:     cache,
		Metrics:   m,
		Logger:    logger,
		BatchSize: cfg.InsertBatchSize,
		LockTTL:   cfg.GenerationLockTTL,
	})
	if err != nil {
		return nil, err
	}
	c.Generation = generation

	c.Queries = reportingapp.NewReportQueryService(reportingapp.ReportQueryDeps{
		Repo:    mongodoc.NewRollupRepository(db, names),
		Cache:   cache,
		Metrics: m,
		Logger:  logger,
	})

	auth := strings.TrimSpace(opts.AveroAuth)
	if auth == "" {
		auth = cfg.AveroAPIKey
	}
	source, err := avero.NewClient(cfg.AveroAPIURL, auth, cfg.AveroTimeout)
	if err != nil {
		logger.WithError(err).Debug("avero sync disabled")
	} else {
		c.Sync = reportingapp.NewSyncService(reportingapp.SyncDeps{
			Source:   source,
			Store:    mongodoc.NewRawStore(db, names),
			Logger:   logger,
			PageSize: cfg.AveroPageSize,
		})
	}

	return c, nil
}

// Close releases the Redis connection. The Mongo client belongs to the caller.
func (c *Components) Close(logger *logrus.Logger) {
	if c.Redis == nil {
		return
	}
	if err := c.Redis.Close(); err != nil {
		logger.WithError(err).Warn("redis close failed")
	}
}
