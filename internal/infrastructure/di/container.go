// Package di wires the object graph: infrastructure, repositories,
// domain services, handlers, and workers.
package di

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/referral-service/referral_service/internal/api/handlers"
	"github.com/referral-service/referral_service/internal/domain/services/fees"
	"github.com/referral-service/referral_service/internal/domain/services/revenue"
	"github.com/referral-service/referral_service/internal/infrastructure/adapters"
	"github.com/referral-service/referral_service/internal/infrastructure/adapters/processor"
	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/internal/infrastructure/config"
	"github.com/referral-service/referral_service/internal/infrastructure/database"
	"github.com/referral-service/referral_service/internal/workers/revenue_snapshot_worker"
	"github.com/referral-service/referral_service/pkg/logger"
)

// Container holds every constructed component
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	DB          *sqlx.DB
	Redis       cache.RedisClient
	ResultCache *cache.ResultCache

	Repos *Repositories

	FeeResolver    *fees.Resolver
	RevenueService *revenue.Service

	HealthHandler       *handlers.HealthHandler
	FeeHandler          *handlers.FeeHandler
	RevenueHandler      *handlers.RevenueHandler
	SellerHandler       *handlers.SellerHandler
	NotificationHandler *handlers.NotificationHandler
	CouponHandler       *handlers.CouponHandler

	SnapshotWorker *revenue_snapshot_worker.Worker
}

// New builds the full container. Redis is optional: a connection
// failure is logged and snapshot caching is disabled.
func New(cfg *config.Config, log *logger.Logger, version string) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	c.DB = db

	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Warn("Redis unavailable, snapshot caching disabled", "error", err)
	} else {
		c.Redis = redisClient
	}

	c.ResultCache = cache.NewResultCache(log.Zap())

	c.Repos = newRepositories(db, cfg.Fees.BatchChunkSize, log)

	calculator, err := fees.NewCalculator(cfg.Fees, log.Zap())
	if err != nil {
		return nil, fmt.Errorf("fee calculator: %w", err)
	}

	intentClient := processor.NewClient(processor.Config{
		APIKey:  cfg.Processor.APIKey,
		BaseURL: cfg.Processor.BaseURL,
		Timeout: time.Duration(cfg.Processor.Timeout) * time.Second,
		MemoTTL: time.Duration(cfg.Processor.MemoTTL) * time.Second,
	}, c.ResultCache, log.Zap())

	c.FeeResolver = fees.NewResolver(
		c.Repos.FeeOverrides,
		c.Repos.CouponRedemptions,
		c.Repos.RecordedPayments,
		c.Repos.UserProfiles,
		intentClient,
		calculator,
		fees.NewDefaultTable(cfg.Fees),
		c.ResultCache,
		cfg.Fees.CohortConcurrency,
		log,
	)

	c.RevenueService = revenue.NewService(c.Repos.UserProfiles, c.FeeResolver, log)

	notifier := adapters.NewWebhookNotifier(
		cfg.Webhook.SellerAlertURL,
		time.Duration(cfg.Webhook.Timeout)*time.Second,
		log.Zap(),
	)
	emailService := adapters.NewEmailService(adapters.EmailServiceConfig{
		APIKey:    cfg.Email.APIKey,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	}, log.Zap())

	c.HealthHandler = handlers.NewHealthHandler(db, c.Redis, log.Zap(), version)
	c.FeeHandler = handlers.NewFeeHandler(c.FeeResolver, c.Repos.FeeOverrides, c.Repos.RecordedPayments, log.Zap())
	c.RevenueHandler = handlers.NewRevenueHandler(c.RevenueService, c.Redis, log.Zap())
	c.SellerHandler = handlers.NewSellerHandler(c.Repos.Sellers, notifier, emailService, c.Redis, log.Zap())
	c.NotificationHandler = handlers.NewNotificationHandler(c.Repos.Notifications, c.ResultCache, log.Zap())
	c.CouponHandler = handlers.NewCouponHandler(c.Repos.CouponRedemptions, log.Zap())

	if cfg.Snapshot.Enabled && c.Redis != nil {
		c.SnapshotWorker = revenue_snapshot_worker.NewWorker(
			c.RevenueService,
			c.Repos.Sellers,
			c.Redis,
			cfg.Snapshot,
			log.Zap(),
		)
	}

	return c, nil
}

// Close releases held resources
func (c *Container) Close() {
	if c.SnapshotWorker != nil {
		c.SnapshotWorker.Stop()
	}
	if c.ResultCache != nil {
		c.ResultCache.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Redis close failed", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("Database close failed", "error", err)
		}
	}
}
