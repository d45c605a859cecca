// Package revenue_snapshot_worker warms the revenue summaries into
// Redis on a daily schedule so dashboard reads do not pay the cohort
// resolution cost.
package revenue_snapshot_worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/domain/services/revenue"
	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/internal/infrastructure/config"
)

const (
	globalSnapshotKey  = "revenue:snapshot:global"
	sellerSnapshotKeyF = "revenue:snapshot:seller:%s"
)

// SellerLister returns the sellers whose summaries get warmed
type SellerLister interface {
	List(ctx context.Context) ([]entities.Seller, error)
}

// Worker runs the daily revenue snapshot job
type Worker struct {
	service  *revenue.Service
	sellers  SellerLister
	redis    cache.RedisClient
	cacheTTL time.Duration
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewWorker creates the snapshot worker from its configuration
func NewWorker(
	service *revenue.Service,
	sellers SellerLister,
	redis cache.RedisClient,
	cfg config.SnapshotConfig,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		service:  service,
		sellers:  sellers,
		redis:    redis,
		cacheTTL: time.Duration(cfg.CacheTTL) * time.Second,
		schedule: cfg.Schedule,
		logger:   logger,
	}
}

// Start registers the cron schedule and begins running. It returns an
// error only when the schedule expression is invalid.
func (w *Worker) Start(ctx context.Context) error {
	w.cron = cron.New()
	_, err := w.cron.AddFunc(w.schedule, func() {
		w.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", w.schedule, err)
	}

	w.cron.Start()
	w.logger.Info("Revenue snapshot worker started", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts the cron scheduler, waiting for a running job to finish
func (w *Worker) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	w.logger.Info("Revenue snapshot worker stopped")
}

// RunOnce takes one snapshot pass: the global summary plus one summary
// per seller. Individual seller failures are logged and skipped.
func (w *Worker) RunOnce(ctx context.Context) {
	started := time.Now()
	w.logger.Info("Taking revenue snapshots")

	if err := w.snapshotGlobal(ctx); err != nil {
		w.logger.Error("Global revenue snapshot failed", zap.Error(err))
	}

	sellers, err := w.sellers.List(ctx)
	if err != nil {
		w.logger.Error("Failed to list sellers for snapshot", zap.Error(err))
		return
	}

	warmed := 0
	for _, seller := range sellers {
		if seller.Status != entities.SellerStatusApproved || seller.ReferralCode == "" {
			continue
		}
		if err := w.snapshotSeller(ctx, seller.ReferralCode); err != nil {
			w.logger.Error("Seller revenue snapshot failed",
				zap.String("referral_code", seller.ReferralCode),
				zap.Error(err))
			continue
		}
		warmed++
	}

	w.logger.Info("Revenue snapshots completed",
		zap.Int("sellers", warmed),
		zap.Duration("elapsed", time.Since(started)))
}

func (w *Worker) snapshotGlobal(ctx context.Context) error {
	summary, err := w.service.GlobalSummary(ctx)
	if err != nil {
		return err
	}
	return w.redis.Set(ctx, globalSnapshotKey, summary, w.cacheTTL)
}

func (w *Worker) snapshotSeller(ctx context.Context, referralCode string) error {
	summary, err := w.service.SummaryForSeller(ctx, referralCode)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(sellerSnapshotKeyF, referralCode)
	return w.redis.Set(ctx, key, summary, w.cacheTTL)
}

// CachedGlobal reads the warmed global summary, if present
func CachedGlobal(ctx context.Context, redis cache.RedisClient) (*entities.RevenueSummary, bool) {
	var summary entities.RevenueSummary
	if err := redis.Get(ctx, globalSnapshotKey, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

// DropSellerSnapshot removes a warmed seller summary. Called when a
// seller's status changes and the snapshot no longer reflects it.
func DropSellerSnapshot(ctx context.Context, redis cache.RedisClient, referralCode string) error {
	return redis.Del(ctx, fmt.Sprintf(sellerSnapshotKeyF, referralCode))
}

// CachedSeller reads a warmed seller summary, if present
func CachedSeller(ctx context.Context, redis cache.RedisClient, referralCode string) (*entities.RevenueSummary, bool) {
	var summary entities.RevenueSummary
	key := fmt.Sprintf(sellerSnapshotKeyF, referralCode)
	if err := redis.Get(ctx, key, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}
