package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/domain/services/revenue"
	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/internal/workers/revenue_snapshot_worker"
)

// RevenueHandler exposes revenue aggregation over HTTP. Reads prefer
// the warmed Redis snapshot and fall back to live aggregation.
type RevenueHandler struct {
	service *revenue.Service
	redis   cache.RedisClient
	logger  *zap.Logger
}

// NewRevenueHandler creates a new revenue handler
func NewRevenueHandler(service *revenue.Service, redis cache.RedisClient, logger *zap.Logger) *RevenueHandler {
	return &RevenueHandler{service: service, redis: redis, logger: logger}
}

// Summary returns the revenue summary. With a "referral_code" query
// parameter the summary is scoped to that seller; otherwise it is
// global. "fresh=true" bypasses the snapshot.
func (h *RevenueHandler) Summary(c *gin.Context) {
	ctx := c.Request.Context()
	referralCode := c.Query("referral_code")
	fresh := c.Query("fresh") == "true"

	if !fresh && h.redis != nil {
		if referralCode == "" {
			if summary, ok := revenue_snapshot_worker.CachedGlobal(ctx, h.redis); ok {
				respondSuccess(c, summary)
				return
			}
		} else {
			if summary, ok := revenue_snapshot_worker.CachedSeller(ctx, h.redis, referralCode); ok {
				respondSuccess(c, summary)
				return
			}
		}
	}

	var (
		summary interface{}
		err     error
	)
	if referralCode == "" {
		summary, err = h.service.GlobalSummary(ctx)
	} else {
		summary, err = h.service.SummaryForSeller(ctx, referralCode)
	}
	if err != nil {
		h.logger.Error("Revenue summary failed",
			zap.String("referral_code", referralCode),
			zap.Error(err))
		respondInternalError(c, "revenue summary failed")
		return
	}

	respondSuccess(c, summary)
}
