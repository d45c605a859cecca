// Package routes wires handlers onto the gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/referral-service/referral_service/internal/api/handlers"
	"github.com/referral-service/referral_service/internal/api/middleware"
	"github.com/referral-service/referral_service/internal/infrastructure/config"
	"github.com/referral-service/referral_service/pkg/logger"
)

// Handlers carries every handler the router mounts
type Handlers struct {
	Health        *handlers.HealthHandler
	Fees          *handlers.FeeHandler
	Revenue       *handlers.RevenueHandler
	Sellers       *handlers.SellerHandler
	Notifications *handlers.NotificationHandler
	Coupons       *handlers.CouponHandler
}

// Setup configures the gin engine with middleware and routes
func Setup(cfg *config.Config, h Handlers, log *logger.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.RateLimit(300))

	router.GET("/health", h.Health.Health)
	router.GET("/ping", h.Health.Ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		fees := v1.Group("/fees")
		{
			fees.GET("/:user_id", h.Fees.ResolveUser)
			fees.GET("/:user_id/:category", h.Fees.ResolveUserCategory)
			fees.POST("/cohort", h.Fees.ResolveCohort)
			fees.POST("/cohort/payment_dates", h.Fees.CohortPaymentDates)
		}

		v1.GET("/overrides/:user_id", h.Fees.ListOverrides)

		revenue := v1.Group("/revenue")
		{
			revenue.GET("/summary", h.Revenue.Summary)
		}

		sellers := v1.Group("/sellers")
		{
			sellers.GET("", h.Sellers.List)
			sellers.GET("/:id", h.Sellers.Get)
			sellers.POST("/:id/approve", h.Sellers.Approve)
			sellers.POST("/:id/reject", h.Sellers.Reject)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("/:user_id", h.Notifications.List)
			notifications.GET("/:user_id/unread", h.Notifications.UnreadCount)
			notifications.POST("/unread_counts", h.Notifications.BatchUnreadCounts)
		}

		v1.POST("/coupons/redemptions", h.Coupons.CreateRedemption)
	}

	return router
}
