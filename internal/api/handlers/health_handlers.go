package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/internal/infrastructure/database"
)

// HealthHandler reports service and dependency health
type HealthHandler struct {
	db        *sqlx.DB
	redis     cache.RedisClient
	logger    *zap.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sqlx.DB, redis cache.RedisClient, logger *zap.Logger, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		logger:    logger,
		version:   version,
		startTime: time.Now(),
	}
}

// Health checks the database and Redis and reports per-dependency status.
// Redis being down degrades the service but does not fail the check;
// snapshot reads just fall back to live aggregation.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	statusCode := http.StatusOK
	checks := gin.H{}

	if err := database.HealthCheck(h.db); err != nil {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = gin.H{"status": "down", "error": err.Error()}
		h.logger.Warn("Database health check failed", zap.Error(err))
	} else {
		checks["database"] = gin.H{"status": "up"}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			if status == "healthy" {
				status = "degraded"
			}
			checks["redis"] = gin.H{"status": "down", "error": err.Error()}
			h.logger.Warn("Redis health check failed", zap.Error(err))
		} else {
			checks["redis"] = gin.H{"status": "up"}
		}
	}

	c.JSON(statusCode, gin.H{
		"status":         status,
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().UTC(),
		"checks":         checks,
	})
}

// Ping always returns 200
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}
