package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/internal/infrastructure/repositories"
)

const cacheFnUnreadCounts = "notification_unread_counts"

// NotificationHandler serves dashboard unread counts. Counts move fast,
// so they sit behind the shortest result-cache tier.
type NotificationHandler struct {
	notifications *repositories.NotificationRepository
	cache         *cache.ResultCache
	logger        *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(
	notifications *repositories.NotificationRepository,
	resultCache *cache.ResultCache,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		cache:         resultCache,
		logger:        logger,
	}
}

// UnreadCount returns the unread count for one user
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := parseUUID(c.Param("user_id"))
	if err != nil {
		respondBadRequest(c, "invalid user id")
		return
	}

	if cached, ok := h.cache.Get(cacheFnUnreadCounts, userID); ok {
		if count, ok := cached.(int); ok {
			respondSuccess(c, gin.H{"user_id": userID, "unread": count})
			return
		}
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Unread count lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondInternalError(c, "failed to count notifications")
		return
	}

	h.cache.Set(cacheFnUnreadCounts, count, userID)
	respondSuccess(c, gin.H{"user_id": userID, "unread": count})
}

// List returns the newest notifications for one user. The "limit" query
// parameter caps the page size at 100.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := parseUUID(c.Param("user_id"))
	if err != nil {
		respondBadRequest(c, "invalid user id")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondBadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > 100 {
		limit = 100
	}

	notifications, err := h.notifications.ListRecent(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Notification listing failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondInternalError(c, "failed to list notifications")
		return
	}

	respondSuccess(c, gin.H{
		"user_id":       userID,
		"notifications": notifications,
	})
}

type unreadCountsRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

// BatchUnreadCounts returns unread counts for a cohort; absent users
// read as zero.
func (h *NotificationHandler) BatchUnreadCounts(c *gin.Context) {
	var req unreadCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "user_ids is required")
		return
	}

	counts, err := h.notifications.BatchUnreadCounts(c.Request.Context(), req.UserIDs)
	if err != nil {
		h.logger.Error("Batch unread count lookup failed",
			zap.Int("cohort_size", len(req.UserIDs)),
			zap.Error(err))
		respondInternalError(c, "failed to count notifications")
		return
	}

	out := make(map[string]int, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		out[userID.String()] = counts[userID]
	}
	respondSuccess(c, gin.H{"unread": out})
}
