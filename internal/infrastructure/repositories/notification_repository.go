package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/pkg/logger"
	"github.com/referral-service/referral_service/pkg/metrics"
)

// NotificationRepository reads dashboard notification state: unread
// counts for badges and a short recent-notifications feed.
type NotificationRepository struct {
	db        *sqlx.DB
	chunkSize int
	logger    *logger.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB, chunkSize int, log *logger.Logger) *NotificationRepository {
	if chunkSize <= 0 {
		chunkSize = DefaultBatchChunkSize
	}
	return &NotificationRepository{db: db, chunkSize: chunkSize, logger: log}
}

// BatchUnreadCounts resolves unread notification counts for a cohort in
// chunked queries. Failing chunks are skipped; absent keys read as zero.
func (r *NotificationRepository) BatchUnreadCounts(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(userIDs))

	for _, chunk := range ChunkUUIDs(userIDs, r.chunkSize) {
		query := `
			SELECT user_id, COUNT(*) AS unread
			FROM notifications
			WHERE user_id = ANY($1) AND read = FALSE
			GROUP BY user_id
		`

		var rows []struct {
			UserID uuid.UUID `db:"user_id"`
			Unread int       `db:"unread"`
		}
		if err := r.db.SelectContext(ctx, &rows, query, pq.Array(uuidStrings(chunk))); err != nil {
			metrics.BatchChunkFailures.WithLabelValues("notifications").Inc()
			r.logger.Warn("Notification count chunk failed, continuing with remaining chunks",
				"chunk_size", len(chunk), "error", err)
			continue
		}

		for _, row := range rows {
			out[row.UserID] = row.Unread
		}
	}

	return out, nil
}

// ListRecent returns the newest notifications for a user, newest first
func (r *NotificationRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]entities.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, title, body, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var rows []entities.Notification
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return rows, nil
}

// UnreadCount returns the unread count for a single user
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
