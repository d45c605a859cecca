package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/pkg/logger"
	"github.com/referral-service/referral_service/pkg/metrics"
)

// RecordedPaymentRepository reads the append-only payment ledger, the
// system of record for what was actually charged.
type RecordedPaymentRepository struct {
	db        *sqlx.DB
	chunkSize int
	logger    *logger.Logger
}

// NewRecordedPaymentRepository creates a new recorded payment repository
func NewRecordedPaymentRepository(db *sqlx.DB, chunkSize int, log *logger.Logger) *RecordedPaymentRepository {
	if chunkSize <= 0 {
		chunkSize = DefaultBatchChunkSize
	}
	return &RecordedPaymentRepository{db: db, chunkSize: chunkSize, logger: log}
}

// GetLatest returns the most recent payment by paid_at for
// (user, category); nil means no payment recorded.
func (r *RecordedPaymentRepository) GetLatest(ctx context.Context, userID uuid.UUID, category entities.FeeCategory) (*entities.RecordedPayment, error) {
	query := `
		SELECT id, user_id, fee_category, rail, gross_amount, gross_amount_usd,
		       processor_transaction_id, paid_at, created_at
		FROM recorded_payments
		WHERE user_id = $1 AND fee_category = $2
		ORDER BY paid_at DESC
		LIMIT 1
	`

	var row entities.RecordedPayment
	err := r.db.GetContext(ctx, &row, query, userID, category)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recorded payment: %w", err)
	}
	return &row, nil
}

// BatchGetLatest resolves the newest payment per (user, category) for a
// whole cohort in chunked queries. A failing chunk is logged and
// skipped; absent keys mean "no payment", not an error.
func (r *RecordedPaymentRepository) BatchGetLatest(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]map[entities.FeeCategory]entities.RecordedPayment, error) {
	out := make(map[uuid.UUID]map[entities.FeeCategory]entities.RecordedPayment)

	for _, chunk := range ChunkUUIDs(userIDs, r.chunkSize) {
		query := `
			SELECT DISTINCT ON (user_id, fee_category)
			       id, user_id, fee_category, rail, gross_amount, gross_amount_usd,
			       processor_transaction_id, paid_at, created_at
			FROM recorded_payments
			WHERE user_id = ANY($1)
			ORDER BY user_id, fee_category, paid_at DESC
		`

		var rows []entities.RecordedPayment
		if err := r.db.SelectContext(ctx, &rows, query, pq.Array(uuidStrings(chunk))); err != nil {
			metrics.BatchChunkFailures.WithLabelValues("recorded_payments").Inc()
			r.logger.Warn("Recorded payment chunk failed, continuing with remaining chunks",
				"chunk_size", len(chunk), "error", err)
			continue
		}

		for _, row := range rows {
			if out[row.UserID] == nil {
				out[row.UserID] = make(map[entities.FeeCategory]entities.RecordedPayment)
			}
			// DISTINCT ON already keeps the newest per key, but merge
			// defensively in case of overlapping chunks
			if cur, ok := out[row.UserID][row.Category]; !ok || row.PaidAt.After(cur.PaidAt) {
				out[row.UserID][row.Category] = row
			}
		}
	}

	return out, nil
}

// BatchGetPaymentDates resolves the newest paid_at per (user, category)
// for a cohort; used by dashboards that only need dates.
func (r *RecordedPaymentRepository) BatchGetPaymentDates(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]map[entities.FeeCategory]time.Time, error) {
	payments, err := r.BatchGetLatest(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]map[entities.FeeCategory]time.Time, len(payments))
	for userID, byCategory := range payments {
		dates := make(map[entities.FeeCategory]time.Time, len(byCategory))
		for category, payment := range byCategory {
			dates[category] = payment.PaidAt
		}
		out[userID] = dates
	}
	return out, nil
}
