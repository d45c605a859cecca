package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/pkg/logger"
	"github.com/referral-service/referral_service/pkg/metrics"
)

// FeeOverrideRepository reads administrative fee overrides
type FeeOverrideRepository struct {
	db        *sqlx.DB
	chunkSize int
	logger    *logger.Logger
}

// NewFeeOverrideRepository creates a new fee override repository
func NewFeeOverrideRepository(db *sqlx.DB, chunkSize int, log *logger.Logger) *FeeOverrideRepository {
	if chunkSize <= 0 {
		chunkSize = DefaultBatchChunkSize
	}
	return &FeeOverrideRepository{db: db, chunkSize: chunkSize, logger: log}
}

// GetForUser retrieves all overrides for one user, keyed by category
func (r *FeeOverrideRepository) GetForUser(ctx context.Context, userID uuid.UUID) (map[entities.FeeCategory]entities.FeeOverride, error) {
	query := `
		SELECT id, user_id, fee_category, amount, created_by, created_at, updated_at
		FROM fee_overrides
		WHERE user_id = $1
	`

	var rows []entities.FeeOverride
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get fee overrides: %w", err)
	}

	out := make(map[entities.FeeCategory]entities.FeeOverride, len(rows))
	for _, row := range rows {
		out[row.Category] = row
	}
	return out, nil
}

// Get retrieves a single override for (user, category); nil means no override
func (r *FeeOverrideRepository) Get(ctx context.Context, userID uuid.UUID, category entities.FeeCategory) (*entities.FeeOverride, error) {
	query := `
		SELECT id, user_id, fee_category, amount, created_by, created_at, updated_at
		FROM fee_overrides
		WHERE user_id = $1 AND fee_category = $2
	`

	var row entities.FeeOverride
	err := r.db.GetContext(ctx, &row, query, userID, category)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fee override: %w", err)
	}
	return &row, nil
}

// BatchGet resolves overrides for a whole cohort in chunked multi-key
// queries. A failing chunk is logged and skipped; its keys simply stay
// absent from the result, which callers treat as "no override".
func (r *FeeOverrideRepository) BatchGet(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]map[entities.FeeCategory]entities.FeeOverride, error) {
	out := make(map[uuid.UUID]map[entities.FeeCategory]entities.FeeOverride)

	for _, chunk := range ChunkUUIDs(userIDs, r.chunkSize) {
		query := `
			SELECT id, user_id, fee_category, amount, created_by, created_at, updated_at
			FROM fee_overrides
			WHERE user_id = ANY($1)
		`

		var rows []entities.FeeOverride
		if err := r.db.SelectContext(ctx, &rows, query, pq.Array(uuidStrings(chunk))); err != nil {
			metrics.BatchChunkFailures.WithLabelValues("fee_overrides").Inc()
			r.logger.Warn("Fee override chunk failed, continuing with remaining chunks",
				"chunk_size", len(chunk), "error", err)
			continue
		}

		for _, row := range rows {
			if out[row.UserID] == nil {
				out[row.UserID] = make(map[entities.FeeCategory]entities.FeeOverride)
			}
			out[row.UserID][row.Category] = row
		}
	}

	return out, nil
}
