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
	apperrors "github.com/referral-service/referral_service/internal/domain/errors"
	"github.com/referral-service/referral_service/pkg/logger"
	"github.com/referral-service/referral_service/pkg/metrics"
)

// UserProfileRepository reads referral/student profiles
type UserProfileRepository struct {
	db        *sqlx.DB
	chunkSize int
	logger    *logger.Logger
}

// NewUserProfileRepository creates a new user profile repository
func NewUserProfileRepository(db *sqlx.DB, chunkSize int, log *logger.Logger) *UserProfileRepository {
	if chunkSize <= 0 {
		chunkSize = DefaultBatchChunkSize
	}
	return &UserProfileRepository{db: db, chunkSize: chunkSize, logger: log}
}

const userProfileColumns = `
	id, email, referral_code, system_variant, dependents,
	is_selection_fee_paid, is_scholarship_fee_paid, is_i20_control_fee_paid,
	created_at, updated_at
`

// GetByID retrieves one profile
func (r *UserProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.UserProfile, error) {
	query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE id = $1`

	var profile entities.UserProfile
	err := r.db.GetContext(ctx, &profile, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundError("user profile")
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return &profile, nil
}

// BatchGet loads profiles for a cohort in chunked queries; absent keys
// mean the profile was not loadable and callers skip that user.
func (r *UserProfileRepository) BatchGet(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]entities.UserProfile, error) {
	out := make(map[uuid.UUID]entities.UserProfile, len(userIDs))

	for _, chunk := range ChunkUUIDs(userIDs, r.chunkSize) {
		query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE id = ANY($1)`

		var rows []entities.UserProfile
		if err := r.db.SelectContext(ctx, &rows, query, pq.Array(uuidStrings(chunk))); err != nil {
			metrics.BatchChunkFailures.WithLabelValues("user_profiles").Inc()
			r.logger.Warn("User profile chunk failed, continuing with remaining chunks",
				"chunk_size", len(chunk), "error", err)
			continue
		}

		for _, row := range rows {
			out[row.ID] = row
		}
	}

	return out, nil
}

// ListByReferralCode returns profiles registered under one referral code
func (r *UserProfileRepository) ListByReferralCode(ctx context.Context, referralCode string) ([]entities.UserProfile, error) {
	query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE referral_code = $1 ORDER BY created_at DESC`

	var rows []entities.UserProfile
	if err := r.db.SelectContext(ctx, &rows, query, referralCode); err != nil {
		return nil, fmt.Errorf("failed to list profiles by referral code: %w", err)
	}
	return rows, nil
}

// ListRegisteredSince returns profiles created on or after the given instant
func (r *UserProfileRepository) ListRegisteredSince(ctx context.Context, since time.Time) ([]entities.UserProfile, error) {
	query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE created_at >= $1 ORDER BY created_at DESC`

	var rows []entities.UserProfile
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to list profiles since %s: %w", since.Format(time.RFC3339), err)
	}
	return rows, nil
}
