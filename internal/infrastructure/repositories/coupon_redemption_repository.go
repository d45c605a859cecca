package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/pkg/logger"
)

// CouponRedemptionRepository reads promotional coupon redemptions
// created at checkout time.
type CouponRedemptionRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewCouponRedemptionRepository creates a new coupon redemption repository
func NewCouponRedemptionRepository(db *sqlx.DB, log *logger.Logger) *CouponRedemptionRepository {
	return &CouponRedemptionRepository{db: db, logger: log}
}

type couponRow struct {
	ID             uuid.UUID       `db:"id"`
	UserID         uuid.UUID       `db:"user_id"`
	CouponCategory string          `db:"fee_category"`
	OriginalAmount decimal.Decimal `db:"original_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	FinalAmount    decimal.Decimal `db:"final_amount"`
	RedeemedAt     time.Time       `db:"redeemed_at"`
	Metadata       []byte          `db:"metadata"`
}

func (row couponRow) toEntity() (*entities.CouponRedemption, error) {
	out := &entities.CouponRedemption{
		ID:             row.ID,
		UserID:         row.UserID,
		CouponCategory: row.CouponCategory,
		OriginalAmount: row.OriginalAmount,
		DiscountAmount: row.DiscountAmount,
		FinalAmount:    row.FinalAmount,
		RedeemedAt:     row.RedeemedAt,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &out.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode redemption metadata: %w", err)
		}
	}
	return out, nil
}

// GetLatest returns the most recent redemption for a user under any of
// the given coupon-side category tokens; nil means no redemption.
// Multiple redemptions may exist per category; only the newest counts.
func (r *CouponRedemptionRepository) GetLatest(ctx context.Context, userID uuid.UUID, couponCategories []string) (*entities.CouponRedemption, error) {
	if len(couponCategories) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, user_id, fee_category, original_amount, discount_amount, final_amount, redeemed_at, metadata
		FROM coupon_redemptions
		WHERE user_id = ? AND fee_category IN (?)
		ORDER BY redeemed_at DESC
		LIMIT 1
	`, userID, couponCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to build redemption query: %w", err)
	}
	query = r.db.Rebind(query)

	var row couponRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get coupon redemption: %w", err)
	}

	return row.toEntity()
}

// Create records a redemption; used by the checkout pass-through path
func (r *CouponRedemptionRepository) Create(ctx context.Context, redemption *entities.CouponRedemption) error {
	meta, err := json.Marshal(redemption.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode redemption metadata: %w", err)
	}

	query := `
		INSERT INTO coupon_redemptions (
			id, user_id, fee_category, original_amount, discount_amount, final_amount, redeemed_at, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		redemption.ID,
		redemption.UserID,
		redemption.CouponCategory,
		redemption.OriginalAmount,
		redemption.DiscountAmount,
		redemption.FinalAmount,
		redemption.RedeemedAt,
		meta,
	)
	if err != nil {
		return fmt.Errorf("failed to create coupon redemption: %w", err)
	}
	return nil
}
