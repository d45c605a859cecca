package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/domain/services/fees"
	"github.com/referral-service/referral_service/internal/infrastructure/repositories"
)

// CouponHandler records coupon redemptions pushed by the checkout flow.
// Redemptions are the second resolution tier, so checkout must land
// them here for the resolver to see them while they are fresh.
type CouponHandler struct {
	coupons *repositories.CouponRedemptionRepository
	logger  *zap.Logger
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(coupons *repositories.CouponRedemptionRepository, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

type redemptionRequest struct {
	UserID         uuid.UUID         `json:"user_id" binding:"required"`
	FeeCategory    string            `json:"fee_category" binding:"required"`
	OriginalAmount decimal.Decimal   `json:"original_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	FinalAmount    decimal.Decimal   `json:"final_amount"`
	RedeemedAt     *time.Time        `json:"redeemed_at,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CreateRedemption records one redemption row
func (h *CouponHandler) CreateRedemption(c *gin.Context) {
	var req redemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "user_id and fee_category are required")
		return
	}

	if _, ok := fees.CategoryForCouponToken(req.FeeCategory); !ok {
		respondBadRequest(c, "unknown fee category token")
		return
	}
	if req.FinalAmount.IsNegative() {
		respondBadRequest(c, "final_amount must not be negative")
		return
	}

	redeemedAt := time.Now().UTC()
	if req.RedeemedAt != nil {
		redeemedAt = *req.RedeemedAt
	}

	redemption := &entities.CouponRedemption{
		ID:             uuid.New(),
		UserID:         req.UserID,
		CouponCategory: req.FeeCategory,
		OriginalAmount: req.OriginalAmount,
		DiscountAmount: req.DiscountAmount,
		FinalAmount:    req.FinalAmount,
		RedeemedAt:     redeemedAt,
		Metadata:       req.Metadata,
	}

	if err := h.coupons.Create(c.Request.Context(), redemption); err != nil {
		h.logger.Error("Failed to record coupon redemption",
			zap.String("user_id", req.UserID.String()),
			zap.String("fee_category", req.FeeCategory),
			zap.Error(err))
		respondInternalError(c, "failed to record redemption")
		return
	}

	c.JSON(http.StatusCreated, redemption)
}
