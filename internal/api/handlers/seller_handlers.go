package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/infrastructure/adapters"
	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/internal/infrastructure/repositories"
	"github.com/referral-service/referral_service/internal/workers/revenue_snapshot_worker"
)

// SellerHandler manages affiliate seller approval state. State
// transitions fire a webhook alert and a courtesy email, both
// best-effort.
type SellerHandler struct {
	sellers  *repositories.SellerRepository
	notifier *adapters.WebhookNotifier
	email    *adapters.EmailService
	redis    cache.RedisClient
	logger   *zap.Logger
}

// NewSellerHandler creates a new seller handler. redis may be nil when
// snapshot caching is disabled.
func NewSellerHandler(
	sellers *repositories.SellerRepository,
	notifier *adapters.WebhookNotifier,
	email *adapters.EmailService,
	redis cache.RedisClient,
	logger *zap.Logger,
) *SellerHandler {
	return &SellerHandler{
		sellers:  sellers,
		notifier: notifier,
		email:    email,
		redis:    redis,
		logger:   logger,
	}
}

// List returns all sellers
func (h *SellerHandler) List(c *gin.Context) {
	sellers, err := h.sellers.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list sellers", zap.Error(err))
		respondInternalError(c, "failed to list sellers")
		return
	}
	respondSuccess(c, gin.H{"sellers": sellers})
}

// Get returns one seller by id
func (h *SellerHandler) Get(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid seller id")
		return
	}

	seller, err := h.sellers.GetByID(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, seller)
}

// Approve transitions a seller to approved
func (h *SellerHandler) Approve(c *gin.Context) {
	h.transition(c, entities.SellerStatusApproved)
}

// Reject transitions a seller to rejected
func (h *SellerHandler) Reject(c *gin.Context) {
	h.transition(c, entities.SellerStatusRejected)
}

func (h *SellerHandler) transition(c *gin.Context, status entities.SellerStatus) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid seller id")
		return
	}

	ctx := c.Request.Context()
	seller, err := h.sellers.GetByID(ctx, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if err := h.sellers.UpdateStatus(ctx, id, status); err != nil {
		h.logger.Error("Failed to update seller status",
			zap.String("seller_id", id.String()),
			zap.String("status", string(status)),
			zap.Error(err))
		respondInternalError(c, "failed to update seller status")
		return
	}

	h.notifier.Notify(adapters.SellerEvent{
		Event:        fmt.Sprintf("seller.%s", status),
		SellerID:     seller.ID.String(),
		SellerEmail:  seller.Email,
		ReferralCode: seller.ReferralCode,
		OccurredAt:   time.Now().UTC(),
	})

	go h.sendTransitionEmail(seller, status)

	// the warmed summary no longer reflects the seller's status
	if h.redis != nil && seller.ReferralCode != "" {
		if err := revenue_snapshot_worker.DropSellerSnapshot(ctx, h.redis, seller.ReferralCode); err != nil {
			h.logger.Warn("Failed to drop seller revenue snapshot",
				zap.String("referral_code", seller.ReferralCode),
				zap.Error(err))
		}
	}

	seller.Status = status
	respondSuccess(c, seller)
}

func (h *SellerHandler) sendTransitionEmail(seller *entities.Seller, status entities.SellerStatus) {
	var subject, body string
	switch status {
	case entities.SellerStatusApproved:
		subject = "Your seller account has been approved"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour seller account is now active. Your referral code is %s.\n",
			seller.Name, seller.ReferralCode)
	case entities.SellerStatusRejected:
		subject = "Update on your seller application"
		body = fmt.Sprintf(
			"Hi %s,\n\nUnfortunately your seller application was not approved at this time.\n",
			seller.Name)
	default:
		return
	}

	if err := h.email.Send(seller.Email, subject, body); err != nil {
		h.logger.Warn("Seller transition email failed",
			zap.String("seller_id", seller.ID.String()),
			zap.Error(err))
	}
}
