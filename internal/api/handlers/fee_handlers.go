package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/domain/services/fees"
	"github.com/referral-service/referral_service/internal/infrastructure/repositories"
)

// FeeHandler exposes the fee resolution engine over HTTP, plus the raw
// override and payment-date reads the admin dashboard uses.
type FeeHandler struct {
	resolver  *fees.Resolver
	overrides *repositories.FeeOverrideRepository
	payments  *repositories.RecordedPaymentRepository
	logger    *zap.Logger
}

// NewFeeHandler creates a new fee handler
func NewFeeHandler(
	resolver *fees.Resolver,
	overrides *repositories.FeeOverrideRepository,
	payments *repositories.RecordedPaymentRepository,
	logger *zap.Logger,
) *FeeHandler {
	return &FeeHandler{
		resolver:  resolver,
		overrides: overrides,
		payments:  payments,
		logger:    logger,
	}
}

// ResolveUser resolves fee amounts for one user. Categories come from
// the optional comma-separated "categories" query parameter.
func (h *FeeHandler) ResolveUser(c *gin.Context) {
	userID, err := parseUUID(c.Param("user_id"))
	if err != nil {
		respondBadRequest(c, "invalid user id")
		return
	}

	var tokens []string
	if raw := c.Query("categories"); raw != "" {
		tokens = strings.Split(raw, ",")
	}
	categories, err := parseCategories(tokens)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	amounts, err := h.resolver.ResolveAmounts(c.Request.Context(), userID, categories)
	if err != nil {
		h.logger.Error("Fee resolution failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"user_id": userID,
		"amounts": amounts,
	})
}

type cohortRequest struct {
	UserIDs    []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	Categories []string    `json:"categories"`
}

// ResolveCohort resolves fee amounts for a batch of users. Users whose
// resolution failed are reported under "errors" without failing the batch.
func (h *FeeHandler) ResolveCohort(c *gin.Context) {
	var req cohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "user_ids is required")
		return
	}

	categories, err := parseCategories(req.Categories)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.resolver.ResolveForCohort(c.Request.Context(), req.UserIDs, categories)
	if err != nil {
		h.logger.Error("Cohort resolution failed",
			zap.Int("cohort_size", len(req.UserIDs)),
			zap.Error(err))
		respondInternalError(c, "cohort resolution failed")
		return
	}

	failed := make(map[string]string, len(result.Errors))
	for userID, userErr := range result.Errors {
		failed[userID.String()] = userErr.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"amounts": result.Amounts,
		"errors":  failed,
	})
}

// categoryFromPath is shared by the single-category route
func categoryFromPath(c *gin.Context) (entities.FeeCategory, bool) {
	category := entities.FeeCategory(c.Param("category"))
	if !category.IsValid() {
		respondBadRequest(c, "unknown fee category")
		return "", false
	}
	return category, true
}

// ListOverrides returns the raw administrative overrides for one user,
// keyed by category. This is the unresolved view the admin dashboard
// edits against, not the resolved amounts.
func (h *FeeHandler) ListOverrides(c *gin.Context) {
	userID, err := parseUUID(c.Param("user_id"))
	if err != nil {
		respondBadRequest(c, "invalid user id")
		return
	}

	overrides, err := h.overrides.GetForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Override lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondInternalError(c, "failed to load overrides")
		return
	}

	respondSuccess(c, gin.H{
		"user_id":   userID,
		"overrides": overrides,
	})
}

type paymentDatesRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

// CohortPaymentDates returns the newest paid_at per (user, category) for
// a cohort. Absent keys mean no payment is recorded.
func (h *FeeHandler) CohortPaymentDates(c *gin.Context) {
	var req paymentDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "user_ids is required")
		return
	}

	dates, err := h.payments.BatchGetPaymentDates(c.Request.Context(), req.UserIDs)
	if err != nil {
		h.logger.Error("Payment date lookup failed",
			zap.Int("cohort_size", len(req.UserIDs)),
			zap.Error(err))
		respondInternalError(c, "failed to load payment dates")
		return
	}

	out := make(map[string]map[entities.FeeCategory]time.Time, len(dates))
	for userID, byCategory := range dates {
		out[userID.String()] = byCategory
	}
	respondSuccess(c, gin.H{"payment_dates": out})
}

// ResolveUserCategory resolves a single (user, category) pair
func (h *FeeHandler) ResolveUserCategory(c *gin.Context) {
	userID, err := parseUUID(c.Param("user_id"))
	if err != nil {
		respondBadRequest(c, "invalid user id")
		return
	}
	category, ok := categoryFromPath(c)
	if !ok {
		return
	}

	resolved, err := h.resolver.Resolve(c.Request.Context(), userID, category)
	if err != nil {
		h.logger.Error("Fee resolution failed",
			zap.String("user_id", userID.String()),
			zap.String("category", string(category)),
			zap.Error(err))
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, resolved)
}
