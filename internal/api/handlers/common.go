package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/referral-service/referral_service/internal/domain/entities"
	apperrors "github.com/referral-service/referral_service/internal/domain/errors"
)

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// respondBadRequest sends a bad request error
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}

// respondNotFound sends a not found error
func respondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// respondInternalError sends an internal server error
func respondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

// respondDomainError maps a domain error to its HTTP status
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		respondNotFound(c, err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, "internal error")
	}
}

// respondSuccess sends a success response with data
func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// parseUUID parses a string to uuid.UUID
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("empty UUID string")
	}
	return uuid.Parse(s)
}

// parseCategories validates a list of category tokens; an empty list
// defaults to every known category.
func parseCategories(tokens []string) ([]entities.FeeCategory, error) {
	if len(tokens) == 0 {
		return []entities.FeeCategory{
			entities.FeeCategorySelectionProcess,
			entities.FeeCategoryApplication,
			entities.FeeCategoryScholarship,
			entities.FeeCategoryI20Control,
		}, nil
	}

	out := make([]entities.FeeCategory, 0, len(tokens))
	for _, token := range tokens {
		category := entities.FeeCategory(token)
		if !category.IsValid() {
			return nil, apperrors.ValidationError("categories", fmt.Sprintf("unknown fee category %q", token))
		}
		out = append(out, category)
	}
	return out, nil
}
