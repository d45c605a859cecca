package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/referral-service/referral_service/internal/domain/entities"
	apperrors "github.com/referral-service/referral_service/internal/domain/errors"
)

// SellerRepository manages affiliate seller records
type SellerRepository struct {
	db *sqlx.DB
}

// NewSellerRepository creates a new seller repository
func NewSellerRepository(db *sqlx.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

// GetByID retrieves a seller by ID
func (r *SellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Seller, error) {
	query := `
		SELECT id, email, name, referral_code, status, created_at, updated_at
		FROM sellers
		WHERE id = $1
	`

	var seller entities.Seller
	err := r.db.GetContext(ctx, &seller, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFoundError("seller")
		}
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return &seller, nil
}

// List returns all sellers ordered by registration date
func (r *SellerRepository) List(ctx context.Context) ([]entities.Seller, error) {
	query := `
		SELECT id, email, name, referral_code, status, created_at, updated_at
		FROM sellers
		ORDER BY created_at DESC
	`

	var sellers []entities.Seller
	if err := r.db.SelectContext(ctx, &sellers, query); err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	return sellers, nil
}

// UpdateStatus transitions a seller's approval state
func (r *SellerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.SellerStatus) error {
	query := `
		UPDATE sellers
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update seller status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFoundError("seller")
	}
	return nil
}
