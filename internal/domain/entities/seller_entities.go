package entities

import (
	"time"

	"github.com/google/uuid"
)

// SellerStatus tracks a seller through the approval pipeline
type SellerStatus string

const (
	SellerStatusPending  SellerStatus = "pending"
	SellerStatusApproved SellerStatus = "approved"
	SellerStatusRejected SellerStatus = "rejected"
)

// Seller is an affiliate who refers students through a referral code
type Seller struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	Email        string       `db:"email" json:"email"`
	Name         string       `db:"name" json:"name"`
	ReferralCode string       `db:"referral_code" json:"referral_code"`
	Status       SellerStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// UserProfile is the referral-side view of a registered student.
// The is_*_paid flags are the canonical paid markers; resolution is only
// attempted for categories whose flag is set.
type UserProfile struct {
	ID                    uuid.UUID     `db:"id" json:"id"`
	Email                 string        `db:"email" json:"email"`
	ReferralCode          *string       `db:"referral_code" json:"referral_code,omitempty"`
	SystemVariant         SystemVariant `db:"system_variant" json:"system_variant"`
	Dependents            int           `db:"dependents" json:"dependents"`
	IsSelectionFeePaid    bool          `db:"is_selection_fee_paid" json:"is_selection_fee_paid"`
	IsScholarshipFeePaid  bool          `db:"is_scholarship_fee_paid" json:"is_scholarship_fee_paid"`
	IsI20ControlFeePaid   bool          `db:"is_i20_control_fee_paid" json:"is_i20_control_fee_paid"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at" json:"updated_at"`
}

// CategoryPaid reports the canonical paid flag for a gating category.
// Unknown categories report false so no phantom revenue is attributed.
func (u *UserProfile) CategoryPaid(category FeeCategory) bool {
	switch category {
	case FeeCategorySelectionProcess:
		return u.IsSelectionFeePaid
	case FeeCategoryScholarship:
		return u.IsScholarshipFeePaid
	case FeeCategoryI20Control:
		return u.IsI20ControlFeePaid
	}
	return false
}

// Completed reports whether any gating category is paid
func (u *UserProfile) Completed() bool {
	for _, category := range GatingFeeCategories {
		if u.CategoryPaid(category) {
			return true
		}
	}
	return false
}

// ErrorResponse is the standard error payload returned by the API
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
