package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeCategory identifies one of the platform fee buckets
type FeeCategory string

const (
	FeeCategorySelectionProcess FeeCategory = "selection_process"
	FeeCategoryApplication      FeeCategory = "application"
	FeeCategoryScholarship      FeeCategory = "scholarship"
	FeeCategoryI20Control       FeeCategory = "i20_control"
)

// CoreFeeCategories are the revenue-bearing categories resolved for sellers
var CoreFeeCategories = []FeeCategory{
	FeeCategorySelectionProcess,
	FeeCategoryScholarship,
	FeeCategoryI20Control,
}

// GatingFeeCategories determine whether a referral counts as completed
var GatingFeeCategories = []FeeCategory{
	FeeCategorySelectionProcess,
	FeeCategoryScholarship,
	FeeCategoryI20Control,
}

// IsValid returns true for a known fee category
func (c FeeCategory) IsValid() bool {
	switch c {
	case FeeCategorySelectionProcess, FeeCategoryApplication, FeeCategoryScholarship, FeeCategoryI20Control:
		return true
	}
	return false
}

// SystemVariant classifies a user's fee schedule
type SystemVariant string

const (
	SystemVariantLegacy     SystemVariant = "legacy"
	SystemVariantSimplified SystemVariant = "simplified"
)

// PaymentRail identifies the channel a payment was charged through
type PaymentRail string

const (
	// PaymentRailStripe is a processor charge carrying a transaction id
	PaymentRailStripe PaymentRail = "stripe"
	// PaymentRailZelle is a direct bank-transfer ledger entry, already net USD
	PaymentRailZelle PaymentRail = "zelle"
	// PaymentRailManual is an off-platform ledger entry, already net USD
	PaymentRailManual PaymentRail = "manual"
)

// IsLedgerRail reports whether the rail records amounts that are already
// net and in the reference currency, so no metadata lookup applies.
func (r PaymentRail) IsLedgerRail() bool {
	return r == PaymentRailZelle || r == PaymentRailManual
}

// FeeOverride is an administrative per-user, per-category amount that
// unconditionally replaces any computed or recorded value.
type FeeOverride struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Category  FeeCategory     `db:"fee_category" json:"fee_category"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedBy *uuid.UUID      `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// CouponRedemption records a promotional coupon applied at checkout.
// Redemption rows use their own category tokens; see fees.CategoryAliases.
type CouponRedemption struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	UserID         uuid.UUID         `db:"user_id" json:"user_id"`
	CouponCategory string            `db:"fee_category" json:"fee_category"`
	OriginalAmount decimal.Decimal   `db:"original_amount" json:"original_amount"`
	DiscountAmount decimal.Decimal   `db:"discount_amount" json:"discount_amount"`
	FinalAmount    decimal.Decimal   `db:"final_amount" json:"final_amount"`
	RedeemedAt     time.Time         `db:"redeemed_at" json:"redeemed_at"`
	Metadata       map[string]string `db:"-" json:"metadata,omitempty"`
}

// CouponFreshnessWindow is how long a redemption stays authoritative
// for fee resolution unless flagged as a validation event.
const CouponFreshnessWindow = 24 * time.Hour

// CouponValidationEventKey marks a redemption produced by a checkout
// validation pass; such rows stay fresh past the window.
const CouponValidationEventKey = "validation_event"

// IsFresh reports whether the redemption still drives fee resolution.
// Stale redemptions remain historical records only.
func (c *CouponRedemption) IsFresh(now time.Time) bool {
	if c.Metadata != nil && c.Metadata[CouponValidationEventKey] == "true" {
		return true
	}
	return now.Sub(c.RedeemedAt) <= CouponFreshnessWindow
}

// RecordedPayment is an append-only ledger entry for an actual charge.
// One user/category pair may carry several rows (retries, corrections);
// resolution uses the most recent by PaidAt.
type RecordedPayment struct {
	ID                     uuid.UUID       `db:"id" json:"id"`
	UserID                 uuid.UUID       `db:"user_id" json:"user_id"`
	Category               FeeCategory     `db:"fee_category" json:"fee_category"`
	Rail                   PaymentRail     `db:"rail" json:"rail"`
	GrossAmount            decimal.Decimal `db:"gross_amount" json:"gross_amount"`
	GrossAmountUSD         decimal.Decimal `db:"gross_amount_usd" json:"gross_amount_usd"`
	ProcessorTransactionID *string         `db:"processor_transaction_id" json:"processor_transaction_id,omitempty"`
	PaidAt                 time.Time       `db:"paid_at" json:"paid_at"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
}

// AmountSource names the precedence tier that produced a resolved amount
type AmountSource string

const (
	AmountSourceOverride AmountSource = "override"
	AmountSourceCoupon   AmountSource = "coupon"
	AmountSourcePayment  AmountSource = "recorded_payment"
	AmountSourceDefault  AmountSource = "default"
)

// ResolvedAmount is the engine output for one (user, category) pair:
// a single non-negative USD amount plus the source that produced it.
// Always derived fresh; never persisted.
type ResolvedAmount struct {
	Category FeeCategory     `json:"fee_category"`
	Amount   decimal.Decimal `json:"amount"`
	Source   AmountSource    `json:"source"`
}

func (r ResolvedAmount) String() string {
	return fmt.Sprintf("%s=%s (%s)", r.Category, r.Amount.StringFixed(2), r.Source)
}
