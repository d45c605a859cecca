package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolvedUser carries one referral's resolved, paid-gated amounts into
// aggregation.
type ResolvedUser struct {
	Profile *UserProfile
	Amounts map[FeeCategory]ResolvedAmount
}

// SellerRevenue is the per-seller/referral-code rollup
type SellerRevenue struct {
	ReferralCode       string          `json:"referral_code"`
	TotalReferrals     int             `json:"total_referrals"`
	CompletedReferrals int             `json:"completed_referrals"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	ConversionRate     decimal.Decimal `json:"conversion_rate"`
	AverageCommission  decimal.Decimal `json:"average_commission"`
}

// TimeBucket is one day or month of attributed revenue. Revenue is
// attributed to the referral's registration date, not the payment date.
type TimeBucket struct {
	Label     string          `json:"label"`
	Referrals int             `json:"referrals"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// RevenueSummary is the aggregate surface the dashboard renders
type RevenueSummary struct {
	TotalReferrals     int             `json:"total_referrals"`
	CompletedReferrals int             `json:"completed_referrals"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	ConversionRate     decimal.Decimal `json:"conversion_rate"`
	AverageCommission  decimal.Decimal `json:"average_commission"`
	GrowthPct          decimal.Decimal `json:"growth_pct"`
	BySeller           []SellerRevenue `json:"by_seller"`
	Daily              []TimeBucket    `json:"daily"`
	Monthly            []TimeBucket    `json:"monthly"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// Notification is a dashboard alert row; only unread counts are read by
// this service, in bulk.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
