package fees

import (
	"github.com/shopspring/decimal"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/infrastructure/config"
)

// categoryAliases is the bidirectional mapping between the resolver's
// internal category tokens and the coupon-redemption table's tokens.
// Redemption rows were written by several checkout generations, so each
// internal category accepts more than one token.
var categoryAliases = map[entities.FeeCategory][]string{
	entities.FeeCategorySelectionProcess: {"selection_process", "selection_process_fee"},
	entities.FeeCategoryApplication:      {"application", "application_fee"},
	entities.FeeCategoryScholarship:      {"scholarship", "scholarship_fee"},
	entities.FeeCategoryI20Control:       {"i20_control", "i20_control_fee"},
}

var couponTokenIndex = func() map[string]entities.FeeCategory {
	idx := make(map[string]entities.FeeCategory)
	for category, tokens := range categoryAliases {
		for _, token := range tokens {
			idx[token] = category
		}
	}
	return idx
}()

// CouponTokens returns the redemption-table tokens for an internal category
func CouponTokens(category entities.FeeCategory) []string {
	return categoryAliases[category]
}

// CategoryForCouponToken maps a redemption-table token back to the
// internal category
func CategoryForCouponToken(token string) (entities.FeeCategory, bool) {
	category, ok := couponTokenIndex[token]
	return category, ok
}

// DefaultTable computes the fallback fee amount when no override,
// coupon, or attributable payment exists. Base amounts depend on the
// user's system variant; only selection_process under the legacy
// variant carries the dependents surcharge.
type DefaultTable struct {
	selectionLegacy       decimal.Decimal
	selectionSimplified   decimal.Decimal
	scholarshipLegacy     decimal.Decimal
	scholarshipSimplified decimal.Decimal
	i20Legacy             decimal.Decimal
	i20Simplified         decimal.Decimal
	applicationBase       decimal.Decimal
	applicationPerDep     decimal.Decimal
	dependentsSurcharge   decimal.Decimal
	maxDependents         int
}

// NewDefaultTable builds the table from configuration
func NewDefaultTable(cfg config.FeesConfig) DefaultTable {
	return DefaultTable{
		selectionLegacy:       decimal.NewFromFloat(cfg.Defaults.SelectionLegacy),
		selectionSimplified:   decimal.NewFromFloat(cfg.Defaults.SelectionSimplified),
		scholarshipLegacy:     decimal.NewFromFloat(cfg.Defaults.ScholarshipLegacy),
		scholarshipSimplified: decimal.NewFromFloat(cfg.Defaults.ScholarshipSimplified),
		i20Legacy:             decimal.NewFromFloat(cfg.Defaults.I20ControlLegacy),
		i20Simplified:         decimal.NewFromFloat(cfg.Defaults.I20ControlSimplified),
		applicationBase:       decimal.NewFromFloat(cfg.Defaults.ApplicationBase),
		applicationPerDep:     decimal.NewFromFloat(cfg.Defaults.ApplicationPerDep),
		dependentsSurcharge:   decimal.NewFromFloat(cfg.DependentsSurcharge),
		maxDependents:         cfg.MaxDependents,
	}
}

// Amount returns the default for (category, variant, dependents)
func (t DefaultTable) Amount(category entities.FeeCategory, variant entities.SystemVariant, dependents int) decimal.Decimal {
	deps := dependents
	if deps < 0 {
		deps = 0
	}
	if t.maxDependents > 0 && deps > t.maxDependents {
		deps = t.maxDependents
	}
	depCount := decimal.NewFromInt(int64(deps))

	switch category {
	case entities.FeeCategorySelectionProcess:
		if variant == entities.SystemVariantSimplified {
			// flat regardless of dependents
			return t.selectionSimplified
		}
		return t.selectionLegacy.Add(depCount.Mul(t.dependentsSurcharge))
	case entities.FeeCategoryApplication:
		return t.applicationBase.Add(depCount.Mul(t.applicationPerDep))
	case entities.FeeCategoryScholarship:
		if variant == entities.SystemVariantSimplified {
			return t.scholarshipSimplified
		}
		return t.scholarshipLegacy
	case entities.FeeCategoryI20Control:
		if variant == entities.SystemVariantSimplified {
			return t.i20Simplified
		}
		return t.i20Legacy
	}
	return decimal.Zero
}
