// Package fees implements the fee reconciliation core: converting gross
// charged amounts into net USD and resolving the authoritative amount
// per user and fee category through a strict precedence chain.
package fees

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/pkg/logger"
	"github.com/referral-service/referral_service/pkg/metrics"
)

// OverrideSource reads administrative fee overrides
type OverrideSource interface {
	Get(ctx context.Context, userID uuid.UUID, category entities.FeeCategory) (*entities.FeeOverride, error)
	BatchGet(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]map[entities.FeeCategory]entities.FeeOverride, error)
}

// CouponSource reads promotional coupon redemptions
type CouponSource interface {
	GetLatest(ctx context.Context, userID uuid.UUID, couponCategories []string) (*entities.CouponRedemption, error)
}

// PaymentSource reads the recorded payment ledger
type PaymentSource interface {
	GetLatest(ctx context.Context, userID uuid.UUID, category entities.FeeCategory) (*entities.RecordedPayment, error)
	BatchGetLatest(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]map[entities.FeeCategory]entities.RecordedPayment, error)
}

// ProfileSource reads user profiles for default computation
type ProfileSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.UserProfile, error)
	BatchGet(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]entities.UserProfile, error)
}

// IntentSource fetches processor payment-intent metadata; nil means the
// charge is unresolvable through this path.
type IntentSource interface {
	Fetch(ctx context.Context, transactionID string) *entities.PaymentIntentMetadata
}

const (
	cacheFnOverrides = "fee_overrides_for_user"
	cacheFnProfile   = "user_profile"
)

// Resolver determines the authoritative amount for (user, category).
// Precedence, first match wins: administrative override, fresh coupon
// redemption, attributable recorded payment, computed default. Every
// remote failure along the chain falls through to the next tier; the
// resolver never raises for a missing source.
type Resolver struct {
	overrides   OverrideSource
	coupons     CouponSource
	payments    PaymentSource
	profiles    ProfileSource
	intents     IntentSource
	calc        *Calculator
	defaults    DefaultTable
	cache       *cache.ResultCache
	concurrency int
	now         func() time.Time
	logger      *logger.Logger
}

// NewResolver creates a fee value resolver
func NewResolver(
	overrides OverrideSource,
	coupons CouponSource,
	payments PaymentSource,
	profiles ProfileSource,
	intents IntentSource,
	calc *Calculator,
	defaults DefaultTable,
	resultCache *cache.ResultCache,
	concurrency int,
	log *logger.Logger,
) *Resolver {
	if concurrency <= 0 {
		concurrency = 16
	}
	return &Resolver{
		overrides:   overrides,
		coupons:     coupons,
		payments:    payments,
		profiles:    profiles,
		intents:     intents,
		calc:        calc,
		defaults:    defaults,
		cache:       resultCache,
		concurrency: concurrency,
		now:         time.Now,
		logger:      log,
	}
}

// Resolve returns the authoritative amount for one (user, category).
// The profile is required for default computation; its absence is the
// only error this method can return.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, category entities.FeeCategory) (entities.ResolvedAmount, error) {
	if !category.IsValid() {
		return entities.ResolvedAmount{}, fmt.Errorf("unknown fee category %q", category)
	}

	profile, err := r.profile(ctx, userID)
	if err != nil {
		return entities.ResolvedAmount{}, fmt.Errorf("load profile: %w", err)
	}

	override := r.overrideFor(ctx, userID, category)
	var payment *entities.RecordedPayment
	if override == nil {
		// the ledger read is only needed past the coupon tier, but a
		// single lookup keeps the hot path simple
		payment, err = r.payments.GetLatest(ctx, userID, category)
		if err != nil {
			// fail soft: treat as no recorded payment
			r.logger.Warn("Recorded payment lookup failed, falling through",
				"user_id", userID, "category", category, "error", err)
			payment = nil
		}
	}

	return r.resolveWithData(ctx, profile, category, override, payment), nil
}

// ResolveAmounts resolves several categories for one user
func (r *Resolver) ResolveAmounts(ctx context.Context, userID uuid.UUID, categories []entities.FeeCategory) (map[entities.FeeCategory]entities.ResolvedAmount, error) {
	out := make(map[entities.FeeCategory]entities.ResolvedAmount, len(categories))
	for _, category := range categories {
		resolved, err := r.Resolve(ctx, userID, category)
		if err != nil {
			return nil, err
		}
		out[category] = resolved
	}
	return out, nil
}

// CohortResult carries per-user resolution results and per-user errors.
// A failing user never fails its siblings; consumers decide fallthrough
// behavior per missing key.
type CohortResult struct {
	Amounts map[uuid.UUID]map[entities.FeeCategory]entities.ResolvedAmount
	Errors  map[uuid.UUID]error
}

// ResolveForCohort resolves the given categories for every user in the
// cohort. Overrides, payments, and profiles are prefetched through the
// chunked batch loaders; per-user resolution then fans out concurrently.
func (r *Resolver) ResolveForCohort(ctx context.Context, userIDs []uuid.UUID, categories []entities.FeeCategory) (*CohortResult, error) {
	result := &CohortResult{
		Amounts: make(map[uuid.UUID]map[entities.FeeCategory]entities.ResolvedAmount, len(userIDs)),
		Errors:  make(map[uuid.UUID]error),
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	profiles, err := r.profiles.BatchGet(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("batch load profiles: %w", err)
	}
	overrides, err := r.overrides.BatchGet(ctx, userIDs)
	if err != nil {
		r.logger.Warn("Batch override load failed, resolving without overrides", "error", err)
		overrides = map[uuid.UUID]map[entities.FeeCategory]entities.FeeOverride{}
	}
	payments, err := r.payments.BatchGetLatest(ctx, userIDs)
	if err != nil {
		r.logger.Warn("Batch payment load failed, resolving without ledger data", "error", err)
		payments = map[uuid.UUID]map[entities.FeeCategory]entities.RecordedPayment{}
	}

	type userAmounts struct {
		userID  uuid.UUID
		amounts map[entities.FeeCategory]entities.ResolvedAmount
		err     error
	}

	results := make([]userAmounts, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, userID := range userIDs {
		i, userID := i, userID
		g.Go(func() error {
			profile, ok := profiles[userID]
			if !ok {
				results[i] = userAmounts{userID: userID, err: fmt.Errorf("profile unavailable")}
				return nil
			}

			amounts := make(map[entities.FeeCategory]entities.ResolvedAmount, len(categories))
			for _, category := range categories {
				var override *entities.FeeOverride
				if o, ok := overrides[userID][category]; ok {
					o := o
					override = &o
				}
				var payment *entities.RecordedPayment
				if p, ok := payments[userID][category]; ok {
					p := p
					payment = &p
				}
				amounts[category] = r.resolveWithData(gctx, &profile, category, override, payment)
			}
			results[i] = userAmounts{userID: userID, amounts: amounts}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		if res.err != nil {
			result.Errors[res.userID] = res.err
			continue
		}
		result.Amounts[res.userID] = res.amounts
	}
	return result, nil
}

// resolveWithData walks the precedence chain with already-fetched
// override and ledger rows. Coupon and processor lookups stay lazy.
func (r *Resolver) resolveWithData(
	ctx context.Context,
	profile *entities.UserProfile,
	category entities.FeeCategory,
	override *entities.FeeOverride,
	payment *entities.RecordedPayment,
) entities.ResolvedAmount {
	// 1. Administrative override wins unconditionally
	if override != nil {
		metrics.ResolutionsBySource.WithLabelValues(string(entities.AmountSourceOverride)).Inc()
		return entities.ResolvedAmount{
			Category: category,
			Amount:   clampZero(round2(override.Amount)),
			Source:   entities.AmountSourceOverride,
		}
	}

	// 2. Fresh coupon redemption
	if amount, ok := r.couponAmount(ctx, profile.ID, category); ok {
		metrics.ResolutionsBySource.WithLabelValues(string(entities.AmountSourceCoupon)).Inc()
		return entities.ResolvedAmount{
			Category: category,
			Amount:   amount,
			Source:   entities.AmountSourceCoupon,
		}
	}

	// 3. Most recent recorded payment, when attributable
	if payment != nil {
		if amount, ok := r.paymentAmount(ctx, payment); ok {
			metrics.ResolutionsBySource.WithLabelValues(string(entities.AmountSourcePayment)).Inc()
			return entities.ResolvedAmount{
				Category: category,
				Amount:   amount,
				Source:   entities.AmountSourcePayment,
			}
		}
	}

	// 4. Computed default
	metrics.ResolutionsBySource.WithLabelValues(string(entities.AmountSourceDefault)).Inc()
	return entities.ResolvedAmount{
		Category: category,
		Amount:   clampZero(round2(r.defaults.Amount(category, profile.SystemVariant, profile.Dependents))),
		Source:   entities.AmountSourceDefault,
	}
}

// couponAmount returns the final amount of the most recent fresh
// redemption for the category, if one exists.
func (r *Resolver) couponAmount(ctx context.Context, userID uuid.UUID, category entities.FeeCategory) (decimal.Decimal, bool) {
	redemption, err := r.coupons.GetLatest(ctx, userID, CouponTokens(category))
	if err != nil {
		r.logger.Warn("Coupon redemption lookup failed, falling through",
			"user_id", userID, "category", category, "error", err)
		return decimal.Zero, false
	}
	if redemption == nil || !redemption.IsFresh(r.now()) {
		return decimal.Zero, false
	}
	return clampZero(round2(redemption.FinalAmount)), true
}

// paymentAmount settles a recorded payment into net USD. A payment that
// cannot be attributed (no transaction id, failed metadata fetch,
// unknown rail) reports ok=false and is counted as an anomaly; the
// resolver falls through rather than guessing.
func (r *Resolver) paymentAmount(ctx context.Context, payment *entities.RecordedPayment) (decimal.Decimal, bool) {
	if payment.Rail.IsLedgerRail() {
		// manual bank-transfer entries are recorded net, in USD
		return clampZero(round2(payment.GrossAmount)), true
	}

	if payment.Rail != entities.PaymentRailStripe {
		metrics.ResolutionAnomalies.WithLabelValues("unknown_rail").Inc()
		r.logger.Warn("Recorded payment on unknown rail skipped",
			"payment_id", payment.ID, "rail", payment.Rail)
		return decimal.Zero, false
	}

	if payment.ProcessorTransactionID == nil || *payment.ProcessorTransactionID == "" {
		// legacy rows predating metadata capture: an un-attributable
		// currency cannot be safely assumed USD
		metrics.ResolutionAnomalies.WithLabelValues("missing_transaction_id").Inc()
		return decimal.Zero, false
	}

	meta := r.intents.Fetch(ctx, *payment.ProcessorTransactionID)
	if meta == nil {
		metrics.ResolutionAnomalies.WithLabelValues("metadata_fetch_failed").Inc()
		return decimal.Zero, false
	}

	grossUSD := payment.GrossAmount
	if meta.OriginalCurrency != "" && !strings.EqualFold(meta.OriginalCurrency, entities.ReferenceCurrency) {
		grossUSD = r.calc.Convert(payment.GrossAmount, meta.ExchangeRate)
	}

	return r.calc.SettledAmount(grossUSD, meta.IsInstantTransfer, payment.PaidAt), true
}

// overrideFor reads the override tier through the result cache
func (r *Resolver) overrideFor(ctx context.Context, userID uuid.UUID, category entities.FeeCategory) *entities.FeeOverride {
	if cached, ok := r.cache.Get(cacheFnOverrides, userID, category); ok {
		if override, ok := cached.(*entities.FeeOverride); ok {
			return override
		}
	}

	override, err := r.overrides.Get(ctx, userID, category)
	if err != nil {
		r.logger.Warn("Fee override lookup failed, falling through",
			"user_id", userID, "category", category, "error", err)
		return nil
	}

	// nil (no override) is memoized too; absence is a valid answer
	r.cache.Set(cacheFnOverrides, override, userID, category)
	return override
}

// profile reads a user profile through the result cache
func (r *Resolver) profile(ctx context.Context, userID uuid.UUID) (*entities.UserProfile, error) {
	if cached, ok := r.cache.Get(cacheFnProfile, userID); ok {
		if profile, ok := cached.(*entities.UserProfile); ok {
			return profile, nil
		}
	}

	profile, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.cache.Set(cacheFnProfile, profile, userID)
	return profile, nil
}
