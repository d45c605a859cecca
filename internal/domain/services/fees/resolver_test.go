package fees

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/pkg/logger"
)

type fakeOverrides struct {
	byUser map[uuid.UUID]map[entities.FeeCategory]entities.FeeOverride
	err    error
}

func (f *fakeOverrides) Get(_ context.Context, userID uuid.UUID, category entities.FeeCategory) (*entities.FeeOverride, error) {
	if f.err != nil {
		return nil, f.err
	}
	if o, ok := f.byUser[userID][category]; ok {
		return &o, nil
	}
	return nil, nil
}

func (f *fakeOverrides) BatchGet(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]map[entities.FeeCategory]entities.FeeOverride, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser, nil
}

type fakeCoupons struct {
	byUser map[uuid.UUID]*entities.CouponRedemption
	err    error
}

func (f *fakeCoupons) GetLatest(_ context.Context, userID uuid.UUID, _ []string) (*entities.CouponRedemption, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

type fakePayments struct {
	byUser map[uuid.UUID]map[entities.FeeCategory]entities.RecordedPayment
	err    error
}

func (f *fakePayments) GetLatest(_ context.Context, userID uuid.UUID, category entities.FeeCategory) (*entities.RecordedPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.byUser[userID][category]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakePayments) BatchGetLatest(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]map[entities.FeeCategory]entities.RecordedPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser, nil
}

type fakeProfiles struct {
	profiles map[uuid.UUID]entities.UserProfile
}

func (f *fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (*entities.UserProfile, error) {
	if p, ok := f.profiles[id]; ok {
		return &p, nil
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeProfiles) BatchGet(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]entities.UserProfile, error) {
	out := make(map[uuid.UUID]entities.UserProfile)
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeIntents struct {
	byTransaction map[string]*entities.PaymentIntentMetadata
}

func (f *fakeIntents) Fetch(_ context.Context, transactionID string) *entities.PaymentIntentMetadata {
	return f.byTransaction[transactionID]
}

type resolverFixture struct {
	resolver  *Resolver
	overrides *fakeOverrides
	coupons   *fakeCoupons
	payments  *fakePayments
	profiles  *fakeProfiles
	intents   *fakeIntents
	cache     *cache.ResultCache
	now       time.Time
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	f := &resolverFixture{
		overrides: &fakeOverrides{byUser: map[uuid.UUID]map[entities.FeeCategory]entities.FeeOverride{}},
		coupons:   &fakeCoupons{byUser: map[uuid.UUID]*entities.CouponRedemption{}},
		payments:  &fakePayments{byUser: map[uuid.UUID]map[entities.FeeCategory]entities.RecordedPayment{}},
		profiles:  &fakeProfiles{profiles: map[uuid.UUID]entities.UserProfile{}},
		intents:   &fakeIntents{byTransaction: map[string]*entities.PaymentIntentMetadata{}},
		now:       time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}

	f.cache = cache.NewResultCache(zap.NewNop())
	t.Cleanup(f.cache.Close)

	calc, err := NewCalculator(testFeesConfig(), zap.NewNop())
	require.NoError(t, err)

	f.resolver = NewResolver(
		f.overrides, f.coupons, f.payments, f.profiles, f.intents,
		calc, NewDefaultTable(testFeesConfig()), f.cache, 4,
		logger.NewLogger(zap.NewNop()),
	)
	f.resolver.now = func() time.Time { return f.now }
	return f
}

func (f *resolverFixture) addProfile(variant entities.SystemVariant, dependents int) uuid.UUID {
	id := uuid.New()
	f.profiles.profiles[id] = entities.UserProfile{
		ID:            id,
		Email:         fmt.Sprintf("%s@example.com", id),
		SystemVariant: variant,
		Dependents:    dependents,
	}
	return id
}

func TestResolve_OverrideWinsOverEverything(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	f.overrides.byUser[userID] = map[entities.FeeCategory]entities.FeeOverride{
		entities.FeeCategorySelectionProcess: {Amount: decimal.NewFromInt(50)},
	}
	f.coupons.byUser[userID] = &entities.CouponRedemption{
		FinalAmount: decimal.NewFromInt(200),
		RedeemedAt:  f.now.Add(-time.Hour),
	}
	f.payments.byUser[userID] = map[entities.FeeCategory]entities.RecordedPayment{
		entities.FeeCategorySelectionProcess: {
			Rail:        entities.PaymentRailZelle,
			GrossAmount: decimal.NewFromInt(300),
		},
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourceOverride, resolved.Source)
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(50)), "got %s", resolved.Amount)
}

func TestResolve_FreshCouponBeatsPayment(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	f.coupons.byUser[userID] = &entities.CouponRedemption{
		FinalAmount: decimal.NewFromInt(200),
		RedeemedAt:  f.now.Add(-23 * time.Hour),
	}
	f.payments.byUser[userID] = map[entities.FeeCategory]entities.RecordedPayment{
		entities.FeeCategorySelectionProcess: {
			Rail:        entities.PaymentRailZelle,
			GrossAmount: decimal.NewFromInt(300),
		},
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourceCoupon, resolved.Source)
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(200)), "got %s", resolved.Amount)
}

func TestResolve_StaleCouponFallsThrough(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	f.coupons.byUser[userID] = &entities.CouponRedemption{
		FinalAmount: decimal.NewFromInt(200),
		RedeemedAt:  f.now.Add(-25 * time.Hour),
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourceDefault, resolved.Source)
}

func TestResolve_ValidationEventCouponStaysFresh(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	f.coupons.byUser[userID] = &entities.CouponRedemption{
		FinalAmount: decimal.NewFromInt(175),
		RedeemedAt:  f.now.Add(-30 * 24 * time.Hour),
		Metadata:    map[string]string{entities.CouponValidationEventKey: "true"},
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourceCoupon, resolved.Source)
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(175)), "got %s", resolved.Amount)
}

func TestResolve_LedgerRailPaymentUsedDirectly(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	f.payments.byUser[userID] = map[entities.FeeCategory]entities.RecordedPayment{
		entities.FeeCategoryScholarship: {
			Rail:        entities.PaymentRailZelle,
			GrossAmount: decimal.RequireFromString("812.50"),
		},
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategoryScholarship)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourcePayment, resolved.Source)
	assert.True(t, resolved.Amount.Equal(decimal.RequireFromString("812.50")), "got %s", resolved.Amount)
}

func TestResolve_ProcessorPaymentConvertedAndStripped(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	txnID := "pi_123"
	f.payments.byUser[userID] = map[entities.FeeCategory]entities.RecordedPayment{
		entities.FeeCategorySelectionProcess: {
			Rail:                   entities.PaymentRailStripe,
			GrossAmount:            decimal.NewFromInt(550), // BRL
			ProcessorTransactionID: &txnID,
			PaidAt:                 time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	f.intents.byTransaction[txnID] = &entities.PaymentIntentMetadata{
		TransactionID:     txnID,
		OriginalCurrency:  "BRL",
		IsInstantTransfer: true,
		ExchangeRate:      decimal.RequireFromString("5.5"),
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourcePayment, resolved.Source)
	// 550/5.5 = 100 USD, instant rail net 98.20
	assert.True(t, resolved.Amount.Equal(decimal.RequireFromString("98.2")), "got %s", resolved.Amount)
}

func TestResolve_PreCutoverPaymentKeepsGross(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	txnID := "pi_old"
	f.payments.byUser[userID] = map[entities.FeeCategory]entities.RecordedPayment{
		entities.FeeCategorySelectionProcess: {
			Rail:                   entities.PaymentRailStripe,
			GrossAmount:            decimal.NewFromInt(400),
			ProcessorTransactionID: &txnID,
			PaidAt:                 time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	f.intents.byTransaction[txnID] = &entities.PaymentIntentMetadata{
		TransactionID:     txnID,
		OriginalCurrency:  "USD",
		IsInstantTransfer: false,
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourcePayment, resolved.Source)
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(400)), "got %s", resolved.Amount)
}

func TestResolve_PaymentWithoutTransactionIDFallsToDefault(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 3)

	f.payments.byUser[userID] = map[entities.FeeCategory]entities.RecordedPayment{
		entities.FeeCategorySelectionProcess: {
			Rail:        entities.PaymentRailStripe,
			GrossAmount: decimal.NewFromInt(999),
		},
	}

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourceDefault, resolved.Source)
	// legacy 400 + 3*150
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(850)), "got %s", resolved.Amount)
}

func TestResolve_MetadataFetchFailureFallsToDefault(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantSimplified, 0)

	txnID := "pi_gone"
	f.payments.byUser[userID] = map[entities.FeeCategory]entities.RecordedPayment{
		entities.FeeCategorySelectionProcess: {
			Rail:                   entities.PaymentRailStripe,
			GrossAmount:            decimal.NewFromInt(350),
			ProcessorTransactionID: &txnID,
			PaidAt:                 time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	// no intent registered: Fetch returns nil

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourceDefault, resolved.Source)
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(350)), "got %s", resolved.Amount)
}

func TestResolve_SourceFailuresFailSoft(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantSimplified, 2)

	f.overrides.err = fmt.Errorf("db down")
	f.coupons.err = fmt.Errorf("db down")
	f.payments.err = fmt.Errorf("db down")

	resolved, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategorySelectionProcess)
	require.NoError(t, err)
	assert.Equal(t, entities.AmountSourceDefault, resolved.Source)
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(350)), "got %s", resolved.Amount)
}

func TestResolve_MissingProfileIsAnError(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.Resolve(context.Background(), uuid.New(), entities.FeeCategorySelectionProcess)
	assert.Error(t, err)
}

func TestResolve_UnknownCategoryIsAnError(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 0)

	_, err := f.resolver.Resolve(context.Background(), userID, entities.FeeCategory("bogus"))
	assert.Error(t, err)
}

func TestResolveForCohort_PerUserIsolation(t *testing.T) {
	f := newResolverFixture(t)

	withOverride := f.addProfile(entities.SystemVariantLegacy, 0)
	plain := f.addProfile(entities.SystemVariantSimplified, 0)
	missing := uuid.New() // no profile

	f.overrides.byUser[withOverride] = map[entities.FeeCategory]entities.FeeOverride{
		entities.FeeCategorySelectionProcess: {Amount: decimal.NewFromInt(75)},
	}

	result, err := f.resolver.ResolveForCohort(
		context.Background(),
		[]uuid.UUID{withOverride, plain, missing},
		[]entities.FeeCategory{entities.FeeCategorySelectionProcess},
	)
	require.NoError(t, err)

	require.Contains(t, result.Amounts, withOverride)
	require.Contains(t, result.Amounts, plain)
	assert.Contains(t, result.Errors, missing)
	assert.NotContains(t, result.Amounts, missing)

	got := result.Amounts[withOverride][entities.FeeCategorySelectionProcess]
	assert.Equal(t, entities.AmountSourceOverride, got.Source)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(75)))

	// one user's override never leaks into another's resolution
	gotPlain := result.Amounts[plain][entities.FeeCategorySelectionProcess]
	assert.Equal(t, entities.AmountSourceDefault, gotPlain.Source)
	assert.True(t, gotPlain.Amount.Equal(decimal.NewFromInt(350)))
}

func TestResolveForCohort_EmptyCohort(t *testing.T) {
	f := newResolverFixture(t)

	result, err := f.resolver.ResolveForCohort(context.Background(), nil, entities.CoreFeeCategories)
	require.NoError(t, err)
	assert.Empty(t, result.Amounts)
	assert.Empty(t, result.Errors)
}

func TestResolveAmounts_MultipleCategories(t *testing.T) {
	f := newResolverFixture(t)
	userID := f.addProfile(entities.SystemVariantLegacy, 1)

	amounts, err := f.resolver.ResolveAmounts(context.Background(), userID, entities.CoreFeeCategories)
	require.NoError(t, err)
	require.Len(t, amounts, len(entities.CoreFeeCategories))

	assert.True(t, amounts[entities.FeeCategorySelectionProcess].Amount.Equal(decimal.NewFromInt(550)))
	assert.True(t, amounts[entities.FeeCategoryScholarship].Amount.Equal(decimal.NewFromInt(850)))
	assert.True(t, amounts[entities.FeeCategoryI20Control].Amount.Equal(decimal.NewFromInt(900)))
}
