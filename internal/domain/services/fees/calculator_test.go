package fees

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/infrastructure/config"
)

func testFeesConfig() config.FeesConfig {
	return config.FeesConfig{
		StrippingCutover:    "2023-06-01T00:00:00Z",
		InstantRailFeePct:   0.018,
		CardRailFeePct:      0.039,
		CardRailFixedFee:    0.30,
		DependentsSurcharge: 150,
		MaxDependents:       5,
		Defaults: config.DefaultFeeTable{
			SelectionLegacy:       400,
			SelectionSimplified:   350,
			ScholarshipLegacy:     850,
			ScholarshipSimplified: 850,
			I20ControlLegacy:      900,
			I20ControlSimplified:  900,
			ApplicationBase:       100,
			ApplicationPerDep:     100,
		},
	}
}

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(testFeesConfig(), zap.NewNop())
	require.NoError(t, err)
	return calc
}

func TestNetFromGross_InstantRail(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		gross string
		want  string
	}{
		{"100", "98.2"},
		{"850", "834.7"},
		{"0", "0"},
		{"0.01", "0.01"}, // 0.00982 rounds up
	}

	for _, tt := range tests {
		got := calc.NetFromGross(decimal.RequireFromString(tt.gross), true)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"gross %s: got %s, want %s", tt.gross, got, tt.want)
	}
}

func TestNetFromGross_CardRail(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		gross string
		want  string
	}{
		{"100", "95.8"},   // 100*0.961 - 0.30
		{"400", "384.1"},  // 384.40 - 0.30
		{"0.31", "0"},     // 0.30 - 0.30 = 0 after rounding
		{"0.10", "0"},     // would be negative, floored at zero
		{"0", "0"},
	}

	for _, tt := range tests {
		got := calc.NetFromGross(decimal.RequireFromString(tt.gross), false)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"gross %s: got %s, want %s", tt.gross, got, tt.want)
	}
}

func TestNetFromGross_RoundsHalfUp(t *testing.T) {
	calc := newTestCalculator(t)

	// 102.5 * 0.982 = 100.655, half-up to 100.66
	got := calc.NetFromGross(decimal.RequireFromString("102.5"), true)
	assert.True(t, got.Equal(decimal.RequireFromString("100.66")), "got %s", got)
}

func TestConvert(t *testing.T) {
	calc := newTestCalculator(t)

	got := calc.Convert(decimal.RequireFromString("550"), decimal.RequireFromString("5.5"))
	assert.True(t, got.Equal(decimal.NewFromInt(100)), "got %s", got)

	// conversion rounds to cents
	got = calc.Convert(decimal.RequireFromString("100"), decimal.RequireFromString("3"))
	assert.True(t, got.Equal(decimal.RequireFromString("33.33")), "got %s", got)
}

func TestConvert_NonPositiveRateReturnsAmountUnchanged(t *testing.T) {
	calc := newTestCalculator(t)
	amount := decimal.RequireFromString("123.45")

	for _, rate := range []string{"0", "-1"} {
		got := calc.Convert(amount, decimal.RequireFromString(rate))
		assert.True(t, got.Equal(amount), "rate %s: got %s", rate, got)
	}
}

func TestSettledAmount_CutoverGate(t *testing.T) {
	calc := newTestCalculator(t)
	gross := decimal.NewFromInt(100)

	cutover, err := testFeesConfig().CutoverTime()
	require.NoError(t, err)

	// before the cutover the gross passes through unstripped
	before := calc.SettledAmount(gross, true, cutover.Add(-time.Second))
	assert.True(t, before.Equal(gross), "got %s", before)

	// exactly at the cutover stripping applies
	at := calc.SettledAmount(gross, true, cutover)
	assert.True(t, at.Equal(decimal.RequireFromString("98.2")), "got %s", at)

	after := calc.SettledAmount(gross, false, cutover.Add(time.Hour))
	assert.True(t, after.Equal(decimal.RequireFromString("95.8")), "got %s", after)
}

func TestStrippingPolicy_AppliesTo(t *testing.T) {
	cutover := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	policy := StrippingPolicy{Cutover: cutover}

	assert.False(t, policy.AppliesTo(cutover.Add(-time.Nanosecond)))
	assert.True(t, policy.AppliesTo(cutover))
	assert.True(t, policy.AppliesTo(cutover.Add(time.Hour)))
}

func TestNewCalculator_RejectsInvalidCutover(t *testing.T) {
	cfg := testFeesConfig()
	cfg.StrippingCutover = "not-a-date"

	_, err := NewCalculator(cfg, zap.NewNop())
	assert.Error(t, err)
}
