package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/referral-service/referral_service/internal/domain/entities"
)

func TestCouponTokens_Bidirectional(t *testing.T) {
	for category, tokens := range categoryAliases {
		for _, token := range tokens {
			got, ok := CategoryForCouponToken(token)
			assert.True(t, ok, "token %s", token)
			assert.Equal(t, category, got, "token %s", token)
		}
	}

	_, ok := CategoryForCouponToken("nonexistent")
	assert.False(t, ok)
}

func TestDefaultTable_SelectionProcess(t *testing.T) {
	table := NewDefaultTable(testFeesConfig())

	tests := []struct {
		variant    entities.SystemVariant
		dependents int
		want       int64
	}{
		{entities.SystemVariantLegacy, 0, 400},
		{entities.SystemVariantLegacy, 3, 850}, // 400 + 3*150
		{entities.SystemVariantLegacy, 5, 1150},
		{entities.SystemVariantLegacy, 9, 1150},  // clamped to max 5
		{entities.SystemVariantLegacy, -2, 400},  // negative treated as zero
		{entities.SystemVariantSimplified, 0, 350},
		{entities.SystemVariantSimplified, 4, 350}, // flat, no surcharge
	}

	for _, tt := range tests {
		got := table.Amount(entities.FeeCategorySelectionProcess, tt.variant, tt.dependents)
		assert.True(t, got.Equal(decimal.NewFromInt(tt.want)),
			"variant=%s deps=%d: got %s, want %d", tt.variant, tt.dependents, got, tt.want)
	}
}

func TestDefaultTable_Application(t *testing.T) {
	table := NewDefaultTable(testFeesConfig())

	got := table.Amount(entities.FeeCategoryApplication, entities.SystemVariantLegacy, 2)
	assert.True(t, got.Equal(decimal.NewFromInt(300)), "got %s", got) // 100 + 2*100
}

func TestDefaultTable_FlatCategories(t *testing.T) {
	table := NewDefaultTable(testFeesConfig())

	// dependents never affect scholarship or i20 control
	got := table.Amount(entities.FeeCategoryScholarship, entities.SystemVariantLegacy, 4)
	assert.True(t, got.Equal(decimal.NewFromInt(850)), "got %s", got)

	got = table.Amount(entities.FeeCategoryI20Control, entities.SystemVariantSimplified, 4)
	assert.True(t, got.Equal(decimal.NewFromInt(900)), "got %s", got)
}

func TestDefaultTable_UnknownCategoryIsZero(t *testing.T) {
	table := NewDefaultTable(testFeesConfig())

	got := table.Amount(entities.FeeCategory("bogus"), entities.SystemVariantLegacy, 0)
	assert.True(t, got.IsZero())
}
