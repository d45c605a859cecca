package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *ResultCache {
	t.Helper()
	c := NewResultCache(zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

func TestResultCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	userID := uuid.New()

	c.Set("user_profile", "payload", userID)

	got, ok := c.Get("user_profile", userID)
	assert.True(t, ok)
	assert.Equal(t, "payload", got)
}

func TestResultCache_MissOnDifferentParams(t *testing.T) {
	c := newTestCache(t)

	c.Set("user_profile", "payload", uuid.New())

	_, ok := c.Get("user_profile", uuid.New())
	assert.False(t, ok)
}

func TestResultCache_NilValueIsAHit(t *testing.T) {
	c := newTestCache(t)
	userID := uuid.New()

	// memoized absence: nil is a valid cached answer
	c.Set("fee_overrides_for_user", nil, userID, "scholarship")

	got, ok := c.Get("fee_overrides_for_user", userID, "scholarship")
	assert.True(t, ok)
	assert.Nil(t, got)
}

func TestResultCache_ExpiryOnAccess(t *testing.T) {
	c := newTestCache(t)

	c.SetWithTTL("fn", "payload", 10*time.Millisecond)

	_, ok := c.Get("fn")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.Get("fn")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry removed on access")
}

func TestResultCache_Invalidate(t *testing.T) {
	c := newTestCache(t)

	c.Set("fee_overrides_for_user", 1, uuid.New())
	c.Set("fee_overrides_for_user", 2, uuid.New())
	c.Set("user_profile", 3, uuid.New())

	c.Invalidate("fee_overrides_for_user")

	assert.Equal(t, 1, c.Len())
}

func TestTTLFor_Tiers(t *testing.T) {
	tests := []struct {
		fn   string
		want time.Duration
	}{
		{"fee_overrides_for_user", TTLFeeOverrides},
		{"notification_unread_counts", TTLNotification},
		{"user_profile", TTLProfile},
		{"static_fee_table", TTLStatic},
		{"reference_rates", TTLStatic},
		{"anything_else", TTLDefault},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ttlFor(tt.fn), "fn %s", tt.fn)
	}
}

func TestBuildKey_OrderSensitive(t *testing.T) {
	a := buildKey("fn", "x", 1)
	b := buildKey("fn", 1, "x")
	assert.NotEqual(t, a, b)

	assert.Equal(t, buildKey("fn", "x", 1), buildKey("fn", "x", 1))
}
