package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/infrastructure/cache"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	memo := cache.NewResultCache(zap.NewNop())
	t.Cleanup(memo.Close)

	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Timeout: 2 * time.Second,
		MemoTTL: time.Minute,
	}, memo, zap.NewNop())
}

func TestFetch_ParsesMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "pi_123",
			"currency": "BRL",
			"payment_method_types": ["pix"],
			"exchange_rate": 5.5,
			"net_amount": 9820,
			"status": "succeeded"
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	meta := client.Fetch(context.Background(), "pi_123")
	require.NotNil(t, meta)
	assert.Equal(t, "pi_123", meta.TransactionID)
	assert.Equal(t, "BRL", meta.OriginalCurrency)
	assert.True(t, meta.IsInstantTransfer)
	assert.True(t, meta.ExchangeRate.Equal(decimal.RequireFromString("5.5")))
	assert.True(t, meta.NetReferenceAmount.Equal(decimal.RequireFromString("98.2")))
}

func TestFetch_MemoizesSuccesses(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"id": "pi_123", "currency": "usd", "payment_method_types": ["card"]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	first := client.Fetch(context.Background(), "pi_123")
	second := client.Fetch(context.Background(), "pi_123")

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second lookup must hit the memo")
}

func TestFetch_NotFoundReturnsNilWithoutMemoizing(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	assert.Nil(t, client.Fetch(context.Background(), "pi_missing"))
	assert.Nil(t, client.Fetch(context.Background(), "pi_missing"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "failures are never memoized")
}

func TestFetch_UnauthorizedReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	assert.Nil(t, client.Fetch(context.Background(), "pi_123"))
}

func TestFetch_EmptyTransactionID(t *testing.T) {
	client := newTestClient(t, "http://unreachable.invalid")
	assert.Nil(t, client.Fetch(context.Background(), ""))
}

func TestIsInstantRail(t *testing.T) {
	assert.True(t, isInstantRail([]string{"card", "pix"}))
	assert.True(t, isInstantRail([]string{"bank_transfer"}))
	assert.False(t, isInstantRail([]string{"card"}))
	assert.False(t, isInstantRail(nil))
}
