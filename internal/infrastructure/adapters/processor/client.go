// Package processor implements the payment-intent metadata client. It
// is the only path to a charge's original currency, rail subtype, and
// exchange rate, and must never be called for rails without a
// transaction id.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/domain/entities"
	"github.com/referral-service/referral_service/internal/infrastructure/cache"
	"github.com/referral-service/referral_service/pkg/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	defaultMemoTTL = 5 * time.Minute
	maxRetries     = 3

	memoFn = "processor_payment_intent"
)

// Config represents processor API configuration
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	MemoTTL time.Duration
}

// Client fetches payment-intent metadata with a short-lived memo on
// successes. Failures are never memoized and surface as a nil result:
// the caller treats the corresponding recorded payment as unresolvable
// and falls through to the next precedence tier.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	memo           *cache.ResultCache
	logger         *zap.Logger
}

// NewClient creates a new processor metadata client
func NewClient(config Config, memo *cache.ResultCache, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.MemoTTL == 0 {
		config.MemoTTL = defaultMemoTTL
	}

	cbSettings := gobreaker.Settings{
		Name:        "ProcessorAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Processor circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		memo:           memo,
		logger:         logger,
	}
}

// Fetch returns metadata for a transaction id, or nil if the processor
// could not provide it (network, not-found, auth). It never returns an
// error to keep the fail-soft contract explicit at the call site.
func (c *Client) Fetch(ctx context.Context, transactionID string) *entities.PaymentIntentMetadata {
	if transactionID == "" {
		return nil
	}

	if cached, ok := c.memo.Get(memoFn, transactionID); ok {
		if meta, ok := cached.(*entities.PaymentIntentMetadata); ok {
			return meta
		}
	}

	meta, err := c.fetchRemote(ctx, transactionID)
	if err != nil {
		metrics.ProcessorLookups.WithLabelValues("failure").Inc()
		c.logger.Warn("Payment intent lookup failed",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return nil
	}

	metrics.ProcessorLookups.WithLabelValues("success").Inc()
	c.memo.SetWithTTL(memoFn, meta, c.config.MemoTTL, transactionID)
	return meta
}

func (c *Client) fetchRemote(ctx context.Context, transactionID string) (*entities.PaymentIntentMetadata, error) {
	var resp paymentIntentResponse

	endpoint := fmt.Sprintf("/v1/payment_intents/%s", url.PathEscape(transactionID))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, &resp); err != nil {
		return nil, err
	}

	meta := &entities.PaymentIntentMetadata{
		TransactionID:     transactionID,
		OriginalCurrency:  resp.Currency,
		IsInstantTransfer: isInstantRail(resp.PaymentMethods),
		RailSubtypes:      resp.PaymentMethods,
	}
	if resp.ExchangeRate != nil {
		meta.ExchangeRate = decimal.NewFromFloat(*resp.ExchangeRate)
	}
	if resp.NetAmount != nil {
		meta.NetReferenceAmount = centsToDecimal(*resp.NetAmount)
	}
	return meta, nil
}

// doRequest performs an HTTP request with circuit breaker and retry logic
func (c *Client) doRequest(ctx context.Context, method, endpoint string, response interface{}) error {
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.doRequestInternal(ctx, method, endpoint, response)
	})
	return err
}

func (c *Client) doRequestInternal(ctx context.Context, method, endpoint string, response interface{}) error {
	fullURL := c.config.BaseURL + endpoint

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if err := json.Unmarshal(body, response); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return ErrIntentNotFound
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return ErrUnauthorized
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("processor returned status %d", resp.StatusCode)
			continue
		default:
			return fmt.Errorf("processor returned status %d: %s", resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
