package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SellerEvent is the payload posted to the alert sink on seller state
// transitions.
type SellerEvent struct {
	Event        string    `json:"event"`
	SellerID     string    `json:"seller_id"`
	SellerEmail  string    `json:"seller_email"`
	ReferralCode string    `json:"referral_code"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// WebhookNotifier posts seller alerts to a configured sink.
// Fire-and-forget: failures are logged, never retried, never surfaced
// to the caller.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier creates a webhook notifier. An empty URL disables it.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Notify posts the event asynchronously and returns immediately
func (n *WebhookNotifier) Notify(event SellerEvent) {
	if n.url == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.httpClient.Timeout)
		defer cancel()

		payload, err := json.Marshal(event)
		if err != nil {
			n.logger.Warn("Failed to encode seller event", zap.Error(err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
		if err != nil {
			n.logger.Warn("Failed to build webhook request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.logger.Warn("Seller alert webhook failed",
				zap.String("event", event.Event),
				zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			n.logger.Warn("Seller alert webhook rejected",
				zap.String("event", event.Event),
				zap.Int("status", resp.StatusCode))
		}
	}()
}
