package adapters

import (
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailServiceConfig configures the outbound email sink
type EmailServiceConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// EmailService sends courtesy emails on seller state transitions.
// Like the webhook sink, delivery is best-effort only.
type EmailService struct {
	client *sendgrid.Client
	config EmailServiceConfig
	logger *zap.Logger
}

// NewEmailService creates an email service. An empty API key disables
// delivery; Send becomes a logged no-op.
func NewEmailService(config EmailServiceConfig, logger *zap.Logger) *EmailService {
	var client *sendgrid.Client
	if strings.TrimSpace(config.APIKey) != "" {
		client = sendgrid.NewSendClient(config.APIKey)
	}
	return &EmailService{client: client, config: config, logger: logger}
}

// Send delivers a plain-text email; errors are returned for logging but
// callers never propagate them to the user.
func (e *EmailService) Send(to, subject, body string) error {
	if e.client == nil {
		e.logger.Debug("Email delivery disabled, dropping message",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	toEmail := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, toEmail, body, body)

	resp, err := e.client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected message: status %d", resp.StatusCode)
	}
	return nil
}
