// Package notify delivers outbound emergency notifications.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/discentra/discentra/internal/config"
)

// Notifier sends one notification body to the configured recipient.
type Notifier interface {
	Send(ctx context.Context, body string) error
}

// HTTPSMS sends SMS messages through the httpSMS gateway. The sender and
// recipient numbers are fixed at construction.
type HTTPSMS struct {
	client *resty.Client
	from   string
	to     string
}

func NewHTTPSMS(cfg config.SMSConfig) *HTTPSMS {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(30 * time.Second).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &HTTPSMS{
		client: client,
		from:   cfg.From,
		to:     cfg.To,
	}
}

func (h *HTTPSMS) Send(ctx context.Context, body string) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"content":    body,
			"encrypted":  false,
			"from":       h.from,
			"to":         h.to,
			"request_id": uuid.NewString(),
			"send_at":    time.Now().UTC().Format(time.RFC3339),
		}).
		Post("/v1/messages/send")
	if err != nil {
		return fmt.Errorf("error sending sms: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
