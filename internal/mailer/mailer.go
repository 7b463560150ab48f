package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spec-kit/clinic-identity-service/internal/config"
)

// Kind selects the message template.
type Kind string

const (
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
)

// Mailer delivers account tokens to recipients. Implementations receive
// the raw once-only token and must not persist or log it.
type Mailer interface {
	Send(ctx context.Context, kind Kind, recipient, rawToken, displayName string) error
}

// HTTPMailer posts messages to an HTTP mail-provider API. The client is
// an explicitly-owned handle injected where needed, not a package-level
// transporter.
type HTTPMailer struct {
	client      *http.Client
	cfg         config.MailConfig
	frontendURL string
}

// NewHTTPMailer builds a mailer from configuration.
func NewHTTPMailer(cfg config.MailConfig, frontendURL string) *HTTPMailer {
	return &HTTPMailer{
		client:      &http.Client{Timeout: 10 * time.Second},
		cfg:         cfg,
		frontendURL: frontendURL,
	}
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type messageRequest struct {
	From     recipient   `json:"from"`
	To       []recipient `json:"to"`
	Subject  string      `json:"subject"`
	Text     string      `json:"text"`
	Category string      `json:"category,omitempty"`
}

// Send delivers a verification or reset link carrying the raw token.
func (m *HTTPMailer) Send(ctx context.Context, kind Kind, to, rawToken, displayName string) error {
	if m.cfg.APIURL == "" {
		return fmt.Errorf("mail API URL not configured")
	}

	var subject, body string
	switch kind {
	case KindVerification:
		link := fmt.Sprintf("%s/verify-email?token=%s", m.frontendURL, url.QueryEscape(rawToken))
		subject = "Confirm your email address"
		body = fmt.Sprintf(
			"Hello %s,\n\nThank you for registering. Please confirm your email address by opening the link below. The link is valid for 24 hours.\n\n%s\n",
			displayName, link)
	case KindReset:
		link := fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, url.QueryEscape(rawToken))
		subject = "Reset your password"
		body = fmt.Sprintf(
			"Hello %s,\n\nWe received a request to reset your password. Open the link below to choose a new one. The link is valid for 1 hour.\n\nIf you did not request a reset, you can ignore this message.\n\n%s\n",
			displayName, link)
	default:
		return fmt.Errorf("unknown mail kind %q", kind)
	}

	payload, err := json.Marshal(messageRequest{
		From:     recipient{Email: m.cfg.FromEmail, Name: m.cfg.FromName},
		To:       []recipient{{Email: to, Name: displayName}},
		Subject:  subject,
		Text:     body,
		Category: string(kind),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}
	return nil
}
