// Package notify carries booking and report side effects: calendar invites,
// patient confirmation email, and the doctor's chat webhook. Each collaborator
// returns a structured Outcome; missing configuration yields a successful
// simulated outcome so a booking or report is never blocked by notification
// unavailability.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Outcome is the uniform result of a notification attempt.
type Outcome struct {
	OK     bool   `json:"ok"`
	Source string `json:"source"`
	Detail string `json:"detail,omitempty"`
}

type Config struct {
	SendGridAPIKey string        `envconfig:"SENDGRID_API_KEY" split_words:"true"`
	FromEmail      string        `envconfig:"FROM_EMAIL" split_words:"true" default:"clinic@example.com"`
	FromName       string        `envconfig:"FROM_NAME" split_words:"true" default:"Clinic Assistant"`
	WebhookURL     string        `envconfig:"WEBHOOK_URL" split_words:"true"`
	WebhookToken   string        `envconfig:"WEBHOOK_TOKEN" split_words:"true"`
	Timeout        time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// EmailSender sends a plain-text email. Implementations can be swapped
// without changing callers.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// WebhookSender posts a text payload to a configured chat webhook.
type WebhookSender interface {
	Post(ctx context.Context, text string) error
}

type Service struct {
	email   EmailSender
	webhook WebhookSender
	log     zerolog.Logger
}

// NewService wires senders from config. Nil senders are valid and degrade to
// simulated outcomes.
func NewService(cfg Config, log zerolog.Logger) *Service {
	var email EmailSender
	if sg := NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail); sg != nil {
		email = sg
	}
	var webhook WebhookSender
	if wh := NewWebhookClient(cfg.WebhookURL, cfg.WebhookToken, cfg.Timeout); wh != nil {
		webhook = wh
	}
	return NewServiceWith(email, webhook, log)
}

// NewServiceWith allows injecting senders directly. Used by tests.
func NewServiceWith(email EmailSender, webhook WebhookSender, log zerolog.Logger) *Service {
	return &Service{email: email, webhook: webhook, log: log}
}

// CalendarInvite records a calendar event for the booking. No calendar
// backend is wired, so the outcome is always simulated.
func (s *Service) CalendarInvite(_ context.Context, doctor, patient, startISO, endISO string) Outcome {
	detail := fmt.Sprintf("Appointment: %s with %s (%s - %s)", patient, doctor, startISO, endISO)
	s.log.Debug().Str("doctor", doctor).Str("patient", patient).Msg("calendar invite simulated")
	return Outcome{OK: true, Source: "simulated_calendar", Detail: detail}
}

// EmailConfirmation sends the patient a booking confirmation.
func (s *Service) EmailConfirmation(ctx context.Context, to, subject, body string) Outcome {
	if s.email == nil {
		s.log.Debug().Str("to", to).Msg("email sender not configured, simulating")
		return Outcome{OK: true, Source: "simulated_email", Detail: "no email sender configured"}
	}
	if err := s.email.Send(ctx, to, subject, body); err != nil {
		s.log.Warn().Err(err).Str("to", to).Msg("confirmation email failed")
		return Outcome{OK: false, Source: "email", Detail: err.Error()}
	}
	return Outcome{OK: true, Source: "email"}
}

// DoctorWebhook pushes a report summary to the doctor's chat webhook.
func (s *Service) DoctorWebhook(ctx context.Context, text string) Outcome {
	if s.webhook == nil {
		s.log.Debug().Msg("webhook not configured, simulating")
		return Outcome{OK: true, Source: "simulated_webhook", Detail: "no webhook configured"}
	}
	if err := s.webhook.Post(ctx, text); err != nil {
		s.log.Warn().Err(err).Msg("doctor webhook failed")
		return Outcome{OK: false, Source: "webhook", Detail: err.Error()}
	}
	return Outcome{OK: true, Source: "webhook"}
}
