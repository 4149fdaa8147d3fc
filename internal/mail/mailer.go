package mail

import (
	"context"
	"log/slog"
	"time"

	"autopost/internal/config"
	"autopost/internal/logging"
	"autopost/internal/recipients"
)

// Result counts one delivery batch.
type Result struct {
	Planned int
	Sent    int
	Failed  int
}

// Mailer renders plan entries and hands them to a Sender.
type Mailer struct {
	sender  Sender
	subject string
	delay   time.Duration
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option customizes a Mailer.
type Option func(*Mailer)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mailer) { m.logger = logging.NewComponentLogger(logger, "mail") }
}

// NewMailer builds a mailer. sender may be nil for dry runs.
func NewMailer(cfg *config.Config, sender Sender, opts ...Option) *Mailer {
	m := &Mailer{
		sender:  sender,
		subject: cfg.Mail.Subject,
		delay:   time.Duration(cfg.Mail.SendDelaySeconds) * time.Second,
		logger:  logging.NewNop(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Deliver sends one mail per plan entry. A failed send is logged and counted
// and the batch continues. dryRun renders every entry without sending.
func (m *Mailer) Deliver(ctx context.Context, plan []recipients.Notification, dryRun bool) (Result, error) {
	result := Result{Planned: len(plan)}
	for i, n := range plan {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		body, err := Render(n)
		if err != nil {
			return result, err
		}
		logger := m.logger.With(logging.String("to", n.Recipient.Email), logging.Int("works", len(n.Works)))
		if dryRun || m.sender == nil {
			logger.Info("mail planned", logging.String("salutation", n.Salutation))
			continue
		}
		if i > 0 {
			if err := m.sleep(ctx, m.delay); err != nil {
				return result, err
			}
		}
		if err := m.sender.Send(ctx, Message{To: n.Recipient.Email, Subject: m.subject, Body: body}); err != nil {
			result.Failed++
			logging.ErrorWithContext(logger, "mail send failed", "mail_send_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check smtp settings and the recipient address"))
			continue
		}
		result.Sent++
		logger.Info("mail sent")
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
