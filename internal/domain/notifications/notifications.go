// Package notifications delivers low-stock alerts to administrators
package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"tirehub/internal/domain"
	"tirehub/internal/logger"
)

// LowStockAlert carries every active part at or below its minimum level
type LowStockAlert struct {
	GeneratedAt time.Time
	Parts       []domain.Part
}

// Notifier delivers one alert addressed to all recipients
type Notifier interface {
	SendLowStockAlert(ctx context.Context, recipients []domain.User, alert LowStockAlert) error
}

// EmailNotification represents an email to send
type EmailNotification struct {
	To      []string
	Subject string
	Body    string
}

// EmailProvider defines the interface for email providers
type EmailProvider interface {
	Send(ctx context.Context, notification EmailNotification) error
}

// Renderer produces the subject and body of a named template
type Renderer interface {
	RenderMessage(name string, data any) (subject, body string, err error)
}

// CompositeNotifier fans an alert out to the configured channels
type CompositeNotifier struct {
	email  Notifier
	events Notifier
}

// NewCompositeNotifier creates a new composite notifier. Nil channels are skipped.
func NewCompositeNotifier(email, events Notifier) *CompositeNotifier {
	return &CompositeNotifier{
		email:  email,
		events: events,
	}
}

// SendLowStockAlert delivers through every channel and joins their errors
func (n *CompositeNotifier) SendLowStockAlert(ctx context.Context, recipients []domain.User, alert LowStockAlert) error {
	var errs []error
	for _, ch := range []Notifier{n.email, n.events} {
		if ch == nil {
			continue
		}
		if err := ch.SendLowStockAlert(ctx, recipients, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogEmailProvider writes emails to the log instead of sending them
type LogEmailProvider struct {
	From string
}

func (p LogEmailProvider) Send(ctx context.Context, n EmailNotification) error {
	logger.Info(ctx, "email",
		logger.String("from", p.From),
		logger.Any("to", n.To),
		logger.String("subject", n.Subject),
		logger.Int("body_bytes", len(n.Body)))
	logger.Debug(ctx, "email body", logger.String("body", n.Body))
	return nil
}

func recipientEmails(recipients []domain.User) []string {
	return lo.Uniq(lo.FilterMap(recipients, func(u domain.User, _ int) (string, bool) {
		return u.Email, u.Email != ""
	}))
}
