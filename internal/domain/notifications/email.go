package notifications

import (
	"context"
	"fmt"

	"tirehub/internal/domain"
	"tirehub/internal/templates"
)

// EmailNotifier renders the alert template and sends a single email to all recipients
type EmailNotifier struct {
	provider EmailProvider
	renderer Renderer
}

func NewEmailNotifier(provider EmailProvider, renderer Renderer) *EmailNotifier {
	return &EmailNotifier{provider: provider, renderer: renderer}
}

func (n *EmailNotifier) SendLowStockAlert(ctx context.Context, recipients []domain.User, alert LowStockAlert) error {
	const op = "notifications.EmailNotifier.SendLowStockAlert"

	to := recipientEmails(recipients)
	if len(to) == 0 {
		return nil
	}

	subject, body, err := n.renderer.RenderMessage(templates.LowStockAlert, alert)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := n.provider.Send(ctx, EmailNotification{To: to, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
