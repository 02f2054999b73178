// Package notification sends best-effort booking emails to customers.
package notification

import (
	"context"
	"fmt"
	"strings"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/utils"
)

// Sender delivers one plain-text email.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}

// EmailNotifier renders booking events into emails and hands them to a Sender.
type EmailNotifier struct {
	sender Sender
}

func NewEmailNotifier(sender Sender) *EmailNotifier {
	return &EmailNotifier{sender: sender}
}

func (n *EmailNotifier) BookingConfirmed(ctx context.Context, c *domain.Customer, b *domain.Booking) error {
	subject := fmt.Sprintf("Booking %s confirmed", b.Reference)
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\nYour booking %s is confirmed.\n\n", c.Name, b.Reference)
	fmt.Fprintf(&body, "Pickup: %s\nReturn: %s\n", b.PickupAt.Format("Mon 02 Jan 2006 15:04 MST"), b.ReturnAt.Format("Mon 02 Jan 2006 15:04 MST"))
	fmt.Fprintf(&body, "Rental (%d days): %s\n", b.DurationDays, utils.FormatCents(b.BasePriceCents))
	for _, e := range b.Extras {
		fmt.Fprintf(&body, "  %s x%d: %s\n", e.Name, e.Quantity, utils.FormatCents(e.TotalCents))
	}
	if b.DiscountAmountCents > 0 && b.DiscountCode != nil {
		fmt.Fprintf(&body, "Discount %s: -%s\n", *b.DiscountCode, utils.FormatCents(b.DiscountAmountCents))
	}
	fmt.Fprintf(&body, "Total: %s\n", utils.FormatCents(b.TotalCents))
	if !b.Paid {
		body.WriteString("\nPayment is still outstanding.\n")
	}
	body.WriteString("\nBest regards,\nThe Fleetbook Team")
	return n.send(ctx, c, subject, body.String())
}

func (n *EmailNotifier) BookingCancelled(ctx context.Context, c *domain.Customer, b *domain.Booking) error {
	subject := fmt.Sprintf("Booking %s cancelled", b.Reference)
	body := fmt.Sprintf("Hello %s,\n\nYour booking %s for %s has been cancelled.", c.Name, b.Reference, b.PickupAt.Format("02 Jan 2006"))
	if b.CancelReason != "" {
		body += fmt.Sprintf("\n\nReason: %s", b.CancelReason)
	}
	if b.Paid {
		body += "\n\nA refund, if due, is handled separately."
	}
	body += "\n\nBest regards,\nThe Fleetbook Team"
	return n.send(ctx, c, subject, body)
}

func (n *EmailNotifier) send(ctx context.Context, c *domain.Customer, subject, body string) error {
	if c.Email == "" {
		return nil
	}
	logger.ExternalServiceCall("email", "send", "to", c.Email, "subject", subject)
	err := n.sender.Send(ctx, c.Email, c.Name, subject, body)
	logger.ExternalServiceResult("email", "send", err, "to", c.Email)
	return err
}

// Noop discards every message. Used when no provider is configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	logger.Debug("Email delivery disabled, dropping message", "to", toEmail, "subject", subject)
	return nil
}
