// Package payment verifies payment processor callbacks.
package payment

import (
	"encoding/json"
	"fmt"
	"strconv"

	"fleetbook-backend/internal/domain"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	eventPaymentSucceeded = "payment_intent.succeeded"

	// BookingMetadataKey is the payment intent metadata entry carrying the booking id.
	BookingMetadataKey = "booking_id"
)

// Capture is a verified, successful payment for a booking.
type Capture struct {
	EventID         string
	PaymentIntentID string
	BookingID       int32
	AmountCents     int64
	Currency        string
}

type StripeWebhook struct {
	webhookSecret string
}

func NewStripeWebhook(webhookSecret string) *StripeWebhook {
	return &StripeWebhook{webhookSecret: webhookSecret}
}

// ParseCapture verifies the Stripe-Signature header and extracts the booking
// capture from a payment_intent.succeeded event. Other event types return a
// nil Capture and no error so the caller can acknowledge and ignore them.
func (s *StripeWebhook) ParseCapture(payload []byte, signature string) (*Capture, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, domain.NewForbiddenError(fmt.Sprintf("failed to verify webhook signature: %v", err))
	}
	if string(event.Type) != eventPaymentSucceeded {
		return nil, nil
	}
	if event.Data == nil {
		return nil, domain.NewValidationError("webhook event has no data")
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("failed to unmarshal event data: %v", err))
	}

	raw, ok := intent.Metadata[BookingMetadataKey]
	if !ok {
		return nil, domain.NewValidationError("payment intent " + intent.ID + " carries no booking id")
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return nil, domain.NewValidationError("payment intent " + intent.ID + " has a malformed booking id")
	}

	return &Capture{
		EventID:         event.ID,
		PaymentIntentID: intent.ID,
		BookingID:       int32(id),
		AmountCents:     intent.Amount,
		Currency:        string(intent.Currency),
	}, nil
}
