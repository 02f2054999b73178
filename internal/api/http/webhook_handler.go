package http

import (
	"io"
	"net/http"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/payment"
	"fleetbook-backend/internal/service"
)

// WebhookHandler receives payment processor callbacks.
type WebhookHandler struct {
	stripe     *payment.StripeWebhook
	bookingSvc service.BookingService
}

func NewWebhookHandler(stripe *payment.StripeWebhook, bookingSvc service.BookingService) *WebhookHandler {
	return &WebhookHandler{stripe: stripe, bookingSvc: bookingSvc}
}

// HandleStripe confirms the booking named in a successful payment intent.
// Only transient failures return 5xx, so the processor retries those and
// drops deliveries that can never succeed.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "failed to read body")
		return
	}

	capture, err := h.stripe.ParseCapture(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("Rejected payment webhook", "error", err)
		writeStatus(w, http.StatusBadRequest, "invalid webhook")
		return
	}
	if capture == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	logger.ExternalServiceCall("stripe", "payment_intent.succeeded", "event_id", capture.EventID, "booking_id", capture.BookingID, "amount_cents", capture.AmountCents)
	b, err := h.bookingSvc.ConfirmPayment(r.Context(), capture.BookingID)
	logger.ExternalServiceResult("stripe", "payment_intent.succeeded", err, "event_id", capture.EventID)
	if err != nil {
		if domain.IsRetryable(err) {
			writeError(w, err)
			return
		}
		logger.Error("Payment captured for a booking that cannot be confirmed",
			"booking_id", capture.BookingID,
			"payment_intent", capture.PaymentIntentID,
			"error", err,
		)
		w.WriteHeader(http.StatusOK)
		return
	}
	amountMatches := capture.AmountCents == b.TotalCents
	if !amountMatches {
		logger.Warn("Captured amount differs from booking total",
			"booking_id", b.ID,
			"reference", b.Reference,
			"payment_intent", capture.PaymentIntentID,
			"captured_cents", capture.AmountCents,
			"total_cents", b.TotalCents,
		)
	}
	writeJSON(w, http.StatusOK, map[string]any{"reference": b.Reference, "status": b.Status, "amount_matches": amountMatches})
}
