package http

import (
	"net/http"

	"fleetbook-backend/internal/security"

	"github.com/gorilla/mux"
)

// NewRouter wires the REST routes. Public search routes are rate limited per
// client IP; everything else goes through token auth per the endpoint
// security table.
func NewRouter(bookings *BookingHandler, webhooks *WebhookHandler, tm security.TokenManager, limiter *RateLimiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger)
	router.Use(AuthMiddleware(tm))

	router.HandleFunc("/healthz", bookings.Health).Methods("GET")

	router.Handle("/v1/availability", limiter.Limit(http.HandlerFunc(bookings.ResolveAvailability))).Methods("GET")
	router.Handle("/v1/quotes", limiter.Limit(http.HandlerFunc(bookings.ComputePrice))).Methods("POST")

	router.HandleFunc("/v1/bookings", bookings.CreateBooking).Methods("POST")
	router.HandleFunc("/v1/bookings", bookings.ListBookings).Methods("GET")
	router.HandleFunc("/v1/bookings/{id}", bookings.GetBooking).Methods("GET")
	router.HandleFunc("/v1/bookings/{id}", bookings.ModifyBooking).Methods("PATCH")
	router.HandleFunc("/v1/bookings/{id}/transitions", bookings.TransitionBooking).Methods("POST")
	router.HandleFunc("/v1/bookings/{id}/paid", bookings.MarkPaid).Methods("POST")
	router.HandleFunc("/v1/ledger/summary", bookings.LedgerSummary).Methods("GET")

	if webhooks != nil {
		router.HandleFunc("/v1/webhooks/stripe", webhooks.HandleStripe).Methods("POST")
	}
	return router
}
