package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetbook-backend/internal/api/dto"
	httpapi "fleetbook-backend/internal/api/http"
	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/payment"
	"fleetbook-backend/internal/security"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const webhookSecret = "whsec_router_test"

type harness struct {
	router       *mux.Router
	tokens       security.TokenManager
	availability *MockAvailabilityService
	pricing      *MockPricingService
	bookings     *MockBookingService
	ledger       *MockLedgerService
}

func newHarness(t *testing.T, limiter *httpapi.RateLimiter) *harness {
	t.Helper()
	h := &harness{
		tokens:       security.NewTokenManager("test-secret", time.Hour),
		availability: new(MockAvailabilityService),
		pricing:      new(MockPricingService),
		bookings:     new(MockBookingService),
		ledger:       new(MockLedgerService),
	}
	if limiter == nil {
		limiter = httpapi.NewRateLimiter(1000, 1000)
	}
	handler := httpapi.NewBookingHandler(h.availability, h.pricing, h.bookings, h.ledger)
	hooks := httpapi.NewWebhookHandler(payment.NewStripeWebhook(webhookSecret), h.bookings)
	h.router = httpapi.NewRouter(handler, hooks, h.tokens, limiter)
	return h
}

func (h *harness) token(t *testing.T, userID int32, role domain.Role, companyID int32) string {
	t.Helper()
	tok, err := h.tokens.GenerateAccessToken(userID, role, companyID, 0)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

var (
	pickup = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	ret    = pickup.Add(96 * time.Hour)
)

func TestRouter_Health(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_ResolveAvailability(t *testing.T) {
	h := newHarness(t, nil)

	t.Run("Public", func(t *testing.T) {
		h.availability.On("Resolve", mock.Anything, int32(1), mock.Anything, mock.Anything, (*int32)(nil)).
			Return(&domain.Availability{CategoryID: 1, Capacity: 2, AvailableCount: 2, IsAvailable: true}, nil).Once()

		rec := h.do("GET", "/v1/availability?category_id=1&pickup_at=2026-06-01T10:00:00Z&return_at=2026-06-05T10:00:00Z", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var out dto.ResolveAvailabilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, int32(2), out.Availability.AvailableCount)
	})

	t.Run("Malformed time", func(t *testing.T) {
		rec := h.do("GET", "/v1/availability?category_id=1&pickup_at=tomorrow&return_at=2026-06-05T10:00:00Z", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "pickup_at")
	})

	t.Run("Invalid range", func(t *testing.T) {
		h.availability.On("Resolve", mock.Anything, int32(2), mock.Anything, mock.Anything, (*int32)(nil)).
			Return(nil, domain.NewInvalidRangeError("pickup must be before return")).Once()

		rec := h.do("GET", "/v1/availability?category_id=2&pickup_at=2026-06-05T10:00:00Z&return_at=2026-06-01T10:00:00Z", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), string(domain.KindInvalidRange))
	})
}

func TestRouter_RateLimit(t *testing.T) {
	h := newHarness(t, httpapi.NewRateLimiter(0.001, 1))
	h.pricing.On("ComputePrice", mock.Anything, mock.Anything).Return(&domain.PriceBreakdown{TotalCents: 100}, nil)

	body := dto.ComputePriceRequest{CategoryID: 1, PickupAt: pickup, ReturnAt: ret}
	assert.Equal(t, http.StatusOK, h.do("POST", "/v1/quotes", "", body).Code)
	rec := h.do("POST", "/v1/quotes", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	h.pricing.AssertNumberOfCalls(t, "ComputePrice", 1)
}

func TestRouter_CreateBooking(t *testing.T) {
	body := dto.CreateBookingRequest{CategoryID: 1, PickupLocationID: 4, PickupAt: pickup, ReturnAt: ret, DiscountCode: "SPRING10"}

	t.Run("Unauthenticated", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do("POST", "/v1/bookings", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Created", func(t *testing.T) {
		h := newHarness(t, nil)
		h.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool {
			return a.Role == domain.RoleCustomer && a.CustomerID == 7
		}), mock.MatchedBy(func(r domain.BookingRequest) bool {
			return r.DiscountCode == "SPRING10" && r.PickupAt.Equal(pickup)
		})).Return(&domain.Booking{ID: 11, Reference: "FB-0A1B2C3D4E", Status: domain.BookingStatusPending}, nil)

		rec := h.do("POST", "/v1/bookings", h.token(t, 7, domain.RoleCustomer, 1), body)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/v1/bookings/11", rec.Header().Get("Location"))
		assert.Contains(t, rec.Body.String(), "FB-0A1B2C3D4E")
	})

	t.Run("Conflict", func(t *testing.T) {
		h := newHarness(t, nil)
		h.bookings.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewAvailabilityConflictError(1))

		rec := h.do("POST", "/v1/bookings", h.token(t, 7, domain.RoleCustomer, 1), body)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), string(domain.KindAvailabilityConflict))
	})

	t.Run("Unknown field", func(t *testing.T) {
		h := newHarness(t, nil)
		req := httptest.NewRequest("POST", "/v1/bookings", strings.NewReader(`{"category_id":1,"teleport":true}`))
		req.Header.Set("Authorization", "Bearer "+h.token(t, 7, domain.RoleCustomer, 1))
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		h.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Store unavailable", func(t *testing.T) {
		h := newHarness(t, nil)
		h.bookings.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewUnavailableError("begin transaction timed out", nil))

		rec := h.do("POST", "/v1/bookings", h.token(t, 7, domain.RoleCustomer, 1), body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})
}

func TestRouter_GetBooking(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.token(t, 500, domain.RoleOperator, 1)

	h.bookings.On("GetBookingByReference", mock.Anything, mock.Anything, "FB-0A1B2C3D4E").
		Return(&domain.Booking{ID: 11, Reference: "FB-0A1B2C3D4E"}, nil)
	h.bookings.On("GetBooking", mock.Anything, mock.Anything, int32(12)).
		Return(nil, domain.NewNotFoundError("booking", 12))

	assert.Equal(t, http.StatusOK, h.do("GET", "/v1/bookings/fb-0a1b2c3d4e", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do("GET", "/v1/bookings/12", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do("GET", "/v1/bookings/abc", tok, nil).Code)
}

func TestRouter_TransitionBooking(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.token(t, 900, domain.RoleAdmin, 1)

	h.bookings.On("Transition", mock.Anything, mock.Anything, int32(11), domain.BookingStatusCancelled, "vehicle damaged").
		Return(&domain.Booking{ID: 11, Status: domain.BookingStatusCancelled}, nil)
	h.bookings.On("Transition", mock.Anything, mock.Anything, int32(12), domain.BookingStatusConfirmed, "").
		Return(nil, domain.NewTerminalStateError(domain.BookingStatusCompleted))

	rec := h.do("POST", "/v1/bookings/11/transitions", tok, map[string]string{"status": "cancelled", "reason": "vehicle damaged"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do("POST", "/v1/bookings/12/transitions", tok, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.KindTerminalState))
}

func TestRouter_ModifyBooking(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.token(t, 7, domain.RoleCustomer, 1)
	newReturn := ret.Add(24 * time.Hour)

	h.bookings.On("ModifyBooking", mock.Anything, mock.Anything, int32(11), mock.MatchedBy(func(c domain.BookingChange) bool {
		return c.ReturnAt != nil && c.ReturnAt.Equal(newReturn) && c.ReplaceExtras && len(c.Extras) == 0
	})).Return(&domain.Booking{ID: 11, ReturnAt: newReturn}, nil)

	rec := h.do("PATCH", "/v1/bookings/11", tok, map[string]any{"return_at": newReturn, "extras": []any{}})
	assert.Equal(t, http.StatusOK, rec.Code)
	h.bookings.AssertExpectations(t)
}

func TestRouter_LedgerSummary(t *testing.T) {
	h := newHarness(t, nil)

	h.ledger.On("GetSummary", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool { return a.Role == domain.RoleCustomer }), mock.Anything).
		Return(nil, domain.NewForbiddenError("ledger is restricted to staff"))
	h.ledger.On("GetSummary", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool { return a.Role == domain.RoleOperator }), mock.MatchedBy(func(f domain.LedgerFilter) bool {
		return f.CategoryID == 1 && f.From.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	})).Return(&domain.LedgerSummary{GrossRevenueCents: 43200}, nil)

	rec := h.do("GET", "/v1/ledger/summary", h.token(t, 7, domain.RoleCustomer, 1), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do("GET", "/v1/ledger/summary?category_id=1&from=2026-05-01T00:00:00Z", h.token(t, 500, domain.RoleOperator, 1), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gross_revenue_cents":43200`)
}

func stripeRequest(t *testing.T, payload, secret string) *http.Request {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest("POST", "/v1/webhooks/stripe", bytes.NewReader(sp.Payload))
	req.Header.Set("Stripe-Signature", sp.Header)
	return req
}

func TestRouter_StripeWebhook(t *testing.T) {
	succeeded := `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","amount":21600,"currency":"eur","metadata":{"booking_id":"11"}}}}`

	t.Run("Confirms booking", func(t *testing.T) {
		h := newHarness(t, nil)
		h.bookings.On("ConfirmPayment", mock.Anything, int32(11)).
			Return(&domain.Booking{ID: 11, Reference: "FB-0A1B2C3D4E", Status: domain.BookingStatusConfirmed, Paid: true, TotalCents: 21600}, nil)

		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, stripeRequest(t, succeeded, webhookSecret))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"amount_matches":true`)
		h.bookings.AssertExpectations(t)
	})

	t.Run("Partial capture is flagged", func(t *testing.T) {
		var logs bytes.Buffer
		logger.InitializeWithWriter(&logs, "info", "json")
		defer logger.Initialize("info", "text")

		h := newHarness(t, nil)
		h.bookings.On("ConfirmPayment", mock.Anything, int32(11)).
			Return(&domain.Booking{ID: 11, Reference: "FB-0A1B2C3D4E", Status: domain.BookingStatusConfirmed, Paid: true, TotalCents: 30000}, nil)

		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, stripeRequest(t, succeeded, webhookSecret))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"amount_matches":false`)
		assert.Contains(t, logs.String(), "Captured amount differs from booking total")
		assert.Contains(t, logs.String(), `"captured_cents":21600`)
	})

	t.Run("Bad signature", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, stripeRequest(t, succeeded, "whsec_wrong"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		h.bookings.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
	})

	t.Run("Transient failure asks for retry", func(t *testing.T) {
		h := newHarness(t, nil)
		h.bookings.On("ConfirmPayment", mock.Anything, int32(11)).
			Return(nil, domain.NewUnavailableError("commit lost its connection", nil))

		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, stripeRequest(t, succeeded, webhookSecret))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("Permanent failure is acknowledged", func(t *testing.T) {
		h := newHarness(t, nil)
		h.bookings.On("ConfirmPayment", mock.Anything, int32(11)).
			Return(nil, domain.NewNotFoundError("booking", 11))

		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, stripeRequest(t, succeeded, webhookSecret))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
