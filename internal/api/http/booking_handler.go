package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetbook-backend/internal/api/dto"
	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/service"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 64 << 10

// BookingHandler serves the REST booking API.
type BookingHandler struct {
	availabilitySvc service.AvailabilityService
	pricingSvc      service.PricingService
	bookingSvc      service.BookingService
	ledgerSvc       service.LedgerService
}

func NewBookingHandler(availabilitySvc service.AvailabilityService, pricingSvc service.PricingService, bookingSvc service.BookingService, ledgerSvc service.LedgerService) *BookingHandler {
	return &BookingHandler{
		availabilitySvc: availabilitySvc,
		pricingSvc:      pricingSvc,
		bookingSvc:      bookingSvc,
		ledgerSvc:       ledgerSvc,
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError(fmt.Sprintf("malformed request body: %v", err))
	}
	return dto.Validate(v)
}

func queryInt32(r *http.Request, key string) (int32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.NewValidationError(key + " must be an integer")
	}
	return int32(v), nil
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError(key + " must be an RFC 3339 timestamp")
	}
	return t, nil
}

func pathID(r *http.Request) (int32, error) {
	v, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil || v <= 0 {
		return 0, domain.NewValidationError("booking id must be a positive integer")
	}
	return int32(v), nil
}

func (h *BookingHandler) actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := ActorFromRequest(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "authentication required")
	}
	return a, ok
}

func (h *BookingHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResolveAvailability handles GET /v1/availability.
func (h *BookingHandler) ResolveAvailability(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveAvailabilityRequest
	var err error
	if req.CategoryID, err = queryInt32(r, "category_id"); err != nil {
		writeError(w, err)
		return
	}
	if req.PickupAt, err = queryTime(r, "pickup_at"); err != nil {
		writeError(w, err)
		return
	}
	if req.ReturnAt, err = queryTime(r, "return_at"); err != nil {
		writeError(w, err)
		return
	}
	loc, err := queryInt32(r, "location_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if loc != 0 {
		req.LocationID = &loc
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, err)
		return
	}

	av, err := h.availabilitySvc.Resolve(r.Context(), req.CategoryID, req.PickupAt, req.ReturnAt, req.LocationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ResolveAvailabilityResponse{Availability: av})
}

// ComputePrice handles POST /v1/quotes.
func (h *BookingHandler) ComputePrice(w http.ResponseWriter, r *http.Request) {
	var req dto.ComputePriceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	price, err := h.pricingSvc.ComputePrice(r.Context(), req.ToDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ComputePriceResponse{Price: price})
}

// CreateBooking handles POST /v1/bookings.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req dto.CreateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingSvc.CreateBooking(r.Context(), actor, req.ToDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/bookings/"+strconv.Itoa(int(b.ID)))
	writeJSON(w, http.StatusCreated, dto.BookingResponse{Booking: b})
}

// GetBooking handles GET /v1/bookings/{id}. The id may also be a reference.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var b *domain.Booking
	var err error
	if raw := mux.Vars(r)["id"]; strings.HasPrefix(strings.ToUpper(raw), "FB-") {
		b, err = h.bookingSvc.GetBookingByReference(r.Context(), actor, strings.ToUpper(raw))
	} else {
		var id int32
		if id, err = pathID(r); err == nil {
			b, err = h.bookingSvc.GetBooking(r.Context(), actor, id)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BookingResponse{Booking: b})
}

// ListBookings handles GET /v1/bookings.
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req := dto.ListBookingsRequest{Status: r.URL.Query().Get("status")}
	var err error
	for key, dst := range map[string]*int32{
		"customer_id": &req.CustomerID,
		"category_id": &req.CategoryID,
		"page":        &req.Page,
		"page_size":   &req.PageSize,
	} {
		if *dst, err = queryInt32(r, key); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, err)
		return
	}

	bookings, count, err := h.bookingSvc.ListBookings(r.Context(), actor, req.ToDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, dto.ListBookingsResponse{Bookings: bookings, TotalCount: count})
}

// ModifyBooking handles PATCH /v1/bookings/{id}.
func (h *BookingHandler) ModifyBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req dto.ModifyBookingRequest
	req.ID = id
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingSvc.ModifyBooking(r.Context(), actor, id, req.ToDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BookingResponse{Booking: b})
}

// TransitionBooking handles POST /v1/bookings/{id}/transitions.
func (h *BookingHandler) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := dto.TransitionBookingRequest{ID: id}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingSvc.Transition(r.Context(), actor, id, domain.BookingStatus(req.Status), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BookingResponse{Booking: b})
}

// MarkPaid handles POST /v1/bookings/{id}/paid.
func (h *BookingHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := dto.MarkPaidRequest{ID: id}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingSvc.MarkPaid(r.Context(), actor, id, req.Paid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BookingResponse{Booking: b})
}

// LedgerSummary handles GET /v1/ledger/summary.
func (h *BookingHandler) LedgerSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req dto.GetLedgerSummaryRequest
	var err error
	if req.CompanyID, err = queryInt32(r, "company_id"); err != nil {
		writeError(w, err)
		return
	}
	if req.CategoryID, err = queryInt32(r, "category_id"); err != nil {
		writeError(w, err)
		return
	}
	if req.From, err = queryTime(r, "from"); err != nil {
		writeError(w, err)
		return
	}
	if req.To, err = queryTime(r, "to"); err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.ledgerSvc.GetSummary(r.Context(), actor, req.ToDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LedgerSummaryResponse{Summary: summary})
}
