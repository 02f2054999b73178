// Package dto holds the request and response bodies shared by the gRPC and
// REST transports.
package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetbook-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and reports the first failures as a
// domain validation error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return domain.NewValidationError(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

type ExtraSelection struct {
	ExtraID  int32 `json:"extra_id" validate:"gt=0"`
	Quantity int32 `json:"quantity" validate:"gt=0"`
}

func extrasToDomain(in []ExtraSelection) []domain.ExtraSelection {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.ExtraSelection, len(in))
	for i, e := range in {
		out[i] = domain.ExtraSelection{ExtraID: e.ExtraID, Quantity: e.Quantity}
	}
	return out
}

type ResolveAvailabilityRequest struct {
	CategoryID int32     `json:"category_id" validate:"gt=0"`
	LocationID *int32    `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	PickupAt   time.Time `json:"pickup_at" validate:"required"`
	ReturnAt   time.Time `json:"return_at" validate:"required"`
}

type ResolveAvailabilityResponse struct {
	Availability *domain.Availability `json:"availability"`
}

type ComputePriceRequest struct {
	CategoryID   int32            `json:"category_id" validate:"gt=0"`
	PickupAt     time.Time        `json:"pickup_at" validate:"required"`
	ReturnAt     time.Time        `json:"return_at" validate:"required"`
	Extras       []ExtraSelection `json:"extras,omitempty" validate:"max=20,dive"`
	DiscountCode string           `json:"discount_code,omitempty" validate:"max=64"`
}

func (r *ComputePriceRequest) ToDomain() domain.QuoteRequest {
	return domain.QuoteRequest{
		CategoryID:   r.CategoryID,
		PickupAt:     r.PickupAt,
		ReturnAt:     r.ReturnAt,
		Extras:       extrasToDomain(r.Extras),
		DiscountCode: r.DiscountCode,
	}
}

type ComputePriceResponse struct {
	Price *domain.PriceBreakdown `json:"price"`
}

type CreateBookingRequest struct {
	// CustomerID may be omitted by customers booking for themselves.
	CustomerID       int32            `json:"customer_id,omitempty"`
	CategoryID       int32            `json:"category_id" validate:"gt=0"`
	PickupLocationID int32            `json:"pickup_location_id" validate:"gt=0"`
	ReturnLocationID int32            `json:"return_location_id,omitempty"`
	PickupAt         time.Time        `json:"pickup_at" validate:"required"`
	ReturnAt         time.Time        `json:"return_at" validate:"required"`
	Extras           []ExtraSelection `json:"extras,omitempty" validate:"max=20,dive"`
	DiscountCode     string           `json:"discount_code,omitempty" validate:"max=64"`
}

func (r *CreateBookingRequest) ToDomain() domain.BookingRequest {
	return domain.BookingRequest{
		CustomerID:       r.CustomerID,
		CategoryID:       r.CategoryID,
		PickupLocationID: r.PickupLocationID,
		ReturnLocationID: r.ReturnLocationID,
		PickupAt:         r.PickupAt,
		ReturnAt:         r.ReturnAt,
		Extras:           extrasToDomain(r.Extras),
		DiscountCode:     r.DiscountCode,
	}
}

type BookingResponse struct {
	Booking *domain.Booking `json:"booking"`
}

type GetBookingRequest struct {
	ID        int32  `json:"id,omitempty" validate:"required_without=Reference"`
	Reference string `json:"reference,omitempty" validate:"max=32"`
}

type ListBookingsRequest struct {
	CustomerID int32  `json:"customer_id,omitempty"`
	CategoryID int32  `json:"category_id,omitempty"`
	Status     string `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed in_progress completed cancelled"`
	Page       int32  `json:"page,omitempty"`
	PageSize   int32  `json:"page_size,omitempty" validate:"max=100"`
}

func (r *ListBookingsRequest) ToDomain() domain.BookingFilter {
	return domain.BookingFilter{
		CustomerID: r.CustomerID,
		CategoryID: r.CategoryID,
		Status:     domain.BookingStatus(r.Status),
		Page:       r.Page,
		PageSize:   r.PageSize,
	}
}

type ListBookingsResponse struct {
	Bookings   []domain.Booking `json:"bookings"`
	TotalCount int32            `json:"total_count"`
}

type TransitionBookingRequest struct {
	ID     int32  `json:"id" validate:"gt=0"`
	Status string `json:"status" validate:"required,oneof=pending confirmed in_progress completed cancelled"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type ModifyBookingRequest struct {
	ID               int32      `json:"id" validate:"gt=0"`
	PickupAt         *time.Time `json:"pickup_at,omitempty"`
	ReturnAt         *time.Time `json:"return_at,omitempty"`
	ReturnLocationID *int32     `json:"return_location_id,omitempty" validate:"omitempty,gt=0"`
	// Extras replaces the current selection when present, even if empty.
	Extras *[]ExtraSelection `json:"extras,omitempty" validate:"omitempty,max=20,dive"`
}

func (r *ModifyBookingRequest) ToDomain() domain.BookingChange {
	c := domain.BookingChange{
		PickupAt:         r.PickupAt,
		ReturnAt:         r.ReturnAt,
		ReturnLocationID: r.ReturnLocationID,
	}
	if r.Extras != nil {
		c.ReplaceExtras = true
		c.Extras = extrasToDomain(*r.Extras)
	}
	return c
}

type MarkPaidRequest struct {
	ID   int32 `json:"id" validate:"gt=0"`
	Paid bool  `json:"paid"`
}

type GetLedgerSummaryRequest struct {
	CompanyID  int32     `json:"company_id,omitempty"`
	CategoryID int32     `json:"category_id,omitempty"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

func (r *GetLedgerSummaryRequest) ToDomain() domain.LedgerFilter {
	return domain.LedgerFilter{
		CompanyID:  r.CompanyID,
		CategoryID: r.CategoryID,
		From:       r.From,
		To:         r.To,
	}
}

type LedgerSummaryResponse struct {
	Summary *domain.LedgerSummary `json:"summary"`
}
