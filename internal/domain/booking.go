package domain

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// AllBookingStatuses lists every status in lifecycle order.
var AllBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

// ParseBookingStatus converts a stored or user supplied value into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", NewValidationError(fmt.Sprintf("unknown booking status %q", s))
	}
	return st, nil
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// HoldsInventory reports whether a booking in this status occupies capacity.
func (s BookingStatus) HoldsInventory() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed || s == BookingStatusInProgress
}

// BookingExtra is one selected extra with its quantity. Price fields are a
// snapshot taken when the booking was priced.
type BookingExtra struct {
	ExtraID    int32            `json:"extra_id"`
	Name       string           `json:"name,omitempty"`
	Quantity   int32            `json:"quantity"`
	PriceCents int64            `json:"price_cents"`
	Mode       ExtraPricingMode `json:"mode"`
	TotalCents int64            `json:"total_cents"`
}

type Booking struct {
	ID               int32  `json:"id"`
	Reference        string `json:"reference"`
	CompanyID        int32  `json:"company_id"`
	CustomerID       int32  `json:"customer_id"`
	CategoryID       int32  `json:"category_id"`
	PickupLocationID int32  `json:"pickup_location_id"`
	ReturnLocationID int32  `json:"return_location_id"`

	PickupAt time.Time `json:"pickup_at"`
	ReturnAt time.Time `json:"return_at"`

	// Price snapshot captured when the booking was created or modified.
	DurationDays        int32          `json:"duration_days"`
	DailyRateCents      int64          `json:"daily_rate_cents"`
	BasePriceCents      int64          `json:"base_price_cents"`
	ExtrasTotalCents    int64          `json:"extras_total_cents"`
	DiscountAmountCents int64          `json:"discount_amount_cents"`
	TotalCents          int64          `json:"total_cents"`
	Extras              []BookingExtra `json:"extras"`
	DiscountCode        *string        `json:"discount_code,omitempty"`
	DiscountCodeID      *int32         `json:"discount_code_id,omitempty"`
	DiscountRedeemed    bool           `json:"discount_redeemed"`

	Status        BookingStatus `json:"status"`
	Paid          bool          `json:"paid"`
	HoldExpiresAt *time.Time    `json:"hold_expires_at,omitempty"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
	CancelledBy   *int32        `json:"cancelled_by,omitempty"`
	ConfirmedOn   *time.Time    `json:"confirmed_on,omitempty"`
	CreatedOn     time.Time     `json:"created_on"`
	UpdatedOn     time.Time     `json:"updated_on"`
}

// Overlaps uses half-open intervals, so a return at the same instant as a
// pickup does not collide.
func (b *Booking) Overlaps(pickup, ret time.Time) bool {
	return Overlaps(b.PickupAt, b.ReturnAt, pickup, ret)
}

// HoldsInventoryAt reports whether the booking still occupies capacity at now.
// A pending booking whose hold has lapsed no longer counts even before the
// expiry sweep has cancelled it.
func (b *Booking) HoldsInventoryAt(now time.Time) bool {
	if !b.Status.HoldsInventory() {
		return false
	}
	if b.Status == BookingStatusPending && b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt) {
		return false
	}
	return true
}

// HoldExpired reports whether a pending hold has lapsed at now.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusPending && b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// BookingRequest is the input to booking creation.
type BookingRequest struct {
	CustomerID       int32
	CategoryID       int32
	PickupLocationID int32
	ReturnLocationID int32
	PickupAt         time.Time
	ReturnAt         time.Time
	Extras           []ExtraSelection
	DiscountCode     string
}

// BookingChange is the input to booking modification. Nil fields keep the
// current value.
type BookingChange struct {
	PickupAt         *time.Time
	ReturnAt         *time.Time
	ReturnLocationID *int32
	Extras           []ExtraSelection
	ReplaceExtras    bool
}

type BookingFilter struct {
	CompanyID  int32
	CustomerID int32
	CategoryID int32
	Status     BookingStatus
	Page       int32
	PageSize   int32
}
