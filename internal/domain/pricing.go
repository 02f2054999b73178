package domain

import (
	"strings"
	"time"
)

// RateTier overrides the per-day price once a booking reaches MinDays.
type RateTier struct {
	MinDays          int32 `json:"min_days"`
	PricePerDayCents int64 `json:"price_per_day_cents"`
}

// RateRule prices a category over the inclusive validity window [ValidFrom, ValidUntil].
type RateRule struct {
	ID               int32      `json:"id"`
	CategoryID       int32      `json:"category_id"`
	ValidFrom        time.Time  `json:"valid_from"`
	ValidUntil       time.Time  `json:"valid_until"`
	PricePerDayCents int64      `json:"price_per_day_cents"`
	Tiers            []RateTier `json:"tiers,omitempty"`
	CreatedOn        time.Time  `json:"created_on"`
}

// Covers reports whether t falls inside the rule's validity window.
func (r *RateRule) Covers(t time.Time) bool {
	return !t.Before(r.ValidFrom) && !t.After(r.ValidUntil)
}

// Window is the length of the validity window, used for the specificity tie-break.
func (r *RateRule) Window() time.Duration {
	return r.ValidUntil.Sub(r.ValidFrom)
}

type ExtraPricingMode string

const (
	ExtraPerDay     ExtraPricingMode = "per_day"
	ExtraPerBooking ExtraPricingMode = "per_booking"
)

func ParseExtraPricingMode(s string) (ExtraPricingMode, error) {
	m := ExtraPricingMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", NewValidationError("unknown extra pricing mode " + s)
	}
	return m, nil
}

func (m ExtraPricingMode) Valid() bool {
	return m == ExtraPerDay || m == ExtraPerBooking
}

type Extra struct {
	ID         int32            `json:"id"`
	CompanyID  int32            `json:"company_id"`
	Name       string           `json:"name"`
	PriceCents int64            `json:"price_cents"`
	Mode       ExtraPricingMode `json:"mode"`
	Active     bool             `json:"active"`
	Visible    bool             `json:"visible"`
}

// ExtraSelection is an extra picked by the customer.
type ExtraSelection struct {
	ExtraID  int32 `json:"extra_id"`
	Quantity int32 `json:"quantity"`
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type DiscountCode struct {
	ID        int32        `json:"id"`
	CompanyID int32        `json:"company_id"`
	Code      string       `json:"code"`
	Type      DiscountType `json:"type"`
	// Value is a percentage (0-100) for percentage codes and cents for fixed codes.
	Value           int64      `json:"value"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	UsageCap        int32      `json:"usage_cap"` // 0 means unlimited
	UsageCount      int32      `json:"usage_count"`
	MinBookingCents int64      `json:"min_booking_cents"`
	CategoryIDs     []int32    `json:"category_ids,omitempty"`
	Active          bool       `json:"active"`
	CreatedOn       time.Time  `json:"created_on"`
}

// DiscountQuery is the input to discount validation.
type DiscountQuery struct {
	Code          string
	CompanyID     int32
	CategoryID    int32
	SubtotalCents int64
	At            time.Time
	// IgnoreUsageCap is set when re-pricing a booking that already consumed a use.
	IgnoreUsageCap bool
}

// DiscountResult is the outcome of validation. An invalid code is a normal
// result, not an error.
type DiscountResult struct {
	Valid       bool          `json:"valid"`
	AmountCents int64         `json:"amount_cents"`
	Reason      string        `json:"reason,omitempty"`
	Code        *DiscountCode `json:"-"`
}

// QuoteRequest is the input to pricing.
type QuoteRequest struct {
	CategoryID   int32
	PickupAt     time.Time
	ReturnAt     time.Time
	Extras       []ExtraSelection
	DiscountCode string
	// IgnoreUsageCap re-prices a booking whose code use was already consumed.
	IgnoreUsageCap bool
}

// PriceBreakdown is the result of pricing. Amounts are in the minor currency unit.
type PriceBreakdown struct {
	CategoryID          int32          `json:"category_id"`
	DurationDays        int32          `json:"duration_days"`
	RateRuleID          int32          `json:"rate_rule_id"`
	DailyRateCents      int64          `json:"daily_rate_cents"`
	BaseCents           int64          `json:"base_cents"`
	Extras              []BookingExtra `json:"extras"`
	ExtrasTotalCents    int64          `json:"extras_total_cents"`
	DiscountCode        string         `json:"discount_code,omitempty"`
	DiscountCodeID      *int32         `json:"discount_code_id,omitempty"`
	DiscountAmountCents int64          `json:"discount_amount_cents"`
	DiscountReason      string         `json:"discount_reason,omitempty"`
	TotalCents          int64          `json:"total_cents"`
}

// Availability is the resolver output for one category and period.
type Availability struct {
	CategoryID     int32     `json:"category_id"`
	LocationID     *int32    `json:"location_id,omitempty"`
	PickupAt       time.Time `json:"pickup_at"`
	ReturnAt       time.Time `json:"return_at"`
	Capacity       int32     `json:"capacity"`
	Overlapping    int32     `json:"overlapping"`
	AvailableCount int32     `json:"available_count"`
	IsAvailable    bool      `json:"is_available"`
}
