package domain

import "time"

// LedgerFilter scopes a ledger summary. Bookings are selected by pickup date
// inside [From, To).
type LedgerFilter struct {
	CompanyID  int32
	CategoryID int32
	From       time.Time
	To         time.Time
}

type CategoryRevenue struct {
	CategoryID   int32 `json:"category_id"`
	Bookings     int32 `json:"bookings"`
	RevenueCents int64 `json:"revenue_cents"`
}

// LedgerSummary is a read-only aggregation over committed bookings.
// Revenue counts confirmed, in_progress and completed bookings; cancelled
// bookings are reported but never contribute revenue.
type LedgerSummary struct {
	From              time.Time               `json:"from"`
	To                time.Time               `json:"to"`
	StatusCount       map[BookingStatus]int32 `json:"status_count"`
	GrossRevenueCents int64                   `json:"gross_revenue_cents"`
	PaidCents         int64                   `json:"paid_cents"`
	OutstandingCents  int64                   `json:"outstanding_cents"`
	DiscountsCents    int64                   `json:"discounts_cents"`
	PaidBookings      int32                   `json:"paid_bookings"`
	UnpaidBookings    int32                   `json:"unpaid_bookings"`
	ByCategory        []CategoryRevenue       `json:"by_category"`
}

// CountsAsRevenue reports whether a booking in status s is committed revenue.
func (s BookingStatus) CountsAsRevenue() bool {
	return s == BookingStatusConfirmed || s == BookingStatusInProgress || s == BookingStatusCompleted
}
