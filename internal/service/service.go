package service

import (
	"context"
	"time"

	"fleetbook-backend/internal/domain"
)

type AvailabilityService interface {
	Resolve(ctx context.Context, categoryID int32, pickup, ret time.Time, locationID *int32) (*domain.Availability, error)
}

type DiscountService interface {
	// Validate reports whether a code applies. An unusable code is a normal
	// result with Valid false; only malformed input or a store failure
	// returns an error.
	Validate(ctx context.Context, q domain.DiscountQuery) (domain.DiscountResult, error)
}

type PricingService interface {
	ComputePrice(ctx context.Context, req domain.QuoteRequest) (*domain.PriceBreakdown, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor domain.Actor, req domain.BookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor domain.Actor, id int32) (*domain.Booking, error)
	GetBookingByReference(ctx context.Context, actor domain.Actor, reference string) (*domain.Booking, error)
	ListBookings(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, int32, error)
	Transition(ctx context.Context, actor domain.Actor, id int32, to domain.BookingStatus, reason string) (*domain.Booking, error)
	ModifyBooking(ctx context.Context, actor domain.Actor, id int32, change domain.BookingChange) (*domain.Booking, error)
	MarkPaid(ctx context.Context, actor domain.Actor, id int32, paid bool) (*domain.Booking, error)
	// ConfirmPayment records a captured payment and confirms a pending booking.
	ConfirmPayment(ctx context.Context, id int32) (*domain.Booking, error)
	// ExpireHolds cancels pending bookings whose hold lapsed and returns how many.
	ExpireHolds(ctx context.Context) (int, error)
}

type LedgerService interface {
	GetSummary(ctx context.Context, actor domain.Actor, filter domain.LedgerFilter) (*domain.LedgerSummary, error)
}

// Notifier tells customers about booking events. Delivery is best effort.
type Notifier interface {
	BookingConfirmed(ctx context.Context, c *domain.Customer, b *domain.Booking) error
	BookingCancelled(ctx context.Context, c *domain.Customer, b *domain.Booking) error
}

type Options struct {
	// HoldPeriod is how long a pending booking reserves capacity.
	HoldPeriod time.Duration
	// PastGrace is how far in the past a pickup may lie.
	PastGrace time.Duration
	// StoreTimeout bounds each store round trip. Zero disables it.
	StoreTimeout time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HoldPeriod <= 0 {
		o.HoldPeriod = 15 * time.Minute
	}
	if o.PastGrace < 0 {
		o.PastGrace = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.StoreTimeout)
}

// checkPeriod validates a requested rental period against now.
func (o Options) checkPeriod(pickup, ret, now time.Time) error {
	if pickup.IsZero() || ret.IsZero() {
		return domain.NewValidationError("pickup and return times are required")
	}
	if !pickup.Before(ret) {
		return domain.NewInvalidRangeError("return must be after pickup")
	}
	if pickup.Before(now.Add(-o.PastGrace)) {
		return domain.NewInvalidRangeError("pickup lies in the past")
	}
	return nil
}
