package repository

import (
	"context"
	"time"

	"fleetbook-backend/internal/domain"
)

type CategoryRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.VehicleCategory, error)
	List(ctx context.Context, companyID int32) ([]domain.VehicleCategory, error)
}

type InventoryRepository interface {
	// CountUsable counts units of a category that are not retired. A non-nil
	// locationID restricts the count to units based at that location.
	CountUsable(ctx context.Context, categoryID int32, locationID *int32) (int32, error)
	ListByCategory(ctx context.Context, categoryID int32) ([]domain.InventoryUnit, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Customer, error)
}

type RateRepository interface {
	// ListForCategory returns every rule of the category whose validity window
	// intersects [from, until].
	ListForCategory(ctx context.Context, categoryID int32, from, until time.Time) ([]domain.RateRule, error)
}

type ExtraRepository interface {
	GetByIDs(ctx context.Context, ids []int32) ([]domain.Extra, error)
	ListVisible(ctx context.Context, companyID int32) ([]domain.Extra, error)
}

type DiscountRepository interface {
	GetByCode(ctx context.Context, companyID int32, code string) (*domain.DiscountCode, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, int32, error)
	// CountOverlapping counts bookings of the category that hold inventory at
	// now and whose [pickup, return) interval intersects the given one.
	// excludeID skips a booking being modified or re-confirmed.
	CountOverlapping(ctx context.Context, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) (int32, error)
	// ExpireHolds cancels pending bookings whose hold lapsed before now and
	// returns them. Already cancelled or confirmed bookings are untouched.
	ExpireHolds(ctx context.Context, now time.Time) ([]domain.Booking, error)
	// SetPaid flips the payment flag without touching status.
	SetPaid(ctx context.Context, id int32, paid bool) error
}

type LedgerRepository interface {
	GetSummary(ctx context.Context, filter domain.LedgerFilter) (*domain.LedgerSummary, error)
}

// BookingTx is the set of operations available inside a reservation
// transaction. Everything done through it commits or rolls back together.
type BookingTx interface {
	CountUsable(ctx context.Context, categoryID int32, locationID *int32) (int32, error)
	CountOverlapping(ctx context.Context, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) (int32, error)
	GetBookingForUpdate(ctx context.Context, id int32) (*domain.Booking, error)
	CreateBooking(ctx context.Context, b *domain.Booking) error
	UpdateBooking(ctx context.Context, b *domain.Booking) error
	// RedeemDiscount increments usage of a code if it is still under its cap
	// and reports whether a use was consumed.
	RedeemDiscount(ctx context.Context, discountID int32) (bool, error)
}

// Transactor runs fn as one atomic unit, serialized against every other
// reservation for the same category.
type Transactor interface {
	WithinCategory(ctx context.Context, categoryID int32, fn func(ctx context.Context, tx BookingTx) error) error
}

// Store groups every repository the booking core needs.
type Store interface {
	Transactor
	Categories() CategoryRepository
	Inventory() InventoryRepository
	Customers() CustomerRepository
	Rates() RateRepository
	Extras() ExtraRepository
	Discounts() DiscountRepository
	Bookings() BookingRepository
	Ledger() LedgerRepository
}
