package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/repository"
	"fleetbook-backend/internal/repository/memory"
	"fleetbook-backend/internal/service"
	"fleetbook-backend/internal/utils"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	day  = 24 * time.Hour

	seq atomic.Int32
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BookingConfirmed(ctx context.Context, c *domain.Customer, b *domain.Booking) error {
	args := m.Called(ctx, c, b)
	return args.Error(0)
}

func (m *MockNotifier) BookingCancelled(ctx context.Context, c *domain.Customer, b *domain.Booking) error {
	args := m.Called(ctx, c, b)
	return args.Error(0)
}

type fixture struct {
	store    *memory.Store
	clock    *clock
	opts     service.Options
	notifier *MockNotifier

	availability service.AvailabilityService
	pricing      service.PricingService
	bookings     service.BookingService

	categoryID int32
	customerID int32
	extraID    int32
	codeID     int32

	customer domain.Actor
	operator domain.Actor
	admin    domain.Actor
}

// newFixture builds a company with one category of the given capacity priced
// at 50.00 per day, a 10.00 per day GPS extra and a 10% code.
func newFixture(t *testing.T, units int) *fixture {
	t.Helper()
	s := memory.NewStore()
	cat := s.AddCategory(domain.VehicleCategory{CompanyID: 1, Name: "Compact", FuelType: domain.FuelTypePetrol, Active: true})
	for i := 0; i < units; i++ {
		s.AddUnit(domain.InventoryUnit{CategoryID: cat.ID, LicensePlate: fmt.Sprintf("CMP-%03d", i+1)})
	}
	cust := s.AddCustomer(domain.Customer{CompanyID: 1, Name: "Ada", Email: "ada@example.com"})
	s.AddRateRule(domain.RateRule{
		CategoryID:       cat.ID,
		ValidFrom:        base.Add(-365 * day),
		ValidUntil:       base.Add(365 * day),
		PricePerDayCents: 5000,
	})
	gps := s.AddExtra(domain.Extra{CompanyID: 1, Name: "GPS", PriceCents: 1000, Mode: domain.ExtraPerDay, Active: true, Visible: true})
	code := s.AddDiscountCode(domain.DiscountCode{CompanyID: 1, Code: "SPRING10", Type: domain.DiscountPercentage, Value: 10, UsageCap: 5, Active: true})

	clk := &clock{now: base}
	f := &fixture{
		store:      s,
		clock:      clk,
		opts:       service.Options{HoldPeriod: 15 * time.Minute, PastGrace: time.Hour, Now: clk.Now},
		categoryID: cat.ID,
		customerID: cust.ID,
		extraID:    gps.ID,
		codeID:     code.ID,
		customer:   domain.NewActor(cust.ID, domain.RoleCustomer, 1),
		operator:   domain.NewActor(500, domain.RoleOperator, 1),
		admin:      domain.NewActor(900, domain.RoleAdmin, 1),
	}
	f.notifier = new(MockNotifier)
	f.notifier.On("BookingConfirmed", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.notifier.On("BookingCancelled", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	f.availability = service.NewAvailabilityService(s, nil, f.opts)
	f.pricing = service.NewPricingService(s, service.NewDiscountService(s.Discounts(), f.opts), utils.MostSpecificRate, f.opts)
	f.bookings = f.newBookingService(f.notifier)
	return f
}

func (f *fixture) newBookingService(n service.Notifier) service.BookingService {
	return service.NewBookingService(f.store, f.pricing, nil, nil, n, f.opts)
}

func (f *fixture) request(pickup time.Time, days int) domain.BookingRequest {
	return domain.BookingRequest{
		CustomerID:       f.customerID,
		CategoryID:       f.categoryID,
		PickupLocationID: 10,
		PickupAt:         pickup,
		ReturnAt:         pickup.Add(time.Duration(days) * day),
	}
}

// insert stores a booking in the given status without going through the
// lifecycle manager.
func (f *fixture) insert(t *testing.T, status domain.BookingStatus, pickup time.Time, days int) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		Reference:        fmt.Sprintf("T-%s-%d", status, seq.Add(1)),
		CompanyID:        1,
		CustomerID:       f.customerID,
		CategoryID:       f.categoryID,
		PickupLocationID: 10,
		ReturnLocationID: 10,
		PickupAt:         pickup,
		ReturnAt:         pickup.Add(time.Duration(days) * day),
		DurationDays:     int32(days),
		DailyRateCents:   5000,
		BasePriceCents:   5000 * int64(days),
		TotalCents:       5000 * int64(days),
		Status:           status,
	}
	if status == domain.BookingStatusPending {
		hold := f.clock.Now().Add(f.opts.HoldPeriod)
		b.HoldExpiresAt = &hold
	}
	err := f.store.WithinCategory(context.Background(), f.categoryID, func(ctx context.Context, tx repository.BookingTx) error {
		return tx.CreateBooking(ctx, b)
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) usage(t *testing.T) int32 {
	t.Helper()
	d, ok := f.store.DiscountCode(f.codeID)
	require.True(t, ok)
	return d.UsageCount
}
