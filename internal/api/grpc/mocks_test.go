package grpc_test

import (
	"context"
	"time"

	"fleetbook-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) Resolve(ctx context.Context, categoryID int32, pickup, ret time.Time, locationID *int32) (*domain.Availability, error) {
	args := m.Called(ctx, categoryID, pickup, ret, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Availability), args.Error(1)
}

type MockPricingService struct {
	mock.Mock
}

func (m *MockPricingService) ComputePrice(ctx context.Context, req domain.QuoteRequest) (*domain.PriceBreakdown, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceBreakdown), args.Error(1)
}

type MockBookingService struct {
	mock.Mock
}

func bookingResult(args mock.Arguments) (*domain.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, actor domain.Actor, req domain.BookingRequest) (*domain.Booking, error) {
	return bookingResult(m.Called(ctx, actor, req))
}

func (m *MockBookingService) GetBooking(ctx context.Context, actor domain.Actor, id int32) (*domain.Booking, error) {
	return bookingResult(m.Called(ctx, actor, id))
}

func (m *MockBookingService) GetBookingByReference(ctx context.Context, actor domain.Actor, reference string) (*domain.Booking, error) {
	return bookingResult(m.Called(ctx, actor, reference))
}

func (m *MockBookingService) ListBookings(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int32), args.Error(2)
	}
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}

func (m *MockBookingService) Transition(ctx context.Context, actor domain.Actor, id int32, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	return bookingResult(m.Called(ctx, actor, id, to, reason))
}

func (m *MockBookingService) ModifyBooking(ctx context.Context, actor domain.Actor, id int32, change domain.BookingChange) (*domain.Booking, error) {
	return bookingResult(m.Called(ctx, actor, id, change))
}

func (m *MockBookingService) MarkPaid(ctx context.Context, actor domain.Actor, id int32, paid bool) (*domain.Booking, error) {
	return bookingResult(m.Called(ctx, actor, id, paid))
}

func (m *MockBookingService) ConfirmPayment(ctx context.Context, id int32) (*domain.Booking, error) {
	return bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) ExpireHolds(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetSummary(ctx context.Context, actor domain.Actor, filter domain.LedgerFilter) (*domain.LedgerSummary, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerSummary), args.Error(1)
}
