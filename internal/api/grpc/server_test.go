package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"fleetbook-backend/internal/api/dto"
	api "fleetbook-backend/internal/api/grpc"
	"fleetbook-backend/internal/api/grpc/interceptor"
	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	client       *api.Client
	tokens       security.TokenManager
	availability *MockAvailabilityService
	pricing      *MockPricingService
	bookings     *MockBookingService
	ledger       *MockLedgerService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tokens:       security.NewTokenManager("test-secret", time.Hour),
		availability: new(MockAvailabilityService),
		pricing:      new(MockPricingService),
		bookings:     new(MockBookingService),
		ledger:       new(MockLedgerService),
	}

	lis := bufconn.Listen(1 << 20)
	s := gogrpc.NewServer(gogrpc.UnaryInterceptor(interceptor.NewAuthInterceptor(h.tokens).Unary()))
	api.RegisterBookingServiceServer(s, api.NewBookingHandler(h.availability, h.pricing, h.bookings))
	api.RegisterLedgerServiceServer(s, api.NewLedgerHandler(h.ledger))
	go func() { _ = s.Serve(lis) }()

	conn, err := gogrpc.NewClient("passthrough:///bufnet",
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		s.Stop()
	})
	h.client = api.NewClient(conn)
	return h
}

func (h *harness) authed(t *testing.T, userID int32, role domain.Role, companyID, customerID int32, extra ...string) context.Context {
	t.Helper()
	token, err := h.tokens.GenerateAccessToken(userID, role, companyID, customerID)
	require.NoError(t, err)
	kv := append([]string{"authorization", "Bearer " + token}, extra...)
	return metadata.AppendToOutgoingContext(context.Background(), kv...)
}

var (
	pickup = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	ret    = pickup.Add(96 * time.Hour)
)

func TestBookingService_PublicQuote(t *testing.T) {
	h := newHarness(t)

	h.pricing.On("ComputePrice", mock.Anything, mock.MatchedBy(func(q domain.QuoteRequest) bool {
		return q.CategoryID == 1 && q.DiscountCode == "SPRING10" && len(q.Extras) == 1
	})).Return(&domain.PriceBreakdown{CategoryID: 1, DurationDays: 4, TotalCents: 21600}, nil)

	res, err := h.client.ComputePrice(context.Background(), &dto.ComputePriceRequest{
		CategoryID:   1,
		PickupAt:     pickup,
		ReturnAt:     ret,
		Extras:       []dto.ExtraSelection{{ExtraID: 3, Quantity: 1}},
		DiscountCode: "SPRING10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21600), res.Price.TotalCents)
	assert.Equal(t, int32(4), res.Price.DurationDays)
}

func TestBookingService_Availability(t *testing.T) {
	h := newHarness(t)
	loc := int32(4)

	h.availability.On("Resolve", mock.Anything, int32(1), pickup, ret, &loc).
		Return(&domain.Availability{CategoryID: 1, Capacity: 2, Overlapping: 1, AvailableCount: 1, IsAvailable: true}, nil)

	var out dto.ResolveAvailabilityResponse
	err := h.client.Invoke(context.Background(), api.BookingService_ResolveAvailability_FullMethodName,
		&dto.ResolveAvailabilityRequest{CategoryID: 1, LocationID: &loc, PickupAt: pickup, ReturnAt: ret}, &out)
	require.NoError(t, err)
	assert.True(t, out.Availability.IsAvailable)
	assert.Equal(t, int32(1), out.Availability.AvailableCount)
}

func TestBookingService_CreateBooking(t *testing.T) {
	req := &dto.CreateBookingRequest{
		CategoryID:       1,
		PickupLocationID: 4,
		PickupAt:         pickup,
		ReturnAt:         ret,
	}

	t.Run("Requires token", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.client.CreateBooking(context.Background(), req)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		h.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Rejects bad token", func(t *testing.T) {
		h := newHarness(t)
		ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
		_, err := h.client.CreateBooking(ctx, req)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("Actor comes from token", func(t *testing.T) {
		h := newHarness(t)
		// A spoofed header must be replaced by the token identity.
		ctx := h.authed(t, 7, domain.RoleCustomer, 1, 7, "user-id", "99", "user-role", "admin")

		h.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool {
			return a.ID == 7 && a.Role == domain.RoleCustomer && a.CustomerID == 7 && !a.CanOverride
		}), mock.MatchedBy(func(r domain.BookingRequest) bool {
			return r.CategoryID == 1 && r.PickupLocationID == 4 && r.PickupAt.Equal(pickup)
		})).Return(&domain.Booking{ID: 11, Reference: "FB-0123456789", Status: domain.BookingStatusPending, TotalCents: 21600}, nil)

		res, err := h.client.CreateBooking(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "FB-0123456789", res.Booking.Reference)
		assert.Equal(t, domain.BookingStatusPending, res.Booking.Status)
		h.bookings.AssertExpectations(t)
	})

	t.Run("Invalid body", func(t *testing.T) {
		h := newHarness(t)
		ctx := h.authed(t, 7, domain.RoleCustomer, 1, 7)
		_, err := h.client.CreateBooking(ctx, &dto.CreateBookingRequest{CategoryID: 1})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		h.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Conflict maps to Aborted", func(t *testing.T) {
		h := newHarness(t)
		ctx := h.authed(t, 7, domain.RoleCustomer, 1, 7)
		h.bookings.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewAvailabilityConflictError(1))

		_, err := h.client.CreateBooking(ctx, req)
		assert.Equal(t, codes.Aborted, status.Code(err))
	})

	t.Run("Store outage maps to Unavailable", func(t *testing.T) {
		h := newHarness(t)
		ctx := h.authed(t, 7, domain.RoleCustomer, 1, 7)
		h.bookings.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewUnavailableError("count overlapping timed out", context.DeadlineExceeded))

		_, err := h.client.CreateBooking(ctx, req)
		st, _ := status.FromError(err)
		assert.Equal(t, codes.Unavailable, st.Code())
		assert.NotContains(t, st.Message(), "deadline")
	})
}

func TestBookingService_TransitionBooking(t *testing.T) {
	h := newHarness(t)
	ctx := h.authed(t, 500, domain.RoleOperator, 1, 0)

	h.bookings.On("Transition", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool {
		return a.Role == domain.RoleOperator && a.CompanyID == 1
	}), int32(11), domain.BookingStatusCompleted, "").
		Return(nil, domain.NewInvalidTransitionError(domain.BookingStatusPending, domain.BookingStatusCompleted))

	_, err := h.client.TransitionBooking(ctx, &dto.TransitionBookingRequest{ID: 11, Status: "completed"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = h.client.TransitionBooking(ctx, &dto.TransitionBookingRequest{ID: 11, Status: "teleported"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBookingService_GetBooking(t *testing.T) {
	h := newHarness(t)
	ctx := h.authed(t, 7, domain.RoleCustomer, 1, 7)

	h.bookings.On("GetBookingByReference", mock.Anything, mock.Anything, "FB-AAAAAAAAAA").
		Return(nil, domain.NewForbiddenError("booking belongs to another customer"))
	h.bookings.On("GetBooking", mock.Anything, mock.Anything, int32(11)).
		Return(&domain.Booking{ID: 11}, nil)

	var out dto.BookingResponse
	err := h.client.Invoke(ctx, api.BookingService_GetBooking_FullMethodName, &dto.GetBookingRequest{Reference: "FB-AAAAAAAAAA"}, &out)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = h.client.Invoke(ctx, api.BookingService_GetBooking_FullMethodName, &dto.GetBookingRequest{ID: 11}, &out)
	require.NoError(t, err)
	assert.Equal(t, int32(11), out.Booking.ID)
}

func TestLedgerService_GetLedgerSummary(t *testing.T) {
	h := newHarness(t)
	ctx := h.authed(t, 900, domain.RoleAdmin, 1, 0)
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	h.ledger.On("GetSummary", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool {
		return a.Role == domain.RoleAdmin && a.CanOverride
	}), domain.LedgerFilter{CategoryID: 1, From: from, To: from.AddDate(0, 1, 0)}).
		Return(&domain.LedgerSummary{GrossRevenueCents: 43200}, nil)

	var out dto.LedgerSummaryResponse
	err := h.client.Invoke(ctx, api.LedgerService_GetLedgerSummary_FullMethodName,
		&dto.GetLedgerSummaryRequest{CategoryID: 1, From: from, To: from.AddDate(0, 1, 0)}, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(43200), out.Summary.GrossRevenueCents)
}

func TestCodeOf(t *testing.T) {
	cases := map[domain.ErrorKind]codes.Code{
		domain.KindValidation:           codes.InvalidArgument,
		domain.KindInvalidRange:         codes.InvalidArgument,
		domain.KindUnknownCategory:      codes.InvalidArgument,
		domain.KindNotFound:             codes.NotFound,
		domain.KindAvailabilityConflict: codes.Aborted,
		domain.KindInvalidTransition:    codes.FailedPrecondition,
		domain.KindTerminalState:        codes.FailedPrecondition,
		domain.KindForbidden:            codes.PermissionDenied,
		domain.KindUnavailable:          codes.Unavailable,
		domain.ErrorKind("other"):       codes.Internal,
	}
	for kind, want := range cases {
		assert.Equal(t, want, api.CodeOf(kind), string(kind))
	}
}
