package grpc

import (
	"context"

	"fleetbook-backend/internal/api/dto"
	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/service"
)

type BookingHandler struct {
	availabilitySvc service.AvailabilityService
	pricingSvc      service.PricingService
	bookingSvc      service.BookingService
}

func NewBookingHandler(availabilitySvc service.AvailabilityService, pricingSvc service.PricingService, bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{
		availabilitySvc: availabilitySvc,
		pricingSvc:      pricingSvc,
		bookingSvc:      bookingSvc,
	}
}

func (h *BookingHandler) ResolveAvailability(ctx context.Context, req *dto.ResolveAvailabilityRequest) (*dto.ResolveAvailabilityResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	av, err := h.availabilitySvc.Resolve(ctx, req.CategoryID, req.PickupAt, req.ReturnAt, req.LocationID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.ResolveAvailabilityResponse{Availability: av}, nil
}

func (h *BookingHandler) ComputePrice(ctx context.Context, req *dto.ComputePriceRequest) (*dto.ComputePriceResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	price, err := h.pricingSvc.ComputePrice(ctx, req.ToDomain())
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.ComputePriceResponse{Price: price}, nil
}

func (h *BookingHandler) CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	b, err := h.bookingSvc.CreateBooking(ctx, actor, req.ToDomain())
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.BookingResponse{Booking: b}, nil
}

func (h *BookingHandler) GetBooking(ctx context.Context, req *dto.GetBookingRequest) (*dto.BookingResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	var b *domain.Booking
	if req.ID != 0 {
		b, err = h.bookingSvc.GetBooking(ctx, actor, req.ID)
	} else {
		b, err = h.bookingSvc.GetBookingByReference(ctx, actor, req.Reference)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.BookingResponse{Booking: b}, nil
}

func (h *BookingHandler) ListBookings(ctx context.Context, req *dto.ListBookingsRequest) (*dto.ListBookingsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	bookings, count, err := h.bookingSvc.ListBookings(ctx, actor, req.ToDomain())
	if err != nil {
		return nil, toStatus(err)
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return &dto.ListBookingsResponse{Bookings: bookings, TotalCount: count}, nil
}

func (h *BookingHandler) TransitionBooking(ctx context.Context, req *dto.TransitionBookingRequest) (*dto.BookingResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	b, err := h.bookingSvc.Transition(ctx, actor, req.ID, domain.BookingStatus(req.Status), req.Reason)
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.BookingResponse{Booking: b}, nil
}

func (h *BookingHandler) ModifyBooking(ctx context.Context, req *dto.ModifyBookingRequest) (*dto.BookingResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	b, err := h.bookingSvc.ModifyBooking(ctx, actor, req.ID, req.ToDomain())
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.BookingResponse{Booking: b}, nil
}

func (h *BookingHandler) MarkPaid(ctx context.Context, req *dto.MarkPaidRequest) (*dto.BookingResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, toStatus(err)
	}
	b, err := h.bookingSvc.MarkPaid(ctx, actor, req.ID, req.Paid)
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.BookingResponse{Booking: b}, nil
}
