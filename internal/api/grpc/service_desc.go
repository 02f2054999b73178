package grpc

import (
	"context"

	"fleetbook-backend/internal/api/dto"

	gogrpc "google.golang.org/grpc"
)

const (
	BookingServiceName = "fleetbook.booking.v1.BookingService"
	LedgerServiceName  = "fleetbook.booking.v1.LedgerService"

	BookingService_ResolveAvailability_FullMethodName = "/" + BookingServiceName + "/ResolveAvailability"
	BookingService_ComputePrice_FullMethodName        = "/" + BookingServiceName + "/ComputePrice"
	BookingService_CreateBooking_FullMethodName       = "/" + BookingServiceName + "/CreateBooking"
	BookingService_GetBooking_FullMethodName          = "/" + BookingServiceName + "/GetBooking"
	BookingService_ListBookings_FullMethodName        = "/" + BookingServiceName + "/ListBookings"
	BookingService_TransitionBooking_FullMethodName   = "/" + BookingServiceName + "/TransitionBooking"
	BookingService_ModifyBooking_FullMethodName       = "/" + BookingServiceName + "/ModifyBooking"
	BookingService_MarkPaid_FullMethodName            = "/" + BookingServiceName + "/MarkPaid"
	LedgerService_GetLedgerSummary_FullMethodName     = "/" + LedgerServiceName + "/GetLedgerSummary"
)

// BookingServiceServer is the server API for the booking service.
type BookingServiceServer interface {
	ResolveAvailability(context.Context, *dto.ResolveAvailabilityRequest) (*dto.ResolveAvailabilityResponse, error)
	ComputePrice(context.Context, *dto.ComputePriceRequest) (*dto.ComputePriceResponse, error)
	CreateBooking(context.Context, *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	GetBooking(context.Context, *dto.GetBookingRequest) (*dto.BookingResponse, error)
	ListBookings(context.Context, *dto.ListBookingsRequest) (*dto.ListBookingsResponse, error)
	TransitionBooking(context.Context, *dto.TransitionBookingRequest) (*dto.BookingResponse, error)
	ModifyBooking(context.Context, *dto.ModifyBookingRequest) (*dto.BookingResponse, error)
	MarkPaid(context.Context, *dto.MarkPaidRequest) (*dto.BookingResponse, error)
}

// LedgerServiceServer is the server API for the ledger service.
type LedgerServiceServer interface {
	GetLedgerSummary(context.Context, *dto.GetLedgerSummaryRequest) (*dto.LedgerSummaryResponse, error)
}

// unary adapts a typed method into a grpc.MethodHandler the same way
// generated code does, so interceptors see the decoded request.
func unary[S any, Req any, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &gogrpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var BookingService_ServiceDesc = gogrpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{
			MethodName: "ResolveAvailability",
			Handler:    unary(BookingService_ResolveAvailability_FullMethodName, BookingServiceServer.ResolveAvailability),
		},
		{
			MethodName: "ComputePrice",
			Handler:    unary(BookingService_ComputePrice_FullMethodName, BookingServiceServer.ComputePrice),
		},
		{
			MethodName: "CreateBooking",
			Handler:    unary(BookingService_CreateBooking_FullMethodName, BookingServiceServer.CreateBooking),
		},
		{
			MethodName: "GetBooking",
			Handler:    unary(BookingService_GetBooking_FullMethodName, BookingServiceServer.GetBooking),
		},
		{
			MethodName: "ListBookings",
			Handler:    unary(BookingService_ListBookings_FullMethodName, BookingServiceServer.ListBookings),
		},
		{
			MethodName: "TransitionBooking",
			Handler:    unary(BookingService_TransitionBooking_FullMethodName, BookingServiceServer.TransitionBooking),
		},
		{
			MethodName: "ModifyBooking",
			Handler:    unary(BookingService_ModifyBooking_FullMethodName, BookingServiceServer.ModifyBooking),
		},
		{
			MethodName: "MarkPaid",
			Handler:    unary(BookingService_MarkPaid_FullMethodName, BookingServiceServer.MarkPaid),
		},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "fleetbook/booking/v1/booking.json",
}

var LedgerService_ServiceDesc = gogrpc.ServiceDesc{
	ServiceName: LedgerServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{
			MethodName: "GetLedgerSummary",
			Handler:    unary(LedgerService_GetLedgerSummary_FullMethodName, LedgerServiceServer.GetLedgerSummary),
		},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "fleetbook/booking/v1/ledger.json",
}

func RegisterBookingServiceServer(s gogrpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingService_ServiceDesc, srv)
}

func RegisterLedgerServiceServer(s gogrpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

// Client is a thin JSON client over a connection, used by tools and tests.
type Client struct {
	cc gogrpc.ClientConnInterface
}

func NewClient(cc gogrpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Invoke calls method with the JSON codec selected.
func (c *Client) Invoke(ctx context.Context, method string, in, out any, opts ...gogrpc.CallOption) error {
	opts = append([]gogrpc.CallOption{gogrpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *Client) CreateBooking(ctx context.Context, in *dto.CreateBookingRequest, opts ...gogrpc.CallOption) (*dto.BookingResponse, error) {
	out := new(dto.BookingResponse)
	if err := c.Invoke(ctx, BookingService_CreateBooking_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TransitionBooking(ctx context.Context, in *dto.TransitionBookingRequest, opts ...gogrpc.CallOption) (*dto.BookingResponse, error) {
	out := new(dto.BookingResponse)
	if err := c.Invoke(ctx, BookingService_TransitionBooking_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ComputePrice(ctx context.Context, in *dto.ComputePriceRequest, opts ...gogrpc.CallOption) (*dto.ComputePriceResponse, error) {
	out := new(dto.ComputePriceResponse)
	if err := c.Invoke(ctx, BookingService_ComputePrice_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
