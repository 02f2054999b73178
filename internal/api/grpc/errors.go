package grpc

import (
	"errors"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CodeOf maps a domain error kind to its gRPC status code.
func CodeOf(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindValidation, domain.KindInvalidRange, domain.KindUnknownCategory, domain.KindDiscountInvalid:
		return codes.InvalidArgument
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindAvailabilityConflict:
		return codes.Aborted
	case domain.KindInvalidTransition, domain.KindTerminalState:
		return codes.FailedPrecondition
	case domain.KindForbidden:
		return codes.PermissionDenied
	case domain.KindUnavailable:
		return codes.Unavailable
	}
	return codes.Internal
}

// toStatus converts a service error into a gRPC status error. Errors that
// already carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		msg := derr.Message
		if derr.Kind == domain.KindUnavailable {
			msg = "service temporarily unavailable, retry later"
		}
		return status.Error(CodeOf(derr.Kind), msg)
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	logger.Error("Unhandled error in gRPC handler", "error", err)
	return status.Error(codes.Internal, "internal error")
}
