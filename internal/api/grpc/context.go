package grpc

import (
	"context"
	"strconv"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/security"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Metadata keys set by the auth interceptor from the validated token.
const (
	MetadataUserID     = "user-id"
	MetadataRole       = "user-role"
	MetadataCompanyID  = "company-id"
	MetadataCustomerID = "customer-id"
)

// GetActorFromContext rebuilds the caller from the metadata the auth
// interceptor injected.
func GetActorFromContext(ctx context.Context) (domain.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userID, err := int32FromMetadata(md, MetadataUserID, true)
	if err != nil {
		return domain.Actor{}, err
	}
	roles := md.Get(MetadataRole)
	if len(roles) == 0 {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "role is not provided in metadata")
	}
	companyID, err := int32FromMetadata(md, MetadataCompanyID, false)
	if err != nil {
		return domain.Actor{}, err
	}
	customerID, err := int32FromMetadata(md, MetadataCustomerID, false)
	if err != nil {
		return domain.Actor{}, err
	}

	claims := security.ActorClaims{
		UserID:     userID,
		Role:       domain.Role(roles[0]),
		CompanyID:  companyID,
		CustomerID: customerID,
	}
	actor, err := claims.Actor()
	if err != nil {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "invalid actor: %v", err)
	}
	return actor, nil
}

func int32FromMetadata(md metadata.MD, key string, required bool) (int32, error) {
	vals := md.Get(key)
	if len(vals) == 0 {
		if required {
			return 0, status.Errorf(codes.Unauthenticated, "%s is not provided in metadata", key)
		}
		return 0, nil
	}
	v, err := strconv.ParseInt(vals[0], 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return int32(v), nil
}
