package interceptor

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	api "fleetbook-backend/internal/api/grpc"
	"fleetbook-backend/internal/config"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/security"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary returns a server interceptor function to authenticate unary RPCs.
// Authorization of individual bookings happens in the services.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		level := config.GetSecurityLevel(info.FullMethod)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			return handler(ctx, req)
		}

		token, err := i.extractToken(ctx)
		if err != nil {
			return nil, err
		}

		claims, err := i.tokenManager.ValidateToken(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		if _, err := claims.Actor(); err != nil {
			return nil, status.Error(codes.PermissionDenied, "token does not carry a usable role")
		}

		// Copy and Set so client supplied identity headers are overwritten.
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.New(nil)
		} else {
			md = md.Copy()
		}

		md.Set(api.MetadataUserID, strconv.Itoa(int(claims.UserID)))
		md.Set(api.MetadataRole, string(claims.Role))
		md.Set(api.MetadataCompanyID, strconv.Itoa(int(claims.CompanyID)))
		md.Set(api.MetadataCustomerID, strconv.Itoa(int(claims.CustomerID)))
		newCtx := metadata.NewIncomingContext(ctx, md)
		newCtx = logger.WithContext(newCtx, "user_id", claims.UserID, "role", claims.Role)

		return handler(newCtx, req)
	}
}

func (i *AuthInterceptor) extractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	authHeader := md["authorization"]
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	return StripBearer(authHeader[0]), nil
}

// StripBearer removes a case-insensitive "Bearer " prefix if present.
func StripBearer(token string) string {
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		return token[7:]
	}
	return token
}
