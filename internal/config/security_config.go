// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps methods to their required security level.
// gRPC methods use the full method name, REST routes use "METHOD /path".
var EndpointSecurityConfig = map[string]SecurityLevel{
	// BookingService - Public quotes and search
	"/fleetbook.booking.v1.BookingService/ResolveAvailability": SecurityPublic,
	"/fleetbook.booking.v1.BookingService/ComputePrice":        SecurityPublic,

	// BookingService - Access Protected
	"/fleetbook.booking.v1.BookingService/CreateBooking":     SecurityAccess,
	"/fleetbook.booking.v1.BookingService/GetBooking":        SecurityAccess,
	"/fleetbook.booking.v1.BookingService/ListBookings":      SecurityAccess,
	"/fleetbook.booking.v1.BookingService/TransitionBooking": SecurityAccess,
	"/fleetbook.booking.v1.BookingService/ModifyBooking":     SecurityAccess,
	"/fleetbook.booking.v1.BookingService/MarkPaid":          SecurityAccess,

	// LedgerService - Access Protected
	"/fleetbook.booking.v1.LedgerService/GetLedgerSummary": SecurityAccess,

	// Health
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	// REST
	"GET /healthz":                       SecurityPublic,
	"GET /v1/availability":               SecurityPublic,
	"POST /v1/quotes":                    SecurityPublic,
	"POST /v1/bookings":                  SecurityAccess,
	"GET /v1/bookings":                   SecurityAccess,
	"GET /v1/bookings/{id}":              SecurityAccess,
	"PATCH /v1/bookings/{id}":            SecurityAccess,
	"POST /v1/bookings/{id}/transitions": SecurityAccess,
	"POST /v1/bookings/{id}/paid":        SecurityAccess,
	"GET /v1/ledger/summary":             SecurityAccess,
	// Verified by the payment processor signature instead of a token
	"POST /v1/webhooks/stripe": SecurityPublic,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
