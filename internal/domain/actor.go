package domain

import "strings"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleCustomer, RoleOperator, RoleAdmin, RoleSystem:
		return r, nil
	}
	return "", NewValidationError("unknown role " + s)
}

// DefaultRolePermissions is the transition policy used when an Actor is built
// from a role. Edges flagged AdminOverride are only granted through CanOverride.
var DefaultRolePermissions = map[Role][]Transition{
	RoleCustomer: {
		{BookingStatusPending, BookingStatusConfirmed},
		{BookingStatusPending, BookingStatusCancelled},
		{BookingStatusConfirmed, BookingStatusCancelled},
	},
	RoleOperator: {
		{BookingStatusPending, BookingStatusConfirmed},
		{BookingStatusPending, BookingStatusCancelled},
		{BookingStatusConfirmed, BookingStatusInProgress},
		{BookingStatusConfirmed, BookingStatusCancelled},
		{BookingStatusInProgress, BookingStatusCompleted},
	},
	RoleAdmin: {
		{BookingStatusPending, BookingStatusConfirmed},
		{BookingStatusPending, BookingStatusCancelled},
		{BookingStatusConfirmed, BookingStatusInProgress},
		{BookingStatusConfirmed, BookingStatusCancelled},
		{BookingStatusInProgress, BookingStatusCompleted},
	},
	RoleSystem: {
		{BookingStatusPending, BookingStatusConfirmed},
		{BookingStatusPending, BookingStatusCancelled},
	},
}

// Actor is the caller of a lifecycle operation together with the transitions
// it may perform. It is passed explicitly into every mutating call.
type Actor struct {
	ID         int32
	Role       Role
	CustomerID int32
	CompanyID  int32
	Permitted  map[Transition]bool
	// CanOverride allows administrative cancellation from any non-terminal state.
	CanOverride bool
}

// NewActor builds an actor with the default permissions for role.
func NewActor(id int32, role Role, companyID int32) Actor {
	a := Actor{
		ID:          id,
		Role:        role,
		CompanyID:   companyID,
		Permitted:   make(map[Transition]bool),
		CanOverride: role == RoleAdmin,
	}
	if role == RoleCustomer {
		a.CustomerID = id
	}
	for _, t := range DefaultRolePermissions[role] {
		a.Permitted[t] = true
	}
	return a
}

// SystemActor is used by the hold-expiry sweep and the payment webhook.
func SystemActor() Actor {
	return NewActor(0, RoleSystem, 0)
}

// CanTransition reports whether the actor may use rule.
func (a Actor) CanTransition(rule TransitionRule) bool {
	if rule.AdminOverride {
		return a.CanOverride
	}
	if a.Permitted[rule.Transition] {
		return true
	}
	// Override covers cancellation from any non-terminal state.
	return a.CanOverride && rule.To == BookingStatusCancelled
}

// CanAccess reports whether the actor may read or act on b.
func (a Actor) CanAccess(b *Booking) bool {
	switch a.Role {
	case RoleSystem:
		return true
	case RoleCustomer:
		return b.CustomerID == a.CustomerID
	case RoleOperator, RoleAdmin:
		return a.CompanyID == 0 || a.CompanyID == b.CompanyID
	}
	return false
}

// IsStaff reports whether the actor works for the rental operator.
func (a Actor) IsStaff() bool {
	return a.Role == RoleOperator || a.Role == RoleAdmin
}
