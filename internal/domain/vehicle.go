package domain

import (
	"strings"
	"time"
)

type UnitState string

const (
	UnitStateAvailable   UnitState = "available"
	UnitStateRented      UnitState = "rented"
	UnitStateMaintenance UnitState = "maintenance"
	UnitStateInactive    UnitState = "inactive"
)

func ParseUnitState(s string) (UnitState, error) {
	st := UnitState(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", NewValidationError("unknown unit state " + s)
	}
	return st, nil
}

func (s UnitState) Valid() bool {
	switch s {
	case UnitStateAvailable, UnitStateRented, UnitStateMaintenance, UnitStateInactive:
		return true
	}
	return false
}

// CountsTowardCapacity reports whether a unit in this state belongs to the
// bookable pool. Only retired units are excluded.
func (s UnitState) CountsTowardCapacity() bool {
	return s != UnitStateInactive
}

type FuelType string

const (
	FuelTypePetrol   FuelType = "petrol"
	FuelTypeDiesel   FuelType = "diesel"
	FuelTypeHybrid   FuelType = "hybrid"
	FuelTypeElectric FuelType = "electric"
)

// VehicleCategory is a pool of interchangeable vehicles.
type VehicleCategory struct {
	ID          int32     `json:"id"`
	CompanyID   int32     `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Seats       int32     `json:"seats"`
	FuelType    FuelType  `json:"fuel_type"`
	Active      bool      `json:"active"`
	CreatedOn   time.Time `json:"created_on"`
}

// InventoryUnit is one physical vehicle.
type InventoryUnit struct {
	ID           int32     `json:"id"`
	CategoryID   int32     `json:"category_id"`
	LocationID   *int32    `json:"location_id,omitempty"`
	LicensePlate string    `json:"license_plate"`
	State        UnitState `json:"state"`
	CreatedOn    time.Time `json:"created_on"`
}

type Customer struct {
	ID        int32     `json:"id"`
	CompanyID int32     `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Blocked   bool      `json:"blocked"`
	CreatedOn time.Time `json:"created_on"`
}
