package memory

import (
	"fmt"
	"os"
	"time"

	"fleetbook-backend/internal/domain"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML fixture format used to populate a Store.
type Seed struct {
	Categories []struct {
		ID          int32  `yaml:"id"`
		CompanyID   int32  `yaml:"company_id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Seats       int32  `yaml:"seats"`
		FuelType    string `yaml:"fuel_type"`
	} `yaml:"categories"`
	Vehicles []struct {
		CategoryID   int32  `yaml:"category_id"`
		LocationID   *int32 `yaml:"location_id"`
		LicensePlate string `yaml:"license_plate"`
		State        string `yaml:"state"`
	} `yaml:"vehicles"`
	Customers []struct {
		ID        int32  `yaml:"id"`
		CompanyID int32  `yaml:"company_id"`
		Name      string `yaml:"name"`
		Email     string `yaml:"email"`
		Phone     string `yaml:"phone"`
	} `yaml:"customers"`
	Rates []struct {
		CategoryID       int32     `yaml:"category_id"`
		ValidFrom        time.Time `yaml:"valid_from"`
		ValidUntil       time.Time `yaml:"valid_until"`
		PricePerDayCents int64     `yaml:"price_per_day_cents"`
		Tiers            []struct {
			MinDays          int32 `yaml:"min_days"`
			PricePerDayCents int64 `yaml:"price_per_day_cents"`
		} `yaml:"tiers"`
	} `yaml:"rates"`
	Extras []struct {
		ID         int32  `yaml:"id"`
		CompanyID  int32  `yaml:"company_id"`
		Name       string `yaml:"name"`
		PriceCents int64  `yaml:"price_cents"`
		Mode       string `yaml:"mode"`
		Hidden     bool   `yaml:"hidden"`
	} `yaml:"extras"`
	Discounts []struct {
		CompanyID       int32      `yaml:"company_id"`
		Code            string     `yaml:"code"`
		Type            string     `yaml:"type"`
		Value           int64      `yaml:"value"`
		ValidFrom       *time.Time `yaml:"valid_from"`
		ValidUntil      *time.Time `yaml:"valid_until"`
		UsageCap        int32      `yaml:"usage_cap"`
		MinBookingCents int64      `yaml:"min_booking_cents"`
		CategoryIDs     []int32    `yaml:"category_ids"`
	} `yaml:"discounts"`
}

// LoadSeed reads a YAML fixture file into a new Store.
func LoadSeed(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	s := NewStore()
	if err := s.Apply(&seed); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply inserts every record of seed. Categories and customers keep their
// explicit ids so the other records can refer to them.
func (s *Store) Apply(seed *Seed) error {
	for _, c := range seed.Categories {
		fuel := domain.FuelType(c.FuelType)
		if fuel == "" {
			fuel = domain.FuelTypePetrol
		}
		s.AddCategory(domain.VehicleCategory{ID: c.ID, CompanyID: c.CompanyID, Name: c.Name, Description: c.Description, Seats: c.Seats, FuelType: fuel, Active: true})
	}
	for _, v := range seed.Vehicles {
		state := domain.UnitStateAvailable
		if v.State != "" {
			st, err := domain.ParseUnitState(v.State)
			if err != nil {
				return fmt.Errorf("vehicle %s: %w", v.LicensePlate, err)
			}
			state = st
		}
		s.AddUnit(domain.InventoryUnit{CategoryID: v.CategoryID, LocationID: v.LocationID, LicensePlate: v.LicensePlate, State: state})
	}
	for _, c := range seed.Customers {
		s.AddCustomer(domain.Customer{ID: c.ID, CompanyID: c.CompanyID, Name: c.Name, Email: c.Email, Phone: c.Phone})
	}
	for _, r := range seed.Rates {
		rule := domain.RateRule{CategoryID: r.CategoryID, ValidFrom: r.ValidFrom, ValidUntil: r.ValidUntil, PricePerDayCents: r.PricePerDayCents}
		for _, t := range r.Tiers {
			rule.Tiers = append(rule.Tiers, domain.RateTier{MinDays: t.MinDays, PricePerDayCents: t.PricePerDayCents})
		}
		s.AddRateRule(rule)
	}
	for _, e := range seed.Extras {
		mode, err := domain.ParseExtraPricingMode(e.Mode)
		if err != nil {
			return fmt.Errorf("extra %s: %w", e.Name, err)
		}
		s.AddExtra(domain.Extra{ID: e.ID, CompanyID: e.CompanyID, Name: e.Name, PriceCents: e.PriceCents, Mode: mode, Active: true, Visible: !e.Hidden})
	}
	for _, d := range seed.Discounts {
		typ := domain.DiscountType(d.Type)
		if !typ.Valid() {
			return fmt.Errorf("discount %s: unknown type %q", d.Code, d.Type)
		}
		s.AddDiscountCode(domain.DiscountCode{
			CompanyID:       d.CompanyID,
			Code:            d.Code,
			Type:            typ,
			Value:           d.Value,
			ValidFrom:       d.ValidFrom,
			ValidUntil:      d.ValidUntil,
			UsageCap:        d.UsageCap,
			MinBookingCents: d.MinBookingCents,
			CategoryIDs:     d.CategoryIDs,
			Active:          true,
			CreatedOn:       time.Now(),
		})
	}
	return nil
}
