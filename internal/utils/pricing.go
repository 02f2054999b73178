package utils

import (
	"fmt"
	"time"

	"fleetbook-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Day is the pricing unit. Durations are counted in fixed 24 hour blocks, not
// calendar days.
const Day = 24 * time.Hour

// DurationDays returns the number of billable days between pickup and return.
// Partial days round up and the minimum is one day.
func DurationDays(pickup, ret time.Time) (int32, error) {
	if !ret.After(pickup) {
		return 0, domain.NewInvalidRangeError("return must be after pickup")
	}
	d := ret.Sub(pickup)
	days := int64(d / Day)
	if d%Day != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return int32(days), nil
}

// RateSelector picks the rule that prices a booking starting at at. It
// reports false when no rule applies.
type RateSelector func(rules []domain.RateRule, at time.Time) (*domain.RateRule, bool)

// MostSpecificRate prefers the covering rule with the smallest validity
// window, then the most recently created one. Ids break any remaining tie so
// the choice is stable.
func MostSpecificRate(rules []domain.RateRule, at time.Time) (*domain.RateRule, bool) {
	return pickRate(rules, at, func(a, b *domain.RateRule) bool {
		if a.Window() != b.Window() {
			return a.Window() < b.Window()
		}
		if !a.CreatedOn.Equal(b.CreatedOn) {
			return a.CreatedOn.After(b.CreatedOn)
		}
		return a.ID > b.ID
	})
}

// LatestRate prefers the most recently created covering rule regardless of
// window size.
func LatestRate(rules []domain.RateRule, at time.Time) (*domain.RateRule, bool) {
	return pickRate(rules, at, func(a, b *domain.RateRule) bool {
		if !a.CreatedOn.Equal(b.CreatedOn) {
			return a.CreatedOn.After(b.CreatedOn)
		}
		return a.ID > b.ID
	})
}

// RateSelectorByName maps a configured policy name to a selector.
func RateSelectorByName(name string) (RateSelector, error) {
	switch name {
	case "", "most_specific":
		return MostSpecificRate, nil
	case "latest":
		return LatestRate, nil
	}
	return nil, fmt.Errorf("unknown rate policy %q", name)
}

func pickRate(rules []domain.RateRule, at time.Time, better func(a, b *domain.RateRule) bool) (*domain.RateRule, bool) {
	var best *domain.RateRule
	for i := range rules {
		r := &rules[i]
		if !r.Covers(at) {
			continue
		}
		if best == nil || better(r, best) {
			best = r
		}
	}
	if best == nil {
		return nil, false
	}
	out := *best
	return &out, true
}

// DailyRate returns the per-day price for a booking of days length. The tier
// with the highest MinDays not above days wins; without one the rule's base
// price applies.
func DailyRate(rule *domain.RateRule, days int32) int64 {
	price := rule.PricePerDayCents
	var bestMin int32
	for _, t := range rule.Tiers {
		if t.MinDays <= days && t.MinDays > bestMin {
			bestMin = t.MinDays
			price = t.PricePerDayCents
		}
	}
	return price
}

// ExtraLines prices each selection against the catalog. Selections keep the
// caller's order; repeated ids are merged into the first occurrence.
func ExtraLines(catalog []domain.Extra, selections []domain.ExtraSelection, days int32) ([]domain.BookingExtra, int64, error) {
	byID := make(map[int32]domain.Extra, len(catalog))
	for _, e := range catalog {
		byID[e.ID] = e
	}

	lines := make([]domain.BookingExtra, 0, len(selections))
	index := make(map[int32]int, len(selections))
	for _, sel := range selections {
		if sel.Quantity <= 0 {
			return nil, 0, domain.NewValidationError(fmt.Sprintf("extra %d: quantity must be positive", sel.ExtraID))
		}
		e, ok := byID[sel.ExtraID]
		if !ok || !e.Active {
			return nil, 0, domain.NewValidationError(fmt.Sprintf("extra %d is not available", sel.ExtraID))
		}
		if i, seen := index[sel.ExtraID]; seen {
			lines[i].Quantity += sel.Quantity
			continue
		}
		index[sel.ExtraID] = len(lines)
		lines = append(lines, domain.BookingExtra{
			ExtraID:    e.ID,
			Name:       e.Name,
			Quantity:   sel.Quantity,
			PriceCents: e.PriceCents,
			Mode:       e.Mode,
		})
	}

	var total int64
	for i := range lines {
		l := &lines[i]
		l.TotalCents = l.PriceCents * int64(l.Quantity)
		if l.Mode == domain.ExtraPerDay {
			l.TotalCents *= int64(days)
		}
		total += l.TotalCents
	}
	return lines, total, nil
}

// DiscountAmount computes what code takes off subtotal. Percentages round
// half-up to the minor unit. The result never exceeds subtotal.
func DiscountAmount(code *domain.DiscountCode, subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var amount int64
	switch code.Type {
	case domain.DiscountPercentage:
		pct := code.Value
		if pct > 100 {
			pct = 100
		}
		amount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(pct)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case domain.DiscountFixed:
		amount = code.Value
	}
	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// Breakdown assembles the final price. Total is floored at zero.
func Breakdown(categoryID int32, rule *domain.RateRule, days int32, lines []domain.BookingExtra, extrasTotal int64, discount domain.DiscountResult, code string) domain.PriceBreakdown {
	daily := DailyRate(rule, days)
	base := daily * int64(days)
	pb := domain.PriceBreakdown{
		CategoryID:       categoryID,
		DurationDays:     days,
		RateRuleID:       rule.ID,
		DailyRateCents:   daily,
		BaseCents:        base,
		Extras:           lines,
		ExtrasTotalCents: extrasTotal,
		DiscountCode:     code,
	}
	if pb.Extras == nil {
		pb.Extras = []domain.BookingExtra{}
	}
	if discount.Valid {
		pb.DiscountAmountCents = discount.AmountCents
		if discount.Code != nil {
			id := discount.Code.ID
			pb.DiscountCodeID = &id
		}
	} else {
		pb.DiscountReason = discount.Reason
	}
	pb.TotalCents = base + extrasTotal - pb.DiscountAmountCents
	if pb.TotalCents < 0 {
		pb.TotalCents = 0
	}
	return pb
}

// FormatCents renders a minor-unit amount with two decimals.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
