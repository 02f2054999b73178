package utils

import (
	"testing"
	"time"

	"fleetbook-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func TestDurationDays(t *testing.T) {
	tests := []struct {
		name     string
		ret      time.Time
		expected int32
	}{
		{"exactly one day", t0.Add(24 * time.Hour), 1},
		{"one hour rounds up", t0.Add(time.Hour), 1},
		{"four days", t0.Add(96 * time.Hour), 4},
		{"four days and a minute", t0.Add(96*time.Hour + time.Minute), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := DurationDays(t0, tt.ret)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, days)
		})
	}

	t.Run("return before pickup", func(t *testing.T) {
		_, err := DurationDays(t0, t0.Add(-time.Hour))
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("zero length", func(t *testing.T) {
		_, err := DurationDays(t0, t0)
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})
}

func TestMostSpecificRate(t *testing.T) {
	year := domain.RateRule{ID: 1, ValidFrom: t0.AddDate(0, -6, 0), ValidUntil: t0.AddDate(0, 6, 0), PricePerDayCents: 5000, CreatedOn: t0.AddDate(-1, 0, 0)}
	summer := domain.RateRule{ID: 2, ValidFrom: t0.AddDate(0, 0, -10), ValidUntil: t0.AddDate(0, 0, 60), PricePerDayCents: 7000, CreatedOn: t0.AddDate(0, -2, 0)}
	summerNewer := domain.RateRule{ID: 3, ValidFrom: t0.AddDate(0, 0, -5), ValidUntil: t0.AddDate(0, 0, 65), PricePerDayCents: 7500, CreatedOn: t0.AddDate(0, -1, 0)}
	expired := domain.RateRule{ID: 4, ValidFrom: t0.AddDate(-1, 0, 0), ValidUntil: t0.AddDate(0, 0, -1), PricePerDayCents: 100, CreatedOn: t0}

	t.Run("smallest window wins", func(t *testing.T) {
		r, ok := MostSpecificRate([]domain.RateRule{year, summer, expired}, t0)
		require.True(t, ok)
		assert.Equal(t, int32(2), r.ID)
	})

	t.Run("same window prefers latest creation", func(t *testing.T) {
		r, ok := MostSpecificRate([]domain.RateRule{summer, summerNewer, year}, t0)
		require.True(t, ok)
		assert.Equal(t, int32(3), r.ID)
	})

	t.Run("order of input does not matter", func(t *testing.T) {
		a, _ := MostSpecificRate([]domain.RateRule{year, summer, summerNewer}, t0)
		b, _ := MostSpecificRate([]domain.RateRule{summerNewer, year, summer}, t0)
		assert.Equal(t, a.ID, b.ID)
	})

	t.Run("no covering rule", func(t *testing.T) {
		_, ok := MostSpecificRate([]domain.RateRule{expired}, t0)
		assert.False(t, ok)
	})

	t.Run("latest policy ignores window", func(t *testing.T) {
		r, ok := LatestRate([]domain.RateRule{year, summer, summerNewer}, t0)
		require.True(t, ok)
		assert.Equal(t, int32(3), r.ID)
	})

	t.Run("selector by name", func(t *testing.T) {
		_, err := RateSelectorByName("latest")
		assert.NoError(t, err)
		_, err = RateSelectorByName("cheapest")
		assert.Error(t, err)
	})
}

func TestDailyRate(t *testing.T) {
	rule := &domain.RateRule{
		PricePerDayCents: 5000,
		Tiers: []domain.RateTier{
			{MinDays: 14, PricePerDayCents: 3500},
			{MinDays: 7, PricePerDayCents: 4200},
		},
	}
	assert.Equal(t, int64(5000), DailyRate(rule, 6))
	assert.Equal(t, int64(4200), DailyRate(rule, 7))
	assert.Equal(t, int64(4200), DailyRate(rule, 13))
	assert.Equal(t, int64(3500), DailyRate(rule, 30))
}

func TestExtraLines(t *testing.T) {
	catalog := []domain.Extra{
		{ID: 1, Name: "GPS", PriceCents: 1000, Mode: domain.ExtraPerDay, Active: true},
		{ID: 2, Name: "Cleaning", PriceCents: 2500, Mode: domain.ExtraPerBooking, Active: true},
		{ID: 3, Name: "Roof box", PriceCents: 900, Mode: domain.ExtraPerDay, Active: false},
	}

	t.Run("per day and per booking", func(t *testing.T) {
		lines, total, err := ExtraLines(catalog, []domain.ExtraSelection{{ExtraID: 2, Quantity: 1}, {ExtraID: 1, Quantity: 2}}, 3)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, int32(2), lines[0].ExtraID)
		assert.Equal(t, int64(2500), lines[0].TotalCents)
		assert.Equal(t, int64(6000), lines[1].TotalCents)
		assert.Equal(t, int64(8500), total)
	})

	t.Run("duplicates merge", func(t *testing.T) {
		lines, total, err := ExtraLines(catalog, []domain.ExtraSelection{{ExtraID: 1, Quantity: 1}, {ExtraID: 1, Quantity: 1}}, 1)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, int32(2), lines[0].Quantity)
		assert.Equal(t, int64(2000), total)
	})

	t.Run("inactive extra", func(t *testing.T) {
		_, _, err := ExtraLines(catalog, []domain.ExtraSelection{{ExtraID: 3, Quantity: 1}}, 1)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, _, err := ExtraLines(catalog, []domain.ExtraSelection{{ExtraID: 1, Quantity: 0}}, 1)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestDiscountAmount(t *testing.T) {
	pct := func(v int64) *domain.DiscountCode { return &domain.DiscountCode{Type: domain.DiscountPercentage, Value: v} }
	fixed := func(v int64) *domain.DiscountCode { return &domain.DiscountCode{Type: domain.DiscountFixed, Value: v} }

	assert.Equal(t, int64(2400), DiscountAmount(pct(10), 24000))
	// 15% of 1003 is 150.45, half-up gives 150; 15% of 1010 is 151.5, gives 152.
	assert.Equal(t, int64(150), DiscountAmount(pct(15), 1003))
	assert.Equal(t, int64(152), DiscountAmount(pct(15), 1010))
	assert.Equal(t, int64(1000), DiscountAmount(pct(150), 1000))
	assert.Equal(t, int64(500), DiscountAmount(fixed(500), 1000))
	assert.Equal(t, int64(1000), DiscountAmount(fixed(5000), 1000))
	assert.Equal(t, int64(0), DiscountAmount(fixed(500), 0))
}

func TestBreakdown(t *testing.T) {
	rule := &domain.RateRule{ID: 9, PricePerDayCents: 5000}
	catalog := []domain.Extra{{ID: 1, Name: "GPS", PriceCents: 1000, Mode: domain.ExtraPerDay, Active: true}}

	t.Run("rate, per-day extra and ten percent", func(t *testing.T) {
		days, err := DurationDays(t0, t0.Add(96*time.Hour))
		require.NoError(t, err)
		lines, extras, err := ExtraLines(catalog, []domain.ExtraSelection{{ExtraID: 1, Quantity: 1}}, days)
		require.NoError(t, err)
		code := &domain.DiscountCode{ID: 4, Type: domain.DiscountPercentage, Value: 10}
		discount := domain.DiscountResult{Valid: true, AmountCents: DiscountAmount(code, 20000+extras), Code: code}

		pb := Breakdown(1, rule, days, lines, extras, discount, "TEN")
		assert.Equal(t, int64(20000), pb.BaseCents)
		assert.Equal(t, int64(4000), pb.ExtrasTotalCents)
		assert.Equal(t, int64(2400), pb.DiscountAmountCents)
		assert.Equal(t, int64(21600), pb.TotalCents)
		require.NotNil(t, pb.DiscountCodeID)
		assert.Equal(t, int32(4), *pb.DiscountCodeID)
	})

	t.Run("invalid discount keeps full price and reason", func(t *testing.T) {
		pb := Breakdown(1, rule, 2, nil, 0, domain.DiscountResult{Reason: "usage limit reached"}, "GONE")
		assert.Equal(t, int64(0), pb.DiscountAmountCents)
		assert.Equal(t, "usage limit reached", pb.DiscountReason)
		assert.Equal(t, int64(10000), pb.TotalCents)
		assert.NotNil(t, pb.Extras)
	})

	t.Run("total equals parts", func(t *testing.T) {
		for _, amount := range []int64{0, 1, 9999, 10000} {
			pb := Breakdown(1, rule, 2, nil, 0, domain.DiscountResult{Valid: true, AmountCents: amount}, "")
			assert.Equal(t, pb.BaseCents+pb.ExtrasTotalCents-pb.DiscountAmountCents, pb.TotalCents)
			assert.GreaterOrEqual(t, pb.TotalCents, int64(0))
		}
	})
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "216.00", FormatCents(21600))
	assert.Equal(t, "0.05", FormatCents(5))
}
