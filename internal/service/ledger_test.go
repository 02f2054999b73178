package service_test

import (
	"context"
	"testing"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_GetSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	ledger := service.NewLedgerService(f.store.Ledger(), f.opts)

	paid := f.insert(t, domain.BookingStatusConfirmed, base.Add(day), 2)
	_, err := f.bookings.MarkPaid(ctx, f.operator, paid.ID, true)
	require.NoError(t, err)
	f.insert(t, domain.BookingStatusCompleted, base.Add(2*day), 1)
	f.insert(t, domain.BookingStatusCancelled, base.Add(3*day), 4)
	f.insert(t, domain.BookingStatusPending, base.Add(3*day), 1)

	filter := domain.LedgerFilter{From: base, To: base.Add(10 * day)}

	t.Run("Operator", func(t *testing.T) {
		sum, err := ledger.GetSummary(ctx, f.operator, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(15000), sum.GrossRevenueCents)
		assert.Equal(t, int64(10000), sum.PaidCents)
		assert.Equal(t, int64(5000), sum.OutstandingCents)
		assert.Equal(t, int32(1), sum.StatusCount[domain.BookingStatusCancelled])
		assert.Equal(t, int32(1), sum.StatusCount[domain.BookingStatusPending])
		require.Len(t, sum.ByCategory, 1)
		assert.Equal(t, int32(2), sum.ByCategory[0].Bookings)
	})

	t.Run("ScopedToOwnCompany", func(t *testing.T) {
		sum, err := ledger.GetSummary(ctx, domain.NewActor(501, domain.RoleOperator, 2), domain.LedgerFilter{From: base, To: base.Add(10 * day)})
		require.NoError(t, err)
		assert.Zero(t, sum.GrossRevenueCents)

		_, err = ledger.GetSummary(ctx, f.operator, domain.LedgerFilter{CompanyID: 2, From: base, To: base.Add(day)})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("CustomersCannotSeeLedger", func(t *testing.T) {
		_, err := ledger.GetSummary(ctx, f.customer, filter)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("InvalidWindow", func(t *testing.T) {
		_, err := ledger.GetSummary(ctx, f.admin, domain.LedgerFilter{From: base.Add(day), To: base})
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("DefaultWindowEndsNow", func(t *testing.T) {
		sum, err := ledger.GetSummary(ctx, f.admin, domain.LedgerFilter{})
		require.NoError(t, err)
		assert.Equal(t, base, sum.To)
		assert.Zero(t, sum.GrossRevenueCents, "all bookings pick up after now")
	})
}
