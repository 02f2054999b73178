package jobs

import (
	"context"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/utils"
)

// ExpirePendingHolds cancels pending bookings whose hold period has lapsed.
// Running it twice in a row is harmless.
func (jr *JobRunner) ExpirePendingHolds() {
	jr.runWithRecovery("ExpirePendingHolds", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := jr.services.Booking.ExpireHolds(ctx)
		if err != nil {
			logger.Error("Failed to expire pending holds", "expired", n, "error", err)
			return
		}
		logger.Info("Expired pending holds", "count", n)
	})
}

// LedgerSnapshot logs the previous UTC day's ledger totals.
func (jr *JobRunner) LedgerSnapshot() {
	jr.runWithRecovery("LedgerSnapshot", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		to := jr.now().UTC().Truncate(24 * time.Hour)
		from := to.Add(-24 * time.Hour)
		sum, err := jr.services.Ledger.GetSummary(ctx, domain.SystemActor(), domain.LedgerFilter{From: from, To: to})
		if err != nil {
			logger.Error("Failed to build ledger snapshot", "from", from, "to", to, "error", err)
			return
		}

		logger.Info("Ledger snapshot",
			"day", from.Format("2006-01-02"),
			"gross", utils.FormatCents(sum.GrossRevenueCents),
			"paid", utils.FormatCents(sum.PaidCents),
			"outstanding", utils.FormatCents(sum.OutstandingCents),
			"discounts", utils.FormatCents(sum.DiscountsCents),
			"confirmed", sum.StatusCount[domain.BookingStatusConfirmed],
			"cancelled", sum.StatusCount[domain.BookingStatusCancelled])
		for _, c := range sum.ByCategory {
			logger.Debug("Ledger snapshot by category",
				"day", from.Format("2006-01-02"),
				"category_id", c.CategoryID,
				"bookings", c.Bookings,
				"revenue", utils.FormatCents(c.RevenueCents))
		}
	})
}
