package postgres

import (
	"context"
	"database/sql"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

const ledgerScope = ` WHERE ($1 = 0 OR company_id = $1) AND ($2 = 0 OR category_id = $2) AND pickup_at >= $3 AND pickup_at < $4`

const revenueStatuses = ` AND status IN ('confirmed', 'in_progress', 'completed')`

func (r *ledgerRepository) GetSummary(ctx context.Context, f domain.LedgerFilter) (*domain.LedgerSummary, error) {
	args := []any{f.CompanyID, f.CategoryID, f.From, f.To}
	s := &domain.LedgerSummary{
		From:        f.From,
		To:          f.To,
		StatusCount: make(map[domain.BookingStatus]int32),
		ByCategory:  []domain.CategoryRevenue{},
	}

	logger.DatabaseCall("ledger_summary", "bookings", "company_id", f.CompanyID, "category_id", f.CategoryID)

	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM bookings`+ledgerScope+` GROUP BY status`, args...)
	if err != nil {
		return nil, classify("ledger status counts", err)
	}
	for rows.Next() {
		var status domain.BookingStatus
		var n int32
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		s.StatusCount[status] = n
	}
	rows.Close()

	totals := `SELECT COALESCE(SUM(total_cents), 0),
	                  COALESCE(SUM(total_cents) FILTER (WHERE paid), 0),
	                  COALESCE(SUM(discount_amount_cents), 0),
	                  count(*) FILTER (WHERE paid),
	                  count(*) FILTER (WHERE NOT paid)
	           FROM bookings` + ledgerScope + revenueStatuses
	err = r.db.QueryRowContext(ctx, totals, args...).Scan(&s.GrossRevenueCents, &s.PaidCents, &s.DiscountsCents, &s.PaidBookings, &s.UnpaidBookings)
	if err != nil {
		return nil, classify("ledger totals", err)
	}
	s.OutstandingCents = s.GrossRevenueCents - s.PaidCents

	rows, err = r.db.QueryContext(ctx, `SELECT category_id, count(*), COALESCE(SUM(total_cents), 0) FROM bookings`+
		ledgerScope+revenueStatuses+` GROUP BY category_id ORDER BY category_id`, args...)
	if err != nil {
		return nil, classify("ledger by category", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.CategoryRevenue
		if err := rows.Scan(&c.CategoryID, &c.Bookings, &c.RevenueCents); err != nil {
			return nil, err
		}
		s.ByCategory = append(s.ByCategory, c)
	}
	logger.DatabaseResult("ledger_summary", int64(len(s.ByCategory)), rows.Err())
	return s, rows.Err()
}
