package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/repository"
)

const bookingColumns = `id, reference, company_id, customer_id, category_id, pickup_location_id, return_location_id,
	pickup_at, return_at, duration_days, daily_rate_cents, base_price_cents, extras_total_cents,
	discount_amount_cents, total_cents, extras, discount_code, discount_code_id, discount_redeemed,
	status, paid, hold_expires_at, cancel_reason, cancelled_by, confirmed_on, created_on, updated_on`

// inventoryHeld matches bookings that occupy capacity at $now. A pending
// booking whose hold lapsed stops counting before the sweep cancels it.
const inventoryHeld = `(status IN ('confirmed', 'in_progress') OR (status = 'pending' AND (hold_expires_at IS NULL OR hold_expires_at > %s)))`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var extras []byte
	var discountCode sql.NullString
	var discountCodeID, cancelledBy sql.NullInt32
	var holdExpiresAt, confirmedOn sql.NullTime
	err := row.Scan(&b.ID, &b.Reference, &b.CompanyID, &b.CustomerID, &b.CategoryID, &b.PickupLocationID, &b.ReturnLocationID,
		&b.PickupAt, &b.ReturnAt, &b.DurationDays, &b.DailyRateCents, &b.BasePriceCents, &b.ExtrasTotalCents,
		&b.DiscountAmountCents, &b.TotalCents, &extras, &discountCode, &discountCodeID, &b.DiscountRedeemed,
		&b.Status, &b.Paid, &holdExpiresAt, &b.CancelReason, &cancelledBy, &confirmedOn, &b.CreatedOn, &b.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &b.Extras); err != nil {
			return nil, fmt.Errorf("decode extras of booking %d: %w", b.ID, err)
		}
	}
	if discountCode.Valid {
		b.DiscountCode = &discountCode.String
	}
	if discountCodeID.Valid {
		b.DiscountCodeID = &discountCodeID.Int32
	}
	if cancelledBy.Valid {
		b.CancelledBy = &cancelledBy.Int32
	}
	if holdExpiresAt.Valid {
		b.HoldExpiresAt = &holdExpiresAt.Time
	}
	if confirmedOn.Valid {
		b.ConfirmedOn = &confirmedOn.Time
	}
	return b, nil
}

func encodeExtras(extras []domain.BookingExtra) ([]byte, error) {
	if extras == nil {
		extras = []domain.BookingExtra{}
	}
	return json.Marshal(extras)
}

func countUsable(ctx context.Context, q querier, categoryID int32, locationID *int32) (int32, error) {
	query := `SELECT count(*) FROM vehicles WHERE category_id = $1 AND state <> 'inactive'`
	args := []any{categoryID}
	if locationID != nil {
		query += ` AND location_id = $2`
		args = append(args, *locationID)
	}
	var n int32
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count usable units", err)
	}
	return n, nil
}

func countOverlapping(ctx context.Context, q querier, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) (int32, error) {
	query := `SELECT count(*) FROM bookings
	          WHERE category_id = $1 AND id <> $2 AND pickup_at < $3 AND $4 < return_at AND ` + fmt.Sprintf(inventoryHeld, "$5")
	args := []any{categoryID, excludeID, ret, pickup, now}
	if locationID != nil {
		query += ` AND pickup_location_id = $6`
		args = append(args, *locationID)
	}
	var n int32
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count overlapping bookings", err)
	}
	return n, nil
}

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

func (r *bookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, reference))
	if err != nil {
		return nil, notFound(err, "booking", reference)
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, int32, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize

	where := ` WHERE 1=1`
	var args []any
	if f.CompanyID != 0 {
		args = append(args, f.CompanyID)
		where += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if f.CustomerID != 0 {
		args = append(args, f.CustomerID)
		where += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		where += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&count); err != nil {
		return nil, 0, classify("count bookings", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where +
		fmt.Sprintf(" ORDER BY created_on DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, classify("list bookings", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, count, rows.Err()
}

func (r *bookingRepository) CountOverlapping(ctx context.Context, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) (int32, error) {
	return countOverlapping(ctx, r.db, categoryID, locationID, pickup, ret, now, excludeID)
}

func (r *bookingRepository) ExpireHolds(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	query := `UPDATE bookings SET status = 'cancelled', cancel_reason = 'hold expired', updated_on = $1
	          WHERE status = 'pending' AND hold_expires_at IS NOT NULL AND hold_expires_at <= $1
	          RETURNING ` + bookingColumns
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, classify("expire holds", err)
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *b)
	}
	return expired, rows.Err()
}

func (r *bookingRepository) SetPaid(ctx context.Context, id int32, paid bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET paid = $1, updated_on = $2 WHERE id = $3`, paid, time.Now(), id)
	if err != nil {
		return classify("set paid", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("booking", id)
	}
	return nil
}

// bookingTx is the BookingTx bound to one reservation transaction.
type bookingTx struct {
	q querier
}

func (t *bookingTx) CountUsable(ctx context.Context, categoryID int32, locationID *int32) (int32, error) {
	return countUsable(ctx, t.q, categoryID, locationID)
}

func (t *bookingTx) CountOverlapping(ctx context.Context, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) (int32, error) {
	return countOverlapping(ctx, t.q, categoryID, locationID, pickup, ret, now, excludeID)
}

func (t *bookingTx) GetBookingForUpdate(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	b, err := scanBooking(t.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

func (t *bookingTx) CreateBooking(ctx context.Context, b *domain.Booking) error {
	extras, err := encodeExtras(b.Extras)
	if err != nil {
		return err
	}
	now := time.Now()
	query := `INSERT INTO bookings (reference, company_id, customer_id, category_id, pickup_location_id, return_location_id,
	              pickup_at, return_at, duration_days, daily_rate_cents, base_price_cents, extras_total_cents,
	              discount_amount_cents, total_cents, extras, discount_code, discount_code_id, discount_redeemed,
	              status, paid, hold_expires_at, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	          RETURNING id`
	err = t.q.QueryRowContext(ctx, query, b.Reference, b.CompanyID, b.CustomerID, b.CategoryID, b.PickupLocationID, b.ReturnLocationID,
		b.PickupAt, b.ReturnAt, b.DurationDays, b.DailyRateCents, b.BasePriceCents, b.ExtrasTotalCents,
		b.DiscountAmountCents, b.TotalCents, extras, b.DiscountCode, b.DiscountCodeID, b.DiscountRedeemed,
		b.Status, b.Paid, b.HoldExpiresAt, now, now).Scan(&b.ID)
	if err != nil {
		return classify("create booking", err)
	}
	b.CreatedOn = now
	b.UpdatedOn = now
	return nil
}

func (t *bookingTx) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	extras, err := encodeExtras(b.Extras)
	if err != nil {
		return err
	}
	b.UpdatedOn = time.Now()
	query := `UPDATE bookings SET pickup_at=$1, return_at=$2, return_location_id=$3, duration_days=$4, daily_rate_cents=$5,
	              base_price_cents=$6, extras_total_cents=$7, discount_amount_cents=$8, total_cents=$9, extras=$10,
	              discount_redeemed=$11, status=$12, paid=$13, hold_expires_at=$14, cancel_reason=$15, cancelled_by=$16,
	              confirmed_on=$17, updated_on=$18, discount_code=$19, discount_code_id=$20
	          WHERE id=$21`
	res, err := t.q.ExecContext(ctx, query, b.PickupAt, b.ReturnAt, b.ReturnLocationID, b.DurationDays, b.DailyRateCents,
		b.BasePriceCents, b.ExtrasTotalCents, b.DiscountAmountCents, b.TotalCents, extras,
		b.DiscountRedeemed, b.Status, b.Paid, b.HoldExpiresAt, b.CancelReason, b.CancelledBy,
		b.ConfirmedOn, b.UpdatedOn, b.DiscountCode, b.DiscountCodeID, b.ID)
	if err != nil {
		return classify("update booking", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("booking", b.ID)
	}
	return nil
}

func (t *bookingTx) RedeemDiscount(ctx context.Context, discountID int32) (bool, error) {
	query := `UPDATE discount_codes SET usage_count = usage_count + 1
	          WHERE id = $1 AND (usage_cap = 0 OR usage_count < usage_cap)`
	res, err := t.q.ExecContext(ctx, query, discountID)
	if err != nil {
		return false, classify("redeem discount", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("redeem discount", err)
	}
	return n == 1, nil
}
