package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/repository"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// advisoryNamespace is the first key of pg_advisory_xact_lock(int, int); the
// category id is the second.
const advisoryNamespace = 7301

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Options struct {
	// MaxRetries bounds how often a reservation is re-run after a
	// serialization failure.
	MaxRetries int
	// RetryBackoff is the first backoff delay; it doubles on each retry.
	RetryBackoff time.Duration
}

type Store struct {
	db   *sql.DB
	opts Options

	categories repository.CategoryRepository
	inventory  repository.InventoryRepository
	customers  repository.CustomerRepository
	rates      repository.RateRepository
	extras     repository.ExtraRepository
	discounts  repository.DiscountRepository
	bookings   repository.BookingRepository
	ledger     repository.LedgerRepository
}

func NewStore(db *sql.DB, opts Options) *Store {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 20 * time.Millisecond
	}
	return &Store{
		db:         db,
		opts:       opts,
		categories: NewCategoryRepository(db),
		inventory:  NewInventoryRepository(db),
		customers:  NewCustomerRepository(db),
		rates:      NewRateRepository(db),
		extras:     NewExtraRepository(db),
		discounts:  NewDiscountRepository(db),
		bookings:   NewBookingRepository(db),
		ledger:     NewLedgerRepository(db),
	}
}

func (s *Store) Categories() repository.CategoryRepository { return s.categories }
func (s *Store) Inventory() repository.InventoryRepository   { return s.inventory }
func (s *Store) Customers() repository.CustomerRepository   { return s.customers }
func (s *Store) Rates() repository.RateRepository           { return s.rates }
func (s *Store) Extras() repository.ExtraRepository         { return s.extras }
func (s *Store) Discounts() repository.DiscountRepository   { return s.discounts }
func (s *Store) Bookings() repository.BookingRepository     { return s.bookings }
func (s *Store) Ledger() repository.LedgerRepository         { return s.ledger }

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.DatabaseCall("migrate", "schema.sql")
	_, err := db.ExecContext(ctx, schemaSQL)
	logger.DatabaseResult("migrate", 0, err)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WithinCategory runs fn inside a SERIALIZABLE transaction that first takes a
// transaction-scoped advisory lock on the category. Two reservations for the
// same category therefore never interleave. A serialization failure means
// Postgres rolled the whole transaction back, so it is safe to run it again;
// any other failure, including a failed commit, is reported as is.
func (s *Store) WithinCategory(ctx context.Context, categoryID int32, fn func(ctx context.Context, tx repository.BookingTx) error) error {
	backoff := s.opts.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying reservation after serialization failure", "category_id", categoryID, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return classify("reservation", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err := s.runTx(ctx, categoryID, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}
	return domain.NewUnavailableError("reservation kept conflicting with concurrent writers", lastErr)
}

func (s *Store) runTx(ctx context.Context, categoryID int32, fn func(ctx context.Context, tx repository.BookingTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	logger.DatabaseCall("advisory_lock", "pg_advisory_xact_lock", "category_id", categoryID)
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, advisoryNamespace, categoryID); err != nil {
		return classify("lock category", err)
	}

	if err = fn(ctx, &bookingTx{q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// classify turns driver errors into the booking error taxonomy. Domain errors
// pass through untouched; connectivity problems and timeouts become
// KindUnavailable; anything else is wrapped with the operation name.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != "" {
		return err
	}
	if isSerializationFailure(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewUnavailableError(op+" timed out", err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return domain.NewUnavailableError(op+" lost its connection", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.NewUnavailableError(op+" could not reach the database", err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 is connection exception, 57P0x is operator intervention.
		if pqErr.Code.Class() == "08" || pqErr.Code == "57P01" || pqErr.Code == "57P02" || pqErr.Code == "57P03" {
			return domain.NewUnavailableError(op+" failed: database unavailable", err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound maps sql.ErrNoRows to a domain not-found error.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	return classify("get "+entity, err)
}

func int64s(ids []int32) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func int32s(ids []int64) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}
