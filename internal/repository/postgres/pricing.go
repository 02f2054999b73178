package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/repository"

	"github.com/lib/pq"
)

type rateRepository struct {
	db *sql.DB
}

func NewRateRepository(db *sql.DB) repository.RateRepository {
	return &rateRepository{db: db}
}

func (r *rateRepository) ListForCategory(ctx context.Context, categoryID int32, from, until time.Time) ([]domain.RateRule, error) {
	query := `SELECT id, category_id, valid_from, valid_until, price_per_day_cents, tiers, created_on
	          FROM rate_rules WHERE category_id = $1 AND valid_from <= $3 AND valid_until >= $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, categoryID, from, until)
	if err != nil {
		return nil, classify("list rate rules", err)
	}
	defer rows.Close()

	var rules []domain.RateRule
	for rows.Next() {
		var rule domain.RateRule
		var tiers []byte
		if err := rows.Scan(&rule.ID, &rule.CategoryID, &rule.ValidFrom, &rule.ValidUntil, &rule.PricePerDayCents, &tiers, &rule.CreatedOn); err != nil {
			return nil, err
		}
		if len(tiers) > 0 {
			if err := json.Unmarshal(tiers, &rule.Tiers); err != nil {
				return nil, fmt.Errorf("decode tiers of rate rule %d: %w", rule.ID, err)
			}
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type extraRepository struct {
	db *sql.DB
}

func NewExtraRepository(db *sql.DB) repository.ExtraRepository {
	return &extraRepository{db: db}
}

func (r *extraRepository) GetByIDs(ctx context.Context, ids []int32) ([]domain.Extra, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, company_id, name, price_cents, mode, active, visible FROM extras WHERE id = ANY($1) ORDER BY id`
	return r.list(ctx, query, pq.Array(int64s(ids)))
}

func (r *extraRepository) ListVisible(ctx context.Context, companyID int32) ([]domain.Extra, error) {
	query := `SELECT id, company_id, name, price_cents, mode, active, visible FROM extras
	          WHERE company_id = $1 AND active AND visible ORDER BY name`
	return r.list(ctx, query, companyID)
}

func (r *extraRepository) list(ctx context.Context, query string, args ...any) ([]domain.Extra, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list extras", err)
	}
	defer rows.Close()

	var extras []domain.Extra
	for rows.Next() {
		var e domain.Extra
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Name, &e.PriceCents, &e.Mode, &e.Active, &e.Visible); err != nil {
			return nil, err
		}
		extras = append(extras, e)
	}
	return extras, rows.Err()
}

type discountRepository struct {
	db *sql.DB
}

func NewDiscountRepository(db *sql.DB) repository.DiscountRepository {
	return &discountRepository{db: db}
}

// GetByCode looks a code up case-insensitively within a company.
func (r *discountRepository) GetByCode(ctx context.Context, companyID int32, code string) (*domain.DiscountCode, error) {
	d := &domain.DiscountCode{}
	var categoryIDs pq.Int64Array
	query := `SELECT id, company_id, code, type, value, valid_from, valid_until, usage_cap, usage_count,
	                 min_booking_cents, category_ids, active, created_on
	          FROM discount_codes WHERE company_id = $1 AND upper(code) = $2`
	err := r.db.QueryRowContext(ctx, query, companyID, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&d.ID, &d.CompanyID, &d.Code, &d.Type, &d.Value, &d.ValidFrom, &d.ValidUntil, &d.UsageCap, &d.UsageCount,
		&d.MinBookingCents, &categoryIDs, &d.Active, &d.CreatedOn)
	if err != nil {
		return nil, notFound(err, "discount code", code)
	}
	d.CategoryIDs = int32s(categoryIDs)
	return d, nil
}
