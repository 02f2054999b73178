// Package memory is an in-process repository.Store used by tests and by the
// server when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	// categoryLocks hold one token channel per category. Holding the token
	// is the category's critical section.
	lockMu        sync.Mutex
	categoryLocks map[int32]chan struct{}

	categories map[int32]domain.VehicleCategory
	units      map[int32]domain.InventoryUnit
	customers  map[int32]domain.Customer
	rates      map[int32]domain.RateRule
	extras     map[int32]domain.Extra
	discounts  map[int32]domain.DiscountCode
	bookings   map[int32]domain.Booking
	nextID     int32
}

func NewStore() *Store {
	return &Store{
		categoryLocks: make(map[int32]chan struct{}),
		categories:    make(map[int32]domain.VehicleCategory),
		units:         make(map[int32]domain.InventoryUnit),
		customers:     make(map[int32]domain.Customer),
		rates:         make(map[int32]domain.RateRule),
		extras:        make(map[int32]domain.Extra),
		discounts:     make(map[int32]domain.DiscountCode),
		bookings:      make(map[int32]domain.Booking),
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) id(current int32) int32 {
	if current != 0 {
		if current > s.nextID {
			s.nextID = current
		}
		return current
	}
	s.nextID++
	return s.nextID
}

func (s *Store) AddCategory(c domain.VehicleCategory) domain.VehicleCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id(c.ID)
	if c.CreatedOn.IsZero() {
		c.CreatedOn = time.Now()
	}
	s.categories[c.ID] = c
	return c
}

func (s *Store) AddUnit(u domain.InventoryUnit) domain.InventoryUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id(u.ID)
	if u.State == "" {
		u.State = domain.UnitStateAvailable
	}
	s.units[u.ID] = u
	return u
}

// SetUnitState changes a unit's state, e.g. to retire it.
func (s *Store) SetUnitState(id int32, state domain.UnitState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return domain.NewNotFoundError("vehicle", id)
	}
	u.State = state
	s.units[id] = u
	return nil
}

func (s *Store) AddCustomer(c domain.Customer) domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id(c.ID)
	s.customers[c.ID] = c
	return c
}

func (s *Store) AddRateRule(r domain.RateRule) domain.RateRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id(r.ID)
	if r.CreatedOn.IsZero() {
		r.CreatedOn = time.Now()
	}
	s.rates[r.ID] = r
	return r
}

func (s *Store) AddExtra(e domain.Extra) domain.Extra {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id(e.ID)
	s.extras[e.ID] = e
	return e
}

func (s *Store) AddDiscountCode(d domain.DiscountCode) domain.DiscountCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id(d.ID)
	s.discounts[d.ID] = d
	return d
}

// DiscountCode returns the stored state of a code, for inspection in tests.
func (s *Store) DiscountCode(id int32) (domain.DiscountCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.discounts[id]
	return d, ok
}

func (s *Store) Categories() repository.CategoryRepository { return categoryRepo{s} }
func (s *Store) Inventory() repository.InventoryRepository   { return inventoryRepo{s} }
func (s *Store) Customers() repository.CustomerRepository   { return customerRepo{s} }
func (s *Store) Rates() repository.RateRepository           { return rateRepo{s} }
func (s *Store) Extras() repository.ExtraRepository         { return extraRepo{s} }
func (s *Store) Discounts() repository.DiscountRepository   { return discountRepo{s} }
func (s *Store) Bookings() repository.BookingRepository     { return bookingRepo{s} }
func (s *Store) Ledger() repository.LedgerRepository         { return ledgerRepo{s} }

func (s *Store) categoryLock(categoryID int32) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.categoryLocks[categoryID]
	if !ok {
		l = make(chan struct{}, 1)
		s.categoryLocks[categoryID] = l
	}
	return l
}

func (s *Store) acquire(ctx context.Context, categoryID int32) (func(), error) {
	l := s.categoryLock(categoryID)
	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-ctx.Done():
		return nil, domain.NewUnavailableError("timed out waiting for category lock", ctx.Err())
	}
}

// WithinCategory runs fn while holding the category's critical section.
// Writes made through tx are staged and applied only if fn succeeds.
func (s *Store) WithinCategory(ctx context.Context, categoryID int32, fn func(ctx context.Context, tx repository.BookingTx) error) error {
	release, err := s.acquire(ctx, categoryID)
	if err != nil {
		return err
	}
	defer release()

	tx := &memTx{s: s, staged: make(map[int32]domain.Booking)}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return domain.NewUnavailableError("reservation timed out", err)
	}
	tx.commit()
	return nil
}

type memTx struct {
	s        *Store
	staged   map[int32]domain.Booking
	order    []int32
	redeemed []int32
}

func (t *memTx) CountUsable(ctx context.Context, categoryID int32, locationID *int32) (int32, error) {
	return t.s.countUsable(categoryID, locationID), nil
}

func (t *memTx) CountOverlapping(ctx context.Context, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) (int32, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var n int32
	seen := make(map[int32]bool, len(t.staged))
	for id, b := range t.staged {
		seen[id] = true
		if overlapCounts(&b, categoryID, locationID, pickup, ret, now, excludeID) {
			n++
		}
	}
	for id, b := range t.s.bookings {
		if seen[id] {
			continue
		}
		if overlapCounts(&b, categoryID, locationID, pickup, ret, now, excludeID) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, id int32) (*domain.Booking, error) {
	if b, ok := t.staged[id]; ok {
		return copyBooking(b), nil
	}
	return t.s.getBooking(id)
}

func (t *memTx) CreateBooking(ctx context.Context, b *domain.Booking) error {
	t.s.mu.Lock()
	for _, existing := range t.s.bookings {
		if existing.Reference == b.Reference {
			t.s.mu.Unlock()
			return domain.NewValidationError("duplicate booking reference " + b.Reference)
		}
	}
	b.ID = t.s.id(0)
	t.s.mu.Unlock()

	now := time.Now()
	b.CreatedOn = now
	b.UpdatedOn = now
	t.stage(*copyBooking(*b))
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	if _, ok := t.staged[b.ID]; !ok {
		if _, err := t.s.getBooking(b.ID); err != nil {
			return err
		}
	}
	b.UpdatedOn = time.Now()
	t.stage(*copyBooking(*b))
	return nil
}

func (t *memTx) RedeemDiscount(ctx context.Context, discountID int32) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	d, ok := t.s.discounts[discountID]
	if !ok {
		return false, domain.NewNotFoundError("discount code", discountID)
	}
	if d.UsageCap > 0 && d.UsageCount >= d.UsageCap {
		return false, nil
	}
	d.UsageCount++
	t.s.discounts[discountID] = d
	t.redeemed = append(t.redeemed, discountID)
	return true, nil
}

func (t *memTx) stage(b domain.Booking) {
	if _, ok := t.staged[b.ID]; !ok {
		t.order = append(t.order, b.ID)
	}
	t.staged[b.ID] = b
}

// commit applies staged bookings. The paid flag is owned by SetPaid, which
// does not wait for the category, so the live value wins over the staged copy.
func (t *memTx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, id := range t.order {
		b := t.staged[id]
		if live, ok := t.s.bookings[id]; ok {
			b.Paid = live.Paid
		}
		t.s.bookings[id] = b
	}
}

// rollback returns the uses consumed by this transaction.
func (t *memTx) rollback() {
	if len(t.redeemed) == 0 {
		return
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, id := range t.redeemed {
		d := t.s.discounts[id]
		d.UsageCount--
		t.s.discounts[id] = d
	}
}

func overlapCounts(b *domain.Booking, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) bool {
	if b.CategoryID != categoryID || b.ID == excludeID {
		return false
	}
	if locationID != nil && b.PickupLocationID != *locationID {
		return false
	}
	return b.HoldsInventoryAt(now) && b.Overlaps(pickup, ret)
}

func (s *Store) countUsable(categoryID int32, locationID *int32) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int32
	for _, u := range s.units {
		if u.CategoryID != categoryID || !u.State.CountsTowardCapacity() {
			continue
		}
		if locationID != nil && (u.LocationID == nil || *u.LocationID != *locationID) {
			continue
		}
		n++
	}
	return n
}

func (s *Store) getBooking(id int32) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return copyBooking(b), nil
}

func copyBooking(b domain.Booking) *domain.Booking {
	if b.Extras != nil {
		b.Extras = append([]domain.BookingExtra(nil), b.Extras...)
	}
	return &b
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) GetByID(ctx context.Context, id int32) (*domain.VehicleCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, domain.NewNotFoundError("vehicle category", id)
	}
	return &c, nil
}

func (r categoryRepo) List(ctx context.Context, companyID int32) ([]domain.VehicleCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.VehicleCategory
	for _, c := range r.s.categories {
		if c.CompanyID == companyID && c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type inventoryRepo struct{ s *Store }

func (r inventoryRepo) CountUsable(ctx context.Context, categoryID int32, locationID *int32) (int32, error) {
	return r.s.countUsable(categoryID, locationID), nil
}

func (r inventoryRepo) ListByCategory(ctx context.Context, categoryID int32) ([]domain.InventoryUnit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.InventoryUnit
	for _, u := range r.s.units {
		if u.CategoryID == categoryID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, domain.NewNotFoundError("customer", id)
	}
	return &c, nil
}

type rateRepo struct{ s *Store }

func (r rateRepo) ListForCategory(ctx context.Context, categoryID int32, from, until time.Time) ([]domain.RateRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.RateRule
	for _, rule := range r.s.rates {
		if rule.CategoryID != categoryID || rule.ValidFrom.After(until) || rule.ValidUntil.Before(from) {
			continue
		}
		rule.Tiers = append([]domain.RateTier(nil), rule.Tiers...)
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type extraRepo struct{ s *Store }

func (r extraRepo) GetByIDs(ctx context.Context, ids []int32) ([]domain.Extra, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Extra
	for _, id := range ids {
		if e, ok := r.s.extras[id]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r extraRepo) ListVisible(ctx context.Context, companyID int32) ([]domain.Extra, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Extra
	for _, e := range r.s.extras {
		if e.CompanyID == companyID && e.Active && e.Visible {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type discountRepo struct{ s *Store }

func (r discountRepo) GetByCode(ctx context.Context, companyID int32, code string) (*domain.DiscountCode, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.discounts {
		if d.CompanyID == companyID && strings.EqualFold(d.Code, strings.TrimSpace(code)) {
			d.CategoryIDs = append([]int32(nil), d.CategoryIDs...)
			return &d, nil
		}
	}
	return nil, domain.NewNotFoundError("discount code", code)
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	return r.s.getBooking(id)
}

func (r bookingRepo) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bookings {
		if b.Reference == reference {
			return copyBooking(b), nil
		}
	}
	return nil, domain.NewNotFoundError("booking", reference)
}

func (r bookingRepo) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, int32, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	r.s.mu.RLock()
	var matched []domain.Booking
	for _, b := range r.s.bookings {
		if f.CompanyID != 0 && b.CompanyID != f.CompanyID {
			continue
		}
		if f.CustomerID != 0 && b.CustomerID != f.CustomerID {
			continue
		}
		if f.CategoryID != 0 && b.CategoryID != f.CategoryID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		matched = append(matched, *copyBooking(b))
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedOn.Equal(matched[j].CreatedOn) {
			return matched[i].CreatedOn.After(matched[j].CreatedOn)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int32(len(matched))
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r bookingRepo) CountOverlapping(ctx context.Context, categoryID int32, locationID *int32, pickup, ret, now time.Time, excludeID int32) (int32, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int32
	for _, b := range r.s.bookings {
		if overlapCounts(&b, categoryID, locationID, pickup, ret, now, excludeID) {
			n++
		}
	}
	return n, nil
}

// ExpireHolds takes each affected category's critical section so a sweep
// never races a confirmation of the same booking.
func (r bookingRepo) ExpireHolds(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	r.s.mu.RLock()
	categories := make(map[int32]bool)
	for _, b := range r.s.bookings {
		if b.HoldExpired(now) {
			categories[b.CategoryID] = true
		}
	}
	r.s.mu.RUnlock()

	ids := make([]int32, 0, len(categories))
	for id := range categories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var expired []domain.Booking
	for _, categoryID := range ids {
		release, err := r.s.acquire(ctx, categoryID)
		if err != nil {
			return expired, err
		}
		r.s.mu.Lock()
		for id, b := range r.s.bookings {
			if b.CategoryID != categoryID || !b.HoldExpired(now) {
				continue
			}
			b.Status = domain.BookingStatusCancelled
			b.CancelReason = "hold expired"
			b.UpdatedOn = now
			r.s.bookings[id] = b
			expired = append(expired, *copyBooking(b))
		}
		r.s.mu.Unlock()
		release()
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	return expired, nil
}

func (r bookingRepo) SetPaid(ctx context.Context, id int32, paid bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return domain.NewNotFoundError("booking", id)
	}
	b.Paid = paid
	b.UpdatedOn = time.Now()
	r.s.bookings[id] = b
	return nil
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) GetSummary(ctx context.Context, f domain.LedgerFilter) (*domain.LedgerSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sum := &domain.LedgerSummary{
		From:        f.From,
		To:          f.To,
		StatusCount: make(map[domain.BookingStatus]int32),
		ByCategory:  []domain.CategoryRevenue{},
	}
	byCategory := make(map[int32]*domain.CategoryRevenue)
	for _, b := range r.s.bookings {
		if f.CompanyID != 0 && b.CompanyID != f.CompanyID {
			continue
		}
		if f.CategoryID != 0 && b.CategoryID != f.CategoryID {
			continue
		}
		if b.PickupAt.Before(f.From) || !b.PickupAt.Before(f.To) {
			continue
		}
		sum.StatusCount[b.Status]++
		if !b.Status.CountsAsRevenue() {
			continue
		}
		sum.GrossRevenueCents += b.TotalCents
		sum.DiscountsCents += b.DiscountAmountCents
		if b.Paid {
			sum.PaidCents += b.TotalCents
			sum.PaidBookings++
		} else {
			sum.UnpaidBookings++
		}
		c, ok := byCategory[b.CategoryID]
		if !ok {
			c = &domain.CategoryRevenue{CategoryID: b.CategoryID}
			byCategory[b.CategoryID] = c
		}
		c.Bookings++
		c.RevenueCents += b.TotalCents
	}
	sum.OutstandingCents = sum.GrossRevenueCents - sum.PaidCents
	for _, c := range byCategory {
		sum.ByCategory = append(sum.ByCategory, *c)
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool { return sum.ByCategory[i].CategoryID < sum.ByCategory[j].CategoryID })
	return sum, nil
}
