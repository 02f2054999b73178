package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fleetbook-backend/internal/cache"
	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/lock"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/repository"

	"github.com/google/uuid"
)

const maxPageSize = 100

type bookingService struct {
	store    repository.Store
	pricing  PricingService
	locker   lock.Locker
	cache    cache.AvailabilityCache
	notifier Notifier
	opts     Options
}

// NewBookingService builds the lifecycle manager. locker, c and notifier are
// optional and may be nil.
func NewBookingService(
	store repository.Store,
	pricing PricingService,
	locker lock.Locker,
	c cache.AvailabilityCache,
	notifier Notifier,
	opts Options,
) BookingService {
	return &bookingService{
		store:    store,
		pricing:  pricing,
		locker:   locker,
		cache:    c,
		notifier: notifier,
		opts:     opts.withDefaults(),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor domain.Actor, req domain.BookingRequest) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CreateBooking", "actor", actor.ID, "categoryID", req.CategoryID, "customerID", req.CustomerID)
	b, err := s.createBooking(ctx, actor, req)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "categoryID", req.CategoryID)
		return nil, err
	}
	logger.ExitMethod("bookingService.CreateBooking", "bookingID", b.ID, "reference", b.Reference, "total", b.TotalCents)
	return b, nil
}

func (s *bookingService) createBooking(ctx context.Context, actor domain.Actor, req domain.BookingRequest) (*domain.Booking, error) {
	if actor.Role == domain.RoleCustomer {
		if req.CustomerID == 0 {
			req.CustomerID = actor.CustomerID
		}
		if req.CustomerID != actor.CustomerID {
			return nil, domain.NewForbiddenError("customers can only book for themselves")
		}
	}
	if req.CustomerID <= 0 {
		return nil, domain.NewValidationError("customer id is required")
	}
	if req.PickupLocationID <= 0 {
		return nil, domain.NewValidationError("pickup location is required")
	}
	if req.ReturnLocationID == 0 {
		req.ReturnLocationID = req.PickupLocationID
	}
	now := s.opts.Now()
	if err := s.opts.checkPeriod(req.PickupAt, req.ReturnAt, now); err != nil {
		return nil, err
	}

	sctx, cancel := s.opts.storeContext(ctx)
	category, err := loadCategory(sctx, s.store.Categories(), req.CategoryID)
	if err != nil {
		cancel()
		return nil, err
	}
	customer, err := s.store.Customers().GetByID(sctx, req.CustomerID)
	cancel()
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() && actor.CompanyID != 0 && actor.CompanyID != category.CompanyID {
		return nil, domain.NewForbiddenError("category belongs to another operator")
	}
	if customer.Blocked {
		return nil, domain.NewForbiddenError(fmt.Sprintf("customer %d is blocked", customer.ID))
	}
	if customer.CompanyID != 0 && customer.CompanyID != category.CompanyID {
		return nil, domain.NewValidationError("customer is not registered with this operator")
	}

	pb, err := s.pricing.ComputePrice(ctx, domain.QuoteRequest{
		CategoryID:   req.CategoryID,
		PickupAt:     req.PickupAt,
		ReturnAt:     req.ReturnAt,
		Extras:       req.Extras,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		return nil, err
	}

	hold := now.Add(s.opts.HoldPeriod)
	b := &domain.Booking{
		Reference:        newReference(),
		CompanyID:        category.CompanyID,
		CustomerID:       customer.ID,
		CategoryID:       category.ID,
		PickupLocationID: req.PickupLocationID,
		ReturnLocationID: req.ReturnLocationID,
		PickupAt:         req.PickupAt,
		ReturnAt:         req.ReturnAt,
		Status:           domain.BookingStatusPending,
		HoldExpiresAt:    &hold,
	}
	applyPrice(b, pb)

	err = s.reserve(ctx, b.CategoryID, func(ctx context.Context, tx repository.BookingTx) error {
		free, err := freeCapacity(ctx, tx, b.CategoryID, b.PickupAt, b.ReturnAt, now, 0)
		if err != nil {
			return err
		}
		if free <= 0 {
			return domain.NewAvailabilityConflictError(b.CategoryID)
		}
		return tx.CreateBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	logger.StateChange(ctx, b.Reference, "", string(b.Status), "booking_id", b.ID, "hold_expires_at", hold)
	return b, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor domain.Actor, id int32) (*domain.Booking, error) {
	return s.load(ctx, actor, id)
}

func (s *bookingService) GetBookingByReference(ctx context.Context, actor domain.Actor, reference string) (*domain.Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.NewValidationError("reference is required")
	}
	sctx, cancel := s.opts.storeContext(ctx)
	defer cancel()
	b, err := s.store.Bookings().GetByReference(sctx, reference)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b) {
		return nil, domain.NewForbiddenError("not allowed to access booking " + reference)
	}
	return b, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor domain.Actor, filter domain.BookingFilter) ([]domain.Booking, int32, error) {
	logger.EnterMethod("bookingService.ListBookings", "actor", actor.ID, "status", filter.Status)

	switch {
	case actor.Role == domain.RoleCustomer:
		filter.CustomerID = actor.CustomerID
		filter.CompanyID = 0
	case actor.IsStaff() && actor.CompanyID != 0:
		filter.CompanyID = actor.CompanyID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		err := domain.NewValidationError("unknown booking status " + string(filter.Status))
		logger.ExitMethodWithError("bookingService.ListBookings", err)
		return nil, 0, err
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	sctx, cancel := s.opts.storeContext(ctx)
	defer cancel()
	bookings, total, err := s.store.Bookings().List(sctx, filter)
	if err != nil {
		logger.ExitMethodWithError("bookingService.ListBookings", err)
		return nil, 0, err
	}
	logger.ExitMethod("bookingService.ListBookings", "count", len(bookings), "total", total)
	return bookings, total, nil
}

func (s *bookingService) Transition(ctx context.Context, actor domain.Actor, id int32, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	ctx = logger.WithContext(ctx, "booking_id", id)
	logger.EnterMethod("bookingService.Transition", "actor", actor.ID, "role", actor.Role, "bookingID", id, "to", to)

	current, err := s.load(ctx, actor, id)
	if err != nil {
		logger.ExitMethodWithError("bookingService.Transition", err, "bookingID", id)
		return nil, err
	}

	var (
		result  *domain.Booking
		from    domain.BookingStatus
		changed bool
	)
	err = s.reserve(ctx, current.CategoryID, func(ctx context.Context, tx repository.BookingTx) error {
		changed = false
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = b.Status
		// A repeated confirmation, such as a redelivered payment webhook,
		// succeeds without consuming another discount use.
		if b.Status == domain.BookingStatusConfirmed && to == domain.BookingStatusConfirmed {
			result = b
			return nil
		}

		rule, err := domain.CheckTransition(b.Status, to)
		if err != nil {
			return err
		}
		if !actor.CanTransition(rule) {
			return domain.NewForbiddenError(fmt.Sprintf("%s may not move a booking from %s to %s", actor.Role, b.Status, to))
		}
		override := rule.AdminOverride || !actor.Permitted[rule.Transition]
		reason = strings.TrimSpace(reason)
		if (rule.RequiresReason || override) && reason == "" {
			return domain.NewValidationError("a reason is required for an administrative override")
		}

		now := s.opts.Now()
		switch to {
		case domain.BookingStatusConfirmed:
			if err := s.confirm(ctx, tx, b, now); err != nil {
				return err
			}
		case domain.BookingStatusInProgress:
			if now.Before(b.PickupAt) {
				logger.WarnContext(ctx, "Vehicle handed over before the scheduled pickup", "reference", b.Reference, "pickup_at", b.PickupAt)
			}
		case domain.BookingStatusCancelled:
			b.CancelReason = reason
			if actor.ID != 0 {
				by := actor.ID
				b.CancelledBy = &by
			}
		}
		b.Status = to
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		result = b
		changed = true
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("bookingService.Transition", err, "bookingID", id, "to", to)
		return nil, err
	}

	if changed {
		logger.StateChange(ctx, result.Reference, string(from), string(to), "actor", actor.ID, "role", actor.Role, "reason", reason)
		s.notify(ctx, result)
	}
	logger.ExitMethod("bookingService.Transition", "bookingID", id, "status", result.Status, "changed", changed)
	return result, nil
}

// confirm runs inside the category's critical section. A lapsed hold no
// longer reserves anything, so capacity is checked again before the booking
// is allowed through.
func (s *bookingService) confirm(ctx context.Context, tx repository.BookingTx, b *domain.Booking, now time.Time) error {
	if b.HoldExpired(now) {
		free, err := freeCapacity(ctx, tx, b.CategoryID, b.PickupAt, b.ReturnAt, now, b.ID)
		if err != nil {
			return err
		}
		if free <= 0 {
			return domain.NewAvailabilityConflictError(b.CategoryID)
		}
		logger.InfoContext(ctx, "Confirming booking after its hold lapsed", "reference", b.Reference)
	}
	if b.DiscountCodeID != nil && !b.DiscountRedeemed {
		ok, err := tx.RedeemDiscount(ctx, *b.DiscountCodeID)
		if err != nil {
			return err
		}
		if ok {
			b.DiscountRedeemed = true
		} else {
			logger.WarnContext(ctx, "Discount code hit its usage limit before confirmation, keeping the quoted price",
				"reference", b.Reference, "discount_code_id", *b.DiscountCodeID)
		}
	}
	b.ConfirmedOn = &now
	b.HoldExpiresAt = nil
	return nil
}

func (s *bookingService) ModifyBooking(ctx context.Context, actor domain.Actor, id int32, change domain.BookingChange) (*domain.Booking, error) {
	ctx = logger.WithContext(ctx, "booking_id", id)
	logger.EnterMethod("bookingService.ModifyBooking", "actor", actor.ID, "bookingID", id)
	b, err := s.modifyBooking(ctx, actor, id, change)
	if err != nil {
		logger.ExitMethodWithError("bookingService.ModifyBooking", err, "bookingID", id)
		return nil, err
	}
	logger.ExitMethod("bookingService.ModifyBooking", "bookingID", id, "total", b.TotalCents)
	return b, nil
}

func (s *bookingService) modifyBooking(ctx context.Context, actor domain.Actor, id int32, change domain.BookingChange) (*domain.Booking, error) {
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := modifiable(current.Status); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	pickup, ret := current.PickupAt, current.ReturnAt
	if change.PickupAt != nil {
		pickup = *change.PickupAt
		if pickup.Before(now.Add(-s.opts.PastGrace)) {
			return nil, domain.NewInvalidRangeError("pickup lies in the past")
		}
	}
	if change.ReturnAt != nil {
		ret = *change.ReturnAt
	}
	if !pickup.Before(ret) {
		return nil, domain.NewInvalidRangeError("return must be after pickup")
	}
	returnLocation := current.ReturnLocationID
	if change.ReturnLocationID != nil {
		if *change.ReturnLocationID <= 0 {
			return nil, domain.NewValidationError("return location is invalid")
		}
		returnLocation = *change.ReturnLocationID
	}
	selections := change.Extras
	if !change.ReplaceExtras {
		selections = make([]domain.ExtraSelection, 0, len(current.Extras))
		for _, e := range current.Extras {
			selections = append(selections, domain.ExtraSelection{ExtraID: e.ExtraID, Quantity: e.Quantity})
		}
	}
	var code string
	if current.DiscountCode != nil {
		code = *current.DiscountCode
	}

	pb, err := s.pricing.ComputePrice(ctx, domain.QuoteRequest{
		CategoryID:     current.CategoryID,
		PickupAt:       pickup,
		ReturnAt:       ret,
		Extras:         selections,
		DiscountCode:   code,
		IgnoreUsageCap: current.DiscountRedeemed,
	})
	if err != nil {
		return nil, err
	}

	var result *domain.Booking
	err = s.reserve(ctx, current.CategoryID, func(ctx context.Context, tx repository.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := modifiable(b.Status); err != nil {
			return err
		}
		if b.HoldExpired(now) {
			return domain.NewValidationError("the hold on this booking has expired")
		}
		free, err := freeCapacity(ctx, tx, b.CategoryID, pickup, ret, now, b.ID)
		if err != nil {
			return err
		}
		if free <= 0 {
			return domain.NewAvailabilityConflictError(b.CategoryID)
		}
		b.PickupAt = pickup
		b.ReturnAt = ret
		b.ReturnLocationID = returnLocation
		applyPrice(b, pb)
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bookingService) MarkPaid(ctx context.Context, actor domain.Actor, id int32, paid bool) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.MarkPaid", "actor", actor.ID, "bookingID", id, "paid", paid)
	if !actor.IsStaff() && actor.Role != domain.RoleSystem {
		err := domain.NewForbiddenError("only staff can record payments")
		logger.ExitMethodWithError("bookingService.MarkPaid", err)
		return nil, err
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		logger.ExitMethodWithError("bookingService.MarkPaid", err)
		return nil, err
	}

	sctx, cancel := s.opts.storeContext(ctx)
	defer cancel()
	if err := s.store.Bookings().SetPaid(sctx, id, paid); err != nil {
		logger.ExitMethodWithError("bookingService.MarkPaid", err)
		return nil, err
	}
	b, err := s.store.Bookings().GetByID(sctx, id)
	if err != nil {
		logger.ExitMethodWithError("bookingService.MarkPaid", err)
		return nil, err
	}
	logger.ExitMethod("bookingService.MarkPaid", "bookingID", id, "paid", b.Paid)
	return b, nil
}

func (s *bookingService) ConfirmPayment(ctx context.Context, id int32) (*domain.Booking, error) {
	actor := domain.SystemActor()
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !b.Paid {
		if b, err = s.MarkPaid(ctx, actor, id, true); err != nil {
			return nil, err
		}
	}

	switch b.Status {
	case domain.BookingStatusPending:
		return s.Transition(ctx, actor, id, domain.BookingStatusConfirmed, "")
	case domain.BookingStatusCancelled:
		logger.WarnContext(ctx, "Payment captured for a cancelled booking, refund is left to the payment processor", "reference", b.Reference)
	default:
		logger.InfoContext(ctx, "Payment captured for an already confirmed booking", "reference", b.Reference, "status", b.Status)
	}
	return b, nil
}

func (s *bookingService) ExpireHolds(ctx context.Context) (int, error) {
	logger.EnterMethod("bookingService.ExpireHolds")

	sctx, cancel := s.opts.storeContext(ctx)
	expired, err := s.store.Bookings().ExpireHolds(sctx, s.opts.Now())
	cancel()

	categories := make(map[int32]bool)
	for i := range expired {
		b := &expired[i]
		categories[b.CategoryID] = true
		logger.StateChange(ctx, b.Reference, string(domain.BookingStatusPending), string(domain.BookingStatusCancelled), "reason", b.CancelReason)
		s.notify(ctx, b)
	}
	if s.cache != nil {
		for id := range categories {
			s.cache.InvalidateCategory(ctx, id)
		}
	}

	if err != nil {
		logger.ExitMethodWithError("bookingService.ExpireHolds", err, "expired", len(expired))
		return len(expired), err
	}
	logger.ExitMethod("bookingService.ExpireHolds", "expired", len(expired))
	return len(expired), nil
}

func (s *bookingService) load(ctx context.Context, actor domain.Actor, id int32) (*domain.Booking, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("booking id is required")
	}
	sctx, cancel := s.opts.storeContext(ctx)
	defer cancel()
	b, err := s.store.Bookings().GetByID(sctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b) {
		return nil, domain.NewForbiddenError(fmt.Sprintf("not allowed to access booking %d", id))
	}
	return b, nil
}

// reserve serializes fn against every other reservation of the category and
// drops cached availability once it commits.
func (s *bookingService) reserve(ctx context.Context, categoryID int32, fn func(ctx context.Context, tx repository.BookingTx) error) error {
	ctx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, lock.CategoryKey(categoryID))
		if err != nil {
			return err
		}
		defer release()
	}

	if err := s.store.WithinCategory(ctx, categoryID, fn); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateCategory(context.WithoutCancel(ctx), categoryID)
	}
	return nil
}

func (s *bookingService) notify(ctx context.Context, b *domain.Booking) {
	if s.notifier == nil {
		return
	}
	c, err := s.store.Customers().GetByID(ctx, b.CustomerID)
	if err != nil {
		logger.WarnContext(ctx, "Skipping booking notification, customer lookup failed", "reference", b.Reference, "error", err)
		return
	}
	switch b.Status {
	case domain.BookingStatusConfirmed:
		err = s.notifier.BookingConfirmed(ctx, c, b)
	case domain.BookingStatusCancelled:
		err = s.notifier.BookingCancelled(ctx, c, b)
	default:
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "Booking notification failed", "reference", b.Reference, "status", b.Status, "error", err)
	}
}

func freeCapacity(ctx context.Context, tx repository.BookingTx, categoryID int32, pickup, ret, now time.Time, excludeID int32) (int32, error) {
	capacity, err := tx.CountUsable(ctx, categoryID, nil)
	if err != nil {
		return 0, err
	}
	overlapping, err := tx.CountOverlapping(ctx, categoryID, nil, pickup, ret, now, excludeID)
	if err != nil {
		return 0, err
	}
	return capacity - overlapping, nil
}

func modifiable(status domain.BookingStatus) error {
	if status.IsTerminal() {
		return domain.NewTerminalStateError(status)
	}
	if status != domain.BookingStatusPending && status != domain.BookingStatusConfirmed {
		return domain.NewValidationError(fmt.Sprintf("a booking that is %s can no longer be modified", status))
	}
	return nil
}

// applyPrice copies a price breakdown onto the booking's snapshot fields. A
// code that did not apply is not kept.
func applyPrice(b *domain.Booking, pb *domain.PriceBreakdown) {
	b.DurationDays = pb.DurationDays
	b.DailyRateCents = pb.DailyRateCents
	b.BasePriceCents = pb.BaseCents
	b.Extras = pb.Extras
	b.ExtrasTotalCents = pb.ExtrasTotalCents
	b.DiscountAmountCents = pb.DiscountAmountCents
	b.TotalCents = pb.TotalCents
	b.DiscountCode = nil
	b.DiscountCodeID = pb.DiscountCodeID
	if pb.DiscountCodeID != nil {
		code := pb.DiscountCode
		b.DiscountCode = &code
	}
}

// newReference returns a short customer-facing booking reference.
func newReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "FB-" + id[:10]
}
