package service

import (
	"context"
	"time"

	"fleetbook-backend/internal/cache"
	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"
	"fleetbook-backend/internal/repository"

	"golang.org/x/sync/singleflight"
)

type availabilityService struct {
	store repository.Store
	cache cache.AvailabilityCache
	group singleflight.Group
	opts  Options
}

// NewAvailabilityService builds the resolver. c may be nil to always read
// through to the store.
func NewAvailabilityService(store repository.Store, c cache.AvailabilityCache, opts Options) AvailabilityService {
	return &availabilityService{
		store: store,
		cache: c,
		opts:  opts.withDefaults(),
	}
}

func (s *availabilityService) Resolve(ctx context.Context, categoryID int32, pickup, ret time.Time, locationID *int32) (*domain.Availability, error) {
	logger.EnterMethod("availabilityService.Resolve", "categoryID", categoryID, "pickup", pickup, "return", ret)

	now := s.opts.Now()
	if err := s.opts.checkPeriod(pickup, ret, now); err != nil {
		logger.ExitMethodWithError("availabilityService.Resolve", err)
		return nil, err
	}

	q := cache.Query{CategoryID: categoryID, LocationID: locationID, PickupAt: pickup, ReturnAt: ret}
	if s.cache != nil {
		if a, ok := s.cache.Get(ctx, q); ok {
			logger.ExitMethod("availabilityService.Resolve", "cached", true, "available", a.AvailableCount)
			return a, nil
		}
	}

	// Identical concurrent searches share one store round trip. The shared
	// call must not die with whichever caller happened to start it.
	v, err, _ := s.group.Do(q.Key(), func() (any, error) {
		sctx, cancel := s.opts.storeContext(context.WithoutCancel(ctx))
		defer cancel()
		return s.resolve(sctx, q, now)
	})
	if err != nil {
		logger.ExitMethodWithError("availabilityService.Resolve", err, "categoryID", categoryID)
		return nil, err
	}
	a := v.(domain.Availability)
	if s.cache != nil {
		s.cache.Set(ctx, q, a)
	}

	logger.ExitMethod("availabilityService.Resolve", "available", a.AvailableCount, "capacity", a.Capacity)
	return &a, nil
}

func (s *availabilityService) resolve(ctx context.Context, q cache.Query, now time.Time) (domain.Availability, error) {
	if _, err := loadCategory(ctx, s.store.Categories(), q.CategoryID); err != nil {
		return domain.Availability{}, err
	}
	capacity, err := s.store.Inventory().CountUsable(ctx, q.CategoryID, q.LocationID)
	if err != nil {
		return domain.Availability{}, err
	}
	overlapping, err := s.store.Bookings().CountOverlapping(ctx, q.CategoryID, q.LocationID, q.PickupAt, q.ReturnAt, now, 0)
	if err != nil {
		return domain.Availability{}, err
	}
	return newAvailability(q, capacity, overlapping), nil
}

func newAvailability(q cache.Query, capacity, overlapping int32) domain.Availability {
	free := capacity - overlapping
	if free < 0 {
		free = 0
	}
	return domain.Availability{
		CategoryID:     q.CategoryID,
		LocationID:     q.LocationID,
		PickupAt:       q.PickupAt,
		ReturnAt:       q.ReturnAt,
		Capacity:       capacity,
		Overlapping:    overlapping,
		AvailableCount: free,
		IsAvailable:    free > 0,
	}
}
