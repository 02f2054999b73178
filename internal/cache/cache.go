// Package cache holds short-lived availability results. Cached values are
// advisory; a reservation always re-checks inside the store transaction.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetbook-backend/internal/domain"
)

type AvailabilityCache interface {
	Get(ctx context.Context, q Query) (*domain.Availability, bool)
	Set(ctx context.Context, q Query, a domain.Availability)
	// InvalidateCategory drops every entry of a category after a write.
	InvalidateCategory(ctx context.Context, categoryID int32)
}

// Query identifies one availability lookup.
type Query struct {
	CategoryID int32
	LocationID *int32
	PickupAt   time.Time
	ReturnAt   time.Time
}

func (q Query) suffix() string {
	loc := "any"
	if q.LocationID != nil {
		loc = fmt.Sprintf("%d", *q.LocationID)
	}
	return fmt.Sprintf("%s:%d:%d", loc, q.PickupAt.Unix(), q.ReturnAt.Unix())
}

// Key is the flat cache key for q, also used for request coalescing.
func (q Query) Key() string {
	return fmt.Sprintf("%d:%s", q.CategoryID, q.suffix())
}

type memoryEntry struct {
	value   domain.Availability
	expires time.Time
}

// Memory is a process-local AvailabilityCache.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[int32]map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[int32]map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, q Query) (*domain.Availability, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[q.CategoryID][q.suffix()]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries[q.CategoryID], q.suffix())
		return nil, false
	}
	v := e.value
	return &v, true
}

func (m *Memory) Set(ctx context.Context, q Query, a domain.Availability) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.entries[q.CategoryID]
	if !ok {
		byKey = make(map[string]memoryEntry)
		m.entries[q.CategoryID] = byKey
	}
	byKey[q.suffix()] = memoryEntry{value: a, expires: m.now().Add(m.ttl)}
}

func (m *Memory) InvalidateCategory(ctx context.Context, categoryID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, categoryID)
}
