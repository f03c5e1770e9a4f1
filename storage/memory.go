package storage

import (
	"context"
	"slices"
	"sync"

	"rent-estimator/models"
)

// MemoryStore keeps listings in process. It backs tests and deployments
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[int64]*models.Listing
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[int64]*models.Listing)}
}

// Write upserts listings by id.
func (m *MemoryStore) Write(_ context.Context, listings []*models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range listings {
		cp := *l
		m.listings[l.ID] = &cp
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.listings)
	return nil
}

// FindComparables scans every stored listing.
func (m *MemoryStore) FindComparables(ctx context.Context, q models.ComparableQuery) ([]*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := make([]*models.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		cp := *l
		all = append(all, &cp)
	}
	m.mu.RUnlock()
	return rankComparables(all, q), nil
}

// Len is the number of stored listings.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listings)
}

func (m *MemoryStore) Close() error { return nil }

// rankComparables keeps the listings matching q, orders them by distance from
// the target price then by id, and caps the result at q.Limit.
func rankComparables(candidates []*models.Listing, q models.ComparableQuery) []*models.Listing {
	out := make([]*models.Listing, 0, len(candidates))
	for _, l := range candidates {
		if q.Matches(l) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b *models.Listing) int {
		if c := q.Distance(a).Cmp(q.Distance(b)); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
