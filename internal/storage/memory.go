package storage

import (
	"context"
	"sync"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu   sync.RWMutex
	rows shipping.Table

	// Replaces counts ReplaceShippingCosts calls.
	Replaces int
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) ReplaceShippingCosts(ctx context.Context, rows shipping.Table) error {
	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.Desi]; dup {
			return &DuplicateDesiError{Desi: r.Desi}
		}
		seen[r.Desi] = struct{}{}
	}

	cp := make(shipping.Table, len(rows))
	copy(cp, rows)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = cp
	m.Replaces++
	return nil
}

func (m *MemoryStorage) ListShippingCosts(ctx context.Context) (shipping.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(shipping.Table, len(m.rows))
	copy(out, m.rows)
	sortByDesi(out)
	return out, nil
}

func (m *MemoryStorage) GetShippingCost(ctx context.Context, desi int) (*shipping.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rows {
		if r.Desi == desi {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	// In-memory single instance always acquires lock
	return true, nil
}

func (m *MemoryStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}
