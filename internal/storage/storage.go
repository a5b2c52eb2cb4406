package storage

import (
	"context"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

// Storage abstracts persistence of the shipping_costs table.
type Storage interface {
	// ReplaceShippingCosts drops and recreates shipping_costs and inserts
	// rows in the order received, in a single transaction.
	ReplaceShippingCosts(ctx context.Context, rows shipping.Table) error

	// ListShippingCosts returns every row ordered by desi. A missing table
	// yields an empty result.
	ListShippingCosts(ctx context.Context) (shipping.Table, error)

	// GetShippingCost returns the row for desi, or nil if there is none.
	GetShippingCost(ctx context.Context, desi int) (*shipping.Row, error)

	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}

// Locker is implemented by backends that can coordinate scheduled runs
// across processes.
type Locker interface {
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)
}
