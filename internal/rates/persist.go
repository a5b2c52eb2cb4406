package rates

import (
	"context"
	"fmt"

	"github.com/bher20/shipratemanager/internal/snapshot"
	"github.com/bher20/shipratemanager/internal/storage"
	"github.com/bher20/shipratemanager/pkg/shipping"
)

// Persister writes the table to the relational store and then mirrors it
// into the JSON snapshot. The two writes are not atomic together.
type Persister struct {
	store        storage.Storage
	snapshotPath string
}

func NewPersister(store storage.Storage, snapshotPath string) *Persister {
	return &Persister{store: store, snapshotPath: snapshotPath}
}

func (p *Persister) Save(ctx context.Context, t shipping.Table, lastChanged string) error {
	if err := p.store.ReplaceShippingCosts(ctx, t); err != nil {
		return fmt.Errorf("replace shipping costs: %w", err)
	}
	if err := snapshot.Write(p.snapshotPath, snapshot.FromTable(t, lastChanged)); err != nil {
		return err
	}
	return nil
}
