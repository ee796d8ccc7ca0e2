package pipeline

import (
	"context"

	"github.com/couchcryptid/energex-outages-etl/internal/domain"
)

// Stores fans a save out to several stores in order, stopping at the first
// error.
type Stores []Store

// Save saves row to every store in turn.
func (s Stores) Save(ctx context.Context, table string, keys []string, row domain.Row) error {
	for _, store := range s {
		if err := store.Save(ctx, table, keys, row); err != nil {
			return err
		}
	}
	return nil
}
