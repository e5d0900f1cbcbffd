package orders

import (
	"context"
	"fmt"
)

// Queries is the read-only side: list and fetch order projections with
// ownership enforcement. Totals come back recomputed from current catalog
// prices, not frozen at initiation.
type Queries struct {
	store Store
}

func NewQueries(store Store) *Queries {
	return &Queries{store: store}
}

func (q *Queries) ListByUser(ctx context.Context, userID string) ([]OrderView, error) {
	return q.store.ListOrdersByUser(ctx, userID)
}

func (q *Queries) ListByUserAndStatus(ctx context.Context, userID string, status Status) ([]OrderView, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return q.store.ListOrdersByUserAndStatus(ctx, userID, status)
}

// GetForUser returns ErrNotFound when the order is absent and
// ErrUnauthorized when it exists but belongs to another user.
func (q *Queries) GetForUser(ctx context.Context, userID, orderID string) (*OrderView, error) {
	view, err := q.store.GetOrderView(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if view.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}
	return view, nil
}
