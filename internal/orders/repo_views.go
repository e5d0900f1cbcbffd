package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Read-side half of Repo. Totals join the live catalog price per product,
// so a catalog price change shows up in every later read of the order.

func (r *Repo) GetOrderView(ctx context.Context, orderID string) (*OrderView, error) {
	var v OrderView
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, shipping_address_id, status, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&v.ID, &v.UserID, &v.ShippingAddressID, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	itemsByOrder, err := r.itemViews(ctx, []string{orderID})
	if err != nil {
		return nil, err
	}
	v.Items = itemsByOrder[orderID]
	for _, it := range v.Items {
		v.TotalCents += it.PriceCents * it.Quantity
	}
	return &v, nil
}

func (r *Repo) ListOrdersByUser(ctx context.Context, userID string) ([]OrderView, error) {
	return r.listOrders(ctx, `
		SELECT id, user_id, shipping_address_id, status, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) ListOrdersByUserAndStatus(ctx context.Context, userID string, status Status) ([]OrderView, error) {
	return r.listOrders(ctx, `
		SELECT id, user_id, shipping_address_id, status, created_at, updated_at
		FROM orders WHERE user_id=$1 AND status=$2 ORDER BY created_at DESC`, userID, status)
}

func (r *Repo) listOrders(ctx context.Context, sql string, args ...any) ([]OrderView, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []OrderView
	var ids []string
	for rows.Next() {
		var v OrderView
		if err := rows.Scan(&v.ID, &v.UserID, &v.ShippingAddressID, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		views = append(views, v)
		ids = append(ids, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}

	itemsByOrder, err := r.itemViews(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].Items = itemsByOrder[views[i].ID]
		for _, it := range views[i].Items {
			views[i].TotalCents += it.PriceCents * it.Quantity
		}
	}
	return views, nil
}

func (r *Repo) itemViews(ctx context.Context, orderIDs []string) (map[string][]OrderItemView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, p.price_cents
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]OrderItemView{}
	for rows.Next() {
		var orderID string
		var it OrderItemView
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.PriceCents); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}
