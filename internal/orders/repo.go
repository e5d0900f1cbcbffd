package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed Store. Transition transactions lock the order row
// (SELECT ... FOR UPDATE) before re-checking the transition table, so
// duplicate webhook deliveries and cancel/confirm races serialize on the
// row instead of both observing the pre-transition status.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateOrderTx(ctx context.Context, userID, shippingAddressID string, items []OrderItem) (string, int, error) {
	if len(items) == 0 {
		return "", 0, ErrEmptyCart
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	productIDs := make([]string, 0, len(items))
	for _, it := range items {
		productIDs = append(productIDs, it.ProductID)
	}
	rows, err := tx.Query(ctx, `SELECT id, price_cents FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return "", 0, err
	}
	prices := map[string]int{}
	for rows.Next() {
		var id string
		var price int
		if err := rows.Scan(&id, &price); err != nil {
			rows.Close()
			return "", 0, err
		}
		prices[id] = price
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", 0, err
	}

	total := 0
	for _, it := range items {
		price, ok := prices[it.ProductID]
		if !ok {
			return "", 0, fmt.Errorf("%w: product %s", ErrNotFound, it.ProductID)
		}
		if it.Quantity <= 0 {
			return "", 0, fmt.Errorf("invalid quantity for product %s", it.ProductID)
		}
		total += price * it.Quantity
	}

	orderID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, shipping_address_id, status)
		VALUES ($1, $2, $3, $4)
	`, orderID, userID, shippingAddressID, StatusPending)
	if err != nil {
		return "", 0, err
	}

	for _, it := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, quantity)
			VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), orderID, it.ProductID, it.Quantity,
		)
		if err != nil {
			return "", 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", 0, err
	}
	return orderID, total, nil
}

func (r *Repo) SetPaymentIntent(ctx context.Context, orderID, intentID string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET payment_intent_id=$2, updated_at=now() WHERE id=$1`, orderID, intentID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, shipping_address_id, COALESCE(payment_intent_id, ''), status, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.UserID, &o.ShippingAddressID, &o.PaymentIntentID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ConfirmPaymentTx: lock -> idempotency check -> PAID + SALE movements +
// cart cleanup, all or nothing.
func (r *Repo) ConfirmPaymentTx(ctx context.Context, orderID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, userID, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return false, err
	}
	if status == StatusPaid {
		return true, nil // duplicate delivery, rollback commits nothing
	}
	if !CanTransition(status, StatusPaid) {
		return false, fmt.Errorf("%w: %s -> %s", ErrIllegalState, status, StatusPaid)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, StatusPaid); err != nil {
		return false, err
	}

	items, err := orderItems(ctx, tx, orderID)
	if err != nil {
		return false, err
	}
	productIDs := make([]string, 0, len(items))
	for _, it := range items {
		if err := insertMovement(ctx, tx, it.ProductID, it.Quantity, "OUT", "SALE"); err != nil {
			return false, err
		}
		productIDs = append(productIDs, it.ProductID)
	}

	// The point where cart and stock both become consistent with the paid
	// order: the user's cart loses exactly the purchased items.
	_, err = tx.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = ANY($2)
	`, userID, productIDs)
	if err != nil {
		return false, err
	}

	return false, tx.Commit(ctx)
}

func (r *Repo) MarkPaymentFailedTx(ctx context.Context, orderID string) error {
	return r.transition(ctx, orderID, StatusPaymentFailed, nil)
}

func (r *Repo) RetryPaymentTx(ctx context.Context, orderID, intentID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, _, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if status != StatusPending && !CanTransition(status, StatusPending) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalState, status, StatusPending)
	}
	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, payment_intent_id=$3, updated_at=now() WHERE id=$1`,
		orderID, StatusPending, intentID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) CancelTx(ctx context.Context, orderID string) error {
	return r.transition(ctx, orderID, StatusCancelled, nil)
}

func (r *Repo) RefundTx(ctx context.Context, orderID string) error {
	return r.transition(ctx, orderID, StatusRefunded, func(ctx context.Context, tx pgx.Tx) error {
		items, err := orderItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := insertMovement(ctx, tx, it.ProductID, it.Quantity, "IN", "RETURN"); err != nil {
				return err
			}
		}
		return nil
	})
}

// transition runs one row-locked status change plus optional extra writes
// in a single transaction.
func (r *Repo) transition(ctx context.Context, orderID string, to Status, extra func(context.Context, pgx.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status, _, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalState, status, to)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, to); err != nil {
		return err
	}
	if extra != nil {
		if err := extra(ctx, tx); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (Status, string, error) {
	var status Status
	var userID string
	err := tx.QueryRow(ctx, `SELECT status, user_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&status, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return "", "", err
	}
	return status, userID, nil
}

func orderItems(ctx context.Context, tx pgx.Tx, orderID string) ([]OrderItem, error) {
	rows, err := tx.Query(ctx, `SELECT id, order_id, product_id, quantity FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func insertMovement(ctx context.Context, tx pgx.Tx, productID string, qty int, direction, reason string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements(id, product_id, direction, quantity, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), productID, direction, qty, reason,
	)
	return err
}
