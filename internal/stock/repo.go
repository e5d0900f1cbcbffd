package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo appends to and aggregates the stock_movements table. There is no
// update or delete path, and no locking primitive: a caller that reads
// CurrentStock and later records a movement is exposed to the usual
// check-then-act race and must serialize on its own if it needs more.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Record(ctx context.Context, productID string, quantity int, direction Direction, reason Reason) error {
	m := Movement{ProductID: productID, Direction: direction, Quantity: quantity, Reason: reason}
	if err := m.Validate(); err != nil {
		return err
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO stock_movements(id, product_id, direction, quantity, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), productID, direction, quantity, reason,
	)
	return err
}

// CurrentStock aggregates all movements for the product; no rows means
// zero stock.
func (r *Repo) CurrentStock(ctx context.Context, productID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction='IN' THEN quantity ELSE -quantity END), 0)
		FROM stock_movements WHERE product_id=$1`, productID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CurrentStocks is the batched aggregate for listing use. Products with no
// movements are present in the result with a zero value.
func (r *Repo) CurrentStocks(ctx context.Context, productIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		out[id] = 0
	}
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, SUM(CASE WHEN direction='IN' THEN quantity ELSE -quantity END)
		FROM stock_movements WHERE product_id = ANY($1)
		GROUP BY product_id`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
