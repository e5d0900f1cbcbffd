package orders

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CartRepo is the read side of the cart snapshot collaborator. Items that
// do not resolve are simply absent from the result; the lifecycle treats
// an empty result as ErrEmptyCart.
type CartRepo struct{ DB *pgxpool.Pool }

func (r *CartRepo) FindItems(ctx context.Context, itemIDs []string) ([]CartItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT ci.id, ci.cart_id, c.user_id, ci.product_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = ANY($1)`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.UserID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
