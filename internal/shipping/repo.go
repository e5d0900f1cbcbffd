// Package shipping persists immutable shipping-address snapshots. An
// order references the snapshot it was placed with; later edits to a
// user's address book never touch it.
package shipping

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopmesh/orderflow/internal/orders"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateSnapshot(ctx context.Context, userID string, in orders.ShippingInput) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO shipping_addresses(id, user_id, recipient, line1, line2, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, userID, in.Recipient, in.Line1, in.Line2, in.City, in.PostalCode, in.Country,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}
