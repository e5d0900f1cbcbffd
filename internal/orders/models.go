package orders

import "time"

type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order is the durable audit trail of a placement: rows are created in
// PENDING and mutated only through the lifecycle transitions, never deleted.
// PaymentIntentID is empty until the first intent is created.
type Order struct {
	ID                string
	UserID            string
	ShippingAddressID string
	PaymentIntentID   string
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem is frozen at initiation: product and quantity are copied from
// the cart item and never change afterwards. Prices are not stored; totals
// are recomputed from the live catalog price at query time.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
}

// CartItem is the read side of the cart collaborator. UserID is the owner
// of the enclosing cart, joined in for ownership checks.
type CartItem struct {
	ID        string
	CartID    string
	UserID    string
	ProductID string
	Quantity  int
}

type ShippingInput struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type OrderItemView struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int    `json:"price_cents"`
}

// OrderView is the read projection returned to callers. TotalCents is
// recomputed from current catalog prices on every read.
type OrderView struct {
	ID                string          `json:"order_id"`
	UserID            string          `json:"-"`
	Status            Status          `json:"status"`
	Items             []OrderItemView `json:"items"`
	TotalCents        int             `json:"total_cents"`
	ShippingAddressID string          `json:"shipping_address_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Placement is returned by order initiation and payment retry: the order
// projection plus the provider token the payment UI confirms with.
type Placement struct {
	Order        OrderView `json:"order"`
	ClientSecret string    `json:"client_secret"`
}
