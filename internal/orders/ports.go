package orders

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
)

// Store is the persistence port for orders. The *Tx methods are single
// transactions: they lock the order row, re-check the transition table
// under the lock and either commit every side effect or none of them.
type Store interface {
	// CreateOrderTx inserts the PENDING order plus its frozen items and
	// returns the order id and the total computed from current catalog
	// prices. A missing product fails with ErrNotFound.
	CreateOrderTx(ctx context.Context, userID, shippingAddressID string, items []OrderItem) (orderID string, totalCents int, err error)

	SetPaymentIntent(ctx context.Context, orderID, intentID string) error

	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetOrderView(ctx context.Context, orderID string) (*OrderView, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]OrderView, error)
	ListOrdersByUserAndStatus(ctx context.Context, userID string, status Status) ([]OrderView, error)

	// ConfirmPaymentTx moves the order to PAID, appends one OUT/SALE stock
	// movement per item and deletes the matching cart items of the order's
	// user. Returns already=true (and does nothing) when the order is
	// PAID, which is what makes duplicate webhook deliveries harmless.
	ConfirmPaymentTx(ctx context.Context, orderID string) (already bool, err error)

	MarkPaymentFailedTx(ctx context.Context, orderID string) error

	// RetryPaymentTx stores a fresh intent handle and resets the status
	// to PENDING.
	RetryPaymentTx(ctx context.Context, orderID, intentID string) error

	// CancelTx moves a PENDING or PAYMENT_FAILED order to CANCELLED.
	// No stock movement is written: nothing was consumed.
	CancelTx(ctx context.Context, orderID string) error

	// RefundTx moves a PAID order to REFUNDED and appends one IN/RETURN
	// stock movement per item with the original ordered quantity.
	RefundTx(ctx context.Context, orderID string) error
}

// CartReader is the read side of the cart snapshot collaborator. Deletion
// of cart items happens inside ConfirmPaymentTx so that cart and stock
// become consistent with the paid order in one transaction.
type CartReader interface {
	FindItems(ctx context.Context, itemIDs []string) ([]CartItem, error)
}

// ShippingStore persists an immutable shipping-address snapshot per order.
type ShippingStore interface {
	CreateSnapshot(ctx context.Context, userID string, in ShippingInput) (string, error)
}

// StockReader exposes the ledger aggregate for the read-only sufficiency
// check at initiation. It is a plain read: stock is consumed only at
// payment confirmation, so two concurrent placements can both pass.
type StockReader interface {
	CurrentStocks(ctx context.Context, productIDs []string) (map[string]int, error)
}

// Intent is the provider-issued handle for an in-progress charge attempt.
// ClientSecret is the opaque token the caller's payment UI confirms with.
type Intent struct {
	ID           string
	ClientSecret string
}

// PaymentGateway is the external payment provider, opaque beyond these two
// operations. Calls are network I/O and are kept outside order-mutating
// transactions.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, orderID string, amountCents int) (Intent, error)
	Refund(ctx context.Context, intentID string) error
}

// EventSink is where committed lifecycle transitions are announced.
// *kafka.Producer satisfies it; publishing is fire-and-forget and never
// affects the outcome of the transition itself.
type EventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}
