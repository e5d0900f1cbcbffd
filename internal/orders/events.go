package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderPaid          = "OrderPaid"
	EventOrderPaymentFailed = "OrderPaymentFailed"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderRefunded      = "OrderRefunded"
)

// Envelope wraps every lifecycle event published to the stream.
type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- per-event payloads ----

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID           string    `json:"order_id"`
	UserID            string    `json:"user_id"`
	Items             []ItemQty `json:"items"`
	TotalCents        int       `json:"total_cents"`
	ShippingAddressID string    `json:"shipping_address_id"`
}

// OrderStatusPayload carries every transition event after creation.
type OrderStatusPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Status  Status `json:"status"`
}
