package payment

// Webhook event kinds the processor dispatches. Anything else is
// acknowledged and ignored so new provider event types never break us.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// MetadataOrderID is the intent metadata key carrying our order id.
const MetadataOrderID = "order_id"

type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object IntentObject `json:"object"`
}

type IntentObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// OrderID extracts the order reference from the intent metadata; empty
// when the provider sent the event without it.
func (e Event) OrderID() string {
	return e.Data.Object.Metadata[MetadataOrderID]
}
