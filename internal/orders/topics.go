package orders

// All lifecycle events share one topic so that every event for an order
// stays in delivery order on its partition.
const TopicOrderLifecycle = "orders.lifecycle"

// Partition key = order_id.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
