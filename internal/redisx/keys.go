package redisx

import "time"

const (
	// Order status cache: order_status:{order_id} ->
	// {"order_id":"...","user_id":"...","status":"..."}
	// Maintained by the projector, read first by the status endpoint.
	KeyOrderStatus = "order_status:%s"

	// Event-processing dedup: dedup:{consumer}:{event_id}. A fast path
	// only; the row-locked status check stays the source of truth.
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
