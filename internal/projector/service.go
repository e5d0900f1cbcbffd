// Package projector maintains the Redis order-status cache from the
// lifecycle event stream, so status polls do not hit the orders table.
package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/shopmesh/orderflow/internal/kafka"
	"github.com/shopmesh/orderflow/internal/orders"
	"github.com/shopmesh/orderflow/internal/redisx"
)

// CachedStatus is what the status endpoint reads back. UserID is kept so
// the endpoint can enforce ownership without a database round trip.
type CachedStatus struct {
	OrderID string        `json:"order_id"`
	UserID  string        `json:"user_id"`
	Status  orders.Status `json:"status"`
}

type Service struct {
	Redis *redis.Client
	Log   *zap.Logger
}

// HandleLifecycleEvent is the consumer handler for the lifecycle topic.
// The stream is at-least-once, so deliveries are deduped by event id; a
// replay after the dedup key expired just rewrites the same cache entry.
func (s *Service) HandleLifecycleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	var entry CachedStatus
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		entry = CachedStatus{OrderID: p.OrderID, UserID: p.UserID, Status: orders.StatusPending}
	case orders.EventOrderPaid, orders.EventOrderPaymentFailed, orders.EventOrderCancelled, orders.EventOrderRefunded:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusPayload](env.Payload)
		if err != nil {
			return err
		}
		entry = CachedStatus{OrderID: p.OrderID, UserID: p.UserID, Status: p.Status}
	default:
		s.Log.Debug("ignoring event", zap.String("event_type", env.EventType))
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "projector", env.EventID)
	if n, err := s.Redis.Exists(ctx, dkey).Result(); err == nil && n > 0 {
		return nil
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, entry.OrderID)
	if err := s.Redis.Set(ctx, key, kafkax.MustMarshal(entry), redisx.TTLStatusCache).Err(); err != nil {
		return fmt.Errorf("cache status: %w", err)
	}
	// Marked seen only after the cache write lands; a failed write leaves
	// the offset uncommitted and the redelivery retries from scratch.
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	s.Log.Info("status cache updated",
		zap.String("order_id", entry.OrderID),
		zap.String("status", string(entry.Status)),
		zap.String("event_type", env.EventType))
	return nil
}
