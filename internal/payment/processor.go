package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopmesh/orderflow/internal/orders"
	"github.com/shopmesh/orderflow/internal/redisx"
)

// OrderTransitions is the slice of the order lifecycle the webhook drives.
type OrderTransitions interface {
	ConfirmPayment(ctx context.Context, orderID string) error
	MarkPaymentFailed(ctx context.Context, orderID string) error
}

// Processor verifies inbound provider events and dispatches them into
// lifecycle transitions. The provider delivers at least once, so Handle
// must be safe to call twice with the same event: the Redis dedup key is
// only a fast path, correctness rests on ConfirmPayment's row-locked
// already-PAID check.
type Processor struct {
	Secret string
	Orders OrderTransitions
	Redis  *redis.Client // optional dedup fast path
	Log    *zap.Logger
}

func NewProcessor(secret string, svc OrderTransitions, rdb *redis.Client, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{Secret: secret, Orders: svc, Redis: rdb, Log: log}
}

// Handle verifies, deserializes and dispatches one delivery. A returned
// error means the delivery was not applied and may be retried; a nil
// return acknowledges it, including the deliberate soft paths (unknown
// event kind, missing order metadata, transition no longer legal).
func (p *Processor) Handle(ctx context.Context, payload []byte, signature string) error {
	if !VerifySignature(payload, signature, p.Secret) {
		return ErrBadSignature
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("payment: decode event: %w", err)
	}

	if p.seen(ctx, ev.ID) {
		p.Log.Info("duplicate webhook delivery skipped", zap.String("event_id", ev.ID))
		return nil
	}

	var err error
	switch ev.Type {
	case EventPaymentSucceeded:
		err = p.dispatch(ctx, ev, p.Orders.ConfirmPayment)
	case EventPaymentFailed:
		err = p.dispatch(ctx, ev, p.Orders.MarkPaymentFailed)
	default:
		// Forward-compatible no-op, but visible in logs.
		p.Log.Info("ignoring unrecognized webhook event",
			zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))
	}
	if err != nil {
		// Not marked seen: the provider redelivers and the transition is
		// re-attempted.
		return err
	}
	p.markSeen(ctx, ev.ID)
	return nil
}

func (p *Processor) dispatch(ctx context.Context, ev Event, apply func(context.Context, string) error) error {
	orderID := ev.OrderID()
	if orderID == "" {
		// Dropped without error, but this should page someone:
		// a real payment happened that we cannot attach to an order.
		p.Log.Warn("webhook intent has no order metadata, dropping event",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type),
			zap.String("intent_id", ev.Data.Object.ID))
		return nil
	}

	err := apply(ctx, orderID)
	if errors.Is(err, orders.ErrIllegalState) {
		// e.g. a success event for an order cancelled in the meantime.
		// Acknowledge so the provider stops redelivering; reconciliation
		// is an operator problem, not a retry problem.
		p.Log.Warn("webhook event no longer applicable",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type),
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil
	}
	return err
}

// seen only reads; the key is written by markSeen after the delivery is
// fully applied, so a transient failure never claims the event id.
func (p *Processor) seen(ctx context.Context, eventID string) bool {
	if p.Redis == nil || eventID == "" {
		return false
	}
	key := fmt.Sprintf(redisx.KeyDedup, "webhook", eventID)
	n, err := p.Redis.Exists(ctx, key).Result()
	if err != nil {
		return false // redis down: fall through to the row-locked check
	}
	return n > 0
}

func (p *Processor) markSeen(ctx context.Context, eventID string) {
	if p.Redis == nil || eventID == "" {
		return
	}
	key := fmt.Sprintf(redisx.KeyDedup, "webhook", eventID)
	_ = p.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
}
