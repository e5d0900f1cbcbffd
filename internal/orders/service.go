package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/shopmesh/orderflow/internal/kafka"
)

// Service drives the order state machine. Every business-rule violation
// maps to one of the sentinel errors in errors.go and leaves persisted
// state unchanged; the HTTP layer owns translation to status codes.
type Service struct {
	store    Store
	carts    CartReader
	shipping ShippingStore
	stock    StockReader
	gateway  PaymentGateway
	events   EventSink
	producer string // envelope producer name
	log      *zap.Logger
}

func NewService(store Store, carts CartReader, shipping ShippingStore, stock StockReader, gateway PaymentGateway, events EventSink, producerName string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		carts:    carts,
		shipping: shipping,
		stock:    stock,
		gateway:  gateway,
		events:   events,
		producer: producerName,
		log:      log,
	}
}

// Initiate converts the referenced cart items into a PENDING order.
//
// Stock is only checked here, not consumed: consumption happens at payment
// confirmation. The payment intent is requested after the order row is
// committed, so a gateway failure or crash can never leave an intent
// without an order; the order is then PENDING with no intent and the user
// recovers via RetryPayment.
func (s *Service) Initiate(ctx context.Context, userID string, cartItemIDs []string, addr ShippingInput) (*Placement, error) {
	items, err := s.carts.FindItems(ctx, cartItemIDs)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	requested := map[string]int{}
	orderItems := make([]OrderItem, 0, len(items))
	for _, it := range items {
		if it.UserID != userID {
			return nil, fmt.Errorf("%w: cart item %s", ErrUnauthorized, it.ID)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity for cart item %s", it.ID)
		}
		requested[it.ProductID] += it.Quantity
		orderItems = append(orderItems, OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	productIDs := make([]string, 0, len(requested))
	for pid := range requested {
		productIDs = append(productIDs, pid)
	}
	stocks, err := s.stock.CurrentStocks(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("read stock: %w", err)
	}
	for pid, qty := range requested {
		if stocks[pid] < qty {
			return nil, fmt.Errorf("%w: product %s has %d, want %d", ErrInsufficientStock, pid, stocks[pid], qty)
		}
	}

	addrID, err := s.shipping.CreateSnapshot(ctx, userID, addr)
	if err != nil {
		return nil, fmt.Errorf("shipping snapshot: %w", err)
	}

	orderID, total, err := s.store.CreateOrderTx(ctx, userID, addrID, orderItems)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, orderID, total)
	if err != nil {
		s.log.Error("payment intent creation failed, order left pending without intent",
			zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if err := s.store.SetPaymentIntent(ctx, orderID, intent.ID); err != nil {
		return nil, fmt.Errorf("store payment intent: %w", err)
	}

	itemQtys := make([]ItemQty, 0, len(orderItems))
	for _, it := range orderItems {
		itemQtys = append(itemQtys, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	s.publish(ctx, EventOrderCreated, orderID, OrderCreatedPayload{
		OrderID:           orderID,
		UserID:            userID,
		Items:             itemQtys,
		TotalCents:        total,
		ShippingAddressID: addrID,
	})

	view, err := s.store.GetOrderView(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("order initiated",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.Int("total_cents", total))
	return &Placement{Order: *view, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmPayment is invoked only by the webhook processor on a
// "payment succeeded" event. Re-delivery is a no-op: the transaction
// observes PAID under a row lock and commits nothing.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string) error {
	already, err := s.store.ConfirmPaymentTx(ctx, orderID)
	if err != nil {
		return err
	}
	if already {
		s.log.Info("duplicate payment confirmation ignored", zap.String("order_id", orderID))
		return nil
	}
	s.publishStatus(ctx, EventOrderPaid, orderID, StatusPaid)
	s.log.Info("order paid", zap.String("order_id", orderID))
	return nil
}

// MarkPaymentFailed records a failed charge. No stock or cart change, so
// the user may retry.
func (s *Service) MarkPaymentFailed(ctx context.Context, orderID string) error {
	if err := s.store.MarkPaymentFailedTx(ctx, orderID); err != nil {
		return err
	}
	s.publishStatus(ctx, EventOrderPaymentFailed, orderID, StatusPaymentFailed)
	s.log.Info("order payment failed", zap.String("order_id", orderID))
	return nil
}

// RetryPayment requests a fresh intent for an unpaid order and resets the
// status to PENDING.
func (s *Service) RetryPayment(ctx context.Context, userID, orderID string) (*Placement, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}
	if o.Status != StatusPending && !CanTransition(o.Status, StatusPending) {
		return nil, fmt.Errorf("%w: retry payment from %s", ErrIllegalState, o.Status)
	}

	view, err := s.store.GetOrderView(ctx, orderID)
	if err != nil {
		return nil, err
	}
	intent, err := s.gateway.CreateIntent(ctx, orderID, view.TotalCents)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if err := s.store.RetryPaymentTx(ctx, orderID, intent.ID); err != nil {
		return nil, err
	}

	view.Status = StatusPending
	s.log.Info("payment retried", zap.String("order_id", orderID))
	return &Placement{Order: *view, ClientSecret: intent.ClientSecret}, nil
}

// Cancel applies the compensating actions for the order's current status:
// a PAID order is refunded and its stock returned, an unpaid order is
// simply cancelled, a terminal order is rejected.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (*OrderView, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}

	switch o.Status {
	case StatusPaid:
		// Refund first: a crash between refund and commit leaves the
		// order PAID with the money already returned, which the ops
		// alert below makes visible instead of silently double-charging.
		if err := s.gateway.Refund(ctx, o.PaymentIntentID); err != nil {
			return nil, fmt.Errorf("refund intent %s: %w", o.PaymentIntentID, err)
		}
		if err := s.store.RefundTx(ctx, orderID); err != nil {
			s.log.Error("refund issued but order not marked refunded",
				zap.String("order_id", orderID),
				zap.String("payment_intent_id", o.PaymentIntentID),
				zap.Error(err))
			return nil, err
		}
		s.publishStatus(ctx, EventOrderRefunded, orderID, StatusRefunded)
		s.log.Info("order refunded", zap.String("order_id", orderID))

	case StatusPending, StatusPaymentFailed:
		if err := s.store.CancelTx(ctx, orderID); err != nil {
			return nil, err
		}
		s.publishStatus(ctx, EventOrderCancelled, orderID, StatusCancelled)
		s.log.Info("order cancelled", zap.String("order_id", orderID))

	default:
		return nil, fmt.Errorf("%w: cancel from %s", ErrIllegalState, o.Status)
	}

	return s.store.GetOrderView(ctx, orderID)
}

func (s *Service) publishStatus(ctx context.Context, eventType, orderID string, status Status) {
	o, err := s.store.GetOrder(ctx, orderID)
	userID := ""
	if err == nil {
		userID = o.UserID
	}
	s.publish(ctx, eventType, orderID, OrderStatusPayload{OrderID: orderID, UserID: userID, Status: status})
}

func (s *Service) publish(ctx context.Context, eventType, orderID string, payload any) {
	if s.events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.producer,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.events.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
