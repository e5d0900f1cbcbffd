package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/orderflow/internal/orders"
)

type fakeTransitions struct {
	confirmed  []string
	failed     []string
	confirmErr error
}

func (f *fakeTransitions) ConfirmPayment(_ context.Context, orderID string) error {
	f.confirmed = append(f.confirmed, orderID)
	return f.confirmErr
}

func (f *fakeTransitions) MarkPaymentFailed(_ context.Context, orderID string) error {
	f.failed = append(f.failed, orderID)
	return nil
}

const testSecret = "whsec_test"

func eventJSON(id, typ, orderID string) []byte {
	meta := ""
	if orderID != "" {
		meta = fmt.Sprintf(`,"metadata":{"order_id":%q}`, orderID)
	}
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"object":{"id":"pi_123"%s}}}`, id, typ, meta))
}

func TestHandle_PaymentSucceeded(t *testing.T) {
	ft := &fakeTransitions{}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := eventJSON("evt_1", EventPaymentSucceeded, "order-1")

	err := p.Handle(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, []string{"order-1"}, ft.confirmed)
	assert.Empty(t, ft.failed)
}

func TestHandle_PaymentFailed(t *testing.T) {
	ft := &fakeTransitions{}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := eventJSON("evt_2", EventPaymentFailed, "order-1")

	err := p.Handle(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, []string{"order-1"}, ft.failed)
	assert.Empty(t, ft.confirmed)
}

func TestHandle_BadSignature(t *testing.T) {
	ft := &fakeTransitions{}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := eventJSON("evt_3", EventPaymentSucceeded, "order-1")

	err := p.Handle(context.Background(), body, Sign(body, "wrong secret"))
	require.ErrorIs(t, err, ErrBadSignature)
	assert.Empty(t, ft.confirmed, "no transition on a forged delivery")
}

func TestHandle_MalformedBody(t *testing.T) {
	ft := &fakeTransitions{}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := []byte(`{"id": "evt_4",`)

	err := p.Handle(context.Background(), body, Sign(body, testSecret))
	require.Error(t, err)
	assert.Empty(t, ft.confirmed)
}

func TestHandle_UnknownEventTypeIsAcknowledged(t *testing.T) {
	ft := &fakeTransitions{}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := eventJSON("evt_5", "charge.dispute.created", "order-1")

	err := p.Handle(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.Empty(t, ft.confirmed)
	assert.Empty(t, ft.failed)
}

func TestHandle_MissingOrderMetadataIsDropped(t *testing.T) {
	ft := &fakeTransitions{}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := eventJSON("evt_6", EventPaymentSucceeded, "")

	err := p.Handle(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.Empty(t, ft.confirmed)
}

func TestHandle_StaleTransitionIsAcknowledged(t *testing.T) {
	ft := &fakeTransitions{confirmErr: fmt.Errorf("%w: CANCELLED -> PAID", orders.ErrIllegalState)}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := eventJSON("evt_7", EventPaymentSucceeded, "order-1")

	err := p.Handle(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err, "a no-longer-legal transition is acked, not retried")
}

func TestHandle_TransientErrorPropagates(t *testing.T) {
	ft := &fakeTransitions{confirmErr: fmt.Errorf("db unavailable")}
	p := NewProcessor(testSecret, ft, nil, nil)
	body := eventJSON("evt_8", EventPaymentSucceeded, "order-1")

	err := p.Handle(context.Background(), body, Sign(body, testSecret))
	require.Error(t, err, "transient failures surface so the provider redelivers")
}

func TestHandle_TransientFailureDoesNotClaimDedupKey(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()

	ft := &fakeTransitions{confirmErr: fmt.Errorf("db unavailable")}
	p := NewProcessor(testSecret, ft, rdb, nil)
	body := eventJSON("evt_9", EventPaymentSucceeded, "order-1")
	sig := Sign(body, testSecret)

	require.Error(t, p.Handle(context.Background(), body, sig))

	// the database came back; the provider redelivers the same event
	ft.confirmErr = nil
	require.NoError(t, p.Handle(context.Background(), body, sig))
	assert.Equal(t, []string{"order-1", "order-1"}, ft.confirmed,
		"redelivery after a transient failure must re-attempt the transition")

	// only now is the event id claimed: further deliveries short-circuit
	require.NoError(t, p.Handle(context.Background(), body, sig))
	assert.Len(t, ft.confirmed, 2)
}

func TestHandle_DuplicateDeliveryShortCircuits(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()

	ft := &fakeTransitions{}
	p := NewProcessor(testSecret, ft, rdb, nil)
	body := eventJSON("evt_10", EventPaymentSucceeded, "order-1")
	sig := Sign(body, testSecret)

	require.NoError(t, p.Handle(context.Background(), body, sig))
	require.NoError(t, p.Handle(context.Background(), body, sig))
	assert.Equal(t, []string{"order-1"}, ft.confirmed, "second delivery is absorbed by the dedup key")
}

func TestSignature_RoundTrip(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	sig := Sign(body, testSecret)
	assert.True(t, VerifySignature(body, sig, testSecret))
	assert.False(t, VerifySignature(body, sig, "other"))
	assert.False(t, VerifySignature([]byte(`{"hello":"there"}`), sig, testSecret))
	assert.False(t, VerifySignature(body, "", testSecret))
}

func TestEventOrderID(t *testing.T) {
	var ev Event
	assert.Empty(t, ev.OrderID())

	ev.Data.Object.Metadata = map[string]string{MetadataOrderID: "order-9"}
	assert.Equal(t, "order-9", ev.OrderID())
}
