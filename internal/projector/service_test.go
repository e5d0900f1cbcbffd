package projector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopmesh/orderflow/internal/orders"
	"github.com/shopmesh/orderflow/internal/redisx"
)

func TestHandleLifecycleEvent_MalformedEnvelope(t *testing.T) {
	s := &Service{Log: zap.NewNop()}
	err := s.HandleLifecycleEvent(context.Background(), kafkago.Message{Value: []byte(`{`)})
	assert.Error(t, err, "malformed envelopes must not be committed")
}

func TestHandleLifecycleEvent_UnknownEventTypeIgnored(t *testing.T) {
	s := &Service{Log: zap.NewNop()}
	msg := kafkago.Message{Value: []byte(`{"event_id":"e1","event_type":"OrderShipped","payload":{}}`)}
	err := s.HandleLifecycleEvent(context.Background(), msg)
	assert.NoError(t, err, "unknown event kinds are acknowledged and skipped")
}

func statusMessage(t *testing.T, eventID, orderID, userID string, status orders.Status) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(orders.OrderStatusPayload{OrderID: orderID, UserID: userID, Status: status})
	require.NoError(t, err)
	env, err := json.Marshal(orders.Envelope{
		EventID:   eventID,
		EventType: orders.EventOrderPaid,
		Payload:   payload,
	})
	require.NoError(t, err)
	return kafkago.Message{Value: env}
}

func TestHandleLifecycleEvent_CachesStatus(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()
	s := &Service{Redis: rdb, Log: zap.NewNop()}

	msg := statusMessage(t, "e1", "order-1", "u1", orders.StatusPaid)
	require.NoError(t, s.HandleLifecycleEvent(context.Background(), msg))

	raw, err := srv.Get(fmt.Sprintf(redisx.KeyOrderStatus, "order-1"))
	require.NoError(t, err)
	var got CachedStatus
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, orders.StatusPaid, got.Status)
	assert.Equal(t, "u1", got.UserID)
}

// flakyStatusWrites fails SET on the status-cache keyspace while letting
// everything else through, standing in for a partial Redis outage.
type flakyStatusWrites struct{ fail bool }

func (h *flakyStatusWrites) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *flakyStatusWrites) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if h.fail && cmd.Name() == "set" {
			if key, ok := cmd.Args()[1].(string); ok && strings.HasPrefix(key, "order_status:") {
				err := errors.New("i/o timeout")
				cmd.SetErr(err)
				return err
			}
		}
		return next(ctx, cmd)
	}
}

func (h *flakyStatusWrites) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestHandleLifecycleEvent_FailedCacheWriteIsRetriable(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()
	hook := &flakyStatusWrites{fail: true}
	rdb.AddHook(hook)
	s := &Service{Redis: rdb, Log: zap.NewNop()}

	msg := statusMessage(t, "e2", "order-2", "u1", orders.StatusPaid)
	require.Error(t, s.HandleLifecycleEvent(context.Background(), msg),
		"failed cache write must leave the offset uncommitted")

	// redelivery after Redis recovers must still write the cache entry
	hook.fail = false
	require.NoError(t, s.HandleLifecycleEvent(context.Background(), msg))

	raw, err := srv.Get(fmt.Sprintf(redisx.KeyOrderStatus, "order-2"))
	require.NoError(t, err)
	assert.Contains(t, raw, `"PAID"`)
}
