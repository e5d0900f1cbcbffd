package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateIntent(t *testing.T) {
	var got intentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(intentResponse{ID: "pi_1", ClientSecret: "pi_1_secret"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test")
	intent, err := c.CreateIntent(context.Background(), "order-1", 1500)
	require.NoError(t, err)

	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.Equal(t, 1500, got.AmountCents)
	assert.Equal(t, "order-1", got.Metadata[MetadataOrderID], "order id rides in metadata for webhook routing")
}

func TestClientCreateIntent_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"card testing suspected"}`, http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test")
	_, err := c.CreateIntent(context.Background(), "order-1", 1500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
}

func TestClientRefund(t *testing.T) {
	var got refundRequest
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test")
	require.NoError(t, c.Refund(context.Background(), "pi_1"))
	require.NoError(t, c.Refund(context.Background(), "pi_1"))
	assert.Equal(t, "pi_1", got.PaymentIntent)
	assert.Equal(t, []string{"refund-pi_1", "refund-pi_1"}, keys,
		"racing refunds for one intent carry the same key and collapse at the provider")
}
