// Package payment adapts the external payment provider: intent creation
// and refunds over its REST API, plus verification and dispatch of its
// asynchronous webhook events.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopmesh/orderflow/internal/orders"
)

// Client talks to the provider's REST API. The order id rides along as
// intent metadata so the webhook can route the result back to the order.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type intentRequest struct {
	AmountCents int               `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

func (c *Client) CreateIntent(ctx context.Context, orderID string, amountCents int) (orders.Intent, error) {
	body := intentRequest{
		AmountCents: amountCents,
		Currency:    "usd",
		Metadata:    map[string]string{MetadataOrderID: orderID},
	}
	var resp intentResponse
	if err := c.post(ctx, "/v1/payment_intents", "", body, &resp); err != nil {
		return orders.Intent{}, fmt.Errorf("create intent: %w", err)
	}
	return orders.Intent{ID: resp.ID, ClientSecret: resp.ClientSecret}, nil
}

type refundRequest struct {
	PaymentIntent string `json:"payment_intent"`
}

// Refund is keyed by the intent id, so racing cancel requests collapse
// to a single refund at the provider.
func (c *Client) Refund(ctx context.Context, intentID string) error {
	if err := c.post(ctx, "/v1/refunds", "refund-"+intentID, refundRequest{PaymentIntent: intentID}, nil); err != nil {
		return fmt.Errorf("refund intent %s: %w", intentID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
