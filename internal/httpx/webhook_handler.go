package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignatureHeader carries the provider's hex HMAC of the raw body.
const SignatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20

type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type WebhookHandler struct {
	Processor WebhookProcessor
	Log       *zap.Logger
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/payment", h.receive)
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	// The processor verifies the signature over the exact raw bytes, so
	// the body must not be decoded before it.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Processor.Handle(ctx, body, r.Header.Get(SignatureHeader)); err != nil {
		h.Log.Warn("webhook rejected", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
