package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopmesh/orderflow/internal/stock"
)

type StockLedger interface {
	Record(ctx context.Context, productID string, quantity int, direction stock.Direction, reason stock.Reason) error
	CurrentStock(ctx context.Context, productID string) (int, error)
	CurrentStocks(ctx context.Context, productIDs []string) (map[string]int, error)
}

// StockHandler exposes product intake and the ledger aggregates. Sale and
// return movements are never written here; those happen inside the order
// lifecycle transactions.
type StockHandler struct {
	Ledger StockLedger
}

func (h *StockHandler) Register(r *chi.Mux) {
	r.Post("/products/{id}/stock", h.addStock)
	r.Get("/products/{id}/stock", h.getStock)
	r.Get("/stock", h.batchStock)
}

type addStockReq struct {
	Quantity int `json:"quantity"`
}

func (h *StockHandler) addStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	var req addStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.Record(ctx, productID, req.Quantity, stock.DirectionIn, stock.ReasonNew); err != nil {
		writeError(w, err)
		return
	}
	n, err := h.Ledger.CurrentStock(ctx, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product_id": productID, "stock": n})
}

func (h *StockHandler) getStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Ledger.CurrentStock(ctx, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": productID, "stock": n})
}

func (h *StockHandler) batchStock(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids is required"})
		return
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(id); t != "" {
			ids = append(ids, t)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stocks, err := h.Ledger.CurrentStocks(ctx, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stocks)
}
