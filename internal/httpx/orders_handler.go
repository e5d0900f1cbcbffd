package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopmesh/orderflow/internal/orders"
	"github.com/shopmesh/orderflow/internal/redisx"
)

type OrderService interface {
	Initiate(ctx context.Context, userID string, cartItemIDs []string, addr orders.ShippingInput) (*orders.Placement, error)
	RetryPayment(ctx context.Context, userID, orderID string) (*orders.Placement, error)
	Cancel(ctx context.Context, userID, orderID string) (*orders.OrderView, error)
}

type OrderQueries interface {
	ListByUser(ctx context.Context, userID string) ([]orders.OrderView, error)
	ListByUserAndStatus(ctx context.Context, userID string, status orders.Status) ([]orders.OrderView, error)
	GetForUser(ctx context.Context, userID, orderID string) (*orders.OrderView, error)
}

type OrdersHandler struct {
	Svc     OrderService
	Queries OrderQueries
	Redis   *redis.Client // optional status cache fast path
	Log     *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/retry-payment", h.retryPayment)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

type PlaceOrderReq struct {
	CartItemIDs []string             `json:"cart_item_ids"`
	Shipping    orders.ShippingInput `json:"shipping"`
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.CartItemIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart_item_ids is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	placement, err := h.Svc.Initiate(ctx, userID, req.CartItemIDs, req.Shipping)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, placement)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.Svc.Cancel(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) retryPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	placement, err := h.Svc.RetryPayment(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, placement)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		views []orders.OrderView
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		views, err = h.Queries.ListByUserAndStatus(ctx, userID, orders.Status(status))
	} else {
		views, err = h.Queries.ListByUser(ctx, userID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if views == nil {
		views = []orders.OrderView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Queries.GetForUser(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type statusResp struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
}

// getOrderStatus serves the projector-maintained cache first and falls
// back to the database. Ownership is checked either way.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if raw, err := h.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var cached struct {
				OrderID string        `json:"order_id"`
				UserID  string        `json:"user_id"`
				Status  orders.Status `json:"status"`
			}
			if json.Unmarshal([]byte(raw), &cached) == nil && cached.OrderID == orderID {
				if cached.UserID != userID {
					writeError(w, fmt.Errorf("%w: order %s", orders.ErrUnauthorized, orderID))
					return
				}
				writeJSON(w, http.StatusOK, statusResp{OrderID: orderID, Status: cached.Status})
				return
			}
		}
	}

	view, err := h.Queries.GetForUser(ctx, userID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResp{OrderID: view.ID, Status: view.Status})
}
