package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopmesh/orderflow/internal/orders"
	"github.com/shopmesh/orderflow/internal/payment"
)

// HeaderUserID carries the authenticated principal, set by the auth layer
// in front of this service. An empty header means the request never went
// through auth and is rejected outright.
const HeaderUserID = "X-User-Id"

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}

// errStatus is the only place the core error taxonomy meets wire codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, orders.ErrEmptyCart), errors.Is(err, orders.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, payment.ErrBadSignature):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing caller identity"})
		return "", false
	}
	return userID, true
}
