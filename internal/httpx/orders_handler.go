package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
)

const maxOrderBody = 1 << 20

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (orders.Outcome, error)
}

// IdempotencyStore maps Idempotency-Key headers to the order they created.
// Begin claims a key atomically; see redisx.Idempotency.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (orderID int64, done bool, err error)
	Complete(ctx context.Context, key string, orderID int64) error
	Release(ctx context.Context, key string) error
}

type OrdersHandler struct {
	Orders OrderPlacer
	// Idempotency is optional; without it every request is a new order.
	Idempotency IdempotencyStore
	Log         *slog.Logger
	// Production hides error detail from 500 responses.
	Production bool
}

type PlaceOrderResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID int64  `json:"orderId"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/place-order", h.placeOrder)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody))
	if err := dec.Decode(&req); err != nil {
		h.Log.Info("place-order rejected", "reason", "invalid json", "error", err)
		WriteJSON(w, http.StatusBadRequest, ErrorBody{Success: false, Message: "Missing order details or sold products"})
		return
	}

	ctx := r.Context()
	idemKey := r.Header.Get("Idempotency-Key")
	claimed := false
	if idemKey != "" && h.Idempotency != nil {
		id, done, err := h.Idempotency.Begin(ctx, idemKey)
		switch {
		case errors.Is(err, redisx.ErrIdempotencyInFlight):
			WriteJSON(w, http.StatusConflict, ErrorBody{Success: false, Message: "Order with this Idempotency-Key is still being processed"})
			return
		case err != nil:
			h.Log.Warn("idempotency claim failed", "error", err)
		case done:
			WriteJSON(w, http.StatusOK, PlaceOrderResp{Success: true, Message: "Order already placed", OrderID: id})
			return
		default:
			claimed = true
		}
	}

	out, err := h.Orders.PlaceOrder(ctx, req)
	if err != nil && claimed {
		if rerr := h.Idempotency.Release(context.WithoutCancel(ctx), idemKey); rerr != nil {
			h.Log.Warn("idempotency release failed", "error", rerr)
		}
	}
	switch {
	case orders.IsInvalid(err):
		out.Respond()
		h.Log.Info("place-order responded", "stage", out.Stage, "status", http.StatusBadRequest)
		WriteJSON(w, http.StatusBadRequest, ErrorBody{Success: false, Message: "Missing order details or sold products"})
		return
	case err != nil:
		body := ErrorBody{Success: false, Message: "Failed to place order"}
		if !h.Production {
			body.Error = err.Error()
		}
		out.Respond()
		h.Log.Info("place-order responded", "stage", out.Stage, "status", http.StatusInternalServerError)
		WriteJSON(w, http.StatusInternalServerError, body)
		return
	}

	if claimed {
		if err := h.Idempotency.Complete(context.WithoutCancel(ctx), idemKey, out.Order.ID); err != nil {
			h.Log.Warn("idempotency record failed", "order_id", out.Order.ID, "error", err)
		}
	}
	out.Respond()
	h.Log.Info("place-order responded", "stage", out.Stage, "order_id", out.Order.ID, "notified", out.Notification == nil)
	WriteJSON(w, http.StatusOK, PlaceOrderResp{Success: true, Message: "Order placed successfully", OrderID: out.Order.ID})
}
