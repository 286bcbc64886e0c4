package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-catalog-settlement.git/internal/kafka"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/orders"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/redisx"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/settlement"
)

// HeaderBuyerID carries the caller identity resolved by the upstream
// auth layer; this service trusts it as already authenticated.
const HeaderBuyerID = "X-Buyer-Id"

type PurchaseLineReq struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	// Price is accepted for request logging only. Unit prices are
	// always re-derived from the stock ledger server-side.
	Price string `json:"price,omitempty"`
}

type CreatePurchaseReq struct {
	Items []PurchaseLineReq `json:"items" validate:"required,min=1,dive"`
}

type PurchasesHandler struct {
	Engine     *settlement.Engine
	Orders     *orders.Repo
	ProducerOK *kafkax.Producer // order.settled
	ProducerRJ *kafkax.Producer // order.rejected
	Redis      *redis.Client
	Service    string
	Log        *logrus.Logger
	Validate   *validator.Validate
}

func (h *PurchasesHandler) Register(r *chi.Mux) {
	r.Post("/purchases", h.createPurchase)
	r.Get("/purchases", h.myPurchases)
	r.Get("/purchases/{id}", h.myPurchaseShow)
	r.Get("/purchases/{id}/status", h.getPurchaseStatus)
	r.Get("/admin/purchases", h.adminList)
	r.Get("/admin/purchases/{id}", h.adminShow)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *PurchasesHandler) createPurchase(w http.ResponseWriter, r *http.Request) {
	buyerID := r.Header.Get(HeaderBuyerID)
	if buyerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing " + HeaderBuyerID})
		return
	}

	var req CreatePurchaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	lines := make([]settlement.LineRequest, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Price != "" {
			// informational only, see PurchaseLineReq
			h.Log.WithFields(logrus.Fields{
				"buyer_id": buyerID, "product_id": it.ProductID, "client_price": it.Price,
			}).Debug("client-supplied price ignored")
		}
		lines = append(lines, settlement.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.Engine.Settle(ctx, buyerID, lines)
	if err != nil {
		h.writeSettleError(w, r, buyerID, err)
		return
	}

	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
	_ = h.Redis.Set(ctx, statusKey, `{"status":"`+string(order.Status)+`"}`, redisx.TTLStatusCache).Err()

	h.publishSettled(order, r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusCreated, order)
}

func (h *PurchasesHandler) writeSettleError(w http.ResponseWriter, r *http.Request, buyerID string, err error) {
	var (
		invalid      *settlement.InvalidRequestError
		outOfStock   *settlement.OutOfStockError
		insufficient *settlement.InsufficientStockError
		transient    *settlement.TransientError
	)
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": invalid.Error()})
	case errors.As(err, &outOfStock):
		h.publishRejected(buyerID, "OUT_OF_STOCK",
			[]orders.RejectedDetail{{ProductID: outOfStock.ProductID}}, r.Header.Get("X-Request-Id"))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"product_id": outOfStock.ProductID,
		})
	case errors.As(err, &insufficient):
		h.publishRejected(buyerID, "INSUFFICIENT_STOCK",
			[]orders.RejectedDetail{{
				ProductID: insufficient.ProductID,
				Requested: insufficient.Requested,
				Available: insufficient.Available,
			}}, r.Header.Get("X-Request-Id"))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
	case errors.As(err, &transient):
		h.Log.WithError(err).Warn("settlement transient failure")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":     "temporary failure, retry the same request",
			"retryable": true,
		})
	default:
		h.Log.WithError(err).Error("settlement failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *PurchasesHandler) publishSettled(o *orders.Order, trace string) {
	lines := make([]orders.SettledLine, 0, len(o.Lines))
	for _, ln := range o.Lines {
		lines = append(lines, orders.SettledLine{
			ProductID: ln.ProductID,
			Qty:       ln.Quantity,
			UnitPrice: ln.UnitPrice.String(),
			Subtotal:  ln.Subtotal.String(),
		})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderSettled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderSettledPayload{
			OrderID:     o.ID,
			BuyerID:     o.BuyerID,
			Lines:       lines,
			TotalAmount: o.TotalAmount.String(),
		}),
	}
	h.ProducerOK.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderSettled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *PurchasesHandler) publishRejected(buyerID, reason string, details []orders.RejectedDetail, trace string) {
	ev := orders.Envelope{
		EventID:      uuid.NewString(),
		EventType:    orders.EventOrderRejected,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     h.Service,
		TraceID:      trace,
		Payload: kafkax.MustMarshal(orders.OrderRejectedPayload{
			BuyerID: buyerID,
			Reason:  reason,
			Details: details,
		}),
	}
	h.ProducerRJ.Publish([]byte(buyerID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *PurchasesHandler) myPurchases(w http.ResponseWriter, r *http.Request) {
	buyerID := r.Header.Get(HeaderBuyerID)
	if buyerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing " + HeaderBuyerID})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f := orders.ListFilter{BuyerID: buyerID, Status: orders.Status(r.URL.Query().Get("status"))}
	f.Limit, f.Offset = pageParams(r)
	out, err := h.Orders.List(ctx, f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PurchasesHandler) myPurchaseShow(w http.ResponseWriter, r *http.Request) {
	buyerID := r.Header.Get(HeaderBuyerID)
	orderID := chi.URLParam(r, "id")
	if buyerID == "" || orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing buyer or order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if o.BuyerID != buyerID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "order belongs to another buyer"})
		return
	}

	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = h.Redis.Set(ctx, statusKey, `{"status":"`+string(o.Status)+`"}`, redisx.TTLStatusCache).Err()
	writeJSON(w, http.StatusOK, o)
}

// getPurchaseStatus serves the lightweight status poll: try the Redis
// cache first, fall back to Postgres and repopulate on a miss.
func (h *PurchasesHandler) getPurchaseStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Orders.GetStatus(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	b, _ := json.Marshal(map[string]any{"status": status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// Admin listing; the admin-role gate lives upstream of this service.
func (h *PurchasesHandler) adminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f := orders.ListFilter{
		BuyerID: r.URL.Query().Get("buyer_id"),
		Status:  orders.Status(r.URL.Query().Get("status")),
	}
	f.Limit, f.Offset = pageParams(r)
	out, err := h.Orders.List(ctx, f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PurchasesHandler) adminShow(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}
