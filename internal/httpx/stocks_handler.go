package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-catalog-settlement.git/internal/ledger"
)

type CreateStockReq struct {
	ProductID      string          `json:"product_id" validate:"required"`
	QuantityOnHand int             `json:"quantity_on_hand" validate:"gte=0"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	UnitSalePrice  decimal.Decimal `json:"unit_sale_price"`
}

type UpdateStockReq struct {
	QuantityOnHand *int             `json:"quantity_on_hand,omitempty"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	UnitSalePrice  *decimal.Decimal `json:"unit_sale_price,omitempty"`
}

// StocksHandler exposes the restock/adjustment surface. Mutation of
// quantity_on_hand goes through the same lock-then-apply path the
// settlement engine uses; nothing writes the column directly.
type StocksHandler struct {
	Ledger   *ledger.Repo
	Log      *logrus.Logger
	Validate *validator.Validate
}

func (h *StocksHandler) Register(r *chi.Mux) {
	r.Post("/stocks", h.create)
	r.Get("/stocks", h.list)
	r.Get("/stocks/{productID}", h.get)
	r.Patch("/stocks/{productID}", h.update)
	r.Delete("/stocks/{productID}", h.delete)
}

func (h *StocksHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	e, err := h.Ledger.Create(ctx, ledger.NewEntry{
		ProductID:      req.ProductID,
		QuantityOnHand: req.QuantityOnHand,
		UnitCost:       req.UnitCost,
		UnitSalePrice:  req.UnitSalePrice,
	})
	switch {
	case errors.Is(err, ledger.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "product already has a stock ledger entry"})
	case errors.Is(err, ledger.ErrNoProduct):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "product does not exist"})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusCreated, e)
	}
}

func (h *StocksHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Ledger.List(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StocksHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	e, err := h.Ledger.Get(ctx, chi.URLParam(r, "productID"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *StocksHandler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	e, err := h.Ledger.Update(ctx, chi.URLParam(r, "productID"), ledger.UpdateParams{
		QuantityOnHand: req.QuantityOnHand,
		UnitCost:       req.UnitCost,
		UnitSalePrice:  req.UnitSalePrice,
	})
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, e)
	}
}

func (h *StocksHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Ledger.Delete(ctx, chi.URLParam(r, "productID"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
