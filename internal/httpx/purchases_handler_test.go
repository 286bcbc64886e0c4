package httpx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestHandler() *PurchasesHandler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &PurchasesHandler{Log: log, Validate: validator.New()}
}

// These exercise the request-shape paths that never reach the engine.
func TestCreatePurchaseRejectsMissingBuyerHeader(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/purchases", strings.NewReader(`{"items":[{"product_id":"p1","quantity":1}]}`))
	rec := httptest.NewRecorder()

	h.createPurchase(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), HeaderBuyerID)
}

func TestCreatePurchaseRejectsBadJSON(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/purchases", strings.NewReader(`{`))
	req.Header.Set(HeaderBuyerID, "buyer-1")
	rec := httptest.NewRecorder()

	h.createPurchase(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePurchaseValidatesShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty items", `{"items":[]}`},
		{"missing items", `{}`},
		{"zero quantity", `{"items":[{"product_id":"p1","quantity":0}]}`},
		{"negative quantity", `{"items":[{"product_id":"p1","quantity":-2}]}`},
		{"missing product id", `{"items":[{"quantity":3}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler()
			req := httptest.NewRequest(http.MethodPost, "/purchases", strings.NewReader(tc.body))
			req.Header.Set(HeaderBuyerID, "buyer-1")
			rec := httptest.NewRecorder()

			h.createPurchase(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPageParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/purchases?per_page=20&page=3", nil)
	limit, offset := pageParams(req)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 40, offset)

	req = httptest.NewRequest(http.MethodGet, "/purchases", nil)
	limit, offset = pageParams(req)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	// oversized and junk values fall back to defaults
	req = httptest.NewRequest(http.MethodGet, "/purchases?per_page=9999&page=abc", nil)
	limit, offset = pageParams(req)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)
}
