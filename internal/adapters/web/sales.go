package web

import (
	"net/http"

	"pos-ledger/internal/app"
)

// createSale handles POST /api/sales.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreateSale(r.Context(), actor(r), req, auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toSaleView(*result.Sale))
}

// createSplitSale handles POST /api/sales-split.
func (h *Handler) createSplitSale(w http.ResponseWriter, r *http.Request) {
	var body splitSaleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.CreateSplitSale(r.Context(), actor(r), body.toRequest(), auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toSaleView(*result.Sale))
}

// listSales handles GET /api/sales. Sellers only see their own sales.
func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSales(r.Context(), actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]saleView, len(result.Sales))
	for i, s := range result.Sales {
		out[i] = toSaleView(s)
	}
	writeJSON(w, out)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetSale(r.Context(), actor(r), id, auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, toSaleView(*result.Sale))
}

// updatePaymentMethod handles PATCH /api/sales/{id}/payment-method.
func (h *Handler) updatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UpdatePaymentMethodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdatePaymentMethod(r.Context(), actor(r), id, req, auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, toSaleView(*result.Sale))
}

// cancelSale handles POST /api/sales/{id}/cancel.
func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.CancelSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CancelSale(r.Context(), actor(r), id, req, auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, toSaleView(*result.Sale))
}
