package web

import (
	"net/http"

	"pos-ledger/internal/app"
)

// listProducts handles GET /api/products?page=&limit=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListProducts(r.Context(), queryInt(r, "page", 1), queryInt(r, "limit", 20))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	type response struct {
		Data  []productView `json:"data"`
		Total int           `json:"total"`
		Page  int           `json:"page"`
		Pages int           `json:"pages"`
	}
	writeJSON(w, response{
		Data:  toProductViews(page.Data),
		Total: page.Total,
		Page:  page.Page,
		Pages: page.Pages,
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, toProductView(*p))
}

// lowStock handles GET /api/products/low-stock.
func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetLowStockProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, toProductViews(result.Products))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var body createProductBody
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), actor(r), body.toRequest(), auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toProductView(*p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body updateProductBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Quantity != nil {
		writeError(w, r, "quantity cannot be edited here, use a stock adjustment", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), actor(r), id, body.toRequest(), auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, toProductView(*p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), actor(r), id, auditMeta(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adjustStock handles POST /api/products/{id}/stock-adjustments.
func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.AdjustStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.AdjustStock(r.Context(), actor(r), id, req, auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, toProductView(*p))
}

// listMovements handles GET /api/products/{id}/movements?limit=.
func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListMovements(r.Context(), &id, queryInt(r, "limit", 100))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Movements)
}
