package web

import (
	"net/http"

	"pos-ledger/internal/core"
)

// stats handles GET /api/stats.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSalesStats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	top := s.TopProducts
	if top == nil {
		top = []core.TopProduct{}
	}
	writeJSON(w, statsView{
		TotalSales:   s.TotalSales,
		TotalRevenue: core.FormatAmount(s.TotalRevenue),
		TopProducts:  top,
	})
}
