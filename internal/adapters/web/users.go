package web

import (
	"net/http"

	"pos-ledger/internal/app"
	"pos-ledger/internal/core"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]core.UserSummary, len(result.Users))
	for i := range result.Users {
		out[i] = result.Users[i].Summary()
	}
	writeJSON(w, out)
}

// createUser handles POST /api/admin/users.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req app.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.CreateUser(r.Context(), actor(r), req, auditMeta(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, u.Summary())
}
