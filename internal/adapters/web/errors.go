package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"pos-ledger/internal/app"
	"pos-ledger/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps an error returned by the ApplicationService to an
// HTTP status and error code. Unknown errors are logged and reported as 500
// without their message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *core.InsufficientStockError
	var mismatch *core.PaymentMismatchError

	switch {
	case errors.As(err, &stockErr):
		writeErrorDetails(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusConflict, map[string]any{
			"product_id":   stockErr.ProductID,
			"product_name": stockErr.ProductName,
			"available":    stockErr.Available,
			"requested":    stockErr.Requested,
		})
	case errors.As(err, &mismatch):
		writeErrorDetails(w, r, err.Error(), "PAYMENT_MISMATCH", http.StatusBadRequest, map[string]any{
			"items_total":    core.FormatAmount(mismatch.ItemsTotal),
			"payments_total": core.FormatAmount(mismatch.PaymentsTotal),
		})
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
	case errors.Is(err, core.ErrInvalidCredential):
		writeError(w, r, "invalid username or password", "UNAUTHORIZED", http.StatusUnauthorized)
	case errors.Is(err, app.ErrForbidden):
		writeError(w, r, "access denied", "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, core.ErrProductNotFound),
		errors.Is(err, core.ErrSaleNotFound),
		errors.Is(err, core.ErrUserNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrAlreadyCancelled):
		writeError(w, r, err.Error(), "ALREADY_CANCELLED", http.StatusConflict)
	case errors.Is(err, core.ErrSaleNotActive):
		writeError(w, r, err.Error(), "SALE_NOT_ACTIVE", http.StatusConflict)
	case errors.Is(err, core.ErrNoChange):
		writeError(w, r, err.Error(), "NO_CHANGE", http.StatusConflict)
	case errors.Is(err, core.ErrDuplicateUsername):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrTransient):
		writeError(w, r, "temporarily unavailable, retry the request", "TRANSIENT", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
