package web

import (
	"net/http"
	"sort"
	"strings"

	"pos-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
)

// requestSchemas are the request bodies published under /api/schemas/{name}.
var requestSchemas = map[string]any{
	"login":          app.LoginRequest{},
	"create-user":    app.CreateUserRequest{},
	"create-product": app.CreateProductRequest{},
	"update-product": app.UpdateProductRequest{},
	"adjust-stock":   app.AdjustStockRequest{},
	"create-sale":    app.CreateSaleRequest{},
	"create-split":   app.CreateSplitSaleRequest{},
	"payment-method": app.UpdatePaymentMethodRequest{},
	"cancel-sale":    app.CancelSaleRequest{},
}

// schema handles GET /api/schemas/{name} and returns the JSON Schema of a
// request body so clients can validate before submitting.
func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := requestSchemas[name]
	if !ok {
		names := make([]string, 0, len(requestSchemas))
		for n := range requestSchemas {
			names = append(names, n)
		}
		sort.Strings(names)
		writeError(w, r, "unknown schema, available: "+strings.Join(names, ", "), "NOT_FOUND", http.StatusNotFound)
		return
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	writeJSON(w, reflector.Reflect(v))
}
