package web

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"pos-ledger/internal/app"
	"pos-ledger/internal/core"
	"pos-ledger/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the settings the HTTP layer needs.
type Handler struct {
	svc       app.ApplicationService
	logger    *zap.Logger
	jwtSecret string
	tokenTTL  time.Duration
}

// Options configures NewHandler.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	TokenTTL       time.Duration
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, m *metrics.Metrics, logger *zap.Logger, opts Options) http.Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 8 * time.Hour
	}
	h := &Handler{
		svc:       svc,
		logger:    logger.Named("http"),
		jwtSecret: opts.JWTSecret,
		tokenTTL:  opts.TokenTTL,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.logger))
	r.Use(Recoverer(h.logger))
	r.Use(Metrics(m))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Get("/api/schemas/{name}", h.schema)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20))
		r.Post("/api/auth/login", h.login)
	})

	// ── Authenticated API ─────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Post("/api/auth/logout", h.logout)
		r.Get("/api/auth/me", h.me)

		// Catalog
		r.Get("/api/products", h.listProducts)
		r.Get("/api/products/{id}", h.getProduct)
		r.Get("/api/products/{id}/movements", h.listMovements)

		// Sales
		r.Get("/api/sales", h.listSales)
		r.Post("/api/sales", h.createSale)
		r.Post("/api/sales-split", h.createSplitSale)
		r.Get("/api/sales/{id}", h.getSale)
		r.Patch("/api/sales/{id}/payment-method", h.updatePaymentMethod)

		// ── Admin only ────────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleAdmin))

			r.Get("/api/users", h.listUsers)
			r.Post("/api/admin/users", h.createUser)

			r.Get("/api/products/low-stock", h.lowStock)
			r.Post("/api/products", h.createProduct)
			r.Patch("/api/products/{id}", h.updateProduct)
			r.Delete("/api/products/{id}", h.deleteProduct)
			r.Post("/api/products/{id}/stock-adjustments", h.adjustStock)

			r.Post("/api/sales/{id}/cancel", h.cancelSale)
			r.Get("/api/stats", h.stats)
		})
	})

	return r
}

// health reports liveness.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter. It writes a 400 and returns false when
// the value is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt returns the integer query parameter key, or def when absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

// actor returns the caller identity placed in the context by RequireAuth.
func actor(r *http.Request) app.Actor {
	c := authFromContext(r.Context())
	if c == nil {
		return app.Actor{}
	}
	return app.Actor{UserID: c.UserID, Role: c.Role}
}

func auditMeta(r *http.Request) app.AuditMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return app.AuditMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}
