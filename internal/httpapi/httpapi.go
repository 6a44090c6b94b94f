// Package httpapi serves the store sandbox backend the terminal talks to.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/logging"
	"storepos/internal/metrics"
	"storepos/internal/service"
	"storepos/internal/store"
)

const maxBodyBytes = 1 << 20

type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *metrics.ServerMetrics
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
}

type API struct {
	service        *service.Service
	auth           *AuthManager
	allowedOrigins []string
	loginLimiter   *attemptLimiter
	logger         *zap.Logger
	metrics        *metrics.ServerMetrics
	gatherer       prometheus.Gatherer
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &API{
		service:        svc,
		auth:           auth,
		allowedOrigins: opts.AllowedOrigins,
		loginLimiter:   newAttemptLimiter(5, time.Minute),
		logger:         logging.OrNop(opts.Logger),
		metrics:        opts.Metrics,
		gatherer:       gatherer,
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	var kept []time.Time
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(a.observe)

	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(a.requireAuth)

	api.HandleFunc("/inventory", a.handleListItems).Methods(http.MethodGet)
	api.HandleFunc("/inventory", a.handleCreateItem).Methods(http.MethodPost)
	api.HandleFunc("/inventory/{id:[0-9]+}", a.handleGetItem).Methods(http.MethodGet)
	api.HandleFunc("/inventory/{id:[0-9]+}", a.handleUpdateItem).Methods(http.MethodPatch)
	api.HandleFunc("/inventory/{id:[0-9]+}", a.handleDeleteItem).Methods(http.MethodDelete)

	api.HandleFunc("/users", a.handleListCustomers).Methods(http.MethodGet)
	api.HandleFunc("/users", a.handleCreateCustomer).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", a.handleGetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", a.handleUpdateCustomer).Methods(http.MethodPatch)
	api.HandleFunc("/users/{id}", a.handleDeleteCustomer).Methods(http.MethodDelete)

	admin := api.NewRoute().Subrouter()
	admin.Use(requirePosition(domain.PositionAdmin))
	admin.HandleFunc("/employees", a.handleListEmployees).Methods(http.MethodGet)
	admin.HandleFunc("/employees", a.handleCreateEmployee).Methods(http.MethodPost)
	admin.HandleFunc("/employees/{id}", a.handleGetEmployee).Methods(http.MethodGet)
	admin.HandleFunc("/employees/{id}", a.handleUpdateEmployee).Methods(http.MethodPatch)
	admin.HandleFunc("/employees/{id}", a.handleDeleteEmployee).Methods(http.MethodDelete)
	admin.HandleFunc("/employees/{id}/toggle-status", a.handleToggleEmployee).Methods(http.MethodPatch)

	api.HandleFunc("/coupons", a.handleListCoupons).Methods(http.MethodGet)
	api.HandleFunc("/coupons", a.handleCreateCoupon).Methods(http.MethodPost)
	api.HandleFunc("/coupons/{id}", a.handleGetCoupon).Methods(http.MethodGet)
	api.HandleFunc("/coupons/{id}", a.handleUpdateCoupon).Methods(http.MethodPatch)
	api.HandleFunc("/coupons/{id}", a.handleDeleteCoupon).Methods(http.MethodDelete)

	api.HandleFunc("/sales", a.handleListSales).Methods(http.MethodGet)
	api.HandleFunc("/sales", a.handleCreateSale).Methods(http.MethodPost)
	api.HandleFunc("/sales/{id}", a.handleGetSale).Methods(http.MethodGet)
	api.HandleFunc("/sales/{id}/add-item", a.handleAddSaleItem).Methods(http.MethodPatch)
	api.HandleFunc("/sales/{id}/finalize", a.handleFinalizeSale).Methods(http.MethodPatch)
	api.HandleFunc("/sales/{id}/cancel", a.handleCancelSale).Methods(http.MethodPatch)

	api.HandleFunc("/rentals", a.handleListRentals).Methods(http.MethodGet)
	api.HandleFunc("/rentals", a.handleCreateRental).Methods(http.MethodPost)
	api.HandleFunc("/rentals/{id}", a.handleGetRental).Methods(http.MethodGet)
	api.HandleFunc("/rentals/{id}/add-item", a.handleAddRentalItem).Methods(http.MethodPatch)
	api.HandleFunc("/rentals/{id}/items/{itemId:[0-9]+}", a.handleRemoveRentalItem).Methods(http.MethodDelete)
	api.HandleFunc("/rentals/{id}/finalize", a.handleFinalizeRental).Methods(http.MethodPatch)
	api.HandleFunc("/rentals/{id}/return", a.handleMarkRentalReturned).Methods(http.MethodPatch)
	api.HandleFunc("/rentals/{id}/cancel", a.handleCancelRental).Methods(http.MethodPatch)

	api.HandleFunc("/returns", a.handleListReturns).Methods(http.MethodGet)
	api.HandleFunc("/returns/sale", a.handleReturnSale).Methods(http.MethodPost)
	api.HandleFunc("/returns/rental", a.handleReturnRental).Methods(http.MethodPost)
	api.HandleFunc("/returns/calculate-late-fee/{id}", a.handleLateFee).Methods(http.MethodGet)

	api.HandleFunc("/reports/sales", a.handleSalesReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/rentals", a.handleRentalReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/inventory", a.handleInventoryReport).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, domain.CodeNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: a.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
	return c.Handler(withSecurityHeaders(r))
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// observe logs and counts every routed request under its path template.
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(startedAt)

		a.metrics.Observe(route, r.Method, rec.status, elapsed)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// fail maps service and store errors onto a status and machine code.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var stockErr *store.StockError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, domain.CodeValidation, validationErr.Message)
	case errors.Is(err, domain.ErrEmptyTransaction):
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "Cannot finalize an empty transaction")
	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, domain.CodeOutOfStock, stockErr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.CodeNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyReturned):
		writeError(w, http.StatusConflict, domain.CodeAlreadyReturned, "already returned")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, domain.CodeConflict, "already exists")
	case errors.Is(err, store.ErrInvalidTransaction):
		writeError(w, http.StatusConflict, domain.CodeConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid credentials")
	default:
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "", "internal server error")
	}
}

// decodeJSON rejects unknown fields. An empty body leaves dest untouched
// when optional is set.
func decodeJSON(r *http.Request, dest any, optional bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidationError("", "invalid request body: "+err.Error())
	}
	return nil
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func pathInt(r *http.Request, key string) (int64, error) {
	n, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be a number")
	}
	return n, nil
}

func writeError(w http.ResponseWriter, status int, code string, msg string) {
	payload := map[string]any{"error": msg}
	if code != "" {
		payload["code"] = code
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
