package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/usecase/command"
	"github.com/averta/stocksync/internal/catalog/usecase/query"
	syncsvc "github.com/averta/stocksync/internal/sync"
	"github.com/averta/stocksync/pkg/logger"
)

// maxUploadBytes caps the accepted snapshot upload size.
const maxUploadBytes = 32 << 20

// CatalogHandler handles HTTP requests for the catalog
type CatalogHandler struct {
	// Command handlers
	importHandler   *command.ImportFileHandler
	setPriceHandler *command.SetPriceHandler

	// Query handlers
	summaryHandler *query.GetSummaryHandler
	listHandler    *query.ListProductsHandler
	changesHandler *query.ListChangesHandler
	brandsHandler  *query.ListBrandsHandler

	repo      domain.CatalogRepository
	scheduler *syncsvc.Scheduler

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	productGauge   prometheus.Gauge
}

// NewCatalogHandler creates a new catalog handler. scheduler may be nil when
// the live source is disabled.
func NewCatalogHandler(
	repo domain.CatalogRepository,
	importHandler *command.ImportFileHandler,
	setPriceHandler *command.SetPriceHandler,
	scheduler *syncsvc.Scheduler,
) *CatalogHandler {
	// Initialize Prometheus metrics
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksync_requests_total",
			Help: "Total number of requests to the catalog service",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocksync_request_duration_seconds",
			Help:    "Duration of catalog service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	productGauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stocksync_products_total",
			Help: "Number of products currently in the catalog",
		},
	)

	prometheus.MustRegister(requestCounter)
	prometheus.MustRegister(requestLatency)
	prometheus.MustRegister(productGauge)

	return &CatalogHandler{
		importHandler:   importHandler,
		setPriceHandler: setPriceHandler,
		summaryHandler:  query.NewGetSummaryHandler(repo),
		listHandler:     query.NewListProductsHandler(repo),
		changesHandler:  query.NewListChangesHandler(repo),
		brandsHandler:   query.NewListBrandsHandler(repo),
		repo:            repo,
		scheduler:       scheduler,
		requestCounter:  requestCounter,
		requestLatency:  requestLatency,
		productGauge:    productGauge,
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *CatalogHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	}
}

// Import handles POST /api/import (multipart snapshot upload)
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	result, err := h.importHandler.HandleFromBytes(r.Context(), header.Filename, content)
	if err != nil {
		logger.Error(r.Context()).Err(err).Str("filename", header.Filename).Msg("Import failed")
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrUnsupportedFormat) || errors.Is(err, domain.ErrDetectionFailed) {
			status = http.StatusUnprocessableEntity
		}
		h.respondError(w, status, err.Error())
		return
	}

	h.updateProductGauge()
	h.respondJSON(w, http.StatusOK, result)
}

// GetSummary handles GET /api/summary
func (h *CatalogHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summaryHandler.Handle(query.GetSummaryQuery{})
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to build summary")
		h.respondError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

// ListBrands handles GET /api/brands
func (h *CatalogHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.brandsHandler.Handle()
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to list brands")
		h.respondError(w, http.StatusInternalServerError, "Failed to list brands")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"brands": brands})
}

// ListProducts handles GET /api/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := domain.ProductFilter{
		Search:       q.Get("search"),
		Brand:        q.Get("brand"),
		Availability: domain.Availability(q.Get("availability")),
		SortBy:       q.Get("sort"),
		SortDesc:     q.Get("order") == "desc",
		Limit:        limit,
		Offset:       offset,
	}

	result, err := h.listHandler.Handle(query.ListProductsQuery{Filter: filter})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error(r.Context()).Err(err).Msg("Failed to list products")
		h.respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /api/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	product, err := h.repo.FindProductByID(vars["id"])
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		logger.Error(r.Context()).Err(err).Msg("Failed to load product")
		h.respondError(w, http.StatusInternalServerError, "Failed to load product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// SetPrice handles PUT /api/products/{id}/price
func (h *CatalogHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		DealerPrice *float64 `json:"dealer_price"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.setPriceHandler.Handle(r.Context(), command.SetPriceCommand{
		ProductID:   vars["id"],
		DealerPrice: req.DealerPrice,
	})

	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnprocessableEntity
	}
	h.respondJSON(w, status, result)
}

// ListChanges handles GET /api/changes
func (h *CatalogHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := domain.ChangeFilter{
		ProductID: q.Get("product_id"),
		Limit:     limit,
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid since timestamp, expected RFC3339")
			return
		}
		filter.Since = &since
	}

	if raw := q.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filter.Types = append(filter.Types, domain.ChangeType(strings.TrimSpace(t)))
		}
	}

	changes, err := h.changesHandler.Handle(query.ListChangesQuery{Filter: filter})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error(r.Context()).Err(err).Msg("Failed to list changes")
		h.respondError(w, http.StatusInternalServerError, "Failed to list changes")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"changes": changes})
}

// SyncRefresh handles POST /api/sync/refresh
func (h *CatalogHandler) SyncRefresh(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Live source is not configured")
		return
	}

	result := h.scheduler.Refresh(r.Context())
	h.updateProductGauge()

	status := http.StatusOK
	if result != nil && !result.Success {
		status = http.StatusBadGateway
	}
	h.respondJSON(w, status, result)
}

// SyncStatus handles GET /api/sync/status
func (h *CatalogHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		h.respondJSON(w, http.StatusOK, syncsvc.Status{})
		return
	}

	h.respondJSON(w, http.StatusOK, h.scheduler.Status())
}

// HealthCheck handles GET /health
func (h *CatalogHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.repo.CountProducts(); err != nil {
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "Storage unavailable",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// updateProductGauge refreshes the product-count gauge, best effort.
func (h *CatalogHandler) updateProductGauge() {
	if count, err := h.repo.CountProducts(); err == nil {
		h.productGauge.Set(float64(count))
	}
}

// respondJSON sends a JSON response
func (h *CatalogHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *CatalogHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/import", h.metricsMiddleware("/api/import", h.Import)).Methods("POST")
	router.HandleFunc("/api/summary", h.metricsMiddleware("/api/summary", h.GetSummary)).Methods("GET")
	router.HandleFunc("/api/brands", h.metricsMiddleware("/api/brands", h.ListBrands)).Methods("GET")
	router.HandleFunc("/api/products", h.metricsMiddleware("/api/products", h.ListProducts)).Methods("GET")
	router.HandleFunc("/api/products/{id}", h.metricsMiddleware("/api/products/{id}", h.GetProduct)).Methods("GET")
	router.HandleFunc("/api/products/{id}/price", h.metricsMiddleware("/api/products/{id}/price", h.SetPrice)).Methods("PUT")
	router.HandleFunc("/api/changes", h.metricsMiddleware("/api/changes", h.ListChanges)).Methods("GET")
	router.HandleFunc("/api/sync/refresh", h.metricsMiddleware("/api/sync/refresh", h.SyncRefresh)).Methods("POST")
	router.HandleFunc("/api/sync/status", h.metricsMiddleware("/api/sync/status", h.SyncStatus)).Methods("GET")
}

// RegisterHealthCheck registers the health check endpoint
func (h *CatalogHandler) RegisterHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
