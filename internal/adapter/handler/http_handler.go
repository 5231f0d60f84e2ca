package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rl1809/scan-catalog/internal/core/service"
)

const maxFrameBytes = 10 << 20

type HTTPHandler struct {
	catalog    *service.CatalogService
	storefront *service.Catalog
	sessions   *service.SessionStore
	dispatcher *service.Dispatcher
	adminToken string
}

type errorResponse struct {
	Error string `json:"error"`
}

type frameResponse struct {
	Detected bool          `json:"detected"`
	Code     string        `json:"code,omitempty"`
	View     *service.View `json:"view,omitempty"`
}

func NewHTTPHandler(catalog *service.CatalogService, storefront *service.Catalog, sessions *service.SessionStore,
	dispatcher *service.Dispatcher, adminToken string) *HTTPHandler {
	return &HTTPHandler{
		catalog:    catalog,
		storefront: storefront,
		sessions:   sessions,
		dispatcher: dispatcher,
		adminToken: adminToken,
	}
}

func (h *HTTPHandler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/id/{id:[0-9]+}", h.GetProductByID).Methods(http.MethodGet)
	api.HandleFunc("/products/{barcode}", h.GetProductByBarcode).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id:[0-9]+}", h.GetCategory).Methods(http.MethodGet)

	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/intents", h.Dispatch).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/lookup", h.Lookup).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/checkout", h.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/frames", h.UploadFrame).Methods(http.MethodPost)

	admin := api.NewRoute().Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/admin/products", h.SearchProducts).Methods(http.MethodGet)
	admin.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products/id/{id:[0-9]+}", h.UpdateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/products/id/{id:[0-9]+}", h.DeleteProduct).Methods(http.MethodDelete)
	admin.HandleFunc("/categories", h.CreateCategory).Methods(http.MethodPost)
	admin.HandleFunc("/categories/{id:[0-9]+}", h.UpdateCategory).Methods(http.MethodPut)
	admin.HandleFunc("/categories/{id:[0-9]+}", h.DeleteCategory).Methods(http.MethodDelete)
	admin.HandleFunc("/catalog/refresh", h.RefreshCatalog).Methods(http.MethodPost)

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":   "ok",
		"products": h.storefront.Len(),
		"sessions": h.sessions.Len(),
	}
	if at := h.storefront.LoadedAt(); !at.IsZero() {
		status["catalog_loaded_at"] = at
	}
	if err := h.storefront.LoadErr(); err != nil {
		status["catalog_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if v := r.URL.Query().Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		categoryID = &id
	}

	products, err := h.catalog.ListProducts(r.Context(), categoryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) GetProductByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProductByBarcode(r.Context(), mux.Vars(r)["barcode"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.catalog.SearchProducts(r.Context(), f, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), in)
	if errors.Is(err, service.ErrBarcodeExists) {
		writeError(w, http.StatusConflict, "exists")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), pathID(r), in)
	if errors.Is(err, service.ErrBarcodeExists) {
		writeError(w, http.StatusConflict, "barcode_exists")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.GetCategory(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	c, err := h.catalog.UpdateCategory(r.Context(), pathID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RefreshCatalog reloads the storefront catalog shared by all sessions.
func (h *HTTPHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.storefront.Load(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"products": h.storefront.Len()})
}

func (h *HTTPHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, h.dispatcher.Render(s))
}

func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.dispatcher.Render(s))
}

func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(mux.Vars(r)["id"]) {
		writeServiceError(w, service.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch applies one intent to the session.
func (h *HTTPHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var in service.Intent
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Kind == service.IntentFilterChanged {
		if _, err := service.ParsePriceBucket(string(in.Filter.Price)); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	h.dispatch(w, r, in)
}

func (h *HTTPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	h.dispatch(w, r, service.Intent{Kind: service.IntentManualLookup, Code: body.Code})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.Intent{Kind: service.IntentCheckout})
}

// dispatch answers 200 with the view for user-facing outcomes such as an
// unknown product; the view carries the notice.
func (h *HTTPHandler) dispatch(w http.ResponseWriter, r *http.Request, in service.Intent) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	view, err := h.dispatcher.Dispatch(r.Context(), s, in)
	if err != nil && !service.IsNotice(err) {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UploadFrame decodes one camera frame for the session and dispatches the
// detected code, if any, as a scan.
func (h *HTTPHandler) UploadFrame(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	img, _, err := image.Decode(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image")
		return
	}

	code, ok := s.DecodeFrame(img, time.Now())
	if !ok {
		writeJSON(w, http.StatusOK, frameResponse{Detected: false})
		return
	}

	view, err := h.dispatcher.Dispatch(r.Context(), s, service.Intent{Kind: service.IntentScanDetected, Code: code})
	if err != nil && !service.IsNotice(err) {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frameResponse{Detected: true, Code: code, View: &view})
}

func (h *HTTPHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if h.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		zap.S().Debugw("http request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func filterFromQuery(r *http.Request) (service.Filter, error) {
	q := r.URL.Query()
	f := service.Filter{Query: q.Get("q")}
	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, &service.ValidationError{Errors: []service.FieldError{{Msg: "invalid category", Param: "category"}}}
		}
		f.CategoryID = id
	}
	bucket, err := service.ParsePriceBucket(q.Get("price"))
	if err != nil {
		return f, err
	}
	f.Price = bucket
	return f, nil
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, verr)
		return
	}

	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		status, message = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrCategoryNotFound):
		status, message = http.StatusNotFound, "category_not_found"
	case errors.Is(err, service.ErrSessionNotFound):
		status, message = http.StatusNotFound, "session_not_found"
	case errors.Is(err, service.ErrUnknownProduct):
		status, message = http.StatusNotFound, "unknown_product"
	case errors.Is(err, service.ErrBarcodeExists):
		status, message = http.StatusConflict, "exists"
	case errors.Is(err, service.ErrCategoryExists):
		status, message = http.StatusConflict, "category_exists"
	case errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrInvalidIntent),
		errors.Is(err, service.ErrInvalidPriceBucket),
		errors.Is(err, service.ErrEmptyCode):
		status, message = http.StatusBadRequest, err.Error()
	default:
		zap.S().Errorf("request failed: %v", err)
	}
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
