package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/promotion/application"
	"agrimart/internal/service/promotion/domain"
)

var validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "promotion_validations_total",
	Help: "Discount code validations by outcome.",
}, []string{"outcome"})

// PromotionHandler 封装了促销服务的 HTTP 处理器。
type PromotionHandler struct {
	service *application.PromotionService
}

func NewPromotionHandler(service *application.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *PromotionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/discount/validate", h.traced(h.handleValidate))
	mux.HandleFunc("/api/discount/redeem", h.traced(h.handleRedeem))
	mux.HandleFunc("/api/discount/", h.traced(h.handleGetByCode)) // GET /api/discount/{code}
	mux.HandleFunc("/api/discount", h.traced(h.handleCollection))
}

func (h *PromotionHandler) traced(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = logger.WithContext(ctx)
		next(w, r.WithContext(ctx))
	}
}

func (h *PromotionHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req application.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" || req.Subtotal < 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Validate(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrDiscountNotFound) {
			validationsTotal.WithLabelValues("not_found").Inc()
			http.Error(w, "discount code not found", http.StatusNotFound)
			return
		}
		logger.Ctx(r.Context()).Error().Err(err).Msg("discount validation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if resp.Valid {
		validationsTotal.WithLabelValues("valid").Inc()
	} else {
		validationsTotal.WithLabelValues(strings.ToLower(resp.Reason)).Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PromotionHandler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req application.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Redeem(r.Context(), &req); err != nil {
		switch {
		case errors.Is(err, domain.ErrDiscountNotFound):
			http.Error(w, "discount code not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrUsageExceeded):
			http.Error(w, "usage limit reached", http.StatusConflict)
		default:
			logger.Ctx(r.Context()).Error().Err(err).Msg("discount redeem failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PromotionHandler) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := strings.TrimPrefix(r.URL.Path, "/api/discount/")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	view, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrDiscountNotFound) {
			http.Error(w, "discount code not found", http.StatusNotFound)
			return
		}
		logger.Ctx(r.Context()).Error().Err(err).Msg("discount lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PromotionHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		views, err := h.service.List(r.Context())
		if err != nil {
			logger.Ctx(r.Context()).Error().Err(err).Msg("discount list failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var req application.CreateDiscountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		view, err := h.service.Create(r.Context(), &req)
		if err != nil {
			logger.Ctx(r.Context()).Error().Err(err).Msg("discount create failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
