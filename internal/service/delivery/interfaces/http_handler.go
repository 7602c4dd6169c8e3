package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/delivery/application"
	"agrimart/internal/service/delivery/domain"
)

var estimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "delivery_fee_estimates_total",
	Help: "Distance fee estimates by outcome.",
}, []string{"outcome"})

// DeliveryHandler 封装了配送服务的 HTTP 处理器。
type DeliveryHandler struct {
	service *application.DeliveryService
}

func NewDeliveryHandler(service *application.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *DeliveryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/delivery", h.traced(h.handleMethods))
	mux.HandleFunc("/api/delivery/estimate", h.traced(h.handleEstimate))
}

func (h *DeliveryHandler) traced(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = logger.WithContext(ctx)
		next(w, r.WithContext(ctx))
	}
}

func (h *DeliveryHandler) handleMethods(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		views, err := h.service.ListMethods(r.Context())
		if err != nil {
			logger.Ctx(r.Context()).Error().Err(err).Msg("delivery method list failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"methods": views})
	case http.MethodPost:
		var req application.SaveMethodRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.BasePrice < 0 {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		view, err := h.service.SaveMethod(r.Context(), &req)
		if err != nil {
			logger.Ctx(r.Context()).Error().Err(err).Msg("delivery method save failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DeliveryHandler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req application.EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.EstimateFee(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrDistanceUnknown) {
			estimatesTotal.WithLabelValues("unknown").Inc()
			// 距离不可得不是调用方的错，按约定回 200 并打 unknown 标记。
			writeJSON(w, http.StatusOK, map[string]interface{}{"fee": 0, "unknown": true})
			return
		}
		estimatesTotal.WithLabelValues("error").Inc()
		logger.Ctx(r.Context()).Error().Err(err).Msg("fee estimate failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	estimatesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fee":        resp.Fee,
		"distanceKm": resp.DistanceKm,
		"unknown":    false,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
