package interfaces

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/payment/application"
	"agrimart/internal/service/payment/domain"
)

var paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payments_total",
	Help: "Gateway payments by stage and outcome.",
}, []string{"stage", "outcome"})

// PaymentHandler 封装了支付服务的 HTTP 处理器。
type PaymentHandler struct {
	service *application.PaymentService
}

func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/create-payment", h.traced(h.handleCreatePayment))
	mux.HandleFunc("/api/payment/popup", h.traced(h.handlePopupButton))
	mux.HandleFunc("/api/payment/return", h.traced(h.handleReturn))
}

func (h *PaymentHandler) traced(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = logger.WithContext(ctx)
		next(w, r.WithContext(ctx))
	}
}

func (h *PaymentHandler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req application.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderRef == "" || req.Amount <= 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ClientIP = clientIP(r)

	resp, err := h.service.CreatePayment(r.Context(), &req)
	if err != nil {
		paymentsTotal.WithLabelValues("create", "error").Inc()
		logger.Ctx(r.Context()).Error().Err(err).Msg("payment creation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	paymentsTotal.WithLabelValues("create", "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) handlePopupButton(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req application.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderRef == "" || req.Amount <= 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ClientIP = clientIP(r)

	resp, err := h.service.CreatePopupButton(r.Context(), &req)
	if err != nil {
		paymentsTotal.WithLabelValues("popup", "error").Inc()
		logger.Ctx(r.Context()).Error().Err(err).Msg("popup button creation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	paymentsTotal.WithLabelValues("popup", "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

// handleReturn 处理网关支付完成后的浏览器回跳。
func (h *PaymentHandler) handleReturn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.service.HandleReturn(r.Context(), r.URL.Query())
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidSignature):
			paymentsTotal.WithLabelValues("return", "bad_signature").Inc()
			http.Error(w, "invalid signature", http.StatusBadRequest)
		case errors.Is(err, domain.ErrPaymentNotFound):
			http.Error(w, "payment not found", http.StatusNotFound)
		default:
			logger.Ctx(r.Context()).Error().Err(err).Msg("payment return handling failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	if result.Success {
		paymentsTotal.WithLabelValues("return", "paid").Inc()
	} else {
		paymentsTotal.WithLabelValues("return", "failed").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orderId": result.OrderRef,
		"success": result.Success,
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
