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
	"agrimart/internal/service/checkout/application"
	"agrimart/internal/service/checkout/domain"
)

const serviceName = "checkout-service"

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Checkout submissions by payment method and result.",
	}, []string{"method", "result"})

	discountRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_discount_rejections_total",
		Help: "Rejected discount codes by reason.",
	}, []string{"reason"})
)

// 每个 DiscountError 变体对应一条用户提示（越南语，前台直接展示）
var discountMessages = map[domain.DiscountErrorCode]string{
	domain.DiscountNotFound:      "Mã giảm giá không tồn tại",
	domain.DiscountExpired:       "Mã giảm giá đã hết hạn",
	domain.DiscountUsageExceeded: "Mã giảm giá đã hết lượt sử dụng",
	domain.DiscountBelowMinimum:  "Đơn hàng chưa đạt giá trị tối thiểu",
	domain.DiscountInactive:      "Mã giảm giá không còn hiệu lực",
	domain.DiscountUnavailable:   "Mã giảm giá không hợp lệ hoặc đã hết hạn",
}

// CheckoutHandler 封装结算服务的 HTTP 处理器。
type CheckoutHandler struct {
	service *application.CheckoutService
}

func NewCheckoutHandler(service *application.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/checkout/session", h.traced(h.handleSession))
	mux.HandleFunc("/api/checkout/items", h.traced(h.handleAddItem))
	mux.HandleFunc("/api/checkout/items/quantity", h.traced(h.handleUpdateQuantity))
	mux.HandleFunc("/api/checkout/items/remove", h.traced(h.handleRemoveItem))
	mux.HandleFunc("/api/checkout/discount", h.traced(h.handleApplyDiscount))
	mux.HandleFunc("/api/checkout/address", h.traced(h.handleSetAddress))
	mux.HandleFunc("/api/checkout/delivery-method", h.traced(h.handleSelectDelivery))
	mux.HandleFunc("/api/checkout/payment-method", h.traced(h.handleSelectPayment))
	mux.HandleFunc("/api/checkout/terms", h.traced(h.handleTerms))
	mux.HandleFunc("/api/checkout/quote", h.traced(h.handleQuote))
	mux.HandleFunc("/api/checkout/prepare", h.traced(h.handlePrepare))
	mux.HandleFunc("/api/checkout/submit", h.traced(h.handleSubmit))
}

// traced 提取上游 trace 上下文并注入带 trace_id 的 logger。
func (h *CheckoutHandler) traced(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = logger.WithContext(ctx)
		next(w, r.WithContext(ctx))
	}
}

func (h *CheckoutHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		view, err := h.service.CreateSession(r.Context(), req.UserID)
		h.respond(w, r, view, err)
	case http.MethodGet:
		view, err := h.service.GetSession(r.Context(), r.URL.Query().Get("id"))
		h.respond(w, r, view, err)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CheckoutHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req application.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.AddItem(r.Context(), &req)
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		ProductID int64  `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.UpdateQuantity(r.Context(), req.SessionID, req.ProductID, req.Quantity)
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		ProductID int64  `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.RemoveItem(r.Context(), req.SessionID, req.ProductID)
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Code      string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.ApplyDiscount(r.Context(), req.SessionID, req.Code)
	if de := domain.AsDiscountError(err); de != nil {
		discountRejectionsTotal.WithLabelValues(string(de.Code)).Inc()
		// 折扣失败不阻断结算：返回 200，带用户提示，订单继续无折扣
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session": view,
			"toast":   discountMessages[de.Code],
		})
		return
	}
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleSetAddress(w http.ResponseWriter, r *http.Request) {
	var req application.SetAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.SetAddress(r.Context(), &req)
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleSelectDelivery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		MethodID  int64  `json:"deliveryId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.SelectDeliveryMethod(r.Context(), req.SessionID, req.MethodID)
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleSelectPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Method    string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.SelectPaymentMethod(r.Context(), req.SessionID, domain.PaymentMethod(req.Method))
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleTerms(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Accepted  bool   `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.SetTermsAccepted(r.Context(), req.SessionID, req.Accepted)
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Quote(r.Context(), r.URL.Query().Get("id"))
	h.respond(w, r, view, err)
}

func (h *CheckoutHandler) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	button, err := h.service.PrepareSubmission(r.Context(), req.SessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true, "button": button})
}

func (h *CheckoutHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req application.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		submissionsTotal.WithLabelValues("unknown", "failed").Inc()
		h.writeError(w, r, err)
		return
	}
	submissionsTotal.WithLabelValues(string(result.Kind), "ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

func (h *CheckoutHandler) respond(w http.ResponseWriter, r *http.Request, view *application.SessionView, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CheckoutHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"field": ve.Field, "reason": ve.Reason,
		})
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrTermsNotAccepted),
		errors.Is(err, domain.ErrNoDeliveryMethod),
		errors.Is(err, domain.ErrNoPaymentMethod),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrSubmitInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("checkout request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
