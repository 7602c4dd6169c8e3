package application

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/payment/domain"
)

// ErrInvalidSignature 表示回跳参数签名校验失败。
var ErrInvalidSignature = errors.New("gateway callback signature mismatch")

// OrderNotifier 把支付结果回传给订单服务。
type OrderNotifier interface {
	NotifyPaymentResult(ctx context.Context, orderRef string, success bool) error
}

// CreatePaymentRequest 是生成支付链接的请求。
type CreatePaymentRequest struct {
	OrderRef         string `json:"orderId"`
	Amount           int64  `json:"amount"`
	OrderDescription string `json:"orderDescription"`
	BankCode         string `json:"bankCode"`
	Language         string `json:"language"`
	OrderType        string `json:"orderType"`
	ClientIP         string `json:"-"`
}

// CreatePaymentResponse 返回网关跳转链接。
type CreatePaymentResponse struct {
	URL string `json:"url"`
}

// PopupButtonResponse 是弹窗支付按钮的渲染载荷。
type PopupButtonResponse struct {
	PayURL string            `json:"payUrl"`
	Params map[string]string `json:"params"`
}

// ReturnResult 是处理网关回跳后的结论。
type ReturnResult struct {
	OrderRef string
	Success  bool
}

// PaymentService 负责生成支付链接与处理网关回跳。
type PaymentService struct {
	gateway  *domain.Gateway
	repo     domain.PaymentRepository
	notifier OrderNotifier
	tracer   trace.Tracer
}

func NewPaymentService(gateway *domain.Gateway, repo domain.PaymentRepository, notifier OrderNotifier, tracer trace.Tracer) *PaymentService {
	return &PaymentService{gateway: gateway, repo: repo, notifier: notifier, tracer: tracer}
}

// CreatePayment 落一条待支付记录并返回签名后的网关链接。
func (s *PaymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "payment.create")
	defer span.End()

	if req.OrderRef == "" || req.Amount <= 0 {
		return nil, errors.New("orderId and positive amount are required")
	}

	payment := &domain.Payment{
		OrderRef:  req.OrderRef,
		Amount:    req.Amount,
		BankCode:  req.BankCode,
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, errors.Wrap(err, "failed to persist payment record")
	}

	payURL := s.gateway.BuildPaymentURL(domain.GatewayOrder{
		OrderRef:    req.OrderRef,
		Amount:      req.Amount,
		Description: req.OrderDescription,
		BankCode:    req.BankCode,
		Language:    req.Language,
		OrderType:   req.OrderType,
		ClientIP:    req.ClientIP,
		CreatedAt:   time.Now(),
	})

	span.SetAttributes(attribute.String("payment.order_ref", req.OrderRef))
	return &CreatePaymentResponse{URL: payURL}, nil
}

// CreatePopupButton 与 CreatePayment 同参，但不返回跳转链接，
// 而是返回弹窗组件直接提交网关所需的已签名参数。
func (s *PaymentService) CreatePopupButton(ctx context.Context, req *CreatePaymentRequest) (*PopupButtonResponse, error) {
	ctx, span := s.tracer.Start(ctx, "payment.popup_button")
	defer span.End()

	if req.OrderRef == "" || req.Amount <= 0 {
		return nil, errors.New("orderId and positive amount are required")
	}

	payment := &domain.Payment{
		OrderRef:  req.OrderRef,
		Amount:    req.Amount,
		BankCode:  req.BankCode,
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, errors.Wrap(err, "failed to persist payment record")
	}

	values := s.gateway.PopupParams(domain.GatewayOrder{
		OrderRef:    req.OrderRef,
		Amount:      req.Amount,
		Description: req.OrderDescription,
		BankCode:    req.BankCode,
		Language:    req.Language,
		OrderType:   req.OrderType,
		ClientIP:    req.ClientIP,
		CreatedAt:   time.Now(),
	})
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}

	span.SetAttributes(attribute.String("payment.order_ref", req.OrderRef))
	return &PopupButtonResponse{PayURL: s.gateway.PayURL, Params: params}, nil
}

// HandleReturn 校验网关回跳并把结果同步到支付记录与订单服务。
// 响应码 "00" 表示支付成功。
func (s *PaymentService) HandleReturn(ctx context.Context, query url.Values) (*ReturnResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.return")
	defer span.End()

	if !s.gateway.VerifyCallback(query) {
		return nil, ErrInvalidSignature
	}

	orderRef := query.Get("vnp_TxnRef")
	success := query.Get("vnp_ResponseCode") == "00"

	payment, err := s.repo.FindByOrderRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if success {
		payment.Status = domain.StatusPaid
	} else {
		payment.Status = domain.StatusFailed
	}
	payment.GatewayTxnNo = query.Get("vnp_TransactionNo")
	payment.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, errors.Wrap(err, "failed to persist payment status")
	}

	// 通知失败不影响回跳结论，订单侧还有超时检查兜底。
	if err := s.notifier.NotifyPaymentResult(ctx, orderRef, success); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_ref", orderRef).Msg("failed to notify order service of payment result")
	}

	span.SetAttributes(
		attribute.String("payment.order_ref", orderRef),
		attribute.Bool("payment.success", success),
	)
	return &ReturnResult{OrderRef: orderRef, Success: success}, nil
}
