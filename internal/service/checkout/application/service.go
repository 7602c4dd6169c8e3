package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/checkout/domain"
	"agrimart/internal/service/checkout/domain/port"
)

// CheckoutService 编排结算流程：购物车维护、报价（小计 → 折扣 → 运费 → 总价）
// 与提交分派。会话状态存于 SessionStore，本服务自身无业务状态。
type CheckoutService struct {
	store     domain.SessionStore
	promotion port.PromotionService
	delivery  port.DeliveryService
	orders    port.OrderService
	payments  port.PaymentService
	tracer    trace.Tracer

	// 进行中的运费估算，按会话取消被新目的地取代的请求
	estimateMu     sync.Mutex
	estimateCancel map[string]inflightEstimate
}

type inflightEstimate struct {
	seq    uint64
	cancel context.CancelFunc
}

// NewCheckoutService 创建结算服务实例。
func NewCheckoutService(
	store domain.SessionStore,
	promotion port.PromotionService,
	delivery port.DeliveryService,
	orders port.OrderService,
	payments port.PaymentService,
	tracer trace.Tracer,
) *CheckoutService {
	return &CheckoutService{
		store:          store,
		promotion:      promotion,
		delivery:       delivery,
		orders:         orders,
		payments:       payments,
		tracer:         tracer,
		estimateCancel: make(map[string]inflightEstimate),
	}
}

// CreateSession 创建新的结算会话，并预选默认配送方式。
func (s *CheckoutService) CreateSession(ctx context.Context, userID string) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.CreateSession")
	defer span.End()

	session := domain.NewSession(uuid.New().String(), userID, time.Now())

	// 预选 isDefault 的配送方式；目录不可用不阻断会话创建
	methods, err := s.delivery.ListMethods(ctx)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).Msg("delivery catalog unavailable, session created without default method")
	} else {
		for _, m := range methods {
			if m.IsDefault {
				session.SelectDelivery(toDeliveryOption(m))
				break
			}
		}
	}

	if err := s.store.Save(ctx, session); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("checkout.session_id", session.ID))
	return toSessionView(session), nil
}

// GetSession 读取会话视图。
func (s *CheckoutService) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toSessionView(session), nil
}

// AddItem 向购物车添加商品行。
func (s *CheckoutService) AddItem(ctx context.Context, req *AddItemRequest) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.AddItem")
	defer span.End()

	return s.mutate(ctx, req.SessionID, func(session *domain.Session) error {
		return session.AddItem(domain.CartLineItem{
			ProductID:           req.ProductID,
			Name:                req.Name,
			UnitPrice:           req.UnitPrice,
			SalePrice:           req.SalePrice,
			Quantity:            req.Quantity,
			LineDiscountPercent: req.LineDiscountPercent,
		})
	})
}

// UpdateQuantity 修改商品数量。
func (s *CheckoutService) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.UpdateQuantity")
	defer span.End()

	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		return session.UpdateQuantity(productID, quantity)
	})
}

// RemoveItem 删除商品行。
func (s *CheckoutService) RemoveItem(ctx context.Context, sessionID string, productID int64) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.RemoveItem")
	defer span.End()

	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		return session.RemoveItem(productID)
	})
}

// ApplyDiscount 校验并套用优惠码。校验失败时返回会话视图和 DiscountError：
// 订单继续走无折扣流程，错误只用于向用户提示。
func (s *CheckoutService) ApplyDiscount(ctx context.Context, sessionID, code string) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ApplyDiscount")
	defer span.End()
	span.SetAttributes(attribute.String("discount.code", code))

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	applied, err := s.promotion.ValidateCode(ctx, code, session.Subtotal())
	if err != nil {
		span.RecordError(err)
		session.ClearDiscount()
		if saveErr := s.store.Save(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		if de := domain.AsDiscountError(err); de != nil {
			return toSessionView(session), de
		}
		// 网络/解析失败统一呈现为"无效或已过期"
		return toSessionView(session), &domain.DiscountError{Code: domain.DiscountUnavailable}
	}

	session.ApplyDiscount(*applied)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return toSessionView(session), nil
}

// SetAddress 更新地址。目的地变化时发起新的运费估算，
// 并取消本实例上被取代的在途估算请求。
func (s *CheckoutService) SetAddress(ctx context.Context, req *SetAddressRequest) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.SetAddress")
	defer span.End()

	session, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	session.SetAddress(domain.Address{
		FullName: req.FullName,
		Phone:    req.Phone,
		Province: req.Province,
		District: req.District,
		Ward:     req.Ward,
		Street:   req.Street,
	})

	if !session.FeeFresh {
		seq := session.NextFeeSeq()
		if err := s.store.Save(ctx, session); err != nil {
			return nil, err
		}
		s.estimateAndRecord(ctx, session.ID, seq, port.Destination{
			Province: req.Province,
			District: req.District,
			Ward:     req.Ward,
		})
		session, err = s.store.Get(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return toSessionView(session), nil
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return toSessionView(session), nil
}

// estimateAndRecord 执行一次运费估算并把结果写回会话。
// 自动重试一次；仍失败则记为运费未知，由用户改地址触发显式重试。
func (s *CheckoutService) estimateAndRecord(ctx context.Context, sessionID string, seq uint64, dest port.Destination) {
	ctx, span := s.tracer.Start(ctx, "checkout.EstimateDeliveryFee")
	defer span.End()
	span.SetAttributes(
		attribute.String("delivery.province", dest.Province),
		attribute.Int64("delivery.fee_seq", int64(seq)),
	)

	estimateCtx, cancel := context.WithCancel(ctx)
	s.estimateMu.Lock()
	if prev, ok := s.estimateCancel[sessionID]; ok {
		prev.cancel() // 取消被新目的地取代的请求
	}
	s.estimateCancel[sessionID] = inflightEstimate{seq: seq, cancel: cancel}
	s.estimateMu.Unlock()
	defer func() {
		s.estimateMu.Lock()
		if current, ok := s.estimateCancel[sessionID]; ok && current.seq == seq {
			delete(s.estimateCancel, sessionID)
		}
		s.estimateMu.Unlock()
		cancel()
	}()

	fee, err := s.delivery.EstimateFee(estimateCtx, dest)
	if err != nil && estimateCtx.Err() == nil {
		// 至多自动重试一次，不做无限重试
		fee, err = s.delivery.EstimateFee(estimateCtx, dest)
	}

	unknown := false
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("delivery fee estimate failed, flagged as unknown")
		fee, unknown = 0, true
	}

	session, getErr := s.store.Get(ctx, sessionID)
	if getErr != nil {
		span.RecordError(getErr)
		return
	}
	if !session.RecordFeeEstimate(seq, fee, unknown) {
		span.AddEvent("stale fee estimate discarded")
		return
	}
	if saveErr := s.store.Save(ctx, session); saveErr != nil {
		span.RecordError(saveErr)
	}
}

// SelectDeliveryMethod 选择配送方式。
func (s *CheckoutService) SelectDeliveryMethod(ctx context.Context, sessionID string, methodID int64) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.SelectDeliveryMethod")
	defer span.End()

	methods, err := s.delivery.ListMethods(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		for _, m := range methods {
			if m.ID == methodID {
				session.SelectDelivery(toDeliveryOption(m))
				return nil
			}
		}
		return &domain.ValidationError{Field: "deliveryId", Reason: "unknown delivery method"}
	})
}

// SelectPaymentMethod 是纯状态流转，不触发校验或副作用。
func (s *CheckoutService) SelectPaymentMethod(ctx context.Context, sessionID string, method domain.PaymentMethod) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.SelectPaymentMethod")
	defer span.End()

	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		return session.SelectPaymentMethod(method)
	})
}

// SetTermsAccepted 记录条款勾选状态。
func (s *CheckoutService) SetTermsAccepted(ctx context.Context, sessionID string, accepted bool) (*SessionView, error) {
	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		session.TermsAccepted = accepted
		return nil
	})
}

// PrepareSubmission 显式执行提交前校验。弹窗支付方式额外返回按钮载荷，
// 供前端预渲染支付按钮；其余方式校验通过即返回。
func (s *CheckoutService) PrepareSubmission(ctx context.Context, sessionID string) (*PaymentButton, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PrepareSubmission")
	defer span.End()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if session.PaymentMethod != domain.PaymentGatewayPopup {
		return nil, nil
	}
	return &PaymentButton{
		OrderRef: session.ID,
		Amount:   session.Total().Total,
		Currency: "VND",
	}, nil
}

// Quote 重算订单金额，并发刷新折扣与运费两项充实步骤。
// 任一充实失败不阻断另一项，也不阻断小计计算。
func (s *CheckoutService) Quote(ctx context.Context, sessionID string) (*SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Quote")
	defer span.End()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	subtotal := session.Subtotal()
	var (
		mu         sync.Mutex
		discount   *domain.AppliedDiscount
		discountOK bool
	)

	g, gctx := errgroup.WithContext(ctx)
	if session.Discount != nil {
		code := session.Discount.Code
		g.Go(func() error {
			applied, err := s.promotion.ValidateCode(gctx, code, subtotal)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				discount, discountOK = applied, true
			}
			// 折扣刷新失败不作为整体错误
			return nil
		})
	}
	if !session.FeeFresh && session.Address.Province != "" {
		seq := session.NextFeeSeq()
		if err := s.store.Save(ctx, session); err != nil {
			return nil, err
		}
		dest := port.Destination{
			Province: session.Address.Province,
			District: session.Address.District,
			Ward:     session.Address.Ward,
		}
		g.Go(func() error {
			s.estimateAndRecord(gctx, sessionID, seq, dest)
			return nil
		})
	}
	_ = g.Wait()

	session, err = s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Discount != nil {
		if discountOK {
			session.ApplyDiscount(*discount)
		} else {
			session.ClearDiscount()
		}
		if err := s.store.Save(ctx, session); err != nil {
			return nil, err
		}
	}
	return toSessionView(session), nil
}

// Submit 按所选支付方式分派提交。
//   - cash: 一次幂等的订单提交，2xx 才清空购物车
//   - gateway_redirect: 先持久化订单载荷，再创建支付并返回跳转 URL
//   - gateway_popup: 不直接下单，返回校验后的支付按钮载荷
func (s *CheckoutService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Submit")
	defer span.End()

	session, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("checkout.session_id", session.ID),
		attribute.String("checkout.payment_method", string(session.PaymentMethod)),
	)

	// 弹窗路径不进入 Submitting：下单由外部支付组件回调驱动
	if session.PaymentMethod == domain.PaymentGatewayPopup {
		button, err := s.PrepareSubmission(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Kind: ResultPaymentButton, Button: button}, nil
	}

	if err := session.BeginSubmit(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if session.IdempotencyKey == "" {
		session.IdempotencyKey = uuid.New().String()
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}

	switch session.PaymentMethod {
	case domain.PaymentCash:
		return s.submitCashOrder(ctx, session)
	case domain.PaymentGatewayRedirect:
		return s.submitGatewayRedirect(ctx, session, req)
	default:
		return nil, domain.ErrUnknownPaymentKind
	}
}

func (s *CheckoutService) submitCashOrder(ctx context.Context, session *domain.Session) (*SubmitResult, error) {
	totals := session.Total()
	submission := buildSubmission(session, totals)

	orderID, err := s.orders.Submit(ctx, submission)
	if err != nil {
		// 提交失败：购物车保留，允许用户显式重试
		session.CompleteSubmit(false)
		if saveErr := s.store.Save(ctx, session); saveErr != nil {
			logger.Ctx(ctx).Error().Err(saveErr).Msg("failed to persist failed submission state")
		}
		return nil, err
	}

	session.CompleteSubmit(true)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &SubmitResult{
		Kind:                ResultOrderPlaced,
		OrderID:             orderID,
		ShippingUnconfirmed: totals.FeeUnknown,
	}, nil
}

func (s *CheckoutService) submitGatewayRedirect(ctx context.Context, session *domain.Session, req *SubmitRequest) (*SubmitResult, error) {
	totals := session.Total()
	submission := buildSubmission(session, totals)

	// 跳转前先持久化订单载荷，回跳确认时取回
	payload, err := json.Marshal(submission)
	if err != nil {
		session.CompleteSubmit(false)
		_ = s.store.Save(ctx, session)
		return nil, err
	}
	if err := s.store.SavePendingPayment(ctx, session.ID, payload); err != nil {
		session.CompleteSubmit(false)
		_ = s.store.Save(ctx, session)
		return nil, err
	}

	url, err := s.payments.CreatePayment(ctx, port.PaymentRequest{
		OrderRef:         session.IdempotencyKey,
		Amount:           totals.Total,
		OrderDescription: fmt.Sprintf("Thanh toan don hang %s", session.ID),
		BankCode:         req.BankCode,
		Language:         req.Language,
		OrderType:        "other",
	})
	if err != nil {
		// 创建支付失败：回到可重试状态，购物车保留
		session.CompleteSubmit(false)
		if saveErr := s.store.Save(ctx, session); saveErr != nil {
			logger.Ctx(ctx).Error().Err(saveErr).Msg("failed to persist failed submission state")
		}
		return nil, err
	}

	// 跳转后支付结果通过回跳 URL 在后端确认，这里不清空购物车
	session.State = domain.StateSuccess
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return &SubmitResult{
		Kind:                ResultRedirect,
		RedirectURL:         url,
		ShippingUnconfirmed: totals.FeeUnknown,
	}, nil
}

func buildSubmission(session *domain.Session, totals domain.OrderTotal) port.OrderSubmission {
	sub := port.OrderSubmission{
		IdempotencyKey:      session.IdempotencyKey,
		UserID:              session.UserID,
		Items:               session.Items,
		Address:             session.Address,
		PaymentMethod:       string(session.PaymentMethod),
		Totals:              totals,
		ShippingUnconfirmed: totals.FeeUnknown,
	}
	if session.Delivery != nil {
		sub.DeliveryMethodID = session.Delivery.ID
	}
	if session.Discount != nil {
		sub.DiscountCode = session.Discount.Code
	}
	return sub
}

func (s *CheckoutService) mutate(ctx context.Context, sessionID string, fn func(*domain.Session) error) (*SessionView, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return toSessionView(session), nil
}

func toDeliveryOption(m port.DeliveryMethodInfo) domain.DeliveryOption {
	return domain.DeliveryOption{
		ID:                m.ID,
		Name:              m.Name,
		BasePrice:         m.BasePrice,
		FreeShipThreshold: m.FreeShipThreshold,
	}
}
