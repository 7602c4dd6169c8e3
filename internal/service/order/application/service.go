package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/order/domain"
)

const (
	idempotencyKeyPrefix = "order:idem:"
	idempotencyTTL       = 48 * time.Hour

	// 银行网关订单的支付时限，超时自动取消。
	paymentTimeout = 15 * time.Minute
)

// PromotionRedeemer 在下单成功后核销优惠码。
type PromotionRedeemer interface {
	Redeem(ctx context.Context, code string) error
}

// DedupeCache 是幂等键去重所需的缓存能力，*redis.Client 即满足。
type DedupeCache interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// OrderService 负责订单的创建与生命周期推进。
type OrderService struct {
	repo      domain.OrderRepository
	publisher domain.EventPublisher
	scheduler domain.TimeoutScheduler
	redeemer  PromotionRedeemer
	cache     DedupeCache
	tracer    trace.Tracer
}

func NewOrderService(
	repo domain.OrderRepository,
	publisher domain.EventPublisher,
	scheduler domain.TimeoutScheduler,
	redeemer PromotionRedeemer,
	cache DedupeCache,
	tracer trace.Tracer,
) *OrderService {
	return &OrderService{
		repo:      repo,
		publisher: publisher,
		scheduler: scheduler,
		redeemer:  redeemer,
		cache:     cache,
		tracer:    tracer,
	}
}

// CreateOrder 创建订单。同一幂等键的重复提交返回首次建立的订单号，
// 不会产生第二笔订单。
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.create")
	defer span.End()

	orderID := newOrderID()

	if req.IdempotencyKey != "" {
		acquired, err := s.cache.SetNX(ctx, idempotencyKeyPrefix+req.IdempotencyKey, orderID, idempotencyTTL)
		if err != nil {
			return nil, errors.Wrap(err, "idempotency check failed")
		}
		if !acquired {
			existing, err := s.cache.Get(ctx, idempotencyKeyPrefix+req.IdempotencyKey)
			if err != nil {
				return nil, errors.Wrap(err, "idempotency lookup failed")
			}
			logger.Ctx(ctx).Info().Str("order_id", existing).Msg("duplicate submission absorbed by idempotency key")
			span.SetAttributes(attribute.Bool("order.duplicate", true))
			return &CreateOrderResponse{OrderID: existing}, nil
		}
	}

	order := domain.NewOrder(orderID, req.PaymentMethod)
	order.IdempotencyKey = req.IdempotencyKey
	order.UserID = req.UserID
	order.Items = req.Items
	order.Address = req.Address
	order.DeliveryMethodID = req.DeliveryMethodID
	order.DiscountCode = req.DiscountCode
	order.Subtotal = req.Subtotal
	order.DiscountAmount = req.DiscountAmount
	order.DeliveryFee = req.DeliveryFee
	order.Total = req.Total
	order.ShippingUnconfirmed = req.ShippingUnconfirmed

	if err := s.repo.Save(ctx, order); err != nil {
		// 持久化失败时释放幂等键，允许调用方重试。
		if req.IdempotencyKey != "" {
			_ = s.cache.Del(ctx, idempotencyKeyPrefix+req.IdempotencyKey)
		}
		return nil, errors.Wrap(err, "failed to persist order")
	}

	if req.DiscountCode != "" {
		// 核销失败不回滚订单，留给对账任务补偿。
		if err := s.redeemer.Redeem(ctx, req.DiscountCode); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("code", req.DiscountCode).Msg("discount redeem failed after order creation")
		}
	}

	if order.AwaitsPayment() {
		if err := s.scheduler.SchedulePaymentTimeout(ctx, order.ID, paymentTimeout); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("failed to schedule payment timeout")
		}
	}

	s.publish(ctx, domain.EventOrderCreated, order)
	span.SetAttributes(attribute.String("order.id", order.ID))
	return &CreateOrderResponse{OrderID: order.ID}, nil
}

// GetOrder 返回订单详情。
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderView(order), nil
}

// HandlePaymentResult 处理支付网关回调。
func (s *OrderService) HandlePaymentResult(ctx context.Context, req *PaymentResultRequest) error {
	ctx, span := s.tracer.Start(ctx, "order.payment_result")
	defer span.End()

	order, err := s.repo.FindByID(ctx, req.OrderID)
	if err != nil {
		return err
	}

	if req.Success {
		if err := order.MarkPaid(); err != nil {
			return err
		}
	} else {
		if err := order.MarkFailed(); err != nil {
			return err
		}
	}
	if err := s.repo.Save(ctx, order); err != nil {
		return errors.Wrap(err, "failed to persist payment result")
	}

	if req.Success {
		s.publish(ctx, domain.EventOrderPaid, order)
	} else {
		s.publish(ctx, domain.EventOrderFailed, order)
	}
	return nil
}

// HandlePaymentTimeout 由延迟消息触发。订单若仍在等待支付则取消，
// 已支付或已取消的订单忽略本次检查。
func (s *OrderService) HandlePaymentTimeout(ctx context.Context, orderID string) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Ctx(ctx).Warn().Str("order_id", orderID).Msg("payment timeout for unknown order")
			return nil
		}
		return err
	}
	if !order.AwaitsPayment() {
		return nil
	}

	if err := order.Cancel(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, order); err != nil {
		return errors.Wrap(err, "failed to persist cancellation")
	}

	logger.Ctx(ctx).Info().Str("order_id", orderID).Msg("order cancelled after payment timeout")
	s.publish(ctx, domain.EventOrderCancelled, order)
	return nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *domain.Order) {
	event := &domain.Event{
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		State:     string(order.State),
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("event", eventType).Str("order_id", order.ID).Msg("failed to publish order event")
	}
}

func newOrderID() string {
	return fmt.Sprintf("AGM-%s-%s", time.Now().Format("20060102"), uuid.NewString()[:8])
}
