package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/pkg/zookeeper"
	"agrimart/internal/service/promotion/domain"
)

// PromotionService 定义了优惠服务提供的所有业务用例。
type PromotionService struct {
	repo       domain.DiscountRepository
	ruleEngine domain.RuleEngine
	zkConn     *zookeeper.Conn // 可为 nil，此时核销不加分布式锁（单实例部署）
	tracer     trace.Tracer
}

// NewPromotionService 创建一个新的优惠服务实例。
func NewPromotionService(repo domain.DiscountRepository, ruleEngine domain.RuleEngine, zkConn *zookeeper.Conn, tracer trace.Tracer) *PromotionService {
	return &PromotionService{repo: repo, ruleEngine: ruleEngine, zkConn: zkConn, tracer: tracer}
}

// Validate 校验优惠码并计算套用金额。
// 只读操作：不增加 usedCount，核销发生在订单确认阶段（Redeem）。
func (s *PromotionService) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Validate")
	defer span.End()
	span.SetAttributes(
		attribute.String("discount.code", req.Code),
		attribute.Int64("order.subtotal", req.Subtotal),
	)

	discount, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := discount.CheckApplicability(req.Subtotal, time.Now()); err != nil {
		span.AddEvent("discount rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
		return &ValidateResponse{Valid: false, Reason: reasonCode(err), Code: discount.Code}, nil
	}

	if discount.EligibilityRule != "" {
		ok, err := s.ruleEngine.Evaluate(discount.EligibilityRule, map[string]interface{}{
			"subtotal": req.Subtotal,
		})
		if err != nil {
			// 规则本身有问题不应惩罚用户：记录并按不可用处理
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).Str("code", discount.Code).Msg("eligibility rule evaluation failed")
			return &ValidateResponse{Valid: false, Reason: "NOT_ELIGIBLE", Code: discount.Code}, nil
		}
		if !ok {
			return &ValidateResponse{Valid: false, Reason: "NOT_ELIGIBLE", Code: discount.Code}, nil
		}
	}

	return &ValidateResponse{
		Valid:  true,
		Code:   discount.Code,
		Amount: discount.AmountFor(req.Subtotal),
	}, nil
}

// GetByCode 返回归一化的优惠码视图。
func (s *PromotionService) GetByCode(ctx context.Context, code string) (*DiscountView, error) {
	discount, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return toDiscountView(discount), nil
}

// Redeem 在订单确认时核销优惠码：usedCount 加一。
// 用分布式锁串行化同一个码的并发核销，防止限量券超发。
func (s *PromotionService) Redeem(ctx context.Context, req *RedeemRequest) error {
	ctx, span := s.tracer.Start(ctx, "promotion.Redeem")
	defer span.End()
	span.SetAttributes(
		attribute.String("discount.code", req.Code),
		attribute.String("order.id", req.OrderID),
	)

	if s.zkConn != nil {
		lock, err := zookeeper.NewDistributedLock(s.zkConn, "discount-"+req.Code)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if err := lock.Lock(); err != nil {
			span.RecordError(err)
			return err
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to release redeem lock")
			}
		}()
	}

	discount, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !discount.CanRedeem() {
		return domain.ErrUsageExceeded
	}
	if err := s.repo.IncrementUsage(ctx, req.Code); err != nil {
		span.RecordError(err)
		return err
	}

	logger.Ctx(ctx).Info().Str("code", req.Code).Str("order_id", req.OrderID).Msg("discount redeemed")
	return nil
}

// Create 后台创建优惠码。
func (s *PromotionService) Create(ctx context.Context, req *CreateDiscountRequest) (*DiscountView, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Create")
	defer span.End()

	discount := &domain.DiscountCode{
		Code:              req.Code,
		Description:       req.Description,
		DiscountPercent:   req.DiscountPercent,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinOrderValue:     req.MinOrderValue,
		ExpireDate:        req.ExpireDate,
		UsageLimit:        req.UsageLimit,
		IsActive:          true,
		EligibilityRule:   req.EligibilityRule,
	}
	if err := s.repo.Save(ctx, discount); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return toDiscountView(discount), nil
}

// List 返回全部优惠码，供后台管理页使用。
func (s *PromotionService) List(ctx context.Context) ([]*DiscountView, error) {
	discounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*DiscountView, 0, len(discounts))
	for _, d := range discounts {
		views = append(views, toDiscountView(d))
	}
	return views, nil
}

func reasonCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInactive):
		return "INACTIVE"
	case errors.Is(err, domain.ErrExpired):
		return "EXPIRED"
	case errors.Is(err, domain.ErrUsageExceeded):
		return "USAGE_EXCEEDED"
	case errors.Is(err, domain.ErrBelowMinimum):
		return "BELOW_MINIMUM"
	default:
		return "NOT_ELIGIBLE"
	}
}
