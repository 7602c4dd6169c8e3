package port

import (
	"context"

	"agrimart/internal/service/checkout/domain"
)

// PromotionService 是结算侧对促销服务的出站端口。
// 适配器负责把下游的各种失败形态归一为 domain.DiscountError。
type PromotionService interface {
	ValidateCode(ctx context.Context, code string, subtotal int64) (*domain.AppliedDiscount, error)
}
