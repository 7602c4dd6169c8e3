package adapter

import (
	"context"
	"fmt"

	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/service/checkout/domain"
)

// PromotionHTTPAdapter 实现 port.PromotionService。
// 促销服务的校验接口对不可用的码返回结构化原因，
// 本适配器在此边界把它们归一为 domain.DiscountError，核心逻辑不感知响应形态。
type PromotionHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewPromotionHTTPAdapter(client *httpclient.Client, baseURL string) *PromotionHTTPAdapter {
	return &PromotionHTTPAdapter{client: client, baseURL: baseURL}
}

type validateDiscountRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

type validateDiscountResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}

// ValidateCode 调用促销服务校验优惠码。
func (a *PromotionHTTPAdapter) ValidateCode(ctx context.Context, code string, subtotal int64) (*domain.AppliedDiscount, error) {
	var resp validateDiscountResponse
	err := a.client.PostJSON(ctx, a.baseURL+"/api/discount/validate",
		&validateDiscountRequest{Code: code, Subtotal: subtotal}, &resp)
	if err != nil {
		if httpclient.IsNotFound(err) {
			return nil, &domain.DiscountError{Code: domain.DiscountNotFound}
		}
		return nil, fmt.Errorf("promotion service unavailable: %w", err)
	}

	if !resp.Valid {
		return nil, &domain.DiscountError{Code: mapDiscountReason(resp.Reason)}
	}
	return &domain.AppliedDiscount{Code: resp.Code, Amount: resp.Amount}, nil
}

func mapDiscountReason(reason string) domain.DiscountErrorCode {
	switch reason {
	case "EXPIRED":
		return domain.DiscountExpired
	case "USAGE_EXCEEDED":
		return domain.DiscountUsageExceeded
	case "BELOW_MINIMUM":
		return domain.DiscountBelowMinimum
	case "INACTIVE":
		return domain.DiscountInactive
	case "NOT_FOUND":
		return domain.DiscountNotFound
	default:
		return domain.DiscountUnavailable
	}
}
