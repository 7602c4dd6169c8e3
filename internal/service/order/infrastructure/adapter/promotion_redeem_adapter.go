package adapter

import (
	"context"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/httpclient"
)

// PromotionRedeemAdapter 实现 application.PromotionRedeemer。
type PromotionRedeemAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewPromotionRedeemAdapter(client *httpclient.Client, baseURL string) *PromotionRedeemAdapter {
	return &PromotionRedeemAdapter{client: client, baseURL: baseURL}
}

type redeemRequest struct {
	Code string `json:"code"`
}

// Redeem 核销一次优惠码用量。
func (a *PromotionRedeemAdapter) Redeem(ctx context.Context, code string) error {
	if err := a.client.PostJSON(ctx, a.baseURL+"/api/discount/redeem", &redeemRequest{Code: code}, nil); err != nil {
		return errors.Wrapf(err, "failed to redeem discount code %s", code)
	}
	return nil
}
