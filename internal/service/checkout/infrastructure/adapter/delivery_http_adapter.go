package adapter

import (
	"context"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/service/checkout/domain"
	"agrimart/internal/service/checkout/domain/port"
)

// DeliveryHTTPAdapter 实现 port.DeliveryService。
type DeliveryHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewDeliveryHTTPAdapter(client *httpclient.Client, baseURL string) *DeliveryHTTPAdapter {
	return &DeliveryHTTPAdapter{client: client, baseURL: baseURL}
}

type deliveryMethodDTO struct {
	ID                int64  `json:"deliveryId"`
	Name              string `json:"name"`
	BasePrice         int64  `json:"basePrice"`
	FreeShipThreshold int64  `json:"minOrderAmount"`
	Region            string `json:"region"`
	Speed             string `json:"speed"`
	IsActive          bool   `json:"isActive"`
	IsDefault         bool   `json:"isDefault"`
}

type listMethodsResponse struct {
	Methods []deliveryMethodDTO `json:"methods"`
}

type estimateFeeRequest struct {
	Province string `json:"province"`
	District string `json:"district"`
	Ward     string `json:"ward"`
}

type estimateFeeResponse struct {
	Fee     int64 `json:"fee"`
	Unknown bool  `json:"unknown"`
}

// ListMethods 拉取配送方式目录，只返回启用的条目。
func (a *DeliveryHTTPAdapter) ListMethods(ctx context.Context) ([]port.DeliveryMethodInfo, error) {
	var resp listMethodsResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/delivery", &resp); err != nil {
		return nil, errors.Wrap(err, "delivery service unavailable")
	}

	methods := make([]port.DeliveryMethodInfo, 0, len(resp.Methods))
	for _, m := range resp.Methods {
		if !m.IsActive {
			continue
		}
		methods = append(methods, port.DeliveryMethodInfo{
			ID:                m.ID,
			Name:              m.Name,
			BasePrice:         m.BasePrice,
			FreeShipThreshold: m.FreeShipThreshold,
			Region:            m.Region,
			Speed:             m.Speed,
			IsDefault:         m.IsDefault,
		})
	}
	return methods, nil
}

// EstimateFee 请求距离运费估算。距离不可得时返回 domain.ErrFeeUnknown。
func (a *DeliveryHTTPAdapter) EstimateFee(ctx context.Context, dest port.Destination) (int64, error) {
	var resp estimateFeeResponse
	err := a.client.PostJSON(ctx, a.baseURL+"/api/delivery/estimate",
		&estimateFeeRequest{Province: dest.Province, District: dest.District, Ward: dest.Ward}, &resp)
	if err != nil {
		return 0, errors.Wrap(err, "delivery estimate failed")
	}
	if resp.Unknown {
		return 0, domain.ErrFeeUnknown
	}
	return resp.Fee, nil
}
