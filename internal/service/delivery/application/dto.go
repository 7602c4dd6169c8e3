package application

import "agrimart/internal/service/delivery/domain"

// MethodView 是配送方式的对外表示。
type MethodView struct {
	ID             int64  `json:"deliveryId"`
	Name           string `json:"name"`
	BasePrice      int64  `json:"basePrice"`
	MinOrderAmount int64  `json:"minOrderAmount"`
	Region         string `json:"region"`
	Speed          string `json:"speed"`
	IsActive       bool   `json:"isActive"`
	IsDefault      bool   `json:"isDefault"`
}

// SaveMethodRequest 新建或更新配送方式。
type SaveMethodRequest struct {
	ID             int64  `json:"deliveryId"`
	Name           string `json:"name"`
	BasePrice      int64  `json:"basePrice"`
	MinOrderAmount int64  `json:"minOrderAmount"`
	Region         string `json:"region"`
	Speed          string `json:"speed"`
	IsActive       bool   `json:"isActive"`
	IsDefault      bool   `json:"isDefault"`
}

// EstimateRequest 是运费估算请求。
type EstimateRequest struct {
	Province string `json:"province"`
	District string `json:"district"`
	Ward     string `json:"ward"`
}

// EstimateResponse 是运费估算结果。
type EstimateResponse struct {
	DistanceKm float64 `json:"distanceKm"`
	Fee        int64   `json:"fee"`
}

func toMethodView(m *domain.DeliveryMethod) *MethodView {
	return &MethodView{
		ID:             m.ID,
		Name:           m.Name,
		BasePrice:      m.BasePrice,
		MinOrderAmount: m.MinOrderAmount,
		Region:         string(m.Region),
		Speed:          string(m.Speed),
		IsActive:       m.IsActive,
		IsDefault:      m.IsDefault,
	}
}
