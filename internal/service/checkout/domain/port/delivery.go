package port

import (
	"context"
)

// DeliveryMethodInfo 是配送方式目录条目。
type DeliveryMethodInfo struct {
	ID                int64
	Name              string
	BasePrice         int64
	FreeShipThreshold int64
	Region            string
	Speed             string
	IsDefault         bool
}

// Destination 是运费估算的目的地（省/县/坊）。
type Destination struct {
	Province string
	District string
	Ward     string
}

// DeliveryService 是结算侧对配送服务的出站端口。
// EstimateFee 在距离不可得时返回 domain.ErrFeeUnknown，调用方不得把未知当作免运费。
type DeliveryService interface {
	ListMethods(ctx context.Context) ([]DeliveryMethodInfo, error)
	EstimateFee(ctx context.Context, dest Destination) (int64, error)
}
