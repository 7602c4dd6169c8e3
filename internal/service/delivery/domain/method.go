package domain

import (
	"context"
	"errors"
)

var (
	ErrMethodNotFound = errors.New("delivery method not found")
	// ErrDistanceUnknown 表示距离不可得（目的地无法解析或路线服务失败）。
	// 调用方必须把它作为"运费未确认"呈现，而不是默认免运费。
	ErrDistanceUnknown = errors.New("shipping distance could not be determined")
)

// Region 枚举配送方式适用的区域。
type Region string

const (
	RegionAny    Region = "any"
	RegionUrban  Region = "urban"
	RegionSuburb Region = "suburb"
)

// Speed 枚举配送时效。
type Speed string

const (
	SpeedStandard Speed = "standard"
	SpeedFast     Speed = "fast"
	SpeedSameDay  Speed = "same_day"
)

// DeliveryMethod 是一种命名的配送服务档位，底价与距离费相互独立。
type DeliveryMethod struct {
	ID             int64
	Name           string
	BasePrice      int64 // VND
	MinOrderAmount int64 // 免运费门槛，0 表示无
	Region         Region
	Speed          Speed
	IsActive       bool
	IsDefault      bool // 每组配送方式至多一个默认项
}

// MethodRepository 定义配送方式目录的持久化接口。
type MethodRepository interface {
	List(ctx context.Context) ([]*DeliveryMethod, error)
	FindByID(ctx context.Context, id int64) (*DeliveryMethod, error)
	Save(ctx context.Context, method *DeliveryMethod) error
	Delete(ctx context.Context, id int64) error
}

// Coordinate 是经纬度坐标。
type Coordinate struct {
	Lat float64
	Lng float64
}

// Destination 是运费估算的目的地。
type Destination struct {
	Province string
	District string
	Ward     string
}

// CacheKey 生成目的地的缓存/去重键。
func (d Destination) CacheKey() string {
	return d.Province + "|" + d.District + "|" + d.Ward
}

// Geocoder 把目的地解析为坐标。解析失败返回 ErrDistanceUnknown。
type Geocoder interface {
	Resolve(ctx context.Context, dest Destination) (Coordinate, error)
}

// Router 计算两点间的行车距离（公里）。
type Router interface {
	DrivingDistanceKm(ctx context.Context, origin, destination Coordinate) (float64, error)
}
