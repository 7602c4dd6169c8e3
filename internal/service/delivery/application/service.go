package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/service/delivery/domain"
)

const (
	distanceCacheKeyPrefix = "delivery:distance:"
	distanceCacheTTL       = 24 * time.Hour
)

// DistanceCache 缓存已解析的目的地距离，*redis.Client 即满足。
type DistanceCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// DeliveryService 提供配送方式目录与按距离的运费估算。
type DeliveryService struct {
	repo     domain.MethodRepository
	geocoder domain.Geocoder
	router   domain.Router
	cache    DistanceCache
	tracer   trace.Tracer

	// 仓库发货地坐标，所有距离都从这里起算。
	origin domain.Coordinate

	// 同一目的地的并发估算合并为一次路线查询。
	group singleflight.Group
}

func NewDeliveryService(
	repo domain.MethodRepository,
	geocoder domain.Geocoder,
	router domain.Router,
	cache DistanceCache,
	origin domain.Coordinate,
	tracer trace.Tracer,
) *DeliveryService {
	return &DeliveryService{
		repo:     repo,
		geocoder: geocoder,
		router:   router,
		cache:    cache,
		origin:   origin,
		tracer:   tracer,
	}
}

// ListMethods 返回启用中的配送方式。
func (s *DeliveryService) ListMethods(ctx context.Context) ([]*MethodView, error) {
	methods, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*MethodView, 0, len(methods))
	for _, m := range methods {
		if !m.IsActive {
			continue
		}
		views = append(views, toMethodView(m))
	}
	return views, nil
}

// SaveMethod 新建或更新配送方式（运营后台用）。
func (s *DeliveryService) SaveMethod(ctx context.Context, req *SaveMethodRequest) (*MethodView, error) {
	method := &domain.DeliveryMethod{
		ID:             req.ID,
		Name:           req.Name,
		BasePrice:      req.BasePrice,
		MinOrderAmount: req.MinOrderAmount,
		Region:         domain.Region(req.Region),
		Speed:          domain.Speed(req.Speed),
		IsActive:       req.IsActive,
		IsDefault:      req.IsDefault,
	}
	if err := s.repo.Save(ctx, method); err != nil {
		return nil, err
	}
	return toMethodView(method), nil
}

// EstimateFee 估算到目的地的距离运费。
// 距离不可得时返回 domain.ErrDistanceUnknown，调用方必须呈现"运费未确认"。
func (s *DeliveryService) EstimateFee(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "delivery.estimate")
	defer span.End()

	dest := domain.Destination{
		Province: req.Province,
		District: req.District,
		Ward:     req.Ward,
	}
	if dest.Province == "" {
		return nil, domain.ErrDistanceUnknown
	}

	km, err := s.distanceKm(ctx, dest)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("province", dest.Province).
			Msg("distance lookup failed, fee reported as unknown")
		return nil, domain.ErrDistanceUnknown
	}

	fee := domain.TierFee(km)
	span.SetAttributes(
		attribute.Float64("delivery.distance_km", km),
		attribute.Int64("delivery.distance_fee", fee),
	)
	return &EstimateResponse{DistanceKm: km, Fee: fee}, nil
}

// distanceKm 解析目的地坐标并查询行车距离，结果按目的地缓存。
func (s *DeliveryService) distanceKm(ctx context.Context, dest domain.Destination) (float64, error) {
	cacheKey := distanceCacheKeyPrefix + dest.CacheKey()
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
		if km, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return km, nil
		}
	}

	v, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		coord, err := s.geocoder.Resolve(ctx, dest)
		if err != nil {
			return 0.0, err
		}

		km, err := s.router.DrivingDistanceKm(ctx, s.origin, coord)
		if err != nil {
			// 路线服务偶发失败，重试一次后再放弃。
			km, err = s.router.DrivingDistanceKm(ctx, s.origin, coord)
			if err != nil {
				return 0.0, err
			}
		}

		if cacheErr := s.cache.Set(ctx, cacheKey, fmt.Sprintf("%.3f", km), distanceCacheTTL); cacheErr != nil {
			logger.Ctx(ctx).Warn().Err(cacheErr).Msg("failed to cache distance")
		}
		return km, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}
