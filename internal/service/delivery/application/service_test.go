package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"agrimart/internal/service/delivery/domain"
)

type stubMethodRepo struct {
	methods []*domain.DeliveryMethod
	saved   []*domain.DeliveryMethod
}

func (r *stubMethodRepo) List(ctx context.Context) ([]*domain.DeliveryMethod, error) {
	return r.methods, nil
}

func (r *stubMethodRepo) FindByID(ctx context.Context, id int64) (*domain.DeliveryMethod, error) {
	for _, m := range r.methods {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, domain.ErrMethodNotFound
}

func (r *stubMethodRepo) Save(ctx context.Context, method *domain.DeliveryMethod) error {
	r.saved = append(r.saved, method)
	return nil
}

func (r *stubMethodRepo) Delete(ctx context.Context, id int64) error { return nil }

type stubGeocoder struct {
	coord domain.Coordinate
	err   error
	calls int
}

func (g *stubGeocoder) Resolve(ctx context.Context, dest domain.Destination) (domain.Coordinate, error) {
	g.calls++
	if g.err != nil {
		return domain.Coordinate{}, g.err
	}
	return g.coord, nil
}

type stubRouter struct {
	km       float64
	failures int // 前 N 次调用返回错误
	calls    int
}

func (r *stubRouter) DrivingDistanceKm(ctx context.Context, origin, destination domain.Coordinate) (float64, error) {
	r.calls++
	if r.calls <= r.failures {
		return 0, errors.New("route service unavailable")
	}
	return r.km, nil
}

type memDistanceCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemDistanceCache() *memDistanceCache {
	return &memDistanceCache{values: make(map[string]string)}
}

func (c *memDistanceCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *memDistanceCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

type deliveryFixture struct {
	service  *DeliveryService
	repo     *stubMethodRepo
	geocoder *stubGeocoder
	router   *stubRouter
	cache    *memDistanceCache
}

func newDeliveryFixture() *deliveryFixture {
	f := &deliveryFixture{
		repo:     &stubMethodRepo{},
		geocoder: &stubGeocoder{coord: domain.Coordinate{Lat: 10.03, Lng: 105.78}},
		router:   &stubRouter{km: 169.5},
		cache:    newMemDistanceCache(),
	}
	origin := domain.Coordinate{Lat: 10.8494, Lng: 106.7537}
	tracer := noop.NewTracerProvider().Tracer("test")
	f.service = NewDeliveryService(f.repo, f.geocoder, f.router, f.cache, origin, tracer)
	return f
}

func TestListMethodsFiltersInactive(t *testing.T) {
	f := newDeliveryFixture()
	f.repo.methods = []*domain.DeliveryMethod{
		{ID: 1, Name: "Giao hàng tiêu chuẩn", BasePrice: 20000, IsActive: true, IsDefault: true},
		{ID: 2, Name: "Giao hàng hỏa tốc", BasePrice: 45000, IsActive: false},
	}

	views, err := f.service.ListMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].ID)
}

func TestEstimateFee(t *testing.T) {
	f := newDeliveryFixture()
	resp, err := f.service.EstimateFee(context.Background(), &EstimateRequest{
		Province: "Thành phố Cần Thơ",
		District: "Ninh Kiều",
	})
	require.NoError(t, err)
	assert.Equal(t, 169.5, resp.DistanceKm)
	assert.Equal(t, int64(70000), resp.Fee)
}

func TestEstimateFeeMissingProvince(t *testing.T) {
	f := newDeliveryFixture()
	_, err := f.service.EstimateFee(context.Background(), &EstimateRequest{})
	assert.ErrorIs(t, err, domain.ErrDistanceUnknown)
	assert.Zero(t, f.geocoder.calls)
}

func TestEstimateFeeGeocodeFailure(t *testing.T) {
	f := newDeliveryFixture()
	f.geocoder.err = errors.New("province not recognized")

	_, err := f.service.EstimateFee(context.Background(), &EstimateRequest{Province: "Somewhere"})
	assert.ErrorIs(t, err, domain.ErrDistanceUnknown)
}

func TestEstimateFeeRetriesRouteOnce(t *testing.T) {
	f := newDeliveryFixture()
	f.router.failures = 1

	resp, err := f.service.EstimateFee(context.Background(), &EstimateRequest{Province: "Thành phố Cần Thơ"})
	require.NoError(t, err)
	assert.Equal(t, int64(70000), resp.Fee)
	assert.Equal(t, 2, f.router.calls)
}

func TestEstimateFeeRouteExhausted(t *testing.T) {
	f := newDeliveryFixture()
	f.router.failures = 2

	_, err := f.service.EstimateFee(context.Background(), &EstimateRequest{Province: "Thành phố Cần Thơ"})
	assert.ErrorIs(t, err, domain.ErrDistanceUnknown)
}

func TestEstimateFeeUsesDistanceCache(t *testing.T) {
	f := newDeliveryFixture()
	req := &EstimateRequest{Province: "Thành phố Cần Thơ", District: "Ninh Kiều"}

	_, err := f.service.EstimateFee(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, f.geocoder.calls)

	// 第二次命中缓存，不再触达外部服务
	resp, err := f.service.EstimateFee(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, f.geocoder.calls)
	assert.Equal(t, 1, f.router.calls)
	assert.Equal(t, 169.5, resp.DistanceKm)
}
