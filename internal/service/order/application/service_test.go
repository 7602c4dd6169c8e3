package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"agrimart/internal/service/order/domain"
)

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]domain.Order)}
}

func (r *memOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = *order
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	clone := order
	return &clone, nil
}

func (r *memOrderRepo) UpdateState(ctx context.Context, id string, from, to domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.State != from {
		return domain.ErrInvalidStateChange
	}
	order.State = to
	r.orders[id] = order
	return nil
}

type memCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value
	return true, nil
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *memCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingScheduler struct {
	scheduled []string
}

func (s *recordingScheduler) SchedulePaymentTimeout(ctx context.Context, orderID string, delay time.Duration) error {
	s.scheduled = append(s.scheduled, orderID)
	return nil
}

type recordingRedeemer struct {
	codes []string
}

func (r *recordingRedeemer) Redeem(ctx context.Context, code string) error {
	r.codes = append(r.codes, code)
	return nil
}

type orderFixture struct {
	service   *OrderService
	repo      *memOrderRepo
	cache     *memCache
	publisher *recordingPublisher
	scheduler *recordingScheduler
	redeemer  *recordingRedeemer
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		repo:      newMemOrderRepo(),
		cache:     newMemCache(),
		publisher: &recordingPublisher{},
		scheduler: &recordingScheduler{},
		redeemer:  &recordingRedeemer{},
	}
	tracer := noop.NewTracerProvider().Tracer("test")
	f.service = NewOrderService(f.repo, f.publisher, f.scheduler, f.redeemer, f.cache, tracer)
	return f
}

func cashOrderRequest(key string) *CreateOrderRequest {
	return &CreateOrderRequest{
		IdempotencyKey: key,
		UserID:         "user-1",
		Items:          []domain.OrderItem{{ProductID: 1, Name: "Gạo ST25 5kg", UnitPrice: 50000, Quantity: 2}},
		Address:        domain.ShippingAddress{FullName: "Nguyễn Văn A", Province: "Thành phố Hồ Chí Minh"},
		PaymentMethod:  "cash",
		Subtotal:       100000,
		DeliveryFee:    30000,
		Total:          130000,
	}
}

func TestCreateOrderIdempotency(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	first, err := f.service.CreateOrder(ctx, cashOrderRequest("key-1"))
	require.NoError(t, err)

	// 同一幂等键的重复提交返回首次订单号，不建第二笔订单
	second, err := f.service.CreateOrder(ctx, cashOrderRequest("key-1"))
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, f.repo.orders, 1)
	assert.Equal(t, []string{domain.EventOrderCreated}, f.publisher.types())
}

func TestCreateOrderCashDoesNotScheduleTimeout(t *testing.T) {
	f := newOrderFixture()
	resp, err := f.service.CreateOrder(context.Background(), cashOrderRequest("key-1"))
	require.NoError(t, err)

	order, err := f.repo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, order.State)
	assert.Empty(t, f.scheduler.scheduled)
}

func TestCreateOrderGatewaySchedulesTimeout(t *testing.T) {
	f := newOrderFixture()
	req := cashOrderRequest("key-1")
	req.PaymentMethod = "gateway_redirect"

	resp, err := f.service.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{resp.OrderID}, f.scheduler.scheduled)
}

func TestCreateOrderRedeemsDiscount(t *testing.T) {
	f := newOrderFixture()
	req := cashOrderRequest("key-1")
	req.DiscountCode = "TET2026"

	_, err := f.service.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"TET2026"}, f.redeemer.codes)
}

func TestHandlePaymentResult(t *testing.T) {
	f := newOrderFixture()
	req := cashOrderRequest("key-1")
	req.PaymentMethod = "gateway_redirect"
	resp, err := f.service.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, f.service.HandlePaymentResult(context.Background(), &PaymentResultRequest{
		OrderID: resp.OrderID, Success: true,
	}))

	order, err := f.repo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, order.State)
	assert.Contains(t, f.publisher.types(), domain.EventOrderPaid)

	// 重复回调被状态机拒绝
	err = f.service.HandlePaymentResult(context.Background(), &PaymentResultRequest{
		OrderID: resp.OrderID, Success: true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStateChange)
}

func TestHandlePaymentTimeout(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	req := cashOrderRequest("key-1")
	req.PaymentMethod = "gateway_redirect"
	resp, err := f.service.CreateOrder(ctx, req)
	require.NoError(t, err)

	require.NoError(t, f.service.HandlePaymentTimeout(ctx, resp.OrderID))
	order, err := f.repo.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, order.State)

	// 已取消订单的再次超时检查是幂等的
	require.NoError(t, f.service.HandlePaymentTimeout(ctx, resp.OrderID))

	// 未知订单的超时检查静默忽略
	require.NoError(t, f.service.HandlePaymentTimeout(ctx, "AGM-unknown"))
}

func TestHandlePaymentTimeoutSkipsPaidOrder(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	req := cashOrderRequest("key-1")
	req.PaymentMethod = "gateway_redirect"
	resp, err := f.service.CreateOrder(ctx, req)
	require.NoError(t, err)
	require.NoError(t, f.service.HandlePaymentResult(ctx, &PaymentResultRequest{OrderID: resp.OrderID, Success: true}))

	require.NoError(t, f.service.HandlePaymentTimeout(ctx, resp.OrderID))
	order, err := f.repo.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, order.State)
}
