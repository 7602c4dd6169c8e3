package application

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"agrimart/internal/service/checkout/domain"
	"agrimart/internal/service/checkout/domain/port"
)

// memStore 是测试用的内存会话存储。Get 返回副本，模拟真实存储的序列化边界。
type memStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	pending  map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]domain.Session), pending: make(map[string][]byte)}
}

func (s *memStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := session
	clone.Items = append([]domain.CartLineItem(nil), session.Items...)
	if session.Discount != nil {
		d := *session.Discount
		clone.Discount = &d
	}
	if session.Delivery != nil {
		d := *session.Delivery
		clone.Delivery = &d
	}
	return &clone, nil
}

func (s *memStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memStore) SavePendingPayment(ctx context.Context, sessionID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionID] = payload
	return nil
}

type stubPromotion struct {
	applied *domain.AppliedDiscount
	err     error
	calls   int
}

func (p *stubPromotion) ValidateCode(ctx context.Context, code string, subtotal int64) (*domain.AppliedDiscount, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.applied, nil
}

type stubDelivery struct {
	methods       []port.DeliveryMethodInfo
	fee           int64
	feeErr        error
	estimateCalls int
}

func (d *stubDelivery) ListMethods(ctx context.Context) ([]port.DeliveryMethodInfo, error) {
	return d.methods, nil
}

func (d *stubDelivery) EstimateFee(ctx context.Context, dest port.Destination) (int64, error) {
	d.estimateCalls++
	if d.feeErr != nil {
		return 0, d.feeErr
	}
	return d.fee, nil
}

type stubOrders struct {
	orderID string
	err     error
	calls   int
	last    port.OrderSubmission
}

func (o *stubOrders) Submit(ctx context.Context, submission port.OrderSubmission) (string, error) {
	o.calls++
	o.last = submission
	if o.err != nil {
		return "", o.err
	}
	return o.orderID, nil
}

type stubPayments struct {
	url string
	err error
}

func (p *stubPayments) CreatePayment(ctx context.Context, req port.PaymentRequest) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.url, nil
}

type fixture struct {
	service   *CheckoutService
	store     *memStore
	promotion *stubPromotion
	delivery  *stubDelivery
	orders    *stubOrders
	payments  *stubPayments
}

func newFixture() *fixture {
	f := &fixture{
		store: newMemStore(),
		promotion: &stubPromotion{
			applied: &domain.AppliedDiscount{Code: "TET2026", Amount: 20000},
		},
		delivery: &stubDelivery{
			methods: []port.DeliveryMethodInfo{
				{ID: 1, Name: "Giao tiêu chuẩn", BasePrice: 20000, IsDefault: true},
				{ID: 2, Name: "Giao nhanh", BasePrice: 45000},
			},
			fee: 30000,
		},
		orders:   &stubOrders{orderID: "AGM-20260831-abcd1234"},
		payments: &stubPayments{url: "https://gateway.example/pay?token=x"},
	}
	tracer := noop.NewTracerProvider().Tracer("test")
	f.service = NewCheckoutService(f.store, f.promotion, f.delivery, f.orders, f.payments, tracer)
	return f
}

func (f *fixture) readySession(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	view, err := f.service.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	id := view.SessionID

	_, err = f.service.AddItem(ctx, &AddItemRequest{
		SessionID: id, ProductID: 1, Name: "Gạo ST25 5kg", UnitPrice: 50000, Quantity: 2,
	})
	require.NoError(t, err)

	_, err = f.service.SetAddress(ctx, &SetAddressRequest{
		SessionID: id, FullName: "Nguyễn Văn A", Phone: "0901234567",
		Province: "Thành phố Hồ Chí Minh", District: "Quận 1",
		Ward: "Phường Bến Nghé", Street: "12 Lê Lợi",
	})
	require.NoError(t, err)

	_, err = f.service.SelectPaymentMethod(ctx, id, domain.PaymentCash)
	require.NoError(t, err)
	_, err = f.service.SetTermsAccepted(ctx, id, true)
	require.NoError(t, err)
	return id
}

func TestCreateSessionPreselectsDefaultMethod(t *testing.T) {
	f := newFixture()
	view, err := f.service.CreateSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.DeliveryID)
}

func TestSetAddressTriggersFeeEstimate(t *testing.T) {
	f := newFixture()
	id := f.readySession(t)

	assert.Equal(t, 1, f.delivery.estimateCalls)
	view, err := f.service.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, view.Totals.FeeUnknown)
	assert.Equal(t, int64(50000), view.Totals.DeliveryFee) // 底价 20000 + 距离费 30000
}

func TestFeeEstimateFailureFlagsUnknown(t *testing.T) {
	f := newFixture()
	f.delivery.feeErr = domain.ErrFeeUnknown

	id := f.readySession(t)

	// 自动重试一次后放弃
	assert.Equal(t, 2, f.delivery.estimateCalls)
	view, err := f.service.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, view.Totals.FeeUnknown)
	// 运费未知时不计入总额，但绝不当作免运费下单
	assert.Equal(t, int64(20000), view.Totals.DeliveryFee)
}

func TestApplyDiscountSuccess(t *testing.T) {
	f := newFixture()
	id := f.readySession(t)

	view, err := f.service.ApplyDiscount(context.Background(), id, "TET2026")
	require.NoError(t, err)
	assert.Equal(t, "TET2026", view.DiscountCode)
	assert.Equal(t, int64(20000), view.Totals.DiscountAmount)
}

func TestApplyDiscountFailureDoesNotBlockCheckout(t *testing.T) {
	f := newFixture()
	f.promotion.err = &domain.DiscountError{Code: domain.DiscountExpired}
	id := f.readySession(t)

	view, err := f.service.ApplyDiscount(context.Background(), id, "HETHAN")
	var de *domain.DiscountError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.DiscountExpired, de.Code)

	// 会话视图照常返回，折扣清空，订单可以无折扣提交
	require.NotNil(t, view)
	assert.Empty(t, view.DiscountCode)

	result, err := f.service.Submit(context.Background(), &SubmitRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, ResultOrderPlaced, result.Kind)
	assert.Empty(t, f.orders.last.DiscountCode)
}

func TestApplyDiscountNetworkFailureMapsToUnavailable(t *testing.T) {
	f := newFixture()
	f.promotion.err = errors.New("connection refused")
	id := f.readySession(t)

	_, err := f.service.ApplyDiscount(context.Background(), id, "TET2026")
	var de *domain.DiscountError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.DiscountUnavailable, de.Code)
}

func TestSubmitCashHappyPath(t *testing.T) {
	f := newFixture()
	id := f.readySession(t)

	result, err := f.service.Submit(context.Background(), &SubmitRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, ResultOrderPlaced, result.Kind)
	assert.Equal(t, "AGM-20260831-abcd1234", result.OrderID)
	assert.False(t, result.ShippingUnconfirmed)

	// 恰好一次订单提交，携带幂等键与金额聚合
	assert.Equal(t, 1, f.orders.calls)
	assert.NotEmpty(t, f.orders.last.IdempotencyKey)
	assert.Equal(t, int64(150000), f.orders.last.Totals.Total) // 100000 − 0 + 50000

	// 成功后购物车清空
	view, err := f.service.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, domain.StateSuccess, view.State)
}

func TestSubmitCashFailureKeepsCart(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.New("order service unavailable")
	id := f.readySession(t)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{SessionID: id})
	require.Error(t, err)

	view, getErr := f.service.GetSession(context.Background(), id)
	require.NoError(t, getErr)
	assert.NotEmpty(t, view.Items)
	assert.Equal(t, domain.StateFailed, view.State)

	// 失败后重试复用同一个幂等键
	firstKey := f.orders.last.IdempotencyKey
	f.orders.err = nil
	_, err = f.service.Submit(context.Background(), &SubmitRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, firstKey, f.orders.last.IdempotencyKey)
}

func TestSubmitValidatesBeforeDispatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.service.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	_, err = f.service.SelectPaymentMethod(ctx, view.SessionID, domain.PaymentCash)
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, &SubmitRequest{SessionID: view.SessionID})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Zero(t, f.orders.calls)
}

func TestSubmitGatewayRedirect(t *testing.T) {
	f := newFixture()
	id := f.readySession(t)
	_, err := f.service.SelectPaymentMethod(context.Background(), id, domain.PaymentGatewayRedirect)
	require.NoError(t, err)

	result, err := f.service.Submit(context.Background(), &SubmitRequest{SessionID: id, BankCode: "NCB"})
	require.NoError(t, err)
	assert.Equal(t, ResultRedirect, result.Kind)
	assert.Equal(t, "https://gateway.example/pay?token=x", result.RedirectURL)

	// 跳转前订单载荷已持久化，购物车保留到支付确认
	f.store.mu.Lock()
	pending := f.store.pending[id]
	f.store.mu.Unlock()
	assert.NotEmpty(t, pending)

	view, err := f.service.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, view.Items)
}

func TestSubmitPopupReturnsButtonWithoutOrder(t *testing.T) {
	f := newFixture()
	id := f.readySession(t)
	_, err := f.service.SelectPaymentMethod(context.Background(), id, domain.PaymentGatewayPopup)
	require.NoError(t, err)

	result, err := f.service.Submit(context.Background(), &SubmitRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, ResultPaymentButton, result.Kind)
	require.NotNil(t, result.Button)
	assert.Equal(t, "VND", result.Button.Currency)
	assert.Equal(t, int64(150000), result.Button.Amount)

	// 弹窗路径不直接下单，也不进入提交中状态
	assert.Zero(t, f.orders.calls)
	view, err := f.service.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, domain.StateSubmitting, view.State)
}

func TestQuoteRefreshesDiscountAgainstNewSubtotal(t *testing.T) {
	f := newFixture()
	id := f.readySession(t)
	ctx := context.Background()

	_, err := f.service.ApplyDiscount(ctx, id, "TET2026")
	require.NoError(t, err)

	// 小计变化后重新报价，折扣按新小计重新校验
	f.promotion.applied = &domain.AppliedDiscount{Code: "TET2026", Amount: 40000}
	_, err = f.service.AddItem(ctx, &AddItemRequest{
		SessionID: id, ProductID: 2, Name: "Xoài cát 1kg", UnitPrice: 40000, SalePrice: 35000, Quantity: 3,
	})
	require.NoError(t, err)

	view, err := f.service.Quote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(205000), view.Totals.Subtotal)
	assert.Equal(t, int64(40000), view.Totals.DiscountAmount)
}

func TestQuoteDropsDiscountWhenRevalidationFails(t *testing.T) {
	f := newFixture()
	id := f.readySession(t)
	ctx := context.Background()

	_, err := f.service.ApplyDiscount(ctx, id, "TET2026")
	require.NoError(t, err)

	f.promotion.err = &domain.DiscountError{Code: domain.DiscountBelowMinimum}
	view, err := f.service.Quote(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, view.DiscountCode)
	assert.Zero(t, view.Totals.DiscountAmount)
}
