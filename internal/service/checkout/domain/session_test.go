package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return NewSession("sess-1", "user-1", time.Now())
}

func newReadySession(t *testing.T) *Session {
	t.Helper()
	s := newTestSession()
	require.NoError(t, s.AddItem(CartLineItem{ProductID: 1, UnitPrice: 50000, Quantity: 2}))
	s.SetAddress(Address{
		FullName: "Nguyễn Văn A",
		Phone:    "0901234567",
		Province: "Thành phố Hồ Chí Minh",
		District: "Quận 1",
		Ward:     "Phường Bến Nghé",
		Street:   "12 Lê Lợi",
	})
	s.SelectDelivery(DeliveryOption{ID: 1, Name: "Giao tiêu chuẩn", BasePrice: 20000})
	s.RecordFeeEstimate(s.NextFeeSeq(), 0, false)
	require.NoError(t, s.SelectPaymentMethod(PaymentCash))
	s.TermsAccepted = true
	return s
}

func TestAddItemMergesExisting(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.AddItem(CartLineItem{ProductID: 1, UnitPrice: 50000, Quantity: 2}))
	require.NoError(t, s.AddItem(CartLineItem{ProductID: 1, UnitPrice: 50000, Quantity: 3}))

	require.Len(t, s.Items, 1)
	assert.Equal(t, 5, s.Items[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.AddItem(CartLineItem{ProductID: 1, UnitPrice: 50000, Quantity: 2}))

	assert.ErrorIs(t, s.UpdateQuantity(1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, s.UpdateQuantity(99, 3), ErrItemNotFound)

	require.NoError(t, s.UpdateQuantity(1, 7))
	assert.Equal(t, 7, s.Items[0].Quantity)
}

func TestSetAddressInvalidatesFeeOnDestinationChange(t *testing.T) {
	s := newReadySession(t)
	require.False(t, s.FeeUnknown)
	require.True(t, s.FeeFresh)

	// 仅换门牌号不影响估算
	addr := s.Address
	addr.Street = "34 Nguyễn Huệ"
	s.SetAddress(addr)
	assert.True(t, s.FeeFresh)

	// 换省份使既有估算作废
	addr.Province = "Thành phố Cần Thơ"
	s.SetAddress(addr)
	assert.False(t, s.FeeFresh)
	assert.True(t, s.FeeUnknown)
}

func TestRecordFeeEstimateDiscardsStaleResponse(t *testing.T) {
	s := newTestSession()
	first := s.NextFeeSeq()
	second := s.NextFeeSeq()

	// 后发请求的结果先到
	require.True(t, s.RecordFeeEstimate(second, 50000, false))
	assert.Equal(t, int64(50000), s.DistanceFee)

	// 先发请求的迟到结果被丢弃
	require.False(t, s.RecordFeeEstimate(first, 30000, false))
	assert.Equal(t, int64(50000), s.DistanceFee)
}

func TestSelectPaymentMethod(t *testing.T) {
	s := newTestSession()
	assert.ErrorIs(t, s.SelectPaymentMethod("installment"), ErrUnknownPaymentKind)

	require.NoError(t, s.SelectPaymentMethod(PaymentGatewayRedirect))
	assert.Equal(t, StateMethodSelected, s.State)

	// 选择支付方式是纯流转，不校验购物车和地址
	assert.Empty(t, s.Items)
}

func TestValidateOrder(t *testing.T) {
	s := newTestSession()
	assert.ErrorIs(t, s.Validate(), ErrEmptyCart)

	require.NoError(t, s.AddItem(CartLineItem{ProductID: 1, UnitPrice: 50000, Quantity: 1}))
	var verr *ValidationError
	require.ErrorAs(t, s.Validate(), &verr)
	assert.Equal(t, "full_name", verr.Field)

	s.SetAddress(Address{
		FullName: "Nguyễn Văn A", Phone: "0901234567",
		Province: "Thành phố Hồ Chí Minh", District: "Quận 1",
		Ward: "Phường Bến Nghé", Street: "12 Lê Lợi",
	})
	assert.ErrorIs(t, s.Validate(), ErrNoDeliveryMethod)

	s.SelectDelivery(DeliveryOption{ID: 1, BasePrice: 20000})
	assert.ErrorIs(t, s.Validate(), ErrNoPaymentMethod)

	require.NoError(t, s.SelectPaymentMethod(PaymentCash))
	assert.ErrorIs(t, s.Validate(), ErrTermsNotAccepted)

	s.TermsAccepted = true
	assert.NoError(t, s.Validate())
}

func TestBeginSubmitRejectsDoubleSubmit(t *testing.T) {
	s := newReadySession(t)
	require.NoError(t, s.BeginSubmit())
	assert.Equal(t, StateSubmitting, s.State)

	// 双击：第二次提交在途中被拒绝
	assert.ErrorIs(t, s.BeginSubmit(), ErrSubmitInProgress)
	assert.ErrorIs(t, s.SelectPaymentMethod(PaymentCash), ErrSubmitInProgress)
}

func TestBeginSubmitRequiresMethodSelected(t *testing.T) {
	s := newTestSession()
	assert.ErrorIs(t, s.BeginSubmit(), ErrInvalidTransition)
}

func TestCompleteSubmit(t *testing.T) {
	s := newReadySession(t)
	s.IdempotencyKey = "key-1"
	require.NoError(t, s.BeginSubmit())

	// 失败保留购物车和幂等键，允许重试
	s.CompleteSubmit(false)
	assert.Equal(t, StateFailed, s.State)
	assert.NotEmpty(t, s.Items)
	assert.Equal(t, "key-1", s.IdempotencyKey)

	// 失败后允许再次提交
	require.NoError(t, s.BeginSubmit())
	s.CompleteSubmit(true)
	assert.Equal(t, StateSuccess, s.State)
	assert.Empty(t, s.Items)
	assert.Empty(t, s.IdempotencyKey)
}

func TestSessionTotal(t *testing.T) {
	s := newReadySession(t)
	s.ApplyDiscount(AppliedDiscount{Code: "TET2026", Amount: 10000})
	require.True(t, s.RecordFeeEstimate(s.NextFeeSeq(), 30000, false))

	total := s.Total()
	assert.Equal(t, int64(100000), total.Subtotal)
	assert.Equal(t, int64(50000), total.DeliveryFee) // 底价 20000 + 距离费 30000
	assert.Equal(t, int64(140000), total.Total)
	assert.False(t, total.FeeUnknown)
}

func TestSessionTotalFreeShipThreshold(t *testing.T) {
	s := newReadySession(t)
	s.SelectDelivery(DeliveryOption{ID: 2, BasePrice: 20000, FreeShipThreshold: 100000})
	require.True(t, s.RecordFeeEstimate(s.NextFeeSeq(), 0, false))

	// 小计恰好达到门槛，底价免除
	total := s.Total()
	assert.Equal(t, int64(100000), total.Subtotal)
	assert.Equal(t, int64(0), total.DeliveryFee)
}

func TestSessionTotalUnknownFee(t *testing.T) {
	s := newReadySession(t)
	addr := s.Address
	addr.Province = "Tỉnh Lâm Đồng"
	s.SetAddress(addr)

	total := s.Total()
	assert.True(t, total.FeeUnknown)
	assert.Equal(t, int64(20000), total.DeliveryFee)
}
