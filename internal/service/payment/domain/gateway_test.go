package domain

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateway() *Gateway {
	return &Gateway{
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		TmnCode:    "AGRIMART",
		HashSecret: "secret",
		ReturnURL:  "http://localhost:8080/payment/return",
	}
}

func testOrder() GatewayOrder {
	return GatewayOrder{
		OrderRef:    "AGM-20260831-abcd1234",
		Amount:      150000,
		Description: "Thanh toan don hang",
		BankCode:    "NCB",
		Language:    "vn",
		OrderType:   "other",
		ClientIP:    "127.0.0.1",
		CreatedAt:   time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuildPaymentURLDeterministic(t *testing.T) {
	g := testGateway()
	first := g.BuildPaymentURL(testOrder())
	second := g.BuildPaymentURL(testOrder())
	assert.Equal(t, first, second)
}

func TestBuildPaymentURLParams(t *testing.T) {
	g := testGateway()
	raw := g.BuildPaymentURL(testOrder())

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()

	// 网关金额单位为 VND 的百分之一
	assert.Equal(t, "15000000", q.Get("vnp_Amount"))
	assert.Equal(t, "AGM-20260831-abcd1234", q.Get("vnp_TxnRef"))
	assert.Equal(t, "AGRIMART", q.Get("vnp_TmnCode"))
	assert.Equal(t, "NCB", q.Get("vnp_BankCode"))
	assert.Equal(t, "20260831100000", q.Get("vnp_CreateDate"))
	assert.NotEmpty(t, q.Get("vnp_SecureHash"))
	assert.True(t, strings.HasPrefix(raw, g.PayURL+"?"))
}

func TestBuildPaymentURLDefaults(t *testing.T) {
	g := testGateway()
	order := testOrder()
	order.BankCode = ""
	order.Language = ""
	order.OrderType = ""

	q, err := url.Parse(g.BuildPaymentURL(order))
	require.NoError(t, err)
	values := q.Query()
	assert.Equal(t, "vn", values.Get("vnp_Locale"))
	assert.Equal(t, "other", values.Get("vnp_OrderType"))
	assert.Empty(t, values.Get("vnp_BankCode"))
}

func TestPopupParamsSigned(t *testing.T) {
	g := testGateway()
	values := g.PopupParams(testOrder())

	assert.Equal(t, "15000000", values.Get("vnp_Amount"))
	assert.NotEmpty(t, values.Get("vnp_SecureHash"))

	// 弹窗参数与跳转链接共用同一签名约定
	assert.True(t, g.VerifyCallback(values))
}

func TestVerifyCallbackRoundtrip(t *testing.T) {
	g := testGateway()
	raw := g.BuildPaymentURL(testOrder())

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	// 自己签出的参数必须通过校验
	assert.True(t, g.VerifyCallback(parsed.Query()))
}

func TestVerifyCallbackRejectsTampering(t *testing.T) {
	g := testGateway()
	parsed, err := url.Parse(g.BuildPaymentURL(testOrder()))
	require.NoError(t, err)

	q := parsed.Query()
	q.Set("vnp_Amount", "100") // 篡改金额
	assert.False(t, g.VerifyCallback(q))

	q2 := parsed.Query()
	q2.Del("vnp_SecureHash")
	assert.False(t, g.VerifyCallback(q2))
}

func TestVerifyCallbackWrongSecret(t *testing.T) {
	g := testGateway()
	parsed, err := url.Parse(g.BuildPaymentURL(testOrder()))
	require.NoError(t, err)

	other := testGateway()
	other.HashSecret = "another"
	assert.False(t, other.VerifyCallback(parsed.Query()))
}
