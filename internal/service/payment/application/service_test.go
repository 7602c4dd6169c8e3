package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"agrimart/internal/service/payment/domain"
)

type memPaymentRepo struct {
	payments map[string]domain.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[string]domain.Payment)}
}

func (r *memPaymentRepo) Save(ctx context.Context, payment *domain.Payment) error {
	r.payments[payment.OrderRef] = *payment
	return nil
}

func (r *memPaymentRepo) FindByOrderRef(ctx context.Context, orderRef string) (*domain.Payment, error) {
	payment, ok := r.payments[orderRef]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	clone := payment
	return &clone, nil
}

type recordingNotifier struct {
	orderRefs []string
	successes []bool
}

func (n *recordingNotifier) NotifyPaymentResult(ctx context.Context, orderRef string, success bool) error {
	n.orderRefs = append(n.orderRefs, orderRef)
	n.successes = append(n.successes, success)
	return nil
}

type paymentFixture struct {
	service  *PaymentService
	gateway  *domain.Gateway
	repo     *memPaymentRepo
	notifier *recordingNotifier
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		gateway: &domain.Gateway{
			PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			TmnCode:    "AGRIMART",
			HashSecret: "secret",
			ReturnURL:  "http://localhost:8080/payment/return",
		},
		repo:     newMemPaymentRepo(),
		notifier: &recordingNotifier{},
	}
	tracer := noop.NewTracerProvider().Tracer("test")
	f.service = NewPaymentService(f.gateway, f.repo, f.notifier, tracer)
	return f
}

// signedReturnQuery 模拟网关回跳参数，按网关约定用同一密钥重新签名。
func signedReturnQuery(t *testing.T, f *paymentFixture, orderRef, responseCode string) url.Values {
	t.Helper()
	q := url.Values{}
	q.Set("vnp_TxnRef", orderRef)
	q.Set("vnp_Amount", "15000000")
	q.Set("vnp_ResponseCode", responseCode)
	q.Set("vnp_TransactionNo", "14226112")
	q.Set("vnp_TmnCode", f.gateway.TmnCode)

	mac := hmac.New(sha512.New, []byte(f.gateway.HashSecret))
	mac.Write([]byte(q.Encode()))
	q.Set("vnp_SecureHash", hex.EncodeToString(mac.Sum(nil)))
	return q
}

func TestCreatePayment(t *testing.T) {
	f := newPaymentFixture()
	resp, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderRef:         "AGM-20260831-abcd1234",
		Amount:           150000,
		OrderDescription: "Thanh toan don hang",
		ClientIP:         "127.0.0.1",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.URL, f.gateway.PayURL+"?"))
	assert.Contains(t, resp.URL, "vnp_Amount=15000000")

	saved, err := f.repo.FindByOrderRef(context.Background(), "AGM-20260831-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, saved.Status)
}

func TestCreatePaymentRejectsBadInput(t *testing.T) {
	f := newPaymentFixture()
	_, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{OrderRef: "", Amount: 100})
	assert.Error(t, err)
	_, err = f.service.CreatePayment(context.Background(), &CreatePaymentRequest{OrderRef: "AGM-1", Amount: 0})
	assert.Error(t, err)
}

func TestHandleReturnSuccess(t *testing.T) {
	f := newPaymentFixture()
	_, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderRef: "AGM-20260831-abcd1234", Amount: 150000, ClientIP: "127.0.0.1",
	})
	require.NoError(t, err)

	result, err := f.service.HandleReturn(context.Background(), signedReturnQuery(t, f, "AGM-20260831-abcd1234", "00"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "AGM-20260831-abcd1234", result.OrderRef)

	saved, err := f.repo.FindByOrderRef(context.Background(), "AGM-20260831-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, saved.Status)
	assert.Equal(t, "14226112", saved.GatewayTxnNo)
	assert.Equal(t, []bool{true}, f.notifier.successes)
}

func TestHandleReturnFailure(t *testing.T) {
	f := newPaymentFixture()
	_, err := f.service.CreatePayment(context.Background(), &CreatePaymentRequest{
		OrderRef: "AGM-20260831-abcd1234", Amount: 150000, ClientIP: "127.0.0.1",
	})
	require.NoError(t, err)

	result, err := f.service.HandleReturn(context.Background(), signedReturnQuery(t, f, "AGM-20260831-abcd1234", "24"))
	require.NoError(t, err)
	assert.False(t, result.Success)

	saved, err := f.repo.FindByOrderRef(context.Background(), "AGM-20260831-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, saved.Status)
	assert.Equal(t, []bool{false}, f.notifier.successes)
}

func TestHandleReturnRejectsBadSignature(t *testing.T) {
	f := newPaymentFixture()
	q := signedReturnQuery(t, f, "AGM-20260831-abcd1234", "00")
	q.Set("vnp_Amount", "100")

	_, err := f.service.HandleReturn(context.Background(), q)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, f.notifier.orderRefs)
}

func TestHandleReturnUnknownOrder(t *testing.T) {
	f := newPaymentFixture()
	_, err := f.service.HandleReturn(context.Background(), signedReturnQuery(t, f, "AGM-unknown", "00"))
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}
