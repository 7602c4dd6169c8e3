package application

import (
	"agrimart/internal/service/checkout/domain"
)

// AddItemRequest 添加商品到购物车。
type AddItemRequest struct {
	SessionID           string  `json:"sessionId"`
	ProductID           int64   `json:"productId"`
	Name                string  `json:"name"`
	UnitPrice           int64   `json:"unitPrice"`
	SalePrice           int64   `json:"salePrice"`
	Quantity            int     `json:"quantity"`
	LineDiscountPercent float64 `json:"lineDiscountPercent"`
}

// SetAddressRequest 更新收货地址。
type SetAddressRequest struct {
	SessionID string `json:"sessionId"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Province  string `json:"province"`
	District  string `json:"district"`
	Ward      string `json:"ward"`
	Street    string `json:"street"`
}

// SubmitRequest 发起提交。
type SubmitRequest struct {
	SessionID string `json:"sessionId"`
	BankCode  string `json:"bankCode,omitempty"`
	Language  string `json:"language,omitempty"`
}

// TotalView 是金额聚合的输出视图。
type TotalView struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discountAmount"`
	DeliveryFee    int64 `json:"deliveryFee"`
	Total          int64 `json:"total"`
	FeeUnknown     bool  `json:"feeUnknown"`
}

// SessionView 是会话的对外视图，附带重算后的金额。
type SessionView struct {
	SessionID     string                `json:"sessionId"`
	UserID        string                `json:"userId"`
	Items         []domain.CartLineItem `json:"items"`
	DiscountCode  string                `json:"discountCode,omitempty"`
	DeliveryID    int64                 `json:"deliveryId,omitempty"`
	PaymentMethod string                `json:"paymentMethod,omitempty"`
	State         domain.SubmitState    `json:"state"`
	Totals        TotalView             `json:"totals"`
}

// PaymentButton 是弹窗支付路径预渲染按钮所需的载荷。
// 订单的最终确认由外部支付组件回调完成，不在本服务内。
type PaymentButton struct {
	OrderRef string `json:"orderRef"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// SubmitResultKind 标识提交分派的结果形态。
type SubmitResultKind string

const (
	ResultOrderPlaced   SubmitResultKind = "order_placed"   // 货到付款：订单已创建
	ResultRedirect      SubmitResultKind = "redirect"       // 网关跳转：浏览器应跳转到 URL
	ResultPaymentButton SubmitResultKind = "payment_button" // 弹窗支付：渲染支付按钮
)

// SubmitResult 是提交分派的输出。
type SubmitResult struct {
	Kind                SubmitResultKind `json:"kind"`
	OrderID             string           `json:"orderId,omitempty"`
	RedirectURL         string           `json:"redirectUrl,omitempty"`
	Button              *PaymentButton   `json:"button,omitempty"`
	ShippingUnconfirmed bool             `json:"shippingUnconfirmed,omitempty"`
}

func toTotalView(t domain.OrderTotal) TotalView {
	return TotalView{
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		DeliveryFee:    t.DeliveryFee,
		Total:          t.Total,
		FeeUnknown:     t.FeeUnknown,
	}
}

func toSessionView(s *domain.Session) *SessionView {
	view := &SessionView{
		SessionID:     s.ID,
		UserID:        s.UserID,
		Items:         s.Items,
		State:         s.State,
		PaymentMethod: string(s.PaymentMethod),
		Totals:        toTotalView(s.Total()),
	}
	if s.Discount != nil {
		view.DiscountCode = s.Discount.Code
	}
	if s.Delivery != nil {
		view.DeliveryID = s.Delivery.ID
	}
	return view
}
