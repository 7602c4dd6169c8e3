package domain

import (
	"time"
)

// PaymentMethod 枚举了支持的支付方式。
type PaymentMethod string

const (
	PaymentCash            PaymentMethod = "cash"             // 货到付款
	PaymentGatewayRedirect PaymentMethod = "gateway_redirect" // 银行网关跳转支付
	PaymentGatewayPopup    PaymentMethod = "gateway_popup"    // 弹窗支付按钮
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentGatewayRedirect, PaymentGatewayPopup:
		return true
	}
	return false
}

// SubmitState 定义了提交流程的状态机。
type SubmitState string

const (
	StateIdle           SubmitState = "IDLE"
	StateMethodSelected SubmitState = "METHOD_SELECTED"
	StateSubmitting     SubmitState = "SUBMITTING"
	StateSuccess        SubmitState = "SUCCESS"
	StateFailed         SubmitState = "FAILED"
)

// Address 是收货地址与联系方式。
type Address struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Province string `json:"province"`
	District string `json:"district"`
	Ward     string `json:"ward"`
	Street   string `json:"street"`
}

// MissingFields 返回未填写的必填字段名，全部填写时返回空切片。
func (a Address) MissingFields() []string {
	var missing []string
	check := func(field, value string) {
		if value == "" {
			missing = append(missing, field)
		}
	}
	check("full_name", a.FullName)
	check("phone", a.Phone)
	check("province", a.Province)
	check("district", a.District)
	check("ward", a.Ward)
	check("street", a.Street)
	return missing
}

// AppliedDiscount 是已套用的优惠码及其金额。
type AppliedDiscount struct {
	Code   string
	Amount int64
}

// DeliveryOption 是结算侧对配送方式的视图。
type DeliveryOption struct {
	ID                int64
	Name              string
	BasePrice         int64
	FreeShipThreshold int64 // 免运费门槛，0 表示无
}

// PriceFor 返回该配送方式在给定小计下的底价，达到免运费门槛时为 0。
func (d DeliveryOption) PriceFor(subtotal int64) int64 {
	if d.FreeShipThreshold > 0 && subtotal >= d.FreeShipThreshold {
		return 0
	}
	return d.BasePrice
}

// Session 是结算会话聚合根：购物车、折扣、配送、地址与提交状态机的唯一持有者。
// 所有读写都经由该聚合，而不是分散的共享上下文。
type Session struct {
	ID            string
	UserID        string
	Items         []CartLineItem
	Discount      *AppliedDiscount
	Delivery      *DeliveryOption
	Address       Address
	TermsAccepted bool
	PaymentMethod PaymentMethod
	State         SubmitState

	// 距离运费的最新估算结果。FeeSeq 单调递增，用于丢弃过期的估算响应。
	DistanceFee int64
	FeeUnknown  bool
	FeeFresh    bool
	FeeSeq      uint64

	// 客户端生成的幂等键，同一次提交窗口内重试复用同一个键
	IdempotencyKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession 创建空会话。运费在地址确定前视为未知。
func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:         id,
		UserID:     userID,
		State:      StateIdle,
		FeeUnknown: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddItem 添加商品行；已存在的商品累加数量。
func (s *Session) AddItem(item CartLineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	for i := range s.Items {
		if s.Items[i].ProductID == item.ProductID {
			s.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	s.Items = append(s.Items, item)
	return nil
}

// UpdateQuantity 设置商品数量。数量小于 1 在此边界直接拒绝。
func (s *Session) UpdateQuantity(productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			s.Items[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem 删除商品行。
func (s *Session) RemoveItem(productID int64) error {
	for i := range s.Items {
		if s.Items[i].ProductID == productID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// ClearCart 在订单成功后清空购物车并重置折扣。
func (s *Session) ClearCart() {
	s.Items = nil
	s.Discount = nil
}

// Subtotal 返回当前购物车小计。
func (s *Session) Subtotal() int64 {
	return Subtotal(s.Items)
}

// SetAddress 更新地址。目的地变化意味着既有运费估算作废。
func (s *Session) SetAddress(addr Address) {
	destinationChanged := addr.Province != s.Address.Province ||
		addr.District != s.Address.District || addr.Ward != s.Address.Ward
	s.Address = addr
	if destinationChanged {
		s.FeeFresh = false
		s.FeeUnknown = true
	}
}

// NextFeeSeq 为新的运费估算请求分配序号。
func (s *Session) NextFeeSeq() uint64 {
	s.FeeSeq++
	return s.FeeSeq
}

// RecordFeeEstimate 记录估算结果，只接受与最新请求序号一致的响应（last-write-wins）。
// 返回是否被采纳。
func (s *Session) RecordFeeEstimate(seq uint64, fee int64, unknown bool) bool {
	if seq != s.FeeSeq {
		return false
	}
	s.DistanceFee = fee
	s.FeeUnknown = unknown
	s.FeeFresh = true
	return true
}

// ApplyDiscount 套用优惠码，同一会话同时只有一个码，后者替换前者。
func (s *Session) ApplyDiscount(d AppliedDiscount) {
	s.Discount = &d
}

// ClearDiscount 移除已套用的优惠码。
func (s *Session) ClearDiscount() {
	s.Discount = nil
}

// SelectDelivery 选择配送方式。
func (s *Session) SelectDelivery(option DeliveryOption) {
	s.Delivery = &option
}

// SelectPaymentMethod 是纯状态流转：只记录所选方式，不触发任何校验或副作用。
// 弹窗支付按钮的预渲染由 PrepareSubmission 显式完成。
func (s *Session) SelectPaymentMethod(method PaymentMethod) error {
	if !method.Valid() {
		return ErrUnknownPaymentKind
	}
	if s.State == StateSubmitting {
		return ErrSubmitInProgress
	}
	s.PaymentMethod = method
	s.State = StateMethodSelected
	return nil
}

// Validate 检查提交前置条件，返回第一个未满足项。
func (s *Session) Validate() error {
	if len(s.Items) == 0 {
		return ErrEmptyCart
	}
	if missing := s.Address.MissingFields(); len(missing) > 0 {
		return &ValidationError{Field: missing[0], Reason: "required"}
	}
	if s.Delivery == nil {
		return ErrNoDeliveryMethod
	}
	if s.PaymentMethod == "" {
		return ErrNoPaymentMethod
	}
	if !s.TermsAccepted {
		return ErrTermsNotAccepted
	}
	return nil
}

// BeginSubmit 进入提交中状态。重复提交（双击）在这里被拒绝。
func (s *Session) BeginSubmit() error {
	if s.State == StateSubmitting {
		return ErrSubmitInProgress
	}
	if s.State != StateMethodSelected && s.State != StateFailed {
		return ErrInvalidTransition
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.State = StateSubmitting
	return nil
}

// CompleteSubmit 结束提交：成功进入 SUCCESS，失败回到 FAILED 且购物车保留，允许重试。
func (s *Session) CompleteSubmit(success bool) {
	if success {
		s.State = StateSuccess
		s.ClearCart()
		s.IdempotencyKey = ""
		return
	}
	s.State = StateFailed
}

// Total 重算订单金额。运费未知时按 0 计但结果带 FeeUnknown 标记。
func (s *Session) Total() OrderTotal {
	subtotal := s.Subtotal()

	var discount int64
	if s.Discount != nil {
		discount = s.Discount.Amount
	}

	var basePrice int64
	if s.Delivery != nil {
		basePrice = s.Delivery.PriceFor(subtotal)
	}

	if s.FeeUnknown || !s.FeeFresh {
		return AssembleTotalUnknownFee(subtotal, discount, basePrice)
	}
	return AssembleTotal(subtotal, discount, basePrice, s.DistanceFee)
}
