package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrTermsNotAccepted   = errors.New("terms must be accepted before submitting")
	ErrNoDeliveryMethod   = errors.New("no delivery method selected")
	ErrNoPaymentMethod    = errors.New("no payment method selected")
	ErrSubmitInProgress   = errors.New("a submission is already in progress")
	ErrInvalidTransition  = errors.New("invalid submission state transition")
	ErrFeeUnknown         = errors.New("delivery fee could not be determined")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrUnknownPaymentKind = errors.New("unknown payment method")
)

// ValidationError 表示某个必填字段缺失或非法，提交被阻断，不发起网络调用。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// DiscountErrorCode 枚举了优惠码不可用的具体原因，每个原因对应一条用户提示。
type DiscountErrorCode string

const (
	DiscountNotFound      DiscountErrorCode = "NOT_FOUND"
	DiscountExpired       DiscountErrorCode = "EXPIRED"
	DiscountUsageExceeded DiscountErrorCode = "USAGE_EXCEEDED"
	DiscountBelowMinimum  DiscountErrorCode = "BELOW_MINIMUM"
	DiscountInactive      DiscountErrorCode = "INACTIVE"
	// DiscountUnavailable 覆盖网络/解析失败，对用户统一呈现"无效或已过期"，
	// 避免把后端错误细节泄露到前台。
	DiscountUnavailable DiscountErrorCode = "UNAVAILABLE"
)

// DiscountError 表示优惠码校验失败。订单继续走无折扣流程，不阻断提交。
type DiscountError struct {
	Code DiscountErrorCode
}

func (e *DiscountError) Error() string {
	return fmt.Sprintf("discount rejected: %s", e.Code)
}

// AsDiscountError 提取 DiscountError，非该类型时返回 nil。
func AsDiscountError(err error) *DiscountError {
	var de *DiscountError
	if errors.As(err, &de) {
		return de
	}
	return nil
}
