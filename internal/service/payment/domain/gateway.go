package domain

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// GatewayOrder 是待生成支付链接的订单信息。金额为整数 VND。
type GatewayOrder struct {
	OrderRef    string
	Amount      int64
	Description string
	BankCode    string
	Language    string
	OrderType   string
	ClientIP    string
	CreatedAt   time.Time
}

// Gateway 构造并校验银行网关的签名链接。
// 网关金额单位是 VND 的百分之一，序列化时乘 100。
type Gateway struct {
	PayURL     string
	TmnCode    string
	HashSecret string
	ReturnURL  string
}

// BuildPaymentURL 生成带 HMAC-SHA512 签名的跳转链接。
// 签名覆盖按字典序排列并 URL 编码后的全部业务参数。
func (g *Gateway) BuildPaymentURL(order GatewayOrder) string {
	params := g.buildParams(order)
	query := encodeSorted(params)
	return g.PayURL + "?" + query + "&vnp_SecureHash=" + g.sign(query)
}

// PopupParams 返回弹窗支付组件所需的已签名参数集。
// 与跳转链接同一套参数与签名，只是载体不同。
func (g *Gateway) PopupParams(order GatewayOrder) url.Values {
	params := g.buildParams(order)
	query := encodeSorted(params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("vnp_SecureHash", g.sign(query))
	return values
}

func (g *Gateway) buildParams(order GatewayOrder) map[string]string {
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    g.TmnCode,
		"vnp_Amount":     strconv.FormatInt(order.Amount*100, 10),
		"vnp_CreateDate": order.CreatedAt.Format("20060102150405"),
		"vnp_CurrCode":   "VND",
		"vnp_IpAddr":     order.ClientIP,
		"vnp_Locale":     order.Language,
		"vnp_OrderInfo":  order.Description,
		"vnp_OrderType":  order.OrderType,
		"vnp_ReturnUrl":  g.ReturnURL,
		"vnp_TxnRef":     order.OrderRef,
	}
	if params["vnp_Locale"] == "" {
		params["vnp_Locale"] = "vn"
	}
	if params["vnp_OrderType"] == "" {
		params["vnp_OrderType"] = "other"
	}
	if order.BankCode != "" {
		params["vnp_BankCode"] = order.BankCode
	}
	return params
}

// VerifyCallback 校验网关回跳参数的签名。
func (g *Gateway) VerifyCallback(values url.Values) bool {
	received := values.Get("vnp_SecureHash")
	if received == "" {
		return false
	}

	params := make(map[string]string, len(values))
	for key := range values {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		params[key] = values.Get(key)
	}

	expected := g.sign(encodeSorted(params))
	return hmac.Equal([]byte(expected), []byte(received))
}

func (g *Gateway) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(g.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func encodeSorted(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, params[k])
	}
	// url.Values.Encode 本身按键排序，与网关的签名约定一致。
	return values.Encode()
}
