package domain

// OrderTotal 是结算金额的聚合结果，所有输入变化后都应整体重算。
type OrderTotal struct {
	Subtotal       int64
	DiscountAmount int64
	DeliveryFee    int64 // 配送方式底价 + 距离费
	Total          int64
	FeeUnknown     bool // 运费无法确认时为 true，Total 中按 0 计但订单需人工确认运费
}

// AssembleTotal 按固定符号约定汇总订单金额：
//
//	total = subtotal − discountAmount + deliveryFee
//
// 折扣过大导致为负时收敛到 0。纯函数，重复调用结果一致。
func AssembleTotal(subtotal, discountAmount, methodBasePrice, distanceFee int64) OrderTotal {
	deliveryFee := methodBasePrice + distanceFee
	total := subtotal - discountAmount + deliveryFee
	if total < 0 {
		total = 0
	}
	return OrderTotal{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		DeliveryFee:    deliveryFee,
		Total:          total,
	}
}

// AssembleTotalUnknownFee 在距离费未知时汇总：距离费按 0 计，但结果带上 FeeUnknown 标记。
func AssembleTotalUnknownFee(subtotal, discountAmount, methodBasePrice int64) OrderTotal {
	t := AssembleTotal(subtotal, discountAmount, methodBasePrice, 0)
	t.FeeUnknown = true
	return t
}
