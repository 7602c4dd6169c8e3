package domain

// TierFee 把行车距离映射为阶梯运费。
// 阶梯下界为闭区间：恰好 10/50/100 公里落入更高一档，
// 不会穿透到免运费默认值。
//
//	d < 10km        → 0
//	10 ≤ d < 50km   → 30000
//	50 ≤ d < 100km  → 50000
//	d ≥ 100km       → 70000
func TierFee(distanceKm float64) int64 {
	switch {
	case distanceKm < 10:
		return 0
	case distanceKm < 50:
		return 30000
	case distanceKm < 100:
		return 50000
	default:
		return 70000
	}
}
