package domain

import "context"

// DiscountRepository 定义优惠码的持久化接口。
type DiscountRepository interface {
	FindByCode(ctx context.Context, code string) (*DiscountCode, error)
	Save(ctx context.Context, discount *DiscountCode) error
	List(ctx context.Context) ([]*DiscountCode, error)
	// IncrementUsage 原子地把 usedCount 加一。并发核销由上层的分布式锁串行化。
	IncrementUsage(ctx context.Context, code string) error
}

// RuleEngine 对可选的资格规则求值。fact 的键即规则中可引用的变量。
type RuleEngine interface {
	Evaluate(rule string, fact map[string]interface{}) (bool, error)
}
