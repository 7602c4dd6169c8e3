package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELRuleEngine 是 domain.RuleEngine 的 cel-go 实现。
// 规则是一个求值为 bool 的 CEL 表达式，可引用固定的一组订单变量，
// 例如 "subtotal >= 500000 && province != 'Hoàng Sa'"。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program // 按规则文本缓存编译结果
}

// NewCELRuleEngine 创建规则引擎并声明规则可用的变量。
func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.IntType),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("province", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELRuleEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

// Evaluate 对规则求值。fact 中缺失的变量按零值补齐。
func (e *CELRuleEngine) Evaluate(rule string, fact map[string]interface{}) (bool, error) {
	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}

	input := map[string]interface{}{
		"subtotal":   int64(0),
		"item_count": int64(0),
		"province":   "",
	}
	for k, v := range fact {
		input[k] = v
	}

	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("rule evaluation failed: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule did not evaluate to a boolean: %q", rule)
	}
	return result, nil
}

func (e *CELRuleEngine) program(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid rule %q: %w", rule, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule program: %w", err)
	}

	e.mu.Lock()
	e.programs[rule] = prg
	e.mu.Unlock()
	return prg, nil
}
