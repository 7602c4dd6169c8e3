package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	tests := []struct {
		name string
		rule string
		fact map[string]interface{}
		want bool
	}{
		{
			name: "subtotal threshold met",
			rule: "subtotal >= 500000",
			fact: map[string]interface{}{"subtotal": int64(500000)},
			want: true,
		},
		{
			name: "subtotal threshold not met",
			rule: "subtotal >= 500000",
			fact: map[string]interface{}{"subtotal": int64(499999)},
			want: false,
		},
		{
			name: "compound rule",
			rule: "subtotal >= 100000 && province == 'Thành phố Hồ Chí Minh'",
			fact: map[string]interface{}{"subtotal": int64(200000), "province": "Thành phố Hồ Chí Minh"},
			want: true,
		},
		{
			name: "missing variables default to zero values",
			rule: "item_count > 0",
			fact: map[string]interface{}{},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.rule, tt.fact)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateInvalidRule(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	_, err = engine.Evaluate("subtotal >=", nil)
	assert.Error(t, err)

	// 非布尔结果同样拒绝
	_, err = engine.Evaluate("subtotal + 1", map[string]interface{}{"subtotal": int64(1)})
	assert.Error(t, err)
}

func TestProgramCaching(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	_, err = engine.Evaluate("subtotal >= 1", map[string]interface{}{"subtotal": int64(5)})
	require.NoError(t, err)

	engine.mu.RLock()
	_, cached := engine.programs["subtotal >= 1"]
	engine.mu.RUnlock()
	assert.True(t, cached)
}
