package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderInitialState(t *testing.T) {
	assert.Equal(t, StateCreated, NewOrder("AGM-1", "cash").State)
	assert.Equal(t, StatePendingPayment, NewOrder("AGM-2", "gateway_redirect").State)
	assert.True(t, NewOrder("AGM-2", "gateway_redirect").AwaitsPayment())
}

func TestMarkPaid(t *testing.T) {
	order := NewOrder("AGM-1", "gateway_redirect")
	require.NoError(t, order.MarkPaid())
	assert.Equal(t, StatePaid, order.State)

	// 已支付订单不能重复推进
	assert.ErrorIs(t, order.MarkPaid(), ErrInvalidStateChange)
	assert.ErrorIs(t, order.MarkFailed(), ErrInvalidStateChange)
}

func TestCancel(t *testing.T) {
	order := NewOrder("AGM-1", "gateway_redirect")
	require.NoError(t, order.Cancel())
	assert.Equal(t, StateCancelled, order.State)
	assert.ErrorIs(t, order.Cancel(), ErrInvalidStateChange)

	// 已支付订单不可直接取消
	paid := NewOrder("AGM-2", "gateway_redirect")
	require.NoError(t, paid.MarkPaid())
	assert.ErrorIs(t, paid.Cancel(), ErrInvalidStateChange)
}
