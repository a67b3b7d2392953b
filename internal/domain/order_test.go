package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusCanTransition(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:     {OrderStatusApproved, OrderStatusCancelled},
		OrderStatusApproved:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing:  {OrderStatusForDelivery, OrderStatusCancelled},
		OrderStatusForDelivery: {OrderStatusCompleted, OrderStatusDisputed},
		OrderStatusDisputed:    {OrderStatusCompleted, OrderStatusCancelled},
	}
	all := []OrderStatus{
		OrderStatusPending, OrderStatusApproved, OrderStatusProcessing, OrderStatusForDelivery,
		OrderStatusCompleted, OrderStatusDisputed, OrderStatusCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusDisputed.IsTerminal())
	assert.False(t, OrderStatus("SHIPPED").IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus(" for_delivery ")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusForDelivery, status)

	_, ok = ParseOrderStatus("SHIPPED")
	assert.False(t, ok)
}

func TestParseKYCDecision(t *testing.T) {
	status, ok := ParseKYCDecision("approved")
	assert.True(t, ok)
	assert.Equal(t, KYCStatusApproved, status)

	_, ok = ParseKYCDecision("PENDING")
	assert.False(t, ok)
}
