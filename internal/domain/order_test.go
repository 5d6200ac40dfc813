package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verdantmarket/verdant/internal/domain"
)

func Test_DeliveryStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name        string
		from        domain.DeliveryStatus
		to          domain.DeliveryStatus
		allowed     bool
		explanation string
	}{
		{
			name:        "placed to processing",
			from:        domain.DeliveryPlaced,
			to:          domain.DeliveryProcessing,
			allowed:     true,
			explanation: "forward single step",
		},
		{
			name:        "processing to shipped",
			from:        domain.DeliveryProcessing,
			to:          domain.DeliveryShipped,
			allowed:     true,
			explanation: "forward single step",
		},
		{
			name:        "placed to shipped skips processing",
			from:        domain.DeliveryPlaced,
			to:          domain.DeliveryShipped,
			allowed:     false,
			explanation: "no step skipping except into Delivered",
		},
		{
			name:        "placed straight to delivered",
			from:        domain.DeliveryPlaced,
			to:          domain.DeliveryDelivered,
			allowed:     true,
			explanation: "a rider can hand over before admin bookkeeping catches up",
		},
		{
			name:        "shipped to delivered",
			from:        domain.DeliveryShipped,
			to:          domain.DeliveryDelivered,
			allowed:     true,
			explanation: "normal completion",
		},
		{
			name:        "processing back to placed",
			from:        domain.DeliveryProcessing,
			to:          domain.DeliveryPlaced,
			allowed:     false,
			explanation: "no backward moves",
		},
		{
			name:        "delivered is terminal",
			from:        domain.DeliveryDelivered,
			to:          domain.DeliveryProcessing,
			allowed:     false,
			explanation: "nothing leaves Delivered",
		},
		{
			name:        "delivered to delivered",
			from:        domain.DeliveryDelivered,
			to:          domain.DeliveryDelivered,
			allowed:     false,
			explanation: "repeat completion is rejected, not idempotent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), tt.explanation)
		})
	}
}

func Test_DeliveryStatus_Terminal(t *testing.T) {
	assert.True(t, domain.DeliveryDelivered.Terminal())
	assert.False(t, domain.DeliveryPlaced.Terminal())
	assert.False(t, domain.DeliveryProcessing.Terminal())
	assert.False(t, domain.DeliveryShipped.Terminal())
}

func Test_ActorRole_Administrative(t *testing.T) {
	assert.True(t, domain.RoleAdmin.Administrative())
	assert.True(t, domain.RoleSeller.Administrative())
	assert.False(t, domain.RoleRider.Administrative())
	assert.False(t, domain.RoleCustomer.Administrative())
}
