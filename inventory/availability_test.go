package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edifice/resource-engine/inventory"
)

func TestComputeAvailability_Buckets(t *testing.T) {
	tests := []struct {
		name      string
		total     string
		allocated []string
		available string
		status    inventory.Status
	}{
		{"nothing allocated", "100", nil, "100", inventory.StatusAvailable},
		{"exactly twenty percent left", "100", []string{"80"}, "20", inventory.StatusAvailable},
		{"just under twenty percent", "100", []string{"80.01"}, "19.99", inventory.StatusLowStock},
		{"two claims leave five", "100", []string{"30", "65"}, "5", inventory.StatusLowStock},
		{"fully allocated", "100", []string{"100"}, "0", inventory.StatusOutOfStock},
		{"empty ledger", "0", nil, "0", inventory.StatusOutOfStock},
		{"fractional units", "2.5", []string{"0.5"}, "2", inventory.StatusAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := consumable("r", tt.total)
			var allocs []inventory.Allocation
			for _, q := range tt.allocated {
				allocs = append(allocs, inventory.Allocation{ResourceID: "r", Quantity: dec(q)})
			}

			got := inventory.ComputeAvailability(r, allocs)

			assert.True(t, got.Available.Equal(dec(tt.available)), "available = %s", got.Available)
			assert.Equal(t, tt.status, got.Status)
			assert.False(t, got.Overcommitted)
		})
	}
}

func TestComputeAvailability_IgnoresConsumedAndForeign(t *testing.T) {
	// GIVEN: one active claim of 10, one consumed claim of 50, one claim on another resource
	// WHEN: Computing availability
	// THEN: Only the active claim counts
	r := consumable("r", "100")
	allocs := []inventory.Allocation{
		{ResourceID: "r", Quantity: dec("10")},
		{ResourceID: "r", Quantity: dec("50"), Consumed: true},
		{ResourceID: "other", Quantity: dec("70")},
	}

	got := inventory.ComputeAvailability(r, allocs)

	assert.True(t, got.Allocated.Equal(dec("10")))
	assert.True(t, got.Available.Equal(dec("90")))
}

func TestComputeAvailability_Overcommitted(t *testing.T) {
	r := consumable("r", "10")
	allocs := []inventory.Allocation{{ResourceID: "r", Quantity: dec("12")}}

	got := inventory.ComputeAvailability(r, allocs)

	assert.True(t, got.Available.IsZero(), "available is clamped")
	assert.True(t, got.Overcommitted)
	assert.Equal(t, inventory.StatusOutOfStock, got.Status)
}

func TestRawStatus(t *testing.T) {
	assert.Equal(t, inventory.StatusOutOfStock, inventory.RawStatus(dec("0")))
	assert.Equal(t, inventory.StatusOutOfStock, inventory.RawStatus(dec("-3")))
	assert.Equal(t, inventory.StatusAvailable, inventory.RawStatus(dec("0.01")))
}

func TestSortByUrgency_StableWithinBucket(t *testing.T) {
	avails := []inventory.Availability{
		{ResourceID: "a", Status: inventory.StatusAvailable},
		{ResourceID: "b", Status: inventory.StatusLowStock},
		{ResourceID: "c", Status: inventory.StatusOutOfStock},
		{ResourceID: "d", Status: inventory.StatusLowStock},
		{ResourceID: "e", Status: inventory.StatusOutOfStock},
	}

	inventory.SortByUrgency(avails)

	var order []inventory.ResourceID
	for _, a := range avails {
		order = append(order, a.ResourceID)
	}
	assert.Equal(t, []inventory.ResourceID{"c", "e", "b", "d", "a"}, order)
}
