/*
availability.go - Available quantity and status

PURPOSE:
  Answers "how much of this resource can still be allocated?" from the
  ledger entry and the allocations that still hold a claim on it.

CALCULATION:
  Allocated = sum(quantity) over non-consumed allocations of the resource
  Available = Quantity - Allocated   (clamped to >= 0 for display)

STATUS:
  Available <= 0                      -> Out of Stock
  0 < Available < 20% of Quantity     -> Low Stock
  otherwise                           -> Available

  The stored status column is a hint written by refill/reset/consume. Anything
  that filters or decides on availability recomputes it here.

EXAMPLE:
  Quantity 100, allocations 30 + 65 (active):
    Allocated = 95, Available = 5, Status = Low Stock (5 < 20)
*/
package inventory

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// LowStockRatio is the share of the total below which a resource is Low Stock.
var LowStockRatio = decimal.RequireFromString("0.2")

type Availability struct {
	ResourceID ResourceID
	Total      decimal.Decimal
	Allocated  decimal.Decimal
	Available  decimal.Decimal
	Status     Status

	// Overcommitted is set when active allocations exceed the ledger total.
	// Available is clamped to zero in that case.
	Overcommitted bool
}

// ComputeAvailability derives availability for r. Allocations of other
// resources and consumed allocations are ignored.
func ComputeAvailability(r Resource, allocs []Allocation) Availability {
	allocated := AllocatedQuantity(r.ID, allocs)
	raw := r.Quantity.Sub(allocated)

	available := raw
	if available.IsNegative() {
		available = decimal.Zero
	}

	return Availability{
		ResourceID:    r.ID,
		Total:         r.Quantity,
		Allocated:     allocated,
		Available:     available,
		Status:        StatusFor(r.Quantity, available),
		Overcommitted: raw.IsNegative(),
	}
}

// AllocatedQuantity sums the active claims against a resource.
func AllocatedQuantity(id ResourceID, allocs []Allocation) decimal.Decimal {
	active := lo.Filter(allocs, func(a Allocation, _ int) bool {
		return a.ResourceID == id && a.IsActive()
	})
	return lo.Reduce(active, func(sum decimal.Decimal, a Allocation, _ int) decimal.Decimal {
		return sum.Add(a.Quantity)
	}, decimal.Zero)
}

// StatusFor buckets an available quantity against the resource total.
func StatusFor(total, available decimal.Decimal) Status {
	if !available.IsPositive() {
		return StatusOutOfStock
	}
	if available.LessThan(total.Mul(LowStockRatio)) {
		return StatusLowStock
	}
	return StatusAvailable
}

// RawStatus is the status of a resource when all of its quantity is free.
// Refill and reset use it; they do not look at allocations.
func RawStatus(quantity decimal.Decimal) Status {
	return StatusFor(quantity, quantity)
}

func urgency(s Status) int {
	switch s {
	case StatusOutOfStock:
		return 0
	case StatusLowStock:
		return 1
	default:
		return 2
	}
}

// SortByUrgency orders Out of Stock first, then Low Stock, then Available.
// Order within a bucket is preserved.
func SortByUrgency(avails []Availability) {
	sort.SliceStable(avails, func(i, j int) bool {
		return urgency(avails[i].Status) < urgency(avails[j].Status)
	})
}
