package inventory

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COST CALCULATOR
// =============================================================================

// Cost returns the exact monetary cost of an allocation.
//
//   - consumable:                        quantity * cost
//   - returnable, hour rate, Hours(h):   hourRate * h
//   - returnable, day rate, Days(d):     dayRate * d
//   - returnable, day rate, legacy row:  dayRate * legacy days
//   - anything else:                     quantity * cost
//
// Rate-based costs do not scale with quantity. No rounding is applied.
func Cost(a Allocation, r Resource) decimal.Decimal {
	base := a.Quantity.Mul(r.Cost)
	if !r.Returnable {
		return base
	}
	if r.HourRate.Valid && a.Duration.IsHours() {
		return r.HourRate.Decimal.Mul(a.Duration.Value)
	}
	if r.DayRate.Valid {
		if a.Duration.IsDays() {
			return r.DayRate.Decimal.Mul(a.Duration.Value)
		}
		if days, ok := a.Duration.LegacyDays(); ok {
			return r.DayRate.Decimal.Mul(days)
		}
	}
	return base
}

type CostLine struct {
	AllocationID AllocationID
	ResourceID   ResourceID
	ResourceName string
	Mode         PricingMode
	Cost         decimal.Decimal
}

type CostSummary struct {
	Lines []CostLine
	Total decimal.Decimal
}

// ProjectCost prices every allocation whose resource is known. Consumed
// allocations are still priced: they were used by the project.
func ProjectCost(allocs []Allocation, resources map[ResourceID]Resource) CostSummary {
	summary := CostSummary{Total: decimal.Zero}
	for _, a := range allocs {
		r, ok := resources[a.ResourceID]
		if !ok {
			continue
		}
		c := Cost(a, r)
		summary.Lines = append(summary.Lines, CostLine{
			AllocationID: a.ID,
			ResourceID:   r.ID,
			ResourceName: r.Name,
			Mode:         r.PricingMode(),
			Cost:         c,
		})
		summary.Total = summary.Total.Add(c)
	}
	return summary
}
