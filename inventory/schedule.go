package inventory

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// HoursPerDay is the working day used to convert day-based durations.
var HoursPerDay = decimal.NewFromInt(8)

// Workdays are the columns of the weekly schedule.
var Workdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// DailyHours is how many hours a day an allocation occupies its resource.
// Day-based allocations occupy at most a full working day.
func DailyHours(a Allocation) decimal.Decimal {
	switch a.Duration.Kind {
	case DurationHours:
		return a.Duration.Value
	case DurationDays:
		return decimal.Min(a.Duration.Value.Mul(HoursPerDay), HoursPerDay)
	default:
		return HoursPerDay
	}
}

type ScheduleSlot struct {
	Day          time.Weekday
	AllocationID AllocationID
	ProjectID    ProjectID
	Hours        decimal.Decimal
}

type ResourceSchedule struct {
	Resource Resource
	Slots    []ScheduleSlot
}

// WeeklySchedule lays the active allocations of each returnable resource over
// Monday to Friday, round robin in allocation creation order keyed by the
// weekday number, so Monday (1) takes the second allocation when there are
// several. Resources with nothing active are left out. The result is ordered
// by resource name.
func WeeklySchedule(resources []Resource, allocs []Allocation) []ResourceSchedule {
	active := lo.GroupBy(
		lo.Filter(allocs, func(a Allocation, _ int) bool { return a.IsActive() }),
		func(a Allocation) ResourceID { return a.ResourceID },
	)

	var out []ResourceSchedule
	for _, r := range resources {
		mine := active[r.ID]
		if !r.Returnable || len(mine) == 0 {
			continue
		}
		sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.Before(mine[j].CreatedAt) })

		rs := ResourceSchedule{Resource: r}
		for _, day := range Workdays {
			a := mine[int(day)%len(mine)]
			rs.Slots = append(rs.Slots, ScheduleSlot{
				Day:          day,
				AllocationID: a.ID,
				ProjectID:    a.ProjectID,
				Hours:        DailyHours(a),
			})
		}
		out = append(out, rs)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Resource.Name < out[j].Resource.Name })
	return out
}
