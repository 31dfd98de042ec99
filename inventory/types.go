/*
Package inventory provides the resource allocation and availability engine.

PURPOSE:
  A construction site draws on a finite stock of materials, equipment and
  labor. This package owns the rules for how that stock is partitioned across
  projects and tasks: what is allocated, what is still available, what an
  allocation costs, and how allocations move through their lifecycle.

KEY CONCEPTS IN THIS FILE (types.go):
  - Resource: the ledger entry (total quantity, unit cost, pricing rates)
  - Allocation: a claim against a resource for a project
  - Duration: days OR hours OR nothing, never both
  - TaskAssignment: a task-level draw on the project's allocation pool

DESIGN PRINCIPLES:
  1. Precision: quantities and money use decimal.Decimal
  2. Derived state: availability and status are computed, never trusted
  3. Type Safety: distinct ID types for resources, projects, tasks
  4. Terminal states: consumed and deleted allocations never come back

USAGE:
  res := inventory.Resource{
      Name:     "Rebar #4",
      Category: inventory.CategoryMaterial,
      Quantity: decimal.NewFromInt(100),
      Unit:     "tons",
      Cost:     decimal.NewFromInt(2),
  }
  avail := inventory.ComputeAvailability(res, allocations)

SEE ALSO:
  - availability.go: Availability calculator
  - cost.go: Cost calculator
  - engine.go: Lifecycle operations
  - store.go: Persistence interfaces
*/
package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ResourceID string
type ProjectID string
type TaskID string
type AllocationID string
type AssignmentID string

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Category is the kind of resource being tracked.
type Category string

const (
	CategoryMaterial  Category = "Material"
	CategoryEquipment Category = "Equipment"
	CategoryLabor     Category = "Labor"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMaterial, CategoryEquipment, CategoryLabor:
		return true
	}
	return false
}

// Status is the availability bucket of a resource. It is always derived from
// quantities; a stored Status is only a display hint.
type Status string

const (
	StatusAvailable  Status = "Available"
	StatusLowStock   Status = "Low Stock"
	StatusOutOfStock Status = "Out of Stock"
)

// PricingMode says which rate the cost calculator applies.
type PricingMode string

const (
	PricingFixed  PricingMode = "fixed"
	PricingHourly PricingMode = "hourly"
	PricingDaily  PricingMode = "daily"
)

// =============================================================================
// RESOURCE - Ledger entry
// =============================================================================

type Resource struct {
	ID         ResourceID
	Name       string
	Category   Category
	Quantity   decimal.Decimal
	Unit       string
	Cost       decimal.Decimal
	Returnable bool
	HourRate   decimal.NullDecimal
	DayRate    decimal.NullDecimal

	// Status is the last status written alongside the ledger. Stale by nature.
	Status Status

	// Version is bumped on every ledger write; updates compare-and-set on it.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricingMode derives the pricing mode from the configured rates.
func (r Resource) PricingMode() PricingMode {
	switch {
	case r.Returnable && r.HourRate.Valid:
		return PricingHourly
	case r.Returnable && r.DayRate.Valid:
		return PricingDaily
	default:
		return PricingFixed
	}
}

// Validate checks field bounds and the rate invariant:
// returnable resources carry at most one of hour/day rate, consumables carry none.
func (r Resource) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !r.Category.Valid() {
		return &ValidationError{Field: "type", Message: "type must be Material, Equipment or Labor"}
	}
	if r.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Message: "quantity cannot be negative"}
	}
	if r.Cost.IsNegative() {
		return &ValidationError{Field: "cost", Message: "cost cannot be negative"}
	}
	if !r.Returnable {
		if r.HourRate.Valid || r.DayRate.Valid {
			return &ValidationError{Field: "returnable", Message: "consumable resources cannot carry an hour or day rate"}
		}
		return nil
	}
	if r.HourRate.Valid && r.DayRate.Valid {
		return &ValidationError{Field: "hour_rate", Message: "set either hour_rate or day_rate, not both"}
	}
	if r.HourRate.Valid && !r.HourRate.Decimal.IsPositive() {
		return &ValidationError{Field: "hour_rate", Message: "hour_rate must be positive"}
	}
	if r.DayRate.Valid && !r.DayRate.Decimal.IsPositive() {
		return &ValidationError{Field: "day_rate", Message: "day_rate must be positive"}
	}
	return nil
}

// =============================================================================
// DURATION - Days | Hours | None
// =============================================================================

type DurationKind string

const (
	DurationNone  DurationKind = ""
	DurationDays  DurationKind = "days"
	DurationHours DurationKind = "hours"
)

// Duration is how long a returnable allocation runs. Exactly one unit or none.
//
// legacyDays is only set when a stored row predates the union and carries
// both columns; Kind is then Hours and the days column rides along so the
// cost calculator can still price a day-rate resource by days.
type Duration struct {
	Kind  DurationKind
	Value decimal.Decimal

	legacyDays decimal.NullDecimal
}

func NoDuration() Duration             { return Duration{} }
func Days(n decimal.Decimal) Duration  { return Duration{Kind: DurationDays, Value: n} }
func Hours(n decimal.Decimal) Duration { return Duration{Kind: DurationHours, Value: n} }

func (d Duration) IsNone() bool  { return d.Kind == DurationNone }
func (d Duration) IsDays() bool  { return d.Kind == DurationDays }
func (d Duration) IsHours() bool { return d.Kind == DurationHours }

// LegacyDays returns the days column of a row that carried both units.
func (d Duration) LegacyDays() (decimal.Decimal, bool) {
	return d.legacyDays.Decimal, d.legacyDays.Valid
}

// Validate rejects unknown kinds and non-positive values.
func (d Duration) Validate() error {
	switch d.Kind {
	case DurationNone:
		return nil
	case DurationDays, DurationHours:
		if !d.Value.IsPositive() {
			return &ValidationError{Field: string(d.Kind), Message: string(d.Kind) + " must be positive"}
		}
		return nil
	default:
		return &ValidationError{Field: "duration", Message: "unknown duration unit " + string(d.Kind)}
	}
}

// DurationFromColumns builds a Duration from the days/hours storage columns.
// Rows written before the union existed may carry both; they resolve to hours
// and keep the days value as LegacyDays.
func DurationFromColumns(days, hours decimal.NullDecimal) Duration {
	hasDays := days.Valid && days.Decimal.IsPositive()
	switch {
	case hours.Valid && hours.Decimal.IsPositive():
		d := Hours(hours.Decimal)
		if hasDays {
			d.legacyDays = days
		}
		return d
	case hasDays:
		return Days(days.Decimal)
	default:
		return NoDuration()
	}
}

// Columns splits a Duration back into the days/hours storage columns.
func (d Duration) Columns() (days, hours decimal.NullDecimal) {
	switch d.Kind {
	case DurationDays:
		days = decimal.NewNullDecimal(d.Value)
	case DurationHours:
		hours = decimal.NewNullDecimal(d.Value)
		days = d.legacyDays
	}
	return days, hours
}

// =============================================================================
// ALLOCATION - Claim against a resource
// =============================================================================

type AllocationState string

const (
	StateActive   AllocationState = "active"
	StateConsumed AllocationState = "consumed"
)

type Allocation struct {
	ID         AllocationID
	ResourceID ResourceID
	ProjectID  ProjectID
	Quantity   decimal.Decimal
	Duration   Duration
	Consumed   bool
	CreatedAt  time.Time
}

func (a Allocation) State() AllocationState {
	if a.Consumed {
		return StateConsumed
	}
	return StateActive
}

func (a Allocation) IsActive() bool { return !a.Consumed }

// =============================================================================
// TASK ASSIGNMENT - Task-level draw on a project's allocations
// =============================================================================

type TaskAssignment struct {
	ID         AssignmentID
	TaskID     TaskID
	ResourceID ResourceID
	Quantity   decimal.Decimal
	Duration   Duration
	CreatedAt  time.Time
}
