/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow the
  snake_case columns of the resources / resource_allocations / task_resources
  tables so the existing frontend can read them unchanged.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DURATIONS:
  Requests carry "days" and "hours" as two nullable fields. At most one may
  be set; the handler turns them into an inventory.Duration.

DECIMALS:
  Quantities and money are decimal strings in responses. Requests accept
  numbers or strings.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/resource.go: ResourceJSON (create body)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/edifice/resource-engine/inventory"
)

// =============================================================================
// RESOURCES
// =============================================================================

type AvailabilityDTO struct {
	Total         decimal.Decimal `json:"total"`
	Allocated     decimal.Decimal `json:"allocated"`
	Available     decimal.Decimal `json:"available"`
	Status        string          `json:"status"`
	Overcommitted bool            `json:"overcommitted,omitempty"`
}

type ResourceDTO struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Type         string              `json:"type"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Unit         string              `json:"unit"`
	Cost         decimal.Decimal     `json:"cost"`
	Returnable   bool                `json:"returnable"`
	HourRate     decimal.NullDecimal `json:"hour_rate"`
	DayRate      decimal.NullDecimal `json:"day_rate"`
	PricingMode  string              `json:"pricing_mode"`
	Status       string              `json:"status"`
	Version      int64               `json:"version"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	Availability *AvailabilityDTO    `json:"availability,omitempty"`
	Allocations  []AllocationDTO     `json:"allocations,omitempty"`
}

// UpdateResourceRequest edits a resource. Omitted fields are unchanged.
// A null rate cannot be told apart from an omitted one, so rates are cleared
// with clear_hour_rate / clear_day_rate.
type UpdateResourceRequest struct {
	Name          *string          `json:"name,omitempty"`
	Type          *string          `json:"type,omitempty"`
	Unit          *string          `json:"unit,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	Returnable    *bool            `json:"returnable,omitempty"`
	HourRate      *decimal.Decimal `json:"hour_rate,omitempty"`
	DayRate       *decimal.Decimal `json:"day_rate,omitempty"`
	ClearHourRate bool             `json:"clear_hour_rate,omitempty"`
	ClearDayRate  bool             `json:"clear_day_rate,omitempty"`
}

type RefillRequest struct {
	Quantity decimal.Decimal  `json:"quantity"`
	Cost     *decimal.Decimal `json:"cost,omitempty"`
}

type ResetResponse struct {
	Resource ResourceDTO `json:"resource"`
	Removed  int         `json:"removed_allocations"`
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

type AllocateRequest struct {
	ResourceID string              `json:"resource_id"`
	ProjectID  string              `json:"project_id"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Days       decimal.NullDecimal `json:"days"`
	Hours      decimal.NullDecimal `json:"hours"`
}

type AllocationDTO struct {
	ID           string              `json:"id"`
	ResourceID   string              `json:"resource_id"`
	ResourceName string              `json:"resource_name,omitempty"`
	ProjectID    string              `json:"project_id"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Days         decimal.NullDecimal `json:"days"`
	Hours        decimal.NullDecimal `json:"hours"`
	Consumed     bool                `json:"consumed"`
	State        string              `json:"state"`
	Cost         *decimal.Decimal    `json:"cost,omitempty"`
	CreatedAt    string              `json:"created_at"`
}

type CostLineDTO struct {
	AllocationID string          `json:"allocation_id"`
	ResourceID   string          `json:"resource_id"`
	ResourceName string          `json:"resource_name"`
	PricingMode  string          `json:"pricing_mode"`
	Cost         decimal.Decimal `json:"cost"`
}

type ProjectAllocationsDTO struct {
	ProjectID   string          `json:"project_id"`
	Allocations []AllocationDTO `json:"allocations"`
	CostLines   []CostLineDTO   `json:"cost_lines"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// =============================================================================
// TASKS
// =============================================================================

type AssignTaskRequest struct {
	ProjectID  string              `json:"project_id"`
	ResourceID string              `json:"resource_id"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Days       decimal.NullDecimal `json:"days"`
	Hours      decimal.NullDecimal `json:"hours"`
}

type TaskAssignmentDTO struct {
	ID         string              `json:"id"`
	TaskID     string              `json:"task_id"`
	ResourceID string              `json:"resource_id"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Days       decimal.NullDecimal `json:"days"`
	Hours      decimal.NullDecimal `json:"hours"`
	CreatedAt  string              `json:"created_at"`
}

// =============================================================================
// SCHEDULE & EXPIRY
// =============================================================================

type ScheduleSlotDTO struct {
	Day          string          `json:"day"`
	AllocationID string          `json:"allocation_id"`
	ProjectID    string          `json:"project_id"`
	Hours        decimal.Decimal `json:"hours"`
}

type ResourceScheduleDTO struct {
	ResourceID   string            `json:"resource_id"`
	ResourceName string            `json:"resource_name"`
	Type         string            `json:"type"`
	Slots        []ScheduleSlotDTO `json:"slots"`
}

type SweepRunDTO struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Cutoff      string  `json:"cutoff"`
	Scanned     int     `json:"scanned"`
	Expired     int     `json:"expired"`
	Error       string  `json:"error,omitempty"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SweepErrorResponse carries what a failed sweep applied before it stopped.
type SweepErrorResponse struct {
	ErrorResponse
	Run *SweepRunDTO `json:"run,omitempty"`
}

// ExpiryRunsResponse is the sweep history plus the next scheduled sweep.
// NextRun is null when the scheduler is stopped or disabled.
type ExpiryRunsResponse struct {
	NextRun *string       `json:"next_run"`
	Runs    []SweepRunDTO `json:"runs"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toResourceDTO(r inventory.Resource) ResourceDTO {
	return ResourceDTO{
		ID:          string(r.ID),
		Name:        r.Name,
		Type:        string(r.Category),
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Cost:        r.Cost,
		Returnable:  r.Returnable,
		HourRate:    r.HourRate,
		DayRate:     r.DayRate,
		PricingMode: string(r.PricingMode()),
		Status:      string(r.Status),
		Version:     r.Version,
		CreatedAt:   formatTime(r.CreatedAt),
		UpdatedAt:   formatTime(r.UpdatedAt),
	}
}

func toResourceViewDTO(v inventory.ResourceView, withAllocations bool) ResourceDTO {
	dto := toResourceDTO(v.Resource)
	dto.Availability = &AvailabilityDTO{
		Total:         v.Availability.Total,
		Allocated:     v.Availability.Allocated,
		Available:     v.Availability.Available,
		Status:        string(v.Availability.Status),
		Overcommitted: v.Availability.Overcommitted,
	}
	// Availability is always fresher than the stored hint.
	dto.Status = string(v.Availability.Status)
	if withAllocations {
		dto.Allocations = make([]AllocationDTO, len(v.Allocations))
		for i, a := range v.Allocations {
			dto.Allocations[i] = toAllocationDTO(a)
		}
	}
	return dto
}

func toAllocationDTO(a inventory.Allocation) AllocationDTO {
	days, hours := a.Duration.Columns()
	return AllocationDTO{
		ID:         string(a.ID),
		ResourceID: string(a.ResourceID),
		ProjectID:  string(a.ProjectID),
		Quantity:   a.Quantity,
		Days:       days,
		Hours:      hours,
		Consumed:   a.Consumed,
		State:      string(a.State()),
		CreatedAt:  formatTime(a.CreatedAt),
	}
}

func toAllocationViewDTO(v inventory.AllocationView) AllocationDTO {
	dto := toAllocationDTO(v.Allocation)
	dto.ResourceName = v.Resource.Name
	cost := v.Cost
	dto.Cost = &cost
	return dto
}

func toTaskAssignmentDTO(a inventory.TaskAssignment) TaskAssignmentDTO {
	days, hours := a.Duration.Columns()
	return TaskAssignmentDTO{
		ID:         string(a.ID),
		TaskID:     string(a.TaskID),
		ResourceID: string(a.ResourceID),
		Quantity:   a.Quantity,
		Days:       days,
		Hours:      hours,
		CreatedAt:  formatTime(a.CreatedAt),
	}
}

func toSweepRunDTO(r inventory.SweepRun) SweepRunDTO {
	dto := SweepRunDTO{
		ID:        r.ID,
		Status:    string(r.Status),
		Cutoff:    formatTime(r.Cutoff),
		Scanned:   r.Scanned,
		Expired:   r.Expired,
		Error:     r.Error,
		StartedAt: formatTime(r.StartedAt),
	}
	if r.CompletedAt != nil {
		s := formatTime(*r.CompletedAt)
		dto.CompletedAt = &s
	}
	return dto
}

// durationFrom turns the two nullable request fields into a Duration.
func durationFrom(days, hours decimal.NullDecimal) (inventory.Duration, error) {
	switch {
	case days.Valid && hours.Valid:
		return inventory.Duration{}, &inventory.ValidationError{Field: "duration", Message: "set either days or hours, not both"}
	case days.Valid:
		return inventory.Days(days.Decimal), nil
	case hours.Valid:
		return inventory.Hours(hours.Decimal), nil
	default:
		return inventory.NoDuration(), nil
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
