package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TASK ASSIGNMENTS - Draws on a project's allocation pool
// =============================================================================

type AssignTaskRequest struct {
	TaskID     TaskID
	ProjectID  ProjectID
	ResourceID ResourceID
	Quantity   decimal.Decimal
	Duration   Duration
}

// AssignToTask records that a task uses part of what its project holds of a
// resource. The project must have active allocations of the resource; the
// quantity is bounded by their sum and the duration by the longest of the
// same unit.
func (e *Engine) AssignToTask(ctx context.Context, req AssignTaskRequest) (TaskAssignment, error) {
	if req.TaskID == "" {
		return TaskAssignment{}, &ValidationError{Field: "task_id", Message: "task is required"}
	}
	if !req.Quantity.IsPositive() {
		return TaskAssignment{}, &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	if err := req.Duration.Validate(); err != nil {
		return TaskAssignment{}, err
	}

	var out TaskAssignment
	err := e.withResource(ctx, req.ResourceID, func(s Store) error {
		r, err := s.GetResource(ctx, req.ResourceID)
		if err != nil {
			return wrapStore("load resource", err)
		}
		if !r.Returnable && !req.Duration.IsNone() {
			return &ValidationError{Field: string(req.Duration.Kind),
				Message: "only returnable resources take a duration"}
		}

		allocs, err := s.ListAllocationsByProject(ctx, req.ProjectID)
		if err != nil {
			return wrapStore("load project allocations", err)
		}
		pool := lo.Filter(allocs, func(a Allocation, _ int) bool {
			return a.ResourceID == r.ID && a.IsActive()
		})
		if len(pool) == 0 {
			return &DomainError{Op: "assign", ResourceID: r.ID,
				Reason: "project " + string(req.ProjectID) + " holds no active allocation of this resource"}
		}

		held := AllocatedQuantity(r.ID, pool)
		if req.Quantity.GreaterThan(held) {
			return &InsufficientQuantityError{ResourceID: r.ID, Available: held, Requested: req.Quantity}
		}
		if limit, ok := maxPoolDuration(pool, req.Duration.Kind); ok && req.Duration.Value.GreaterThan(limit) {
			return &ValidationError{Field: string(req.Duration.Kind),
				Message: "cannot exceed the project allocation of " + limit.String() + " " + string(req.Duration.Kind)}
		}

		a := TaskAssignment{
			ID:         AssignmentID(uuid.NewString()),
			TaskID:     req.TaskID,
			ResourceID: r.ID,
			Quantity:   req.Quantity,
			Duration:   req.Duration,
			CreatedAt:  e.Now(),
		}
		if err := s.CreateAssignment(ctx, a); err != nil {
			return wrapStore("create task assignment", err)
		}
		out = a
		return nil
	})
	return out, err
}

// maxPoolDuration returns the longest duration of kind among the pool.
func maxPoolDuration(pool []Allocation, kind DurationKind) (decimal.Decimal, bool) {
	if kind == DurationNone {
		return decimal.Zero, false
	}
	same := lo.Filter(pool, func(a Allocation, _ int) bool { return a.Duration.Kind == kind })
	if len(same) == 0 {
		return decimal.Zero, false
	}
	return lo.MaxBy(same, func(a, b Allocation) bool {
		return a.Duration.Value.GreaterThan(b.Duration.Value)
	}).Duration.Value, true
}

func (e *Engine) TaskAssignments(ctx context.Context, id TaskID) ([]TaskAssignment, error) {
	out, err := e.store.ListAssignmentsByTask(ctx, id)
	return out, wrapStore("list task assignments", err)
}

func (e *Engine) RemoveTaskAssignment(ctx context.Context, id AssignmentID) error {
	return wrapStore("delete task assignment", e.store.DeleteAssignment(ctx, id))
}
