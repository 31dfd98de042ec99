/*
engine.go - Allocation lifecycle operations

PURPOSE:
  Every mutation of the ledger or of allocation records goes through the
  Engine. Call sites never decrement quantities or flip consumed flags
  themselves.

ALLOCATION STATE MACHINE:
  none -> active (consumed=false) -> consumed (consumed=true)
                                  -> deleted  (returned, reset, resource deleted)
  Nothing leaves consumed or deleted.

OPERATIONS:
  Allocate:  reserve quantity for a project (no ledger write)
  Consume:   consumable only; ledger -= quantity, allocation consumed
  MarkUsed:  returnable only; allocation consumed, ledger untouched
  Return:    returnable only; allocation deleted
  Refill:    ledger += quantity, optional new unit cost
  Reset:     consumable only; drop every allocation of the resource
  Delete:    drop allocations, task assignments, then the resource

SINGLE WRITER:
  Operations touching a resource hold that resource's lock for their whole
  read-modify-write sequence. When the store is a TxStore the sequence runs
  in one store transaction, so a failed second write rolls back the first.
  UpdateResource is additionally compare-and-set on the resource version,
  which protects against writers in other processes.

ERRORS:
  ValidationError / DomainError are raised before any write. Anything the
  store returns is wrapped in StoreError.

SEE ALSO:
  - availability.go: availability used by Allocate
  - expiry.go: automatic expiry sweep
  - task.go: task-level assignments
*/
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edifice/resource-engine/logutils"
)

// DefaultMaxAge is how long a returnable allocation stays active before the
// expiry sweep consumes it.
const DefaultMaxAge = 7 * 24 * time.Hour

type Engine struct {
	store Store
	locks *resourceLocks
	log   logrus.FieldLogger

	// Now is the clock. Tests replace it.
	Now func() time.Time

	// MaxAge is the age after which returnable allocations expire.
	MaxAge time.Duration
}

// NewEngine creates an engine over store. A nil logger uses logutils.Log.
func NewEngine(store Store, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logutils.Component("engine")
	}
	return &Engine{
		store:  store,
		locks:  newResourceLocks(),
		log:    logger,
		Now:    func() time.Time { return time.Now().UTC() },
		MaxAge: DefaultMaxAge,
	}
}

// Store exposes the underlying store for read paths outside the engine.
func (e *Engine) Store() Store { return e.store }

// withResource runs fn as the single writer for resource id.
func (e *Engine) withResource(ctx context.Context, id ResourceID, fn func(Store) error) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	if tx, ok := e.store.(TxStore); ok {
		return wrapStore("transaction", tx.WithTx(ctx, fn))
	}
	return fn(e.store)
}

// =============================================================================
// RESOURCES
// =============================================================================

// CreateResource validates and stores a new ledger entry. The status is set
// from the raw quantity.
func (e *Engine) CreateResource(ctx context.Context, r Resource) (Resource, error) {
	if err := r.Validate(); err != nil {
		return Resource{}, err
	}
	if r.ID == "" {
		r.ID = ResourceID(uuid.NewString())
	}
	now := e.Now()
	r.Status = RawStatus(r.Quantity)
	r.Version = 1
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := e.store.CreateResource(ctx, r); err != nil {
		return Resource{}, wrapStore("create resource", err)
	}
	return r, nil
}

// ResourceUpdate carries the editable fields of a resource. Nil means unchanged.
type ResourceUpdate struct {
	Name       *string
	Category   *Category
	Unit       *string
	Quantity   *decimal.Decimal
	Cost       *decimal.Decimal
	Returnable *bool
	HourRate   *decimal.NullDecimal
	DayRate    *decimal.NullDecimal
}

// UpdateResource edits a resource's details. The quantity cannot drop below
// what active allocations already hold, and the returnable flag cannot flip
// while allocations are active.
func (e *Engine) UpdateResource(ctx context.Context, id ResourceID, u ResourceUpdate) (Resource, error) {
	var out Resource
	err := e.withResource(ctx, id, func(s Store) error {
		r, err := s.GetResource(ctx, id)
		if err != nil {
			return wrapStore("load resource", err)
		}
		allocs, err := s.ListAllocationsByResource(ctx, id)
		if err != nil {
			return wrapStore("load allocations", err)
		}
		allocated := AllocatedQuantity(id, allocs)

		if u.Name != nil {
			r.Name = *u.Name
		}
		if u.Category != nil {
			r.Category = *u.Category
		}
		if u.Unit != nil {
			r.Unit = *u.Unit
		}
		if u.Quantity != nil {
			if u.Quantity.LessThan(allocated) {
				return &ValidationError{Field: "quantity",
					Message: "quantity " + u.Quantity.String() + " is below the allocated " + allocated.String()}
			}
			r.Quantity = *u.Quantity
		}
		if u.Cost != nil {
			r.Cost = *u.Cost
		}
		if u.Returnable != nil && *u.Returnable != r.Returnable {
			if allocated.IsPositive() {
				return &DomainError{Op: "update", ResourceID: id,
					Reason: "cannot change returnable while allocations are active"}
			}
			r.Returnable = *u.Returnable
		}
		if u.HourRate != nil {
			r.HourRate = *u.HourRate
		}
		if u.DayRate != nil {
			r.DayRate = *u.DayRate
		}
		if err := r.Validate(); err != nil {
			return err
		}

		r.Status = ComputeAvailability(r, allocs).Status
		r.UpdatedAt = e.Now()
		if err := s.UpdateResource(ctx, r); err != nil {
			return wrapStore("update resource", err)
		}
		r.Version++
		out = r
		return nil
	})
	return out, err
}

// Refill adds stock. The status is recomputed from the new quantity alone;
// refills restock independently of reservations.
func (e *Engine) Refill(ctx context.Context, id ResourceID, added decimal.Decimal, newCost *decimal.Decimal) (Resource, error) {
	if !added.IsPositive() {
		return Resource{}, &ValidationError{Field: "quantity", Message: "refill quantity must be positive"}
	}
	if newCost != nil && newCost.IsNegative() {
		return Resource{}, &ValidationError{Field: "cost", Message: "cost cannot be negative"}
	}

	var out Resource
	err := e.withResource(ctx, id, func(s Store) error {
		r, err := s.GetResource(ctx, id)
		if err != nil {
			return wrapStore("load resource", err)
		}
		r.Quantity = r.Quantity.Add(added)
		if newCost != nil {
			r.Cost = *newCost
		}
		r.Status = RawStatus(r.Quantity)
		r.UpdatedAt = e.Now()
		if err := s.UpdateResource(ctx, r); err != nil {
			return wrapStore("refill", err)
		}
		r.Version++
		out = r
		return nil
	})
	return out, err
}

// Reset is the manual repair for a consumable whose tracking went wrong:
// every allocation is dropped and the full quantity is available again.
func (e *Engine) Reset(ctx context.Context, id ResourceID) (Resource, int, error) {
	var (
		out     Resource
		removed int
	)
	err := e.withResource(ctx, id, func(s Store) error {
		r, err := s.GetResource(ctx, id)
		if err != nil {
			return wrapStore("load resource", err)
		}
		if r.Returnable {
			return &DomainError{Op: "reset", ResourceID: id, Reason: "only consumable resources can be reset"}
		}
		removed, err = s.DeleteAllocationsByResource(ctx, id)
		if err != nil {
			return wrapStore("delete allocations", err)
		}
		r.Status = RawStatus(r.Quantity)
		r.UpdatedAt = e.Now()
		if err := s.UpdateResource(ctx, r); err != nil {
			return wrapStore("reset status", err)
		}
		r.Version++
		out = r
		return nil
	})
	if err == nil {
		e.log.WithFields(logrus.Fields{"resource": id, "removed": removed}).Info("resource reset")
	}
	return out, removed, err
}

// Delete removes a resource together with its allocations and task assignments.
func (e *Engine) Delete(ctx context.Context, id ResourceID) error {
	return e.withResource(ctx, id, func(s Store) error {
		if _, err := s.GetResource(ctx, id); err != nil {
			return wrapStore("load resource", err)
		}
		if _, err := s.DeleteAssignmentsByResource(ctx, id); err != nil {
			return wrapStore("delete task assignments", err)
		}
		if _, err := s.DeleteAllocationsByResource(ctx, id); err != nil {
			return wrapStore("delete allocations", err)
		}
		return wrapStore("delete resource", s.DeleteResource(ctx, id))
	})
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

type AllocateRequest struct {
	ResourceID ResourceID
	ProjectID  ProjectID
	Quantity   decimal.Decimal
	Duration   Duration
}

// Allocate reserves quantity of a resource for a project. The ledger is not
// touched; the reservation shows up as reduced availability.
func (e *Engine) Allocate(ctx context.Context, req AllocateRequest) (Allocation, error) {
	if req.ProjectID == "" {
		return Allocation{}, &ValidationError{Field: "project_id", Message: "project is required"}
	}
	if !req.Quantity.IsPositive() {
		return Allocation{}, &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	if err := req.Duration.Validate(); err != nil {
		return Allocation{}, err
	}

	var out Allocation
	err := e.withResource(ctx, req.ResourceID, func(s Store) error {
		r, err := s.GetResource(ctx, req.ResourceID)
		if err != nil {
			return wrapStore("load resource", err)
		}
		if !r.Returnable && !req.Duration.IsNone() {
			return &ValidationError{Field: string(req.Duration.Kind),
				Message: "only returnable resources take a duration"}
		}
		allocs, err := s.ListAllocationsByResource(ctx, r.ID)
		if err != nil {
			return wrapStore("load allocations", err)
		}
		avail := ComputeAvailability(r, allocs)
		if req.Quantity.GreaterThan(avail.Available) {
			return &InsufficientQuantityError{ResourceID: r.ID, Available: avail.Available, Requested: req.Quantity}
		}

		a := Allocation{
			ID:         AllocationID(uuid.NewString()),
			ResourceID: r.ID,
			ProjectID:  req.ProjectID,
			Quantity:   req.Quantity,
			Duration:   req.Duration,
			CreatedAt:  e.Now(),
		}
		if err := s.CreateAllocation(ctx, a); err != nil {
			return wrapStore("create allocation", err)
		}
		out = a
		return nil
	})
	return out, err
}

// Consume uses up a consumable allocation: the ledger loses its quantity and
// the allocation is marked consumed. A decrement that would leave the ledger
// negative means the books are already wrong; it is refused and logged.
func (e *Engine) Consume(ctx context.Context, id AllocationID) (Allocation, error) {
	return e.finishAllocation(ctx, id, "consume", func(s Store, r Resource, a Allocation) error {
		if r.Returnable {
			return &DomainError{Op: "consume", ResourceID: r.ID, Reason: "returnable resources are returned, not consumed"}
		}
		if a.Consumed {
			return &DomainError{Op: "consume", ResourceID: r.ID, Reason: "allocation already consumed"}
		}

		remaining := r.Quantity.Sub(a.Quantity)
		if remaining.IsNegative() {
			e.log.WithFields(logrus.Fields{
				"resource":   r.ID,
				"allocation": a.ID,
				"quantity":   r.Quantity.String(),
				"consume":    a.Quantity.String(),
			}).Warn("inventory inconsistency: consume would leave negative stock")
			return &DomainError{Op: "consume", ResourceID: r.ID,
				Reason: "inventory inconsistency: stock " + r.Quantity.String() + " is below allocation " + a.Quantity.String()}
		}

		allocs, err := s.ListAllocationsByResource(ctx, r.ID)
		if err != nil {
			return wrapStore("load allocations", err)
		}
		r.Quantity = remaining
		r.Status = ComputeAvailability(r, lo.Reject(allocs, func(x Allocation, _ int) bool { return x.ID == a.ID })).Status
		r.UpdatedAt = e.Now()
		if err := s.UpdateResource(ctx, r); err != nil {
			return wrapStore("consume decrement", err)
		}
		return e.markConsumed(ctx, s, r, a, "consume")
	})
}

// MarkUsed closes a returnable allocation without returning it. The ledger
// keeps its quantity.
func (e *Engine) MarkUsed(ctx context.Context, id AllocationID) (Allocation, error) {
	return e.finishAllocation(ctx, id, "mark used", func(s Store, r Resource, a Allocation) error {
		if !r.Returnable {
			return &DomainError{Op: "mark used", ResourceID: r.ID, Reason: "consumable resources must be consumed"}
		}
		if a.Consumed {
			return &DomainError{Op: "mark used", ResourceID: r.ID, Reason: "allocation already consumed"}
		}
		return e.markConsumed(ctx, s, r, a, "mark used")
	})
}

// Return releases a returnable allocation by deleting it.
func (e *Engine) Return(ctx context.Context, id AllocationID) (Allocation, error) {
	return e.finishAllocation(ctx, id, "return", func(s Store, r Resource, a Allocation) error {
		if !r.Returnable {
			return &DomainError{Op: "return", ResourceID: r.ID, Reason: "consumable resources cannot be returned"}
		}
		if a.Consumed {
			return &DomainError{Op: "return", ResourceID: r.ID, Reason: "allocation already consumed"}
		}
		return wrapStore("delete allocation", s.DeleteAllocation(ctx, a.ID))
	})
}

// finishAllocation loads the allocation, takes its resource's lock, reloads
// both under the lock and hands them to step.
func (e *Engine) finishAllocation(ctx context.Context, id AllocationID, op string,
	step func(s Store, r Resource, a Allocation) error) (Allocation, error) {

	first, err := e.store.GetAllocation(ctx, id)
	if err != nil {
		return Allocation{}, wrapStore("load allocation", err)
	}

	var out Allocation
	err = e.withResource(ctx, first.ResourceID, func(s Store) error {
		a, err := s.GetAllocation(ctx, id)
		if err != nil {
			return wrapStore("load allocation", err)
		}
		r, err := s.GetResource(ctx, a.ResourceID)
		if err != nil {
			return wrapStore("load resource", err)
		}
		if err := step(s, r, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}
	if op != "return" {
		out.Consumed = true
	}
	return out, nil
}

func (e *Engine) markConsumed(ctx context.Context, s Store, r Resource, a Allocation, op string) error {
	changed, err := s.MarkConsumed(ctx, a.ID)
	if err != nil {
		return wrapStore(op+" flag", err)
	}
	if !changed {
		return &DomainError{Op: op, ResourceID: r.ID, Reason: "allocation already consumed"}
	}
	return nil
}

// =============================================================================
// READ SIDE
// =============================================================================

type ResourceView struct {
	Resource     Resource
	Availability Availability
	Allocations  []Allocation
}

type AllocationView struct {
	Allocation Allocation
	Resource   Resource
	Cost       decimal.Decimal
}

type ProjectView struct {
	ProjectID   ProjectID
	Allocations []AllocationView
	Cost        CostSummary
}

// GetResource returns a resource with freshly computed availability.
func (e *Engine) GetResource(ctx context.Context, id ResourceID) (ResourceView, error) {
	r, err := e.store.GetResource(ctx, id)
	if err != nil {
		return ResourceView{}, wrapStore("load resource", err)
	}
	allocs, err := e.store.ListAllocationsByResource(ctx, id)
	if err != nil {
		return ResourceView{}, wrapStore("load allocations", err)
	}
	return ResourceView{Resource: r, Availability: ComputeAvailability(r, allocs), Allocations: allocs}, nil
}

func (e *Engine) ResourceAvailability(ctx context.Context, id ResourceID) (Availability, error) {
	v, err := e.GetResource(ctx, id)
	if err != nil {
		return Availability{}, err
	}
	return v.Availability, nil
}

// ListResources returns every resource with availability, most urgent first.
func (e *Engine) ListResources(ctx context.Context) ([]ResourceView, error) {
	resources, err := e.store.ListResources(ctx)
	if err != nil {
		return nil, wrapStore("list resources", err)
	}
	allocs, err := e.store.ListAllocations(ctx)
	if err != nil {
		return nil, wrapStore("list allocations", err)
	}
	byResource := lo.GroupBy(allocs, func(a Allocation) ResourceID { return a.ResourceID })

	views := make([]ResourceView, len(resources))
	for i, r := range resources {
		mine := byResource[r.ID]
		views[i] = ResourceView{Resource: r, Availability: ComputeAvailability(r, mine), Allocations: mine}
	}
	sortViewsByUrgency(views)
	return views, nil
}

func sortViewsByUrgency(views []ResourceView) {
	avails := lo.Map(views, func(v ResourceView, _ int) Availability { return v.Availability })
	SortByUrgency(avails)
	index := lo.KeyBy(views, func(v ResourceView) ResourceID { return v.Resource.ID })
	for i, a := range avails {
		views[i] = index[a.ResourceID]
	}
}

// GetAllocation returns an allocation priced against its resource.
func (e *Engine) GetAllocation(ctx context.Context, id AllocationID) (AllocationView, error) {
	a, err := e.store.GetAllocation(ctx, id)
	if err != nil {
		return AllocationView{}, wrapStore("load allocation", err)
	}
	r, err := e.store.GetResource(ctx, a.ResourceID)
	if err != nil {
		return AllocationView{}, wrapStore("load resource", err)
	}
	return AllocationView{Allocation: a, Resource: r, Cost: Cost(a, r)}, nil
}

// Schedule lays active returnable allocations over the working week.
func (e *Engine) Schedule(ctx context.Context) ([]ResourceSchedule, error) {
	resources, err := e.store.ListResources(ctx)
	if err != nil {
		return nil, wrapStore("list resources", err)
	}
	allocs, err := e.store.ListAllocations(ctx)
	if err != nil {
		return nil, wrapStore("list allocations", err)
	}
	return WeeklySchedule(resources, allocs), nil
}

// ProjectAllocations returns a project's allocations with their cost summary.
func (e *Engine) ProjectAllocations(ctx context.Context, id ProjectID) (ProjectView, error) {
	allocs, err := e.store.ListAllocationsByProject(ctx, id)
	if err != nil {
		return ProjectView{}, wrapStore("list project allocations", err)
	}
	resources := make(map[ResourceID]Resource)
	for _, rid := range lo.Uniq(lo.Map(allocs, func(a Allocation, _ int) ResourceID { return a.ResourceID })) {
		r, err := e.store.GetResource(ctx, rid)
		if err != nil {
			return ProjectView{}, wrapStore("load resource", err)
		}
		resources[rid] = r
	}

	view := ProjectView{ProjectID: id, Cost: ProjectCost(allocs, resources)}
	for _, a := range allocs {
		r := resources[a.ResourceID]
		view.Allocations = append(view.Allocations, AllocationView{Allocation: a, Resource: r, Cost: Cost(a, r)})
	}
	return view, nil
}
