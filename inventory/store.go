/*
store.go - Persistence interfaces for resources and allocations

PURPOSE:
  Defines the boundary between the engine and the relational store holding
  the resources, resource_allocations and task_resources tables.

KEY INTERFACES:
  ResourceStore:   Ledger entries (with compare-and-set updates)
  AllocationStore: Allocation records
  AssignmentStore: Task resource assignments
  Store:           All three
  TxStore:         Store + atomic multi-step execution
  SweepLog:        Audit trail of expiry sweep runs

COMPARE-AND-SET:
  UpdateResource writes only if the stored version equals r.Version and bumps
  it on success. A stale writer gets ErrConcurrentModification.

CONDITIONAL CONSUME:
  MarkConsumed only flips allocations that are still active and reports
  whether it did. The expiry sweep relies on this to be idempotent.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - inventory/store/memory.go: In-memory for testing
*/
package inventory

import (
	"context"
	"time"
)

type ResourceStore interface {
	CreateResource(ctx context.Context, r Resource) error
	GetResource(ctx context.Context, id ResourceID) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)

	// UpdateResource replaces the row if its version still equals r.Version.
	UpdateResource(ctx context.Context, r Resource) error

	// DeleteResource removes the row. Dependent rows must be gone already or
	// cascade in the store.
	DeleteResource(ctx context.Context, id ResourceID) error
}

type AllocationStore interface {
	CreateAllocation(ctx context.Context, a Allocation) error
	GetAllocation(ctx context.Context, id AllocationID) (Allocation, error)
	ListAllocationsByResource(ctx context.Context, id ResourceID) ([]Allocation, error)
	ListAllocationsByProject(ctx context.Context, id ProjectID) ([]Allocation, error)
	ListAllocations(ctx context.Context) ([]Allocation, error)

	// MarkConsumed sets consumed=true on an active allocation. Returns false
	// if the allocation was already consumed.
	MarkConsumed(ctx context.Context, id AllocationID) (bool, error)

	DeleteAllocation(ctx context.Context, id AllocationID) error
	DeleteAllocationsByResource(ctx context.Context, id ResourceID) (int, error)

	// ListExpirable returns active allocations of returnable resources created
	// strictly before the cutoff.
	ListExpirable(ctx context.Context, before time.Time) ([]Allocation, error)
}

type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a TaskAssignment) error
	ListAssignmentsByTask(ctx context.Context, id TaskID) ([]TaskAssignment, error)
	DeleteAssignment(ctx context.Context, id AssignmentID) error
	DeleteAssignmentsByResource(ctx context.Context, id ResourceID) (int, error)
}

type Store interface {
	ResourceStore
	AllocationStore
	AssignmentStore
}

// TxStore runs fn atomically: if fn returns an error, every write it made
// through the supplied Store is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// SWEEP LOG - Audit of automatic expiry runs
// =============================================================================

type SweepRunStatus string

const (
	SweepRunning   SweepRunStatus = "running"
	SweepCompleted SweepRunStatus = "completed"
	SweepFailed    SweepRunStatus = "failed"
)

type SweepRun struct {
	ID          string
	Status      SweepRunStatus
	Cutoff      time.Time
	Scanned     int
	Expired     int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

type SweepLog interface {
	SaveSweepRun(ctx context.Context, run SweepRun) error
	ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error)
}
