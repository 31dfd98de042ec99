// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/edifice/resource-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	d  *tables
}

func NewMemory() *Memory {
	return &Memory{d: newTables()}
}

func (m *Memory) read(fn func(*tables) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.d)
}

func (m *Memory) write(fn func(*tables) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.d)
}

func (m *Memory) CreateResource(_ context.Context, r inventory.Resource) error {
	return m.write(func(t *tables) error { return t.createResource(r) })
}

func (m *Memory) GetResource(_ context.Context, id inventory.ResourceID) (r inventory.Resource, err error) {
	err = m.read(func(t *tables) error { r, err = t.getResource(id); return err })
	return r, err
}

func (m *Memory) ListResources(_ context.Context) (out []inventory.Resource, err error) {
	err = m.read(func(t *tables) error { out = t.listResources(); return nil })
	return out, err
}

func (m *Memory) UpdateResource(_ context.Context, r inventory.Resource) error {
	return m.write(func(t *tables) error { return t.updateResource(r) })
}

func (m *Memory) DeleteResource(_ context.Context, id inventory.ResourceID) error {
	return m.write(func(t *tables) error { return t.deleteResource(id) })
}

func (m *Memory) CreateAllocation(_ context.Context, a inventory.Allocation) error {
	return m.write(func(t *tables) error { return t.createAllocation(a) })
}

func (m *Memory) GetAllocation(_ context.Context, id inventory.AllocationID) (a inventory.Allocation, err error) {
	err = m.read(func(t *tables) error { a, err = t.getAllocation(id); return err })
	return a, err
}

func (m *Memory) ListAllocationsByResource(_ context.Context, id inventory.ResourceID) (out []inventory.Allocation, err error) {
	err = m.read(func(t *tables) error {
		out = t.allocationsWhere(func(a inventory.Allocation) bool { return a.ResourceID == id })
		return nil
	})
	return out, err
}

func (m *Memory) ListAllocationsByProject(_ context.Context, id inventory.ProjectID) (out []inventory.Allocation, err error) {
	err = m.read(func(t *tables) error {
		out = t.allocationsWhere(func(a inventory.Allocation) bool { return a.ProjectID == id })
		return nil
	})
	return out, err
}

func (m *Memory) ListAllocations(_ context.Context) (out []inventory.Allocation, err error) {
	err = m.read(func(t *tables) error {
		out = t.allocationsWhere(func(inventory.Allocation) bool { return true })
		return nil
	})
	return out, err
}

func (m *Memory) MarkConsumed(_ context.Context, id inventory.AllocationID) (changed bool, err error) {
	err = m.write(func(t *tables) error { changed, err = t.markConsumed(id); return err })
	return changed, err
}

func (m *Memory) DeleteAllocation(_ context.Context, id inventory.AllocationID) error {
	return m.write(func(t *tables) error { return t.deleteAllocation(id) })
}

func (m *Memory) DeleteAllocationsByResource(_ context.Context, id inventory.ResourceID) (n int, err error) {
	err = m.write(func(t *tables) error { n = t.deleteAllocationsByResource(id); return nil })
	return n, err
}

func (m *Memory) ListExpirable(_ context.Context, before time.Time) (out []inventory.Allocation, err error) {
	err = m.read(func(t *tables) error { out = t.listExpirable(before); return nil })
	return out, err
}

func (m *Memory) CreateAssignment(_ context.Context, a inventory.TaskAssignment) error {
	return m.write(func(t *tables) error { return t.createAssignment(a) })
}

func (m *Memory) ListAssignmentsByTask(_ context.Context, id inventory.TaskID) (out []inventory.TaskAssignment, err error) {
	err = m.read(func(t *tables) error { out = t.assignmentsByTask(id); return nil })
	return out, err
}

func (m *Memory) DeleteAssignment(_ context.Context, id inventory.AssignmentID) error {
	return m.write(func(t *tables) error { return t.deleteAssignment(id) })
}

func (m *Memory) DeleteAssignmentsByResource(_ context.Context, id inventory.ResourceID) (n int, err error) {
	err = m.write(func(t *tables) error { n = t.deleteAssignmentsByResource(id); return nil })
	return n, err
}

func (m *Memory) SaveSweepRun(_ context.Context, run inventory.SweepRun) error {
	return m.write(func(t *tables) error { t.saveRun(run); return nil })
}

func (m *Memory) ListSweepRuns(_ context.Context, limit int) (out []inventory.SweepRun, err error) {
	err = m.read(func(t *tables) error { out = t.listRuns(limit); return nil })
	return out, err
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(inventory.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.d.clone()
	if err := fn(&txView{t: tm.d}); err != nil {
		tm.d = snapshot
		return err
	}
	return nil
}

// txView is the Store handed to WithTx callbacks. The parent lock is already
// held, so it goes straight to the tables.
type txView struct {
	t *tables
}

func (v *txView) CreateResource(_ context.Context, r inventory.Resource) error {
	return v.t.createResource(r)
}

func (v *txView) GetResource(_ context.Context, id inventory.ResourceID) (inventory.Resource, error) {
	return v.t.getResource(id)
}

func (v *txView) ListResources(_ context.Context) ([]inventory.Resource, error) {
	return v.t.listResources(), nil
}

func (v *txView) UpdateResource(_ context.Context, r inventory.Resource) error {
	return v.t.updateResource(r)
}

func (v *txView) DeleteResource(_ context.Context, id inventory.ResourceID) error {
	return v.t.deleteResource(id)
}

func (v *txView) CreateAllocation(_ context.Context, a inventory.Allocation) error {
	return v.t.createAllocation(a)
}

func (v *txView) GetAllocation(_ context.Context, id inventory.AllocationID) (inventory.Allocation, error) {
	return v.t.getAllocation(id)
}

func (v *txView) ListAllocationsByResource(_ context.Context, id inventory.ResourceID) ([]inventory.Allocation, error) {
	return v.t.allocationsWhere(func(a inventory.Allocation) bool { return a.ResourceID == id }), nil
}

func (v *txView) ListAllocationsByProject(_ context.Context, id inventory.ProjectID) ([]inventory.Allocation, error) {
	return v.t.allocationsWhere(func(a inventory.Allocation) bool { return a.ProjectID == id }), nil
}

func (v *txView) ListAllocations(_ context.Context) ([]inventory.Allocation, error) {
	return v.t.allocationsWhere(func(inventory.Allocation) bool { return true }), nil
}

func (v *txView) MarkConsumed(_ context.Context, id inventory.AllocationID) (bool, error) {
	return v.t.markConsumed(id)
}

func (v *txView) DeleteAllocation(_ context.Context, id inventory.AllocationID) error {
	return v.t.deleteAllocation(id)
}

func (v *txView) DeleteAllocationsByResource(_ context.Context, id inventory.ResourceID) (int, error) {
	return v.t.deleteAllocationsByResource(id), nil
}

func (v *txView) ListExpirable(_ context.Context, before time.Time) ([]inventory.Allocation, error) {
	return v.t.listExpirable(before), nil
}

func (v *txView) CreateAssignment(_ context.Context, a inventory.TaskAssignment) error {
	return v.t.createAssignment(a)
}

func (v *txView) ListAssignmentsByTask(_ context.Context, id inventory.TaskID) ([]inventory.TaskAssignment, error) {
	return v.t.assignmentsByTask(id), nil
}

func (v *txView) DeleteAssignment(_ context.Context, id inventory.AssignmentID) error {
	return v.t.deleteAssignment(id)
}

func (v *txView) DeleteAssignmentsByResource(_ context.Context, id inventory.ResourceID) (int, error) {
	return v.t.deleteAssignmentsByResource(id), nil
}

// =============================================================================
// TABLES - Unlocked state shared by Memory and txView
// =============================================================================

type tables struct {
	resources   map[inventory.ResourceID]inventory.Resource
	allocations map[inventory.AllocationID]inventory.Allocation
	assignments map[inventory.AssignmentID]inventory.TaskAssignment
	runs        []inventory.SweepRun
}

func newTables() *tables {
	return &tables{
		resources:   make(map[inventory.ResourceID]inventory.Resource),
		allocations: make(map[inventory.AllocationID]inventory.Allocation),
		assignments: make(map[inventory.AssignmentID]inventory.TaskAssignment),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.resources {
		c.resources[k] = v
	}
	for k, v := range t.allocations {
		c.allocations[k] = v
	}
	for k, v := range t.assignments {
		c.assignments[k] = v
	}
	c.runs = append(c.runs, t.runs...)
	return c
}

func (t *tables) createResource(r inventory.Resource) error {
	if _, ok := t.resources[r.ID]; ok {
		return fmt.Errorf("resource %s already exists", r.ID)
	}
	if r.Version == 0 {
		r.Version = 1
	}
	t.resources[r.ID] = r
	return nil
}

func (t *tables) getResource(id inventory.ResourceID) (inventory.Resource, error) {
	r, ok := t.resources[id]
	if !ok {
		return inventory.Resource{}, fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, id)
	}
	return r, nil
}

func (t *tables) listResources() []inventory.Resource {
	out := lo.Values(t.resources)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tables) updateResource(r inventory.Resource) error {
	cur, ok := t.resources[r.ID]
	if !ok {
		return fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, r.ID)
	}
	if cur.Version != r.Version {
		return fmt.Errorf("%w: resource %s at version %d, write based on %d",
			inventory.ErrConcurrentModification, r.ID, cur.Version, r.Version)
	}
	r.Version++
	r.CreatedAt = cur.CreatedAt
	t.resources[r.ID] = r
	return nil
}

func (t *tables) deleteResource(id inventory.ResourceID) error {
	if _, ok := t.resources[id]; !ok {
		return fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, id)
	}
	delete(t.resources, id)
	t.deleteAllocationsByResource(id)
	t.deleteAssignmentsByResource(id)
	return nil
}

func (t *tables) createAllocation(a inventory.Allocation) error {
	if _, ok := t.resources[a.ResourceID]; !ok {
		return fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, a.ResourceID)
	}
	if _, ok := t.allocations[a.ID]; ok {
		return fmt.Errorf("allocation %s already exists", a.ID)
	}
	t.allocations[a.ID] = a
	return nil
}

func (t *tables) getAllocation(id inventory.AllocationID) (inventory.Allocation, error) {
	a, ok := t.allocations[id]
	if !ok {
		return inventory.Allocation{}, fmt.Errorf("%w: %s", inventory.ErrAllocationNotFound, id)
	}
	return a, nil
}

// allocationsWhere returns matches in creation order.
func (t *tables) allocationsWhere(pred func(inventory.Allocation) bool) []inventory.Allocation {
	out := lo.Filter(lo.Values(t.allocations), func(a inventory.Allocation, _ int) bool { return pred(a) })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tables) markConsumed(id inventory.AllocationID) (bool, error) {
	a, ok := t.allocations[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", inventory.ErrAllocationNotFound, id)
	}
	if a.Consumed {
		return false, nil
	}
	a.Consumed = true
	t.allocations[id] = a
	return true, nil
}

func (t *tables) deleteAllocation(id inventory.AllocationID) error {
	if _, ok := t.allocations[id]; !ok {
		return fmt.Errorf("%w: %s", inventory.ErrAllocationNotFound, id)
	}
	delete(t.allocations, id)
	return nil
}

func (t *tables) deleteAllocationsByResource(id inventory.ResourceID) int {
	n := 0
	for k, a := range t.allocations {
		if a.ResourceID == id {
			delete(t.allocations, k)
			n++
		}
	}
	return n
}

func (t *tables) listExpirable(before time.Time) []inventory.Allocation {
	return t.allocationsWhere(func(a inventory.Allocation) bool {
		r, ok := t.resources[a.ResourceID]
		return ok && r.Returnable && a.IsActive() && a.CreatedAt.Before(before)
	})
}

func (t *tables) createAssignment(a inventory.TaskAssignment) error {
	if _, ok := t.resources[a.ResourceID]; !ok {
		return fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, a.ResourceID)
	}
	t.assignments[a.ID] = a
	return nil
}

func (t *tables) assignmentsByTask(id inventory.TaskID) []inventory.TaskAssignment {
	out := lo.Filter(lo.Values(t.assignments), func(a inventory.TaskAssignment, _ int) bool { return a.TaskID == id })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (t *tables) deleteAssignment(id inventory.AssignmentID) error {
	if _, ok := t.assignments[id]; !ok {
		return fmt.Errorf("%w: %s", inventory.ErrAssignmentNotFound, id)
	}
	delete(t.assignments, id)
	return nil
}

func (t *tables) deleteAssignmentsByResource(id inventory.ResourceID) int {
	n := 0
	for k, a := range t.assignments {
		if a.ResourceID == id {
			delete(t.assignments, k)
			n++
		}
	}
	return n
}

func (t *tables) saveRun(run inventory.SweepRun) {
	for i := range t.runs {
		if t.runs[i].ID == run.ID {
			t.runs[i] = run
			return
		}
	}
	t.runs = append(t.runs, run)
}

// listRuns returns the newest runs first.
func (t *tables) listRuns(limit int) []inventory.SweepRun {
	out := lo.Reverse(append([]inventory.SweepRun{}, t.runs...))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Seed is a test helper that inserts allocations with arbitrary timestamps
// and quantities, bypassing engine checks.
func (m *Memory) Seed(allocs ...inventory.Allocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range allocs {
		if a.Quantity.IsZero() {
			a.Quantity = decimal.NewFromInt(1)
		}
		m.d.allocations[a.ID] = a
	}
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d = newTables()
	return nil
}
