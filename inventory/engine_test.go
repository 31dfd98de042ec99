package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edifice/resource-engine/inventory"
	"github.com/edifice/resource-engine/inventory/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEngine(t *testing.T) (*inventory.Engine, *store.TxMemory) {
	t.Helper()
	st := store.NewTxMemory()
	e := inventory.NewEngine(st, nil)
	e.Now = func() time.Time { return testNow }
	return e, st
}

func consumable(id string, qty string) inventory.Resource {
	return inventory.Resource{
		ID:       inventory.ResourceID(id),
		Name:     "Material " + id,
		Category: inventory.CategoryMaterial,
		Quantity: dec(qty),
		Unit:     "tons",
		Cost:     dec("2"),
	}
}

func returnable(id string, qty string) inventory.Resource {
	return inventory.Resource{
		ID:         inventory.ResourceID(id),
		Name:       "Equipment " + id,
		Category:   inventory.CategoryEquipment,
		Quantity:   dec(qty),
		Unit:       "units",
		Cost:       dec("10"),
		Returnable: true,
		DayRate:    decimal.NewNullDecimal(dec("100")),
	}
}

func mustCreate(t *testing.T, e *inventory.Engine, r inventory.Resource) inventory.Resource {
	t.Helper()
	out, err := e.CreateResource(context.Background(), r)
	require.NoError(t, err)
	return out
}

func mustAllocate(t *testing.T, e *inventory.Engine, id, project, qty string, d inventory.Duration) inventory.Allocation {
	t.Helper()
	a, err := e.Allocate(context.Background(), inventory.AllocateRequest{
		ResourceID: inventory.ResourceID(id),
		ProjectID:  inventory.ProjectID(project),
		Quantity:   dec(qty),
		Duration:   d,
	})
	require.NoError(t, err)
	return a
}

// =============================================================================
// CREATE / UPDATE
// =============================================================================

func TestCreateResource_AssignsIDAndStatus(t *testing.T) {
	e, _ := newTestEngine(t)

	r := consumable("", "0")
	got, err := e.CreateResource(context.Background(), r)

	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, inventory.StatusOutOfStock, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, testNow, got.CreatedAt)
}

func TestCreateResource_RejectsBothRates(t *testing.T) {
	e, _ := newTestEngine(t)

	r := returnable("crane", "1")
	r.HourRate = decimal.NewNullDecimal(dec("50"))
	_, err := e.CreateResource(context.Background(), r)

	var vErr *inventory.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "hour_rate", vErr.Field)
}

func TestCreateResource_RejectsRateOnConsumable(t *testing.T) {
	e, _ := newTestEngine(t)

	r := consumable("sand", "5")
	r.DayRate = decimal.NewNullDecimal(dec("5"))
	_, err := e.CreateResource(context.Background(), r)

	assert.True(t, inventory.IsValidation(err))
}

func TestUpdateResource_QuantityBelowAllocated(t *testing.T) {
	// GIVEN: 100 tons with 60 allocated
	// WHEN: Lowering the quantity to 50
	// THEN: ValidationError, nothing written
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("rebar", "100"))
	mustAllocate(t, e, "rebar", "p1", "60", inventory.NoDuration())

	_, err := e.UpdateResource(ctx, "rebar", inventory.ResourceUpdate{Quantity: decPtr("50")})
	require.True(t, inventory.IsValidation(err))

	v, err := e.GetResource(ctx, "rebar")
	require.NoError(t, err)
	assert.True(t, v.Resource.Quantity.Equal(dec("100")))
}

func TestUpdateResource_EditsAndBumpsVersion(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("rebar", "100"))

	name := "Rebar #4"
	got, err := e.UpdateResource(ctx, "rebar", inventory.ResourceUpdate{
		Name: &name,
		Cost: decPtr("3.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rebar #4", got.Name)
	assert.True(t, got.Cost.Equal(dec("3.25")))
	assert.Equal(t, int64(2), got.Version)

	stored, err := e.Store().GetResource(ctx, "rebar")
	require.NoError(t, err)
	assert.Equal(t, got.Version, stored.Version)
}

func TestUpdateResource_ReturnableFlipWithActiveAllocations(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("rebar", "100"))
	mustAllocate(t, e, "rebar", "p1", "1", inventory.NoDuration())

	yes := true
	_, err := e.UpdateResource(context.Background(), "rebar", inventory.ResourceUpdate{Returnable: &yes})

	assert.True(t, inventory.IsDomain(err))
}

func TestUpdateResource_StaleVersionIsRejectedByStore(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	r := mustCreate(t, e, consumable("rebar", "100"))

	_, err := e.Refill(ctx, "rebar", dec("1"), nil)
	require.NoError(t, err)

	// r still carries version 1
	err = st.UpdateResource(ctx, r)
	assert.ErrorIs(t, err, inventory.ErrConcurrentModification)
	assert.True(t, inventory.IsRetryable(err))
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// =============================================================================
// ALLOCATE
// =============================================================================

func TestAllocate_ExceedsAvailable(t *testing.T) {
	// GIVEN: 10 units, 7 allocated
	// WHEN: Allocating 4
	// THEN: InsufficientQuantityError carrying available=3
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("cement", "10"))
	mustAllocate(t, e, "cement", "p1", "7", inventory.NoDuration())

	_, err := e.Allocate(context.Background(), inventory.AllocateRequest{
		ResourceID: "cement", ProjectID: "p2", Quantity: dec("4"),
	})

	var qErr *inventory.InsufficientQuantityError
	require.ErrorAs(t, err, &qErr)
	assert.True(t, qErr.Available.Equal(dec("3")))
	assert.ErrorIs(t, err, inventory.ErrInsufficientQuantity)
	assert.True(t, inventory.IsValidation(err))
}

func TestAllocate_ExactlyAvailableSucceeds(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("cement", "10"))
	mustAllocate(t, e, "cement", "p1", "7", inventory.NoDuration())
	mustAllocate(t, e, "cement", "p2", "3", inventory.NoDuration())

	v, err := e.GetResource(context.Background(), "cement")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusOutOfStock, v.Availability.Status)
	assert.True(t, v.Resource.Quantity.Equal(dec("10")), "allocate does not touch the ledger")
}

func TestAllocate_InvalidInput(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("cement", "10"))
	mustCreate(t, e, returnable("lift", "2"))

	tests := []struct {
		name string
		req  inventory.AllocateRequest
	}{
		{"zero quantity", inventory.AllocateRequest{ResourceID: "cement", ProjectID: "p", Quantity: dec("0")}},
		{"negative quantity", inventory.AllocateRequest{ResourceID: "cement", ProjectID: "p", Quantity: dec("-1")}},
		{"missing project", inventory.AllocateRequest{ResourceID: "cement", Quantity: dec("1")}},
		{"duration on consumable", inventory.AllocateRequest{ResourceID: "cement", ProjectID: "p", Quantity: dec("1"),
			Duration: inventory.Days(dec("2"))}},
		{"zero days", inventory.AllocateRequest{ResourceID: "lift", ProjectID: "p", Quantity: dec("1"),
			Duration: inventory.Days(dec("0"))}},
		{"negative hours", inventory.AllocateRequest{ResourceID: "lift", ProjectID: "p", Quantity: dec("1"),
			Duration: inventory.Hours(dec("-4"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Allocate(context.Background(), tt.req)
			assert.True(t, inventory.IsValidation(err), "got %v", err)
		})
	}
}

func TestAllocate_UnknownResource(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Allocate(context.Background(), inventory.AllocateRequest{
		ResourceID: "ghost", ProjectID: "p", Quantity: dec("1"),
	})

	assert.ErrorIs(t, err, inventory.ErrResourceNotFound)
}

func TestAllocate_ConcurrentRequestsNeverOvercommit(t *testing.T) {
	// GIVEN: 10 units
	// WHEN: 25 goroutines each allocate 1
	// THEN: exactly 10 succeed
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("bricks", "10"))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Allocate(context.Background(), inventory.AllocateRequest{
				ResourceID: "bricks", ProjectID: "p", Quantity: dec("1"),
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, inventory.ErrInsufficientQuantity)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	avail, err := e.ResourceAvailability(context.Background(), "bricks")
	require.NoError(t, err)
	assert.True(t, avail.Available.IsZero())
}

// =============================================================================
// CONSUME / MARK USED / RETURN
// =============================================================================

func TestConsume_DecrementsLedgerAndFlags(t *testing.T) {
	// GIVEN: 100 tons, allocations of 30 and 65
	// WHEN: Consuming the 30
	// THEN: ledger 70, allocation consumed, remaining 65 leaves 5 available (Low Stock)
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("gravel", "100"))
	a := mustAllocate(t, e, "gravel", "p1", "30", inventory.NoDuration())
	mustAllocate(t, e, "gravel", "p2", "65", inventory.NoDuration())

	got, err := e.Consume(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Consumed)

	v, err := e.GetResource(ctx, "gravel")
	require.NoError(t, err)
	assert.True(t, v.Resource.Quantity.Equal(dec("70")))
	assert.True(t, v.Availability.Available.Equal(dec("5")))
	assert.Equal(t, inventory.StatusLowStock, v.Availability.Status)
	assert.Equal(t, inventory.StatusLowStock, v.Resource.Status)

	stored, err := e.Store().GetAllocation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StateConsumed, stored.State())
}

func TestConsume_Twice(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("gravel", "100"))
	a := mustAllocate(t, e, "gravel", "p1", "30", inventory.NoDuration())

	_, err := e.Consume(ctx, a.ID)
	require.NoError(t, err)
	_, err = e.Consume(ctx, a.ID)
	assert.True(t, inventory.IsDomain(err))

	r, err := e.Store().GetResource(ctx, "gravel")
	require.NoError(t, err)
	assert.True(t, r.Quantity.Equal(dec("70")), "second consume must not decrement again")
}

func TestConsume_ReturnableIsRefused(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, returnable("lift", "2"))
	a := mustAllocate(t, e, "lift", "p1", "1", inventory.Days(dec("2")))

	_, err := e.Consume(ctx, a.ID)

	var dErr *inventory.DomainError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "consume", dErr.Op)

	// Nothing was written.
	got, err := st.GetAllocation(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive())
	r, err := st.GetResource(ctx, "lift")
	require.NoError(t, err)
	assert.True(t, r.Quantity.Equal(dec("2")))
	assert.Equal(t, int64(1), r.Version)
}

func TestConsume_NegativeStockIsInconsistency(t *testing.T) {
	// GIVEN: ledger 10 but an allocation of 15 (books already wrong)
	// WHEN: Consuming it
	// THEN: DomainError, ledger and allocation untouched
	e, st := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("pipe", "10"))
	st.Seed(inventory.Allocation{ID: "bad", ResourceID: "pipe", ProjectID: "p", Quantity: dec("15"), CreatedAt: testNow})

	_, err := e.Consume(ctx, "bad")
	require.True(t, inventory.IsDomain(err))
	assert.Contains(t, err.Error(), "inconsistency")

	r, err := st.GetResource(ctx, "pipe")
	require.NoError(t, err)
	assert.True(t, r.Quantity.Equal(dec("10")))
	a, err := st.GetAllocation(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, a.Consumed)
}

func TestConsume_UnknownAllocation(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Consume(context.Background(), "nope")
	assert.ErrorIs(t, err, inventory.ErrAllocationNotFound)
	assert.True(t, inventory.IsNotFound(err))
}

func TestMarkUsed_ReturnableOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, returnable("lift", "2"))
	mustCreate(t, e, consumable("sand", "5"))
	lift := mustAllocate(t, e, "lift", "p1", "1", inventory.NoDuration())
	sand := mustAllocate(t, e, "sand", "p1", "1", inventory.NoDuration())

	got, err := e.MarkUsed(ctx, lift.ID)
	require.NoError(t, err)
	assert.True(t, got.Consumed)

	_, err = e.MarkUsed(ctx, sand.ID)
	assert.True(t, inventory.IsDomain(err))

	r, err := e.Store().GetResource(ctx, "lift")
	require.NoError(t, err)
	assert.True(t, r.Quantity.Equal(dec("2")), "mark used keeps the ledger")
}

func TestReturn_DeletesAllocation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, returnable("lift", "2"))
	a := mustAllocate(t, e, "lift", "p1", "2", inventory.Days(dec("1")))

	_, err := e.Return(ctx, a.ID)
	require.NoError(t, err)

	_, err = e.Store().GetAllocation(ctx, a.ID)
	assert.ErrorIs(t, err, inventory.ErrAllocationNotFound)

	avail, err := e.ResourceAvailability(ctx, "lift")
	require.NoError(t, err)
	assert.True(t, avail.Available.Equal(dec("2")))
	assert.Equal(t, inventory.StatusAvailable, avail.Status)
}

func TestReturn_ConsumableAndConsumedAreRefused(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, returnable("lift", "2"))
	mustCreate(t, e, consumable("sand", "5"))
	sand := mustAllocate(t, e, "sand", "p1", "1", inventory.NoDuration())
	lift := mustAllocate(t, e, "lift", "p1", "1", inventory.NoDuration())

	_, err := e.Return(ctx, sand.ID)
	assert.True(t, inventory.IsDomain(err))

	got, err := st.GetAllocation(ctx, sand.ID)
	require.NoError(t, err, "refused return keeps the allocation")
	assert.True(t, got.IsActive())
	r, err := st.GetResource(ctx, "sand")
	require.NoError(t, err)
	assert.True(t, r.Quantity.Equal(dec("5")))
	assert.Equal(t, int64(1), r.Version)

	_, err = e.MarkUsed(ctx, lift.ID)
	require.NoError(t, err)
	_, err = e.Return(ctx, lift.ID)
	assert.True(t, inventory.IsDomain(err), "consumed is terminal")

	got, err = st.GetAllocation(ctx, lift.ID)
	require.NoError(t, err)
	assert.True(t, got.Consumed)
}

// =============================================================================
// REFILL / RESET / DELETE
// =============================================================================

func TestRefill(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("sand", "0"))

	got, err := e.Refill(ctx, "sand", dec("12.5"), decPtr("3"))
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(dec("12.5")))
	assert.True(t, got.Cost.Equal(dec("3")))
	assert.Equal(t, inventory.StatusAvailable, got.Status)

	got, err = e.Refill(ctx, "sand", dec("1"), nil)
	require.NoError(t, err)
	assert.True(t, got.Cost.Equal(dec("3")), "nil cost keeps the old cost")
}

func TestRefill_StatusIgnoresAllocations(t *testing.T) {
	// GIVEN: 10 units, all allocated
	// WHEN: Refilling 1
	// THEN: stored status is Available (raw quantity), computed status is Low Stock
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("sand", "10"))
	mustAllocate(t, e, "sand", "p", "10", inventory.NoDuration())

	got, err := e.Refill(ctx, "sand", dec("1"), nil)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusAvailable, got.Status)

	avail, err := e.ResourceAvailability(ctx, "sand")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusLowStock, avail.Status)
}

func TestRefill_Invalid(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("sand", "1"))

	_, err := e.Refill(context.Background(), "sand", dec("0"), nil)
	assert.True(t, inventory.IsValidation(err))
	_, err = e.Refill(context.Background(), "sand", dec("1"), decPtr("-1"))
	assert.True(t, inventory.IsValidation(err))
}

func TestReset_DropsAllAllocations(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, consumable("sand", "10"))
	a := mustAllocate(t, e, "sand", "p1", "4", inventory.NoDuration())
	mustAllocate(t, e, "sand", "p2", "6", inventory.NoDuration())
	_, err := e.Consume(ctx, a.ID)
	require.NoError(t, err)

	got, removed, err := e.Reset(ctx, "sand")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, inventory.StatusAvailable, got.Status)

	v, err := e.GetResource(ctx, "sand")
	require.NoError(t, err)
	assert.Empty(t, v.Allocations)
	assert.True(t, v.Availability.Available.Equal(dec("6")))
}

func TestReset_ReturnableIsRefused(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, returnable("lift", "1"))

	_, _, err := e.Reset(context.Background(), "lift")
	assert.True(t, inventory.IsDomain(err))
}

func TestDelete_Cascades(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, e, returnable("lift", "3"))
	a := mustAllocate(t, e, "lift", "p1", "2", inventory.Days(dec("3")))
	_, err := e.AssignToTask(ctx, inventory.AssignTaskRequest{
		TaskID: "t1", ProjectID: "p1", ResourceID: "lift", Quantity: dec("1"),
	})
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, "lift"))

	_, err = e.GetResource(ctx, "lift")
	assert.ErrorIs(t, err, inventory.ErrResourceNotFound)
	_, err = e.Store().GetAllocation(ctx, a.ID)
	assert.ErrorIs(t, err, inventory.ErrAllocationNotFound)
	tasks, err := e.TaskAssignments(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	assert.ErrorIs(t, e.Delete(ctx, "lift"), inventory.ErrResourceNotFound)
}

// =============================================================================
// ATOMICITY
// =============================================================================

// failingMarkStore fails MarkConsumed inside transactions.
type failingMarkStore struct {
	*store.TxMemory
}

func (f failingMarkStore) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	return f.TxMemory.WithTx(ctx, func(s inventory.Store) error {
		return fn(failMark{Store: s})
	})
}

type failMark struct {
	inventory.Store
}

func (failMark) MarkConsumed(context.Context, inventory.AllocationID) (bool, error) {
	return false, errors.New("disk full")
}

func TestConsume_RollsBackDecrementWhenFlagFails(t *testing.T) {
	// GIVEN: A store whose consumed-flag write fails
	// WHEN: Consuming
	// THEN: StoreError, and the ledger decrement is rolled back
	st := failingMarkStore{TxMemory: store.NewTxMemory()}
	e := inventory.NewEngine(st, nil)
	ctx := context.Background()
	mustCreate(t, e, consumable("sand", "10"))
	a := mustAllocate(t, e, "sand", "p", "4", inventory.NoDuration())

	_, err := e.Consume(ctx, a.ID)
	require.Error(t, err)
	assert.True(t, inventory.IsStore(err))
	var sErr *inventory.StoreError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "consume flag", sErr.Op)

	r, err := st.GetResource(ctx, "sand")
	require.NoError(t, err)
	assert.True(t, r.Quantity.Equal(dec("10")))
	assert.Equal(t, int64(1), r.Version)
}

// =============================================================================
// READ SIDE
// =============================================================================

func TestListResources_UrgentFirst(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("a-fine", "100"))
	mustCreate(t, e, consumable("b-out", "0"))
	mustCreate(t, e, consumable("c-low", "10"))
	mustAllocate(t, e, "c-low", "p", "9", inventory.NoDuration())

	views, err := e.ListResources(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, inventory.ResourceID("b-out"), views[0].Resource.ID)
	assert.Equal(t, inventory.ResourceID("c-low"), views[1].Resource.ID)
	assert.Equal(t, inventory.ResourceID("a-fine"), views[2].Resource.ID)
	assert.Len(t, views[1].Allocations, 1)
}

func TestProjectAllocations_Cost(t *testing.T) {
	// GIVEN: project holds 5 tons at 2/ton and a lift for 3 days at 100/day
	// THEN: total 10 + 300
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("sand", "10"))
	mustCreate(t, e, returnable("lift", "2"))
	mustAllocate(t, e, "sand", "tower", "5", inventory.NoDuration())
	mustAllocate(t, e, "lift", "tower", "2", inventory.Days(dec("3")))
	mustAllocate(t, e, "sand", "other", "1", inventory.NoDuration())

	v, err := e.ProjectAllocations(context.Background(), "tower")
	require.NoError(t, err)

	assert.Len(t, v.Allocations, 2)
	assert.Len(t, v.Cost.Lines, 2)
	assert.True(t, v.Cost.Total.Equal(dec("310")), "got %s", v.Cost.Total)
}

func TestGetAllocation_Cost(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, consumable("sand", "10"))
	a := mustAllocate(t, e, "sand", "tower", "2.5", inventory.NoDuration())

	v, err := e.GetAllocation(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, v.Cost.Equal(dec("5")))
	assert.Equal(t, "Material sand", v.Resource.Name)
}
