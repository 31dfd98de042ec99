/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the store with realistic construction-site data so every part
  of the allocation lifecycle can be tried from the UI.

AVAILABLE SCENARIOS:
  site-kickoff:       Materials, equipment and labor for one project
  low-stock:          Resources in each availability bucket
  overdue-equipment:  Returnable allocations past the seven day limit

HOW SCENARIOS WORK:
  1. Reset the store (clear all data)
  2. Create the resource catalog via factory
  3. Allocate through the engine (same rules as the API)
  4. Optionally backdate allocations to exercise the expiry sweep

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "low-stock"}

NOTE:
  Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Engine-backed handlers
  - factory/resource.go: Catalog JSON
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edifice/resource-engine/inventory"
)

// resetter is implemented by stores that can be wiped for demos.
type resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "site-kickoff",
		Name:        "Site Kickoff",
		Description: "Materials, equipment and a labor crew allocated to one project",
	},
	{
		ID:          "low-stock",
		Name:        "Low Stock",
		Description: "One resource in each bucket: Available, Low Stock, Out of Stock",
	},
	{
		ID:          "overdue-equipment",
		Name:        "Overdue Equipment",
		Description: "Rented equipment held for more than seven days, ready for the expiry sweep",
	},
}

const siteCatalog = `[
	{"id": "concrete-c30", "name": "Concrete C30", "type": "Material", "quantity": 120, "unit": "m3", "cost": "95.50"},
	{"id": "rebar-12mm", "name": "Rebar 12mm", "type": "Material", "quantity": 40, "unit": "tons", "cost": 780},
	{"id": "excavator", "name": "Excavator CAT 320", "type": "Equipment", "quantity": 2, "unit": "units", "cost": 0, "returnable": true, "day_rate": 650},
	{"id": "tower-crane", "name": "Tower Crane", "type": "Equipment", "quantity": 1, "unit": "units", "cost": 0, "returnable": true, "hour_rate": "210.00"},
	{"id": "scaffolding", "name": "Scaffolding Set", "type": "Equipment", "quantity": 30, "unit": "sets", "cost": 15, "returnable": true},
	{"id": "carpenters", "name": "Carpenter Crew", "type": "Labor", "quantity": 12, "unit": "workers", "cost": 280}
]`

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "site-kickoff":
		load = h.loadSiteKickoffScenario
	case "low-stock":
		load = h.loadLowStockScenario
	case "overdue-equipment":
		load = h.loadOverdueEquipmentScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeEngineError(w, "Failed to reset store", err)
		return
	}
	if err := load(ctx); err != nil {
		writeEngineError(w, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeEngineError(w, "Failed to reset store", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Engine.Store().(resetter)
	if !ok {
		return errors.New("store does not support reset")
	}
	return rs.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadCatalog(ctx context.Context) error {
	catalog, err := h.Factory.ParseCatalog(siteCatalog)
	if err != nil {
		return err
	}
	for _, res := range catalog {
		if _, err := h.Engine.CreateResource(ctx, res); err != nil {
			return fmt.Errorf("create %s: %w", res.Name, err)
		}
	}
	return nil
}

type seedAllocation struct {
	resource string
	project  string
	quantity int64
	duration inventory.Duration
}

func (h *Handler) allocateAll(ctx context.Context, seeds []seedAllocation) ([]inventory.Allocation, error) {
	out := make([]inventory.Allocation, 0, len(seeds))
	for _, s := range seeds {
		a, err := h.Engine.Allocate(ctx, inventory.AllocateRequest{
			ResourceID: inventory.ResourceID(s.resource),
			ProjectID:  inventory.ProjectID(s.project),
			Quantity:   decimal.NewFromInt(s.quantity),
			Duration:   s.duration,
		})
		if err != nil {
			return nil, fmt.Errorf("allocate %s to %s: %w", s.resource, s.project, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// loadSiteKickoffScenario: one project drawing on every category.
func (h *Handler) loadSiteKickoffScenario(ctx context.Context) error {
	if err := h.loadCatalog(ctx); err != nil {
		return err
	}
	allocs, err := h.allocateAll(ctx, []seedAllocation{
		{"concrete-c30", "riverside-tower", 45, inventory.NoDuration()},
		{"rebar-12mm", "riverside-tower", 12, inventory.NoDuration()},
		{"excavator", "riverside-tower", 1, inventory.Days(decimal.NewFromInt(3))},
		{"tower-crane", "riverside-tower", 1, inventory.Hours(decimal.NewFromInt(6))},
		{"scaffolding", "riverside-tower", 18, inventory.NoDuration()},
		{"carpenters", "riverside-tower", 6, inventory.NoDuration()},
	})
	if err != nil {
		return err
	}

	// The first concrete pour is done.
	if _, err := h.Engine.Consume(ctx, allocs[0].ID); err != nil {
		return err
	}
	_, err = h.Engine.AssignToTask(ctx, inventory.AssignTaskRequest{
		TaskID:     "foundation-pour",
		ProjectID:  "riverside-tower",
		ResourceID: "excavator",
		Quantity:   decimal.NewFromInt(1),
		Duration:   inventory.Days(decimal.NewFromInt(2)),
	})
	return err
}

// loadLowStockScenario: rebar low, crane out, concrete fine.
func (h *Handler) loadLowStockScenario(ctx context.Context) error {
	if err := h.loadCatalog(ctx); err != nil {
		return err
	}
	_, err := h.allocateAll(ctx, []seedAllocation{
		{"rebar-12mm", "riverside-tower", 20, inventory.NoDuration()},
		{"rebar-12mm", "harbor-bridge", 15, inventory.NoDuration()},
		{"tower-crane", "harbor-bridge", 1, inventory.Hours(decimal.NewFromInt(8))},
		{"concrete-c30", "harbor-bridge", 30, inventory.NoDuration()},
	})
	return err
}

// loadOverdueEquipmentScenario: equipment allocations backdated past the
// expiry window, plus one fresh allocation that must survive the sweep.
func (h *Handler) loadOverdueEquipmentScenario(ctx context.Context) error {
	if err := h.loadCatalog(ctx); err != nil {
		return err
	}
	if _, err := h.allocateAll(ctx, []seedAllocation{
		{"scaffolding", "harbor-bridge", 5, inventory.NoDuration()},
	}); err != nil {
		return err
	}

	// Backdated rows go straight to the store: the engine always stamps now.
	now := h.Engine.Now()
	overdue := []inventory.Allocation{
		{ResourceID: "excavator", ProjectID: "riverside-tower", Quantity: decimal.NewFromInt(1),
			Duration: inventory.Days(decimal.NewFromInt(5)), CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ResourceID: "scaffolding", ProjectID: "riverside-tower", Quantity: decimal.NewFromInt(12),
			CreatedAt: now.Add(-8 * 24 * time.Hour)},
	}
	for _, a := range overdue {
		a.ID = inventory.AllocationID(uuid.NewString())
		if err := h.Engine.Store().CreateAllocation(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
