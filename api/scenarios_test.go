/*
scenarios_test.go - Tests for demo scenario loading

Tests for:
- Every scenario loads on a clean store and on a dirty one
- Scenario data matches what the UI expects
- Database reset
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, ts *testServer, id string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	ts := setupTestServer(t)

	// Loading twice in a row proves each scenario resets what came before.
	for _, s := range scenarios {
		loadScenario(t, ts, s.ID)
		loadScenario(t, ts, s.ID)

		current := decode[ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios/current", nil))
		assert.Equal(t, s.ID, current.ID)
	}

	list := decode[[]ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, len(scenarios))
}

func TestScenario_Unknown(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "moon-base"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_SiteKickoff(t *testing.T) {
	// GIVEN: The site kickoff scenario
	// THEN: Concrete was poured (ledger lowered), the crane costs by the hour,
	//       and the excavator is assigned to the foundation task
	ts := setupTestServer(t)
	loadScenario(t, ts, "site-kickoff")

	concrete := decode[ResourceDTO](t, ts.do(t, http.MethodGet, "/api/resources/concrete-c30", nil))
	assert.True(t, concrete.Quantity.Equal(dec("75")))

	project := decode[ProjectAllocationsDTO](t, ts.do(t, http.MethodGet, "/api/projects/riverside-tower/allocations", nil))
	assert.Len(t, project.Allocations, 6)
	// 45*95.50 + 12*780 + 3*650 + 6*210 + 18*15 + 6*280
	assert.True(t, project.TotalCost.Equal(dec("18817.5")), "got %s", project.TotalCost)

	tasks := decode[[]TaskAssignmentDTO](t, ts.do(t, http.MethodGet, "/api/tasks/foundation-pour/resources", nil))
	require.Len(t, tasks, 1)
	assert.Equal(t, "excavator", tasks[0].ResourceID)
}

func TestScenario_LowStock(t *testing.T) {
	ts := setupTestServer(t)
	loadScenario(t, ts, "low-stock")

	list := decode[[]ResourceDTO](t, ts.do(t, http.MethodGet, "/api/resources", nil))
	status := make(map[string]string, len(list))
	for _, r := range list {
		status[r.ID] = r.Status
	}

	assert.Equal(t, "Out of Stock", status["tower-crane"])
	assert.Equal(t, "Low Stock", status["rebar-12mm"])
	assert.Equal(t, "Available", status["concrete-c30"])
	assert.Equal(t, "tower-crane", list[0].ID, "most urgent first")
}

func TestScenario_OverdueEquipment(t *testing.T) {
	// GIVEN: Two backdated equipment allocations and one fresh one
	// WHEN: Running the sweep
	// THEN: Only the backdated ones expire
	ts := setupTestServer(t)
	loadScenario(t, ts, "overdue-equipment")

	rec := ts.do(t, http.MethodPost, "/api/admin/expiry/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[SweepRunDTO](t, rec)

	assert.Equal(t, 2, run.Scanned)
	assert.Equal(t, 2, run.Expired)
}

func TestResetDatabase(t *testing.T) {
	ts := setupTestServer(t)
	loadScenario(t, ts, "site-kickoff")

	rec := ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]ResourceDTO](t, ts.do(t, http.MethodGet, "/api/resources", nil))
	assert.Empty(t, list)

	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.JSONEq(t, "null", rec.Body.String())
}
