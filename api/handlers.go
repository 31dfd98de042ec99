/*
handlers.go - HTTP API handlers for the resource allocation engine

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every rule to inventory.Engine.

ENDPOINTS:
  Resources:
    GET    /api/resources                 List with availability (most urgent first)
    POST   /api/resources                 Create from catalog JSON
    GET    /api/resources/{id}            Resource, availability, allocations
    PUT    /api/resources/{id}            Edit details
    DELETE /api/resources/{id}            Delete with allocations and task resources
    POST   /api/resources/{id}/refill     Add stock
    POST   /api/resources/{id}/reset      Drop all allocations (consumables)

  Allocations:
    POST   /api/allocations               Allocate to a project
    GET    /api/allocations/{id}          Allocation with cost
    POST   /api/allocations/{id}/consume  Consume (consumables)
    POST   /api/allocations/{id}/use      Mark used (returnables)
    POST   /api/allocations/{id}/return   Return (returnables)

  Projects, tasks, schedule:
    GET    /api/projects/{id}/allocations Allocations and cost summary
    GET    /api/tasks/{id}/resources      Task resource assignments
    POST   /api/tasks/{id}/resources      Assign from the project's pool
    DELETE /api/task-resources/{id}       Remove a task assignment
    GET    /api/schedule                  Weekly equipment schedule

  Admin:
    POST   /api/admin/expiry/run          Run the expiry sweep now
    GET    /api/admin/expiry/runs         Sweep history and next scheduled run

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, insufficient quantity
  - 404: Resource, allocation or task assignment not found
  - 409: Operation not allowed for the resource, concurrent modification
  - 500: Store failures

SECURITY NOTE:
  No authentication or authorization here. The platform's auth layer sits in
  front of this service.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/edifice/resource-engine/factory"
	"github.com/edifice/resource-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *inventory.Engine
	Factory   *factory.ResourceFactory
	Scheduler *ExpiryScheduler
	Metrics   *Metrics

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. scheduler and metrics may be nil.
func NewHandler(engine *inventory.Engine, scheduler *ExpiryScheduler, metrics *Metrics) *Handler {
	return &Handler{
		Engine:    engine,
		Factory:   factory.NewResourceFactory(),
		Scheduler: scheduler,
		Metrics:   metrics,
	}
}

func (h *Handler) observe(op string, err error) {
	if h.Metrics != nil {
		h.Metrics.Observe(op, err)
	}
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

// ListResources returns all resources with availability.
// GET /api/resources
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	views, err := h.Engine.ListResources(r.Context())
	if err != nil {
		writeEngineError(w, "Failed to list resources", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(views, func(v inventory.ResourceView, _ int) ResourceDTO {
		return toResourceViewDTO(v, false)
	}))
}

// CreateResource creates a resource from catalog JSON.
// POST /api/resources
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req factory.ResourceJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res, err := h.Factory.Build(req)
	if err == nil {
		res, err = h.Engine.CreateResource(r.Context(), res)
	}
	h.observe("create", err)
	if err != nil {
		writeEngineError(w, "Failed to create resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceDTO(res))
}

// GetResource returns a resource with availability and allocations.
// GET /api/resources/{id}
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	v, err := h.Engine.GetResource(r.Context(), resourceID(r))
	if err != nil {
		writeEngineError(w, "Failed to get resource", err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceViewDTO(v, true))
}

// UpdateResource edits a resource's details.
// PUT /api/resources/{id}
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var req UpdateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	u := inventory.ResourceUpdate{
		Name:       req.Name,
		Unit:       req.Unit,
		Quantity:   req.Quantity,
		Cost:       req.Cost,
		Returnable: req.Returnable,
		HourRate:   rateUpdate(req.HourRate, req.ClearHourRate),
		DayRate:    rateUpdate(req.DayRate, req.ClearDayRate),
	}
	if req.Type != nil {
		u.Category = lo.ToPtr(inventory.Category(*req.Type))
	}

	res, err := h.Engine.UpdateResource(r.Context(), resourceID(r), u)
	h.observe("update", err)
	if err != nil {
		writeEngineError(w, "Failed to update resource", err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(res))
}

func rateUpdate(v *decimal.Decimal, unset bool) *decimal.NullDecimal {
	switch {
	case unset:
		return &decimal.NullDecimal{}
	case v != nil:
		return lo.ToPtr(decimal.NewNullDecimal(*v))
	default:
		return nil
	}
}

// DeleteResource deletes a resource and everything that references it.
// DELETE /api/resources/{id}
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	err := h.Engine.Delete(r.Context(), resourceID(r))
	h.observe("delete", err)
	if err != nil {
		writeEngineError(w, "Failed to delete resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefillResource adds stock.
// POST /api/resources/{id}/refill
func (h *Handler) RefillResource(w http.ResponseWriter, r *http.Request) {
	var req RefillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res, err := h.Engine.Refill(r.Context(), resourceID(r), req.Quantity, req.Cost)
	h.observe("refill", err)
	if err != nil {
		writeEngineError(w, "Failed to refill resource", err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceDTO(res))
}

// ResetResource drops every allocation of a consumable.
// POST /api/resources/{id}/reset
func (h *Handler) ResetResource(w http.ResponseWriter, r *http.Request) {
	res, removed, err := h.Engine.Reset(r.Context(), resourceID(r))
	h.observe("reset", err)
	if err != nil {
		writeEngineError(w, "Failed to reset resource", err)
		return
	}
	writeJSON(w, http.StatusOK, ResetResponse{Resource: toResourceDTO(res), Removed: removed})
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

// Allocate reserves a resource for a project.
// POST /api/allocations
func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	d, err := durationFrom(req.Days, req.Hours)
	if err != nil {
		writeEngineError(w, "Invalid duration", err)
		return
	}

	a, err := h.Engine.Allocate(r.Context(), inventory.AllocateRequest{
		ResourceID: inventory.ResourceID(req.ResourceID),
		ProjectID:  inventory.ProjectID(req.ProjectID),
		Quantity:   req.Quantity,
		Duration:   d,
	})
	h.observe("allocate", err)
	if err != nil {
		writeEngineError(w, "Failed to allocate resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTO(a))
}

// GetAllocation returns an allocation with its cost.
// GET /api/allocations/{id}
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	v, err := h.Engine.GetAllocation(r.Context(), allocationID(r))
	if err != nil {
		writeEngineError(w, "Failed to get allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationViewDTO(v))
}

// ConsumeAllocation consumes a consumable allocation.
// POST /api/allocations/{id}/consume
func (h *Handler) ConsumeAllocation(w http.ResponseWriter, r *http.Request) {
	a, err := h.Engine.Consume(r.Context(), allocationID(r))
	h.observe("consume", err)
	if err != nil {
		writeEngineError(w, "Failed to consume allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

// MarkAllocationUsed closes a returnable allocation without returning it.
// POST /api/allocations/{id}/use
func (h *Handler) MarkAllocationUsed(w http.ResponseWriter, r *http.Request) {
	a, err := h.Engine.MarkUsed(r.Context(), allocationID(r))
	h.observe("mark_used", err)
	if err != nil {
		writeEngineError(w, "Failed to mark allocation used", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

// ReturnAllocation returns a returnable allocation.
// POST /api/allocations/{id}/return
func (h *Handler) ReturnAllocation(w http.ResponseWriter, r *http.Request) {
	_, err := h.Engine.Return(r.Context(), allocationID(r))
	h.observe("return", err)
	if err != nil {
		writeEngineError(w, "Failed to return allocation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProjectAllocations returns a project's allocations and cost summary.
// GET /api/projects/{id}/allocations
func (h *Handler) ProjectAllocations(w http.ResponseWriter, r *http.Request) {
	v, err := h.Engine.ProjectAllocations(r.Context(), inventory.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to list project allocations", err)
		return
	}

	dto := ProjectAllocationsDTO{
		ProjectID:   string(v.ProjectID),
		Allocations: make([]AllocationDTO, len(v.Allocations)),
		CostLines:   make([]CostLineDTO, len(v.Cost.Lines)),
		TotalCost:   v.Cost.Total,
	}
	for i, a := range v.Allocations {
		dto.Allocations[i] = toAllocationViewDTO(a)
	}
	for i, l := range v.Cost.Lines {
		dto.CostLines[i] = CostLineDTO{
			AllocationID: string(l.AllocationID),
			ResourceID:   string(l.ResourceID),
			ResourceName: l.ResourceName,
			PricingMode:  string(l.Mode),
			Cost:         l.Cost,
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// ListTaskResources returns a task's resource assignments.
// GET /api/tasks/{id}/resources
func (h *Handler) ListTaskResources(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Engine.TaskAssignments(r.Context(), inventory.TaskID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to list task resources", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(assignments, func(a inventory.TaskAssignment, _ int) TaskAssignmentDTO {
		return toTaskAssignmentDTO(a)
	}))
}

// AssignTaskResource assigns part of the project's allocation to a task.
// POST /api/tasks/{id}/resources
func (h *Handler) AssignTaskResource(w http.ResponseWriter, r *http.Request) {
	var req AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	d, err := durationFrom(req.Days, req.Hours)
	if err != nil {
		writeEngineError(w, "Invalid duration", err)
		return
	}

	a, err := h.Engine.AssignToTask(r.Context(), inventory.AssignTaskRequest{
		TaskID:     inventory.TaskID(chi.URLParam(r, "id")),
		ProjectID:  inventory.ProjectID(req.ProjectID),
		ResourceID: inventory.ResourceID(req.ResourceID),
		Quantity:   req.Quantity,
		Duration:   d,
	})
	h.observe("assign_task", err)
	if err != nil {
		writeEngineError(w, "Failed to assign resource to task", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskAssignmentDTO(a))
}

// RemoveTaskResource deletes a task assignment.
// DELETE /api/task-resources/{id}
func (h *Handler) RemoveTaskResource(w http.ResponseWriter, r *http.Request) {
	err := h.Engine.RemoveTaskAssignment(r.Context(), inventory.AssignmentID(chi.URLParam(r, "id")))
	h.observe("remove_task", err)
	if err != nil {
		writeEngineError(w, "Failed to remove task resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SCHEDULE
// =============================================================================

// GetSchedule returns the weekly schedule of returnable resources.
// GET /api/schedule
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.Engine.Schedule(r.Context())
	if err != nil {
		writeEngineError(w, "Failed to build schedule", err)
		return
	}

	dtos := make([]ResourceScheduleDTO, len(schedule))
	for i, rs := range schedule {
		dtos[i] = ResourceScheduleDTO{
			ResourceID:   string(rs.Resource.ID),
			ResourceName: rs.Resource.Name,
			Type:         string(rs.Resource.Category),
			Slots: lo.Map(rs.Slots, func(s inventory.ScheduleSlot, _ int) ScheduleSlotDTO {
				return ScheduleSlotDTO{
					Day:          s.Day.String(),
					AllocationID: string(s.AllocationID),
					ProjectID:    string(s.ProjectID),
					Hours:        s.Hours,
				}
			}),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EXPIRY ADMIN
// =============================================================================

// RunExpiry runs the expiry sweep immediately.
// POST /api/admin/expiry/run
func (h *Handler) RunExpiry(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Expiry scheduler not configured", nil)
		return
	}
	run, err := h.Scheduler.RunNow(r.Context())
	if err != nil {
		resp := SweepErrorResponse{ErrorResponse: ErrorResponse{Error: "Expiry sweep failed", Details: strings.TrimSpace(err.Error())}}
		// A sweep does not roll back; report the expirations it did apply.
		if run.ID != "" {
			dto := toSweepRunDTO(run)
			resp.Run = &dto
		}
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, toSweepRunDTO(run))
}

// ListExpiryRuns returns recent sweep runs, newest first, and when the
// scheduler fires next.
// GET /api/admin/expiry/runs?limit=N
func (h *Handler) ListExpiryRuns(w http.ResponseWriter, r *http.Request) {
	resp := ExpiryRunsResponse{Runs: []SweepRunDTO{}}
	if h.Scheduler == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if next := h.Scheduler.NextRun(); !next.IsZero() {
		s := formatTime(next)
		resp.NextRun = &s
	}
	if h.Scheduler.Runs == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Scheduler.Runs.ListSweepRuns(r.Context(), limit)
	if err != nil {
		writeEngineError(w, "Failed to list expiry runs", err)
		return
	}
	resp.Runs = lo.Map(runs, func(run inventory.SweepRun, _ int) SweepRunDTO {
		return toSweepRunDTO(run)
	})
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func resourceID(r *http.Request) inventory.ResourceID {
	return inventory.ResourceID(chi.URLParam(r, "id"))
}

func allocationID(r *http.Request) inventory.AllocationID {
	return inventory.AllocationID(chi.URLParam(r, "id"))
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case inventory.IsValidation(err):
		return http.StatusBadRequest
	case inventory.IsNotFound(err):
		return http.StatusNotFound
	case inventory.IsDomain(err), inventory.IsRetryable(err), errors.Is(err, ErrSweepInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	default:
		return "error"
	}
}

func writeEngineError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = strings.TrimSpace(err.Error())
	}
	writeJSON(w, status, resp)
}
