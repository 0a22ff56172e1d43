/*
handlers.go - HTTP API handlers for the incentive engine

PURPOSE:
  Exposes the incentive engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Drivers:
    GET    /api/drivers                          List the roster
    POST   /api/drivers                          Create or replace a driver

  Calculations:
    GET    /api/calculations?year=&month=        List period calculations
    GET    /api/calculations/{id}                Fetch one calculation
    POST   /api/calculations/run                 Run a period batch
    POST   /api/calculations/{id}/transition     Move to a new status
    POST   /api/calculations/{id}/rollback       Restore from latest snapshot
    GET    /api/calculations/{id}/projections    What-if scenarios

  Workflow:
    GET    /api/workflow/transitions?status=     Reachable statuses
    POST   /api/workflow/bulk-transition         Period-wide transition

  Audit:
    GET    /api/audit?calculationId=             Audit trail

  Dev:
    POST   /api/seed                             Load demo dataset

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, illegal transitions
  - 404: Calculation not found, no snapshot to roll back to
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo dataset loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/incentive-engine/incentive"
	"github.com/fleetops/incentive-engine/store/sqlite"
	"github.com/fleetops/incentive-engine/workflow"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *workflow.Service
}

// NewHandler creates a new handler over the given store and workflow service.
func NewHandler(store *sqlite.Store, service *workflow.Service) *Handler {
	return &Handler{Store: store, Service: service}
}

// =============================================================================
// DRIVER HANDLERS
// =============================================================================

// ListDrivers returns the full roster.
// GET /api/drivers
func (h *Handler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.Store.ListDrivers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list drivers", err)
		return
	}

	dtos := make([]DriverDTO, len(drivers))
	for i, d := range drivers {
		dtos[i] = toDriverDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDriver creates or replaces a driver.
// POST /api/drivers
func (h *Handler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var req CreateDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	driverType := incentive.DriverType(req.Type)
	if driverType != incentive.DriverLocal && driverType != incentive.DriverExport {
		writeError(w, http.StatusBadRequest, "type must be local or export", nil)
		return
	}

	status := incentive.DriverStatus(req.Status)
	if status == "" {
		status = incentive.DriverActive
	}

	d := incentive.Driver{
		ID:            incentive.DriverID(req.ID),
		Name:          req.Name,
		Type:          driverType,
		BaseSalaryUSD: req.BaseSalaryUSD,
		BaseSalaryZIG: req.BaseSalaryZIG,
		Status:        status,
	}
	if err := h.Store.SaveDriver(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save driver", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDriverDTO(d))
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// ListCalculations returns all calculations for a period.
// GET /api/calculations?year=&month=
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	year, month, ok := periodParams(w, r)
	if !ok {
		return
	}

	var (
		calcs []incentive.Calculation
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		calcs, err = h.Store.ListCalculationsByStatus(r.Context(), year, month, incentive.Status(status))
	} else {
		calcs, err = h.Store.ListCalculations(r.Context(), year, month)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}

	dtos := make([]CalculationDTO, len(calcs))
	for i, c := range calcs {
		dtos[i] = toCalculationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalculation returns a single calculation.
// GET /api/calculations/{id}
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	calc, ok := h.loadCalculation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*calc))
}

// RunBatch computes and persists results for every active driver in the
// period.
// POST /api/calculations/run
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req RunBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !validPeriod(req.Year, req.Month) {
		writeError(w, http.StatusBadRequest, "year and month are required", nil)
		return
	}

	report, err := h.Service.RunBatch(r.Context(), req.Year, req.Month, req.Actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Batch run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// TransitionCalculation moves one calculation to a new workflow status.
// POST /api/calculations/{id}/transition
func (h *Handler) TransitionCalculation(w http.ResponseWriter, r *http.Request) {
	id := incentive.CalculationID(chi.URLParam(r, "id"))

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !validStatus(incentive.Status(req.To)) {
		writeError(w, http.StatusBadRequest, "Unknown target status", nil)
		return
	}

	calc, err := h.Service.Transition(r.Context(), id, incentive.Status(req.To), req.Actor)
	if err != nil {
		writeError(w, statusFor(err), "Transition failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*calc))
}

// RollbackCalculation restores a calculation from its latest snapshot.
// POST /api/calculations/{id}/rollback
func (h *Handler) RollbackCalculation(w http.ResponseWriter, r *http.Request) {
	id := incentive.CalculationID(chi.URLParam(r, "id"))

	var req RollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	calc, err := h.Service.Rollback(r.Context(), id, req.Actor)
	if err != nil {
		writeError(w, statusFor(err), "Rollback failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*calc))
}

// GetProjections returns what-if scenarios for a calculation.
// GET /api/calculations/{id}/projections
func (h *Handler) GetProjections(w http.ResponseWriter, r *http.Request) {
	calc, ok := h.loadCalculation(w, r)
	if !ok {
		return
	}

	result := resultFromCalculation(*calc)
	projections := incentive.Project(result, incentive.DefaultScenarios(result))
	writeJSON(w, http.StatusOK, map[string]any{
		"calculationId": calc.ID,
		"projections":   projections,
	})
}

// resultFromCalculation rebuilds the calculation-core view of a persisted
// record so the projector can re-derive from its details payload.
func resultFromCalculation(c incentive.Calculation) incentive.Result {
	return incentive.Result{
		DriverID:         c.DriverID,
		Year:             c.Year,
		Month:            c.Month,
		BaseSalary:       c.BaseSalary,
		KMIncentive:      c.KMIncentive,
		PerformanceBonus: c.PerformanceBonus,
		SafetyBonus:      c.SafetyBonus,
		Deductions:       c.Deductions,
		TotalIncentive:   c.TotalIncentive,
		TotalEarnings:    c.TotalEarnings,
		AchievementPct:   c.Details.AchievementPct,
		Details:          c.Details,
	}
}

// =============================================================================
// WORKFLOW HANDLERS
// =============================================================================

// ListTransitions returns the statuses reachable from a given one.
// GET /api/workflow/transitions?status=
func (h *Handler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	status := incentive.Status(r.URL.Query().Get("status"))
	if !validStatus(status) {
		writeError(w, http.StatusBadRequest, "Unknown status", nil)
		return
	}

	available := workflow.AvailableTransitions(status)
	names := make([]string, len(available))
	for i, s := range available {
		names[i] = string(s)
	}
	writeJSON(w, http.StatusOK, TransitionsDTO{Status: string(status), Available: names})
}

// BulkTransition applies one transition to every calculation in a period
// currently at the from status.
// POST /api/workflow/bulk-transition
func (h *Handler) BulkTransition(w http.ResponseWriter, r *http.Request) {
	var req BulkTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !validPeriod(req.Year, req.Month) {
		writeError(w, http.StatusBadRequest, "year and month are required", nil)
		return
	}
	from, to := incentive.Status(req.From), incentive.Status(req.To)
	if !validStatus(from) || !validStatus(to) {
		writeError(w, http.StatusBadRequest, "Unknown status", nil)
		return
	}
	if !workflow.CanTransition(from, to) {
		writeError(w, http.StatusBadRequest, "Illegal transition",
			&incentive.IllegalTransitionError{From: from, To: to})
		return
	}

	result, err := h.Service.BulkTransition(r.Context(), req.Year, req.Month, from, to, req.Actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Bulk transition failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAudit returns the audit trail, optionally filtered to one calculation.
// GET /api/audit?calculationId=
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	id := incentive.CalculationID(r.URL.Query().Get("calculationId"))

	entries, err := h.Store.ListAudit(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit entries", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadCalculation(w http.ResponseWriter, r *http.Request) (*incentive.Calculation, bool) {
	id := incentive.CalculationID(chi.URLParam(r, "id"))

	calc, err := h.Store.GetCalculation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get calculation", err)
		return nil, false
	}
	if calc == nil {
		writeError(w, http.StatusNotFound, "Calculation not found", nil)
		return nil, false
	}
	return calc, true
}

func periodParams(w http.ResponseWriter, r *http.Request) (year, month int, ok bool) {
	year, _ = strconv.Atoi(r.URL.Query().Get("year"))
	month, _ = strconv.Atoi(r.URL.Query().Get("month"))
	if !validPeriod(year, month) {
		writeError(w, http.StatusBadRequest, "year and month query params are required", nil)
		return 0, 0, false
	}
	return year, month, true
}

func validPeriod(year, month int) bool {
	return year >= 1 && month >= 1 && month <= 12
}

func validStatus(s incentive.Status) bool {
	switch s {
	case incentive.StatusDraft, incentive.StatusPendingApproval, incentive.StatusApproved, incentive.StatusPaid:
		return true
	}
	return false
}

func statusFor(err error) int {
	switch {
	case incentive.IsNotFound(err):
		return http.StatusNotFound
	case incentive.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
