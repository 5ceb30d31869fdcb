package scheduleshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/domain/schedules"
	"poolops/internal/transport/http/api"
	"poolops/internal/transport/http/middleware"
	"poolops/internal/transport/http/shared"
)

const (
	shiftWindowDays = 7
	maxShiftWindow  = 62 * 24 * time.Hour
)

type Handler struct {
	Service *schedules.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
	Now     func() time.Time
}

func NewHandler(service *schedules.Service, perms middleware.PermissionStore, auditSvc audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSchedulesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermSchedulesRead, h.Perms)).Get("/shifts", h.handleShifts)
		r.With(middleware.RequirePermission(auth.PermSchedulesWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermSchedulesRead, h.Perms)).Get("/{entryID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermSchedulesWrite, h.Perms)).Delete("/{entryID}", h.handleDelete)
	})
}

type entryRequest struct {
	EmployeeID  int64      `json:"employeeId" validate:"required,gt=0"`
	LocationID  int64      `json:"locationId" validate:"required,gt=0"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      time.Time  `json:"endsAt"`
	Recurrence  string     `json:"recurrence" validate:"max=500"`
	RepeatUntil *time.Time `json:"repeatUntil"`
	Notes       string     `json:"notes" validate:"max=2000"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload entryRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if payload.StartsAt.IsZero() {
		validator.Add("startsAt", "is required")
	}
	if payload.EndsAt.IsZero() {
		validator.Add("endsAt", "is required")
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	entry, err := h.Service.Create(r.Context(), schedules.Entry{
		EmployeeID:  payload.EmployeeID,
		LocationID:  payload.LocationID,
		StartsAt:    payload.StartsAt,
		EndsAt:      payload.EndsAt,
		Recurrence:  payload.Recurrence,
		RepeatUntil: payload.RepeatUntil,
		Notes:       payload.Notes,
	})
	if err != nil {
		h.fail(w, r, err, "failed to create schedule entry")
		return
	}
	h.record(r, user, "schedule.create", entry.ID, nil, entry)
	api.Created(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter := schedules.Filter{
		EmployeeID: h.employeeScope(r, user),
		LocationID: shared.QueryID(r, "locationId"),
	}
	out, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to list schedule entries")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "entryID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "schedule_not_found", "schedule entry not found", middleware.GetRequestID(r.Context()))
		return
	}
	entry, err := h.Service.Get(r.Context(), id)
	if err == nil && entry.EmployeeID != user.EmployeeID && !h.can(r, user, auth.PermSchedulesWrite) {
		err = schedules.ErrNotFound
	}
	if err != nil {
		h.fail(w, r, err, "failed to load schedule entry")
		return
	}
	api.Success(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "entryID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "schedule_not_found", "schedule entry not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete schedule entry")
		return
	}
	h.record(r, user, "schedule.delete", id, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleShifts expands schedule entries into concrete shifts. The window
// defaults to the seven days starting today.
func (h *Handler) handleShifts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	from, to, ok := h.shiftWindow(w, r)
	if !ok {
		return
	}
	shifts, err := h.Service.ShiftsBetween(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err, "failed to expand schedule")
		return
	}
	employeeID := h.employeeScope(r, user)
	locationID := shared.QueryID(r, "locationId")
	out := make([]schedules.Shift, 0, len(shifts))
	for _, s := range shifts {
		if employeeID > 0 && s.EmployeeID != employeeID {
			continue
		}
		if locationID > 0 && s.LocationID != locationID {
			continue
		}
		out = append(out, s)
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) shiftWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	zone := h.Service.Zone
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	local := now.In(zone)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	validator := shared.NewValidator()

	if parsed, _, err := shared.ParseDateIn(r.URL.Query().Get("startDate"), zone); err != nil {
		validator.Add("startDate", "must be a valid date in YYYY-MM-DD format")
	} else if !parsed.IsZero() {
		from = parsed
	}
	to := from.AddDate(0, 0, shiftWindowDays)
	if parsed, bare, err := shared.ParseDateIn(r.URL.Query().Get("endDate"), zone); err != nil {
		validator.Add("endDate", "must be a valid date in YYYY-MM-DD format")
	} else if !parsed.IsZero() {
		to = parsed
		if bare {
			to = parsed.AddDate(0, 0, 1)
		}
	}
	if !validator.HasIssues() {
		if !to.After(from) {
			validator.Add("endDate", "must be after startDate")
		} else if to.Sub(from) > maxShiftWindow {
			validator.Add("endDate", "range must not exceed 62 days")
		}
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// employeeScope pins callers without schedule write access to their own entries.
func (h *Handler) employeeScope(r *http.Request, user auth.UserContext) int64 {
	if !h.can(r, user, auth.PermSchedulesWrite) {
		return user.EmployeeID
	}
	return shared.QueryID(r, "employeeId")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, schedules.ErrInvalidInput), errors.Is(err, schedules.ErrInvalidRule):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, schedules.ErrUnknownReference):
		api.Fail(w, http.StatusBadRequest, "unknown_reference", err.Error(), reqID)
	case errors.Is(err, schedules.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "schedule_not_found", "schedule entry not found", reqID)
	default:
		slog.Error("schedule request failed", "err", err, "path", r.URL.Path, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "schedule_failed", fallback, reqID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action string, id int64, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.EmployeeID, action, "schedule_entry", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) can(r *http.Request, user auth.UserContext, perm string) bool {
	allowed, err := h.Perms.HasPermission(r.Context(), user.Role, perm)
	if err != nil {
		slog.Warn("permission check failed", "permission", perm, "err", err)
		return false
	}
	return allowed
}
