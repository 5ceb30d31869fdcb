package clockhandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"poolops/internal/domain/attendance"
	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/transport/http/api"
	"poolops/internal/transport/http/middleware"
	"poolops/internal/transport/http/shared"
)

const (
	dashboardPath = "/Clock"
	historyDays   = 30
)

const (
	msgClockedIn      = "Clocked in successfully!"
	msgClockInFailed  = "Failed to clock in. Please try again."
	msgClockedOut     = "Clocked out successfully!"
	msgClockOutFailed = "Failed to clock out. Please try again."
	msgRecordUpdated  = "Clock record updated successfully."
	msgRecordNotFound = "Record not found."
	msgAlreadyIn      = "You are already clocked in."
	msgAlreadyOut     = "This shift has already been clocked out."
	msgBadTimeRange   = "Clock-out must be after clock-in."
	msgEditFailed     = "Failed to update clock record."
)

type Handler struct {
	Service *attendance.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *attendance.Service, perms middleware.PermissionStore, auditSvc audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

// RegisterForms mounts the browser form endpoints. Each POST answers with a
// redirect to the dashboard and leaves its outcome in a flash cookie.
func (h *Handler) RegisterForms(r chi.Router) {
	r.Route("/Clock", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Get("/", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Post("/ClockIn", h.handleFormClockIn)
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Post("/ClockOut", h.handleFormClockOut)
		r.With(middleware.RequirePermission(auth.PermClockManage, h.Perms)).Post("/EditRecord/{recordID}", h.handleFormEditRecord)
	})
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/clock", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Post("/clock-in", h.handleClockIn)
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Post("/clock-out", h.handleClockOut)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/active", h.handleActive)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/today", h.handleToday)
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Get("/records/{recordID}", h.handleGetRecord)
		r.With(middleware.RequirePermission(auth.PermClockManage, h.Perms)).Put("/records/{recordID}", h.handleEditRecord)
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Get("/history", h.handleHistory)
		r.With(middleware.RequirePermission(auth.PermClockSelf, h.Perms)).Get("/history/export", h.handleHistoryExport)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/day", h.handleDay)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/punches", h.handlePunches)
	})
}

type dashboard struct {
	ActiveShifts []attendance.ClockRecord `json:"activeShifts"`
	TodayRecords []attendance.ClockRecord `json:"todayRecords"`
	MyOpenRecord *attendance.ClockRecord  `json:"myOpenRecord,omitempty"`
	Policy       policyView               `json:"policy"`
	Flash        *middleware.Flash        `json:"flash,omitempty"`
}

type policyView struct {
	GracePeriodMinutes  int    `json:"gracePeriodMinutes"`
	EarlyClockInMinutes int    `json:"earlyClockInMinutes"`
	TimeZone            string `json:"timeZone"`
}

func (h *Handler) policyView() policyView {
	p := h.Service.Policy
	zone := "UTC"
	if p.Zone != nil {
		zone = p.Zone.String()
	}
	return policyView{
		GracePeriodMinutes:  int(p.GracePeriod / time.Minute),
		EarlyClockInMinutes: int(p.EarlyClockIn / time.Minute),
		TimeZone:            zone,
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	active, err := h.Service.GetActiveShifts(r.Context())
	if err != nil {
		slog.Error("active shifts failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		api.Fail(w, http.StatusInternalServerError, "clock_dashboard_failed", "failed to load clock dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	today, err := h.Service.TodaysRecords(r.Context())
	if err != nil {
		slog.Error("today's records failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		api.Fail(w, http.StatusInternalServerError, "clock_dashboard_failed", "failed to load clock dashboard", middleware.GetRequestID(r.Context()))
		return
	}

	out := dashboard{ActiveShifts: active, TodayRecords: today, Policy: h.policyView()}
	for i := range active {
		if active[i].EmployeeID == user.EmployeeID {
			out.MyOpenRecord = &active[i]
			break
		}
	}
	if flash, ok := middleware.PopFlash(w, r); ok {
		out.Flash = &flash
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFormClockIn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, middleware.FlashError, msgClockInFailed)
		return
	}

	in := attendance.ClockIn{
		EmployeeID: user.EmployeeID,
		LocationID: formInt(r, "locationId"),
		Coordinate: formCoordinate(r, "latitude", "longitude"),
		Notes:      strings.TrimSpace(r.PostFormValue("jobsiteNotes")),
	}
	rec, err := h.Service.ClockIn(r.Context(), in)
	if err != nil {
		slog.Warn("form clock-in failed", "employeeId", user.EmployeeID, "locationId", in.LocationID, "err", err)
		if errors.Is(err, attendance.ErrAlreadyClockedIn) {
			h.redirect(w, r, middleware.FlashError, msgAlreadyIn)
			return
		}
		h.redirect(w, r, middleware.FlashError, msgClockInFailed)
		return
	}
	h.record(r, user, "clock.in", rec.ID, nil, rec)
	h.redirect(w, r, middleware.FlashSuccess, msgClockedIn)
}

func (h *Handler) handleFormClockOut(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, middleware.FlashError, msgClockOutFailed)
		return
	}

	recordID := formInt(r, "clockRecordId")
	if _, err := h.clockOut(r, user, recordID, formCoordinate(r, "latitude", "longitude")); err != nil {
		slog.Warn("form clock-out failed", "employeeId", user.EmployeeID, "recordId", recordID, "err", err)
		switch {
		case errors.Is(err, attendance.ErrRecordNotFound):
			h.redirect(w, r, middleware.FlashError, msgRecordNotFound)
		case errors.Is(err, attendance.ErrAlreadyClockedOut):
			h.redirect(w, r, middleware.FlashError, msgAlreadyOut)
		default:
			h.redirect(w, r, middleware.FlashError, msgClockOutFailed)
		}
		return
	}
	h.redirect(w, r, middleware.FlashSuccess, msgClockedOut)
}

func (h *Handler) handleFormEditRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	recordID, ok := shared.PathID(r, "recordID")
	if !ok {
		h.redirect(w, r, middleware.FlashError, msgRecordNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, middleware.FlashError, msgEditFailed)
		return
	}

	edit, err := h.formEdit(r)
	if err != nil {
		h.redirect(w, r, middleware.FlashError, msgEditFailed)
		return
	}
	if err := h.editRecord(r, user, recordID, edit); err != nil {
		slog.Warn("form edit record failed", "recordId", recordID, "err", err)
		switch {
		case errors.Is(err, attendance.ErrRecordNotFound):
			h.redirect(w, r, middleware.FlashError, msgRecordNotFound)
		case errors.Is(err, attendance.ErrInvalidTimeRange):
			h.redirect(w, r, middleware.FlashError, msgBadTimeRange)
		case errors.Is(err, attendance.ErrAlreadyClockedIn):
			h.redirect(w, r, middleware.FlashError, msgAlreadyIn)
		default:
			h.redirect(w, r, middleware.FlashError, msgEditFailed)
		}
		return
	}
	h.redirect(w, r, middleware.FlashSuccess, msgRecordUpdated)
}

// formEdit reads clockInTime/clockOutTime as datetime-local values in the business zone.
func (h *Handler) formEdit(r *http.Request) (attendance.Edit, error) {
	zone := h.Service.Policy.Zone
	if zone == nil {
		zone = time.UTC
	}
	in, err := parseLocalTime(r.PostFormValue("clockInTime"), zone)
	if err != nil || in.IsZero() {
		return attendance.Edit{}, fmt.Errorf("clockInTime: %w", attendance.ErrInvalidInput)
	}
	edit := attendance.Edit{ClockIn: in, LocationID: formInt(r, "locationId")}
	if raw := strings.TrimSpace(r.PostFormValue("clockOutTime")); raw != "" {
		out, err := parseLocalTime(raw, zone)
		if err != nil {
			return attendance.Edit{}, fmt.Errorf("clockOutTime: %w", attendance.ErrInvalidInput)
		}
		edit.ClockOut = &out
	}
	return edit, nil
}

type clockInRequest struct {
	EmployeeID   int64            `json:"employeeId"`
	LocationID   int64            `json:"locationId" validate:"required,gt=0"`
	Latitude     *decimal.Decimal `json:"latitude"`
	Longitude    *decimal.Decimal `json:"longitude"`
	JobsiteNotes string           `json:"jobsiteNotes" validate:"max=2000"`
}

func (h *Handler) handleClockIn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload clockInRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID, allowed := h.actingFor(r, user, payload.EmployeeID)
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot clock in another employee", middleware.GetRequestID(r.Context()))
		return
	}

	rec, err := h.Service.ClockIn(r.Context(), attendance.ClockIn{
		EmployeeID: employeeID,
		LocationID: payload.LocationID,
		Coordinate: coordinate(payload.Latitude, payload.Longitude),
		Notes:      strings.TrimSpace(payload.JobsiteNotes),
	})
	if err != nil {
		h.fail(w, r, err, msgClockInFailed)
		return
	}
	h.record(r, user, "clock.in", rec.ID, nil, rec)
	w.Header().Set("Location", "/api/clock/records/"+strconv.FormatInt(rec.ID, 10))
	api.WriteJSON(w, http.StatusCreated, api.Envelope{Success: true, Message: msgClockedIn, Data: rec, RequestID: middleware.GetRequestID(r.Context())})
}

type clockOutRequest struct {
	ClockRecordID int64            `json:"clockRecordId" validate:"required,gt=0"`
	Latitude      *decimal.Decimal `json:"latitude"`
	Longitude     *decimal.Decimal `json:"longitude"`
}

func (h *Handler) handleClockOut(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload clockOutRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.clockOut(r, user, payload.ClockRecordID, coordinate(payload.Latitude, payload.Longitude))
	if err != nil {
		h.fail(w, r, err, msgClockOutFailed)
		return
	}
	api.SuccessMessage(w, msgClockedOut, rec, middleware.GetRequestID(r.Context()))
}

// clockOut closes recordID. Callers without clock.manage may only close their own record.
func (h *Handler) clockOut(r *http.Request, user auth.UserContext, recordID int64, coord *attendance.Coordinate) (attendance.ClockRecord, error) {
	if recordID <= 0 {
		return attendance.ClockRecord{}, attendance.ErrRecordNotFound
	}
	before, err := h.Service.Get(r.Context(), recordID)
	if err != nil {
		return attendance.ClockRecord{}, err
	}
	if before.EmployeeID != user.EmployeeID && !h.can(r, user, auth.PermClockManage) {
		return attendance.ClockRecord{}, attendance.ErrRecordNotFound
	}
	rec, err := h.Service.ClockOut(r.Context(), recordID, time.Time{}, coord)
	if err != nil {
		return attendance.ClockRecord{}, err
	}
	h.record(r, user, "clock.out", rec.ID, before, rec)
	return rec, nil
}

type editRequest struct {
	ClockInTime  time.Time  `json:"clockInTime"`
	ClockOutTime *time.Time `json:"clockOutTime"`
	LocationID   int64      `json:"locationId" validate:"omitempty,gt=0"`
}

func (h *Handler) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	recordID, ok := shared.PathID(r, "recordID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "record_not_found", msgRecordNotFound, middleware.GetRequestID(r.Context()))
		return
	}

	var payload editRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	edit := attendance.Edit{ClockIn: payload.ClockInTime, ClockOut: payload.ClockOutTime, LocationID: payload.LocationID}
	if err := h.editRecord(r, user, recordID, edit); err != nil {
		h.fail(w, r, err, msgEditFailed)
		return
	}
	rec, err := h.Service.Get(r.Context(), recordID)
	if err != nil {
		h.fail(w, r, err, msgEditFailed)
		return
	}
	api.SuccessMessage(w, msgRecordUpdated, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) editRecord(r *http.Request, user auth.UserContext, recordID int64, edit attendance.Edit) error {
	before, err := h.Service.Get(r.Context(), recordID)
	if err != nil {
		return err
	}
	if edit.LocationID <= 0 {
		edit.LocationID = before.LocationID
	}
	after, err := h.Service.EditRecord(r.Context(), recordID, edit)
	if err != nil {
		return err
	}
	h.record(r, user, "clock.edit", recordID, before, after)
	return nil
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	recordID, ok := shared.PathID(r, "recordID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "record_not_found", msgRecordNotFound, middleware.GetRequestID(r.Context()))
		return
	}
	rec, err := h.Service.Get(r.Context(), recordID)
	if err == nil && rec.EmployeeID != user.EmployeeID && !h.can(r, user, auth.PermAttendanceRead) {
		err = attendance.ErrRecordNotFound
	}
	if err != nil {
		h.fail(w, r, err, "failed to load clock record")
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	out, err := h.Service.GetActiveShifts(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list active shifts")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	out, err := h.Service.TodaysRecords(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list today's records")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, ok := h.loadHistory(w, r)
	if !ok {
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	history, ok := h.loadHistory(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("work-history-%d-%s.xlsx", history.EmployeeID, history.From.In(h.zone()).Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := attendance.WriteWorkHistoryXLSX(w, history, h.zone()); err != nil {
		slog.Error("work history export failed", "employeeId", history.EmployeeID, "err", err, "requestId", middleware.GetRequestID(r.Context()))
	}
}

// loadHistory answers for the caller, or for ?employeeId= when the caller may read attendance.
func (h *Handler) loadHistory(w http.ResponseWriter, r *http.Request) (attendance.WorkHistory, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return attendance.WorkHistory{}, false
	}
	employeeID := user.EmployeeID
	if requested := shared.QueryID(r, "employeeId"); requested > 0 && requested != user.EmployeeID {
		if !h.can(r, user, auth.PermAttendanceRead) {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return attendance.WorkHistory{}, false
		}
		employeeID = requested
	}

	validator := shared.NewValidator()
	from, to := validator.DateRange(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"), h.zone(), h.now(), historyDays)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return attendance.WorkHistory{}, false
	}
	history, err := h.Service.WorkHistory(r.Context(), employeeID, from, to)
	if err != nil {
		h.fail(w, r, err, "failed to load work history")
		return attendance.WorkHistory{}, false
	}
	return history, true
}

func (h *Handler) handleDay(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dayParam(w, r)
	if !ok {
		return
	}
	out, err := h.Service.DaySummary(r.Context(), date)
	if err != nil {
		h.fail(w, r, err, "failed to load day summary")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePunches(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dayParam(w, r)
	if !ok {
		return
	}
	out, err := h.Service.Punches(r.Context(), date)
	if err != nil {
		h.fail(w, r, err, "failed to load punches")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) dayParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return time.Time{}, false
	}
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.now(), true
	}
	date, _, err := shared.ParseDateIn(raw, h.zone())
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "date", Reason: "must be YYYY-MM-DD"}})
		return time.Time{}, false
	}
	return date, true
}

// fail maps attendance errors onto the envelope. Conflicts carry a code clients branch on.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, attendance.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, attendance.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "record_not_found", msgRecordNotFound, reqID)
	case errors.Is(err, attendance.ErrAlreadyClockedIn):
		api.Fail(w, http.StatusConflict, "already_clocked_in", msgAlreadyIn, reqID)
	case errors.Is(err, attendance.ErrAlreadyClockedOut):
		api.Fail(w, http.StatusConflict, "already_clocked_out", msgAlreadyOut, reqID)
	case errors.Is(err, attendance.ErrInvalidTimeRange):
		api.Fail(w, http.StatusConflict, "invalid_time_range", msgBadTimeRange, reqID)
	default:
		slog.Error("clock request failed", "err", err, "path", r.URL.Path, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "clock_failed", fallback, reqID)
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, kind, message string) {
	middleware.SetFlash(w, kind, message)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action string, recordID int64, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.EmployeeID, action, "clock_record", strconv.FormatInt(recordID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
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

func (h *Handler) actingFor(r *http.Request, user auth.UserContext, requested int64) (int64, bool) {
	if requested <= 0 || requested == user.EmployeeID {
		return user.EmployeeID, true
	}
	return requested, h.can(r, user, auth.PermClockManage)
}

func (h *Handler) now() time.Time {
	if h.Service.Now == nil {
		return time.Now()
	}
	return h.Service.Now()
}

func (h *Handler) zone() *time.Location {
	if h.Service.Policy.Zone == nil {
		return time.UTC
	}
	return h.Service.Policy.Zone
}

func formInt(r *http.Request, key string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(key)), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func formCoordinate(r *http.Request, latKey, lngKey string) *attendance.Coordinate {
	lat, errLat := decimal.NewFromString(strings.TrimSpace(r.PostFormValue(latKey)))
	lng, errLng := decimal.NewFromString(strings.TrimSpace(r.PostFormValue(lngKey)))
	if errLat != nil || errLng != nil {
		return nil
	}
	return &attendance.Coordinate{Latitude: lat, Longitude: lng}
}

func coordinate(lat, lng *decimal.Decimal) *attendance.Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	return &attendance.Coordinate{Latitude: *lat, Longitude: *lng}
}

// parseLocalTime accepts RFC 3339 or an HTML datetime-local value in zone.
func parseLocalTime(raw string, zone *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}
