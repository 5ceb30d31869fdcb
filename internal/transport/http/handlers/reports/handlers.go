package reportshandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/domain/reports"
	"poolops/internal/transport/http/api"
	"poolops/internal/transport/http/middleware"
	"poolops/internal/transport/http/shared"
)

const (
	listWindowDays    = 30
	submitEndpoint    = "checklist.submit"
	msgChecklistSaved = "Checklist submitted successfully"
	msgReadingSaved   = "Chemical reading added successfully"
	msgPhotoSaved     = "Photo added successfully"
	msgChecklistGone  = "Checklist not found"
	msgAuditGone      = "Audit not found"
)

type Handler struct {
	Service     *reports.Service
	Perms       middleware.PermissionStore
	Audit       audit.Recorder
	Idempotency middleware.Idempotency
	Zone        *time.Location
	Now         func() time.Time
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore, auditSvc audit.Recorder, idem middleware.Idempotency, zone *time.Location) *Handler {
	if zone == nil {
		zone = time.UTC
	}
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Idempotency: idem, Zone: zone, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/checklist", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsSubmit, h.Perms)).Post("/submit", h.handleSubmitChecklist)
		r.With(middleware.RequirePermission(auth.PermReportsSubmit, h.Perms)).Post("/chemical-reading", h.handleAddReading)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/my-checklists", h.handleMyChecklists)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/{checklistID}", h.handleGetChecklist)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/{checklistID}/pdf", h.handleChecklistPDF)
		r.With(middleware.RequirePermission(auth.PermReportsSubmit, h.Perms)).Post("/{checklistID}/photos", h.handleAddPhoto)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/{checklistID}/photos", h.handleListPhotos)
	})
	r.Route("/safety-audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditsSubmit, h.Perms)).Post("/submit", h.handleSubmitAudit)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/types", h.handleAuditTypes)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/my-audits", h.handleMyAudits)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/{auditID}", h.handleGetAudit)
	})
}

type checklistRequest struct {
	UserID           int64             `json:"userId"`
	LocationID       int64             `json:"locationId" validate:"required,gt=0"`
	ChecklistData    reports.Payload   `json:"checklistData"`
	ChemicalReadings []reports.Payload `json:"chemicalReadings"`
	Notes            string            `json:"notes" validate:"max=4000"`
}

func (h *Handler) handleSubmitChecklist(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	var payload checklistRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if len(payload.ChemicalReadings) > h.Service.MaxReadings {
		validator.Add("chemicalReadings", fmt.Sprintf("must contain at most %d readings", h.Service.MaxReadings))
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if !h.selfOnly(w, r, user, payload.UserID) {
		return
	}

	idemKey := middleware.IdempotencyKey(r.Header.Get(middleware.IdempotencyHeader))
	requestHash := middleware.RequestHash(raw)
	if idemKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.EmployeeID, submitEndpoint, idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			w.Header().Set("Idempotent-Replayed", "true")
			api.SuccessMessage(w, msgChecklistSaved, json.RawMessage(stored), middleware.GetRequestID(r.Context()))
			return
		}
	}

	outcome, err := h.Service.SubmitChecklist(r.Context(), reports.ChecklistSubmission{
		EmployeeID: user.EmployeeID,
		LocationID: payload.LocationID,
		Checklist:  payload.ChecklistData,
		Readings:   payload.ChemicalReadings,
		Notes:      payload.Notes,
	})
	if err != nil {
		h.fail(w, r, err, "failed to submit checklist")
		return
	}
	h.record(r, user, "checklist.submit", "service_tech_report", outcome.ChecklistID, outcome)

	if idemKey != "" && h.Idempotency != nil {
		encoded, err := json.Marshal(outcome)
		if err != nil {
			slog.Warn("idempotency response marshal failed", "err", err)
		} else if err := h.Idempotency.Save(r.Context(), user.EmployeeID, submitEndpoint, idemKey, requestHash, encoded); err != nil {
			slog.Warn("idempotency save failed", "err", err)
		}
	}
	api.SuccessMessage(w, msgChecklistSaved, outcome, middleware.GetRequestID(r.Context()))
}

type readingRequest struct {
	ServiceChecklistID int64            `json:"serviceChecklistId" validate:"required,gt=0"`
	BodyOfWater        string           `json:"bodyOfWater" validate:"max=100"`
	Chlorine           *decimal.Decimal `json:"chlorine"`
	Bromine            *decimal.Decimal `json:"bromine"`
	PhLevel            *decimal.Decimal `json:"phLevel"`
	CalciumHardness    *decimal.Decimal `json:"calciumHardness"`
	Alkalinity         *decimal.Decimal `json:"alkalinity"`
	CyanuricAcid       *decimal.Decimal `json:"cyanuricAcid"`
	SaltLevel          *decimal.Decimal `json:"saltLevel"`
	Phosphates         *decimal.Decimal `json:"phosphates"`
}

func (h *Handler) handleAddReading(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload readingRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if _, ok := h.visibleChecklist(w, r, user, payload.ServiceChecklistID); !ok {
		return
	}

	reading, err := h.Service.AddChemicalReading(r.Context(), reports.ReadingInput{
		ChecklistID:     payload.ServiceChecklistID,
		BodyOfWater:     payload.BodyOfWater,
		Chlorine:        payload.Chlorine,
		Bromine:         payload.Bromine,
		PH:              payload.PhLevel,
		CalciumHardness: payload.CalciumHardness,
		Alkalinity:      payload.Alkalinity,
		CyanuricAcid:    payload.CyanuricAcid,
		Salt:            payload.SaltLevel,
		Phosphates:      payload.Phosphates,
	})
	if err != nil {
		h.fail(w, r, err, "failed to add chemical reading")
		return
	}
	api.SuccessMessage(w, msgReadingSaved, reading, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMyChecklists(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID, ok := h.subject(w, r, user)
	if !ok {
		return
	}
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}

	out, err := h.Service.ListChecklists(r.Context(), employeeID, from, to)
	if err != nil {
		h.fail(w, r, err, "failed to list checklists")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetChecklist(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "checklistID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "checklist_not_found", msgChecklistGone, middleware.GetRequestID(r.Context()))
		return
	}
	report, ok := h.visibleChecklist(w, r, user, id)
	if !ok {
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChecklistPDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "checklistID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "checklist_not_found", msgChecklistGone, middleware.GetRequestID(r.Context()))
		return
	}
	report, ok := h.visibleChecklist(w, r, user, id)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteServiceReportPDF(&buf, report, h.Zone); err != nil {
		slog.Error("service report pdf failed", "checklistId", id, "err", err, "requestId", middleware.GetRequestID(r.Context()))
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render service report", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=service-report-%d.pdf", id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("service report write failed", "checklistId", id, "err", err)
	}
}

type photoRequest struct {
	PhotoURL    string    `json:"photoUrl" validate:"required,url,max=2048"`
	PhotoType   string    `json:"photoType" validate:"required"`
	Description string    `json:"description" validate:"max=1000"`
	GPSLocation string    `json:"gpsLocation" validate:"max=100"`
	TakenAt     time.Time `json:"takenAt"`
}

func (h *Handler) handleAddPhoto(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "checklistID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "checklist_not_found", msgChecklistGone, middleware.GetRequestID(r.Context()))
		return
	}

	var payload photoRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	validator.Enum("photoType", payload.PhotoType, reports.PhotoTypes, "must be one of "+strings.Join(reports.PhotoTypes, ", "))
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if _, ok := h.visibleChecklist(w, r, user, id); !ok {
		return
	}

	photo, err := h.Service.AddPhoto(r.Context(), reports.Photo{
		ReportID:    id,
		URL:         payload.PhotoURL,
		Type:        payload.PhotoType,
		Description: strings.TrimSpace(payload.Description),
		GPSLocation: strings.TrimSpace(payload.GPSLocation),
		TakenAt:     payload.TakenAt,
	})
	if err != nil {
		h.fail(w, r, err, "failed to add photo")
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/checklist/%d/photos", id))
	api.WriteJSON(w, http.StatusCreated, api.Envelope{Success: true, Message: msgPhotoSaved, Data: photo, RequestID: middleware.GetRequestID(r.Context())})
}

func (h *Handler) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "checklistID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "checklist_not_found", msgChecklistGone, middleware.GetRequestID(r.Context()))
		return
	}
	if _, ok := h.visibleChecklist(w, r, user, id); !ok {
		return
	}
	photos, err := h.Service.ListPhotos(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to list photos")
		return
	}
	api.Success(w, photos, middleware.GetRequestID(r.Context()))
}

type auditRequest struct {
	UserID     int64           `json:"userId"`
	LocationID int64           `json:"locationId" validate:"required,gt=0"`
	AuditType  string          `json:"auditType"`
	AuditData  reports.Payload `json:"auditData"`
}

func (h *Handler) handleSubmitAudit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload auditRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if payload.AuditType != "" {
		validator.Enum("auditType", payload.AuditType, reports.AuditTypes(), "must be one of "+strings.Join(reports.AuditTypes(), ", "))
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if !h.selfOnly(w, r, user, payload.UserID) {
		return
	}

	eval, err := h.Service.SubmitAudit(r.Context(), reports.AuditSubmission{
		EmployeeID: user.EmployeeID,
		LocationID: payload.LocationID,
		AuditType:  payload.AuditType,
		AuditData:  payload.AuditData,
	})
	if err != nil {
		h.fail(w, r, err, "failed to submit audit")
		return
	}
	h.record(r, user, "audit.submit", "site_evaluation", eval.ID, eval)
	api.SuccessMessage(w, eval.EvaluationType+" submitted successfully", map[string]any{
		"auditId":                       eval.ID,
		"auditType":                     eval.EvaluationType,
		"safetyCompliancePercentage":    eval.SafetyCompliancePercentage(),
		"supervisorChecklistPercentage": eval.SupervisorChecklistPercentage(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAuditTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, reports.AuditTypes(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMyAudits(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID, ok := h.subject(w, r, user)
	if !ok {
		return
	}
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}

	out, err := h.Service.ListAudits(r.Context(), employeeID, from, to)
	if err != nil {
		h.fail(w, r, err, "failed to list audits")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "auditID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "audit_not_found", msgAuditGone, middleware.GetRequestID(r.Context()))
		return
	}
	eval, err := h.Service.GetAudit(r.Context(), id)
	if err == nil && eval.EmployeeID != user.EmployeeID && !h.can(r, user, auth.PermEmployeesRead) {
		err = reports.ErrAuditNotFound
	}
	if err != nil {
		h.fail(w, r, err, "failed to load audit")
		return
	}
	api.Success(w, map[string]any{
		"audit":                         eval,
		"safetyCompliancePercentage":    eval.SafetyCompliancePercentage(),
		"supervisorChecklistPercentage": eval.SupervisorChecklistPercentage(),
	}, middleware.GetRequestID(r.Context()))
}

// visibleChecklist loads a report the caller owns or may read as a supervisor.
// Reports of other employees look missing to everyone else.
func (h *Handler) visibleChecklist(w http.ResponseWriter, r *http.Request, user auth.UserContext, id int64) (reports.ServiceTechReport, bool) {
	report, err := h.Service.GetChecklist(r.Context(), id)
	if err == nil && report.EmployeeID != user.EmployeeID && !h.can(r, user, auth.PermEmployeesRead) {
		err = reports.ErrChecklistNotFound
	}
	if err != nil {
		h.fail(w, r, err, "failed to load checklist")
		return reports.ServiceTechReport{}, false
	}
	return report, true
}

// selfOnly rejects submissions made on behalf of another employee.
func (h *Handler) selfOnly(w http.ResponseWriter, r *http.Request, user auth.UserContext, claimed int64) bool {
	if claimed == 0 || claimed == user.EmployeeID {
		return true
	}
	api.Fail(w, http.StatusForbidden, "forbidden", "userId must match the signed-in employee", middleware.GetRequestID(r.Context()))
	return false
}

// subject resolves ?userId=, defaulting to the caller.
func (h *Handler) subject(w http.ResponseWriter, r *http.Request, user auth.UserContext) (int64, bool) {
	requested := shared.QueryID(r, "userId")
	if requested == 0 || requested == user.EmployeeID {
		return user.EmployeeID, true
	}
	if !h.can(r, user, auth.PermEmployeesRead) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return requested, true
}

func (h *Handler) window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	validator := shared.NewValidator()
	from, to := validator.DateRange(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"), h.Zone, now, listWindowDays)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, reports.ErrInvalidInput), errors.Is(err, reports.ErrTooManyReadings):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, reports.ErrUnknownReference):
		api.Fail(w, http.StatusBadRequest, "unknown_reference", err.Error(), reqID)
	case errors.Is(err, reports.ErrChecklistNotFound):
		api.Fail(w, http.StatusNotFound, "checklist_not_found", msgChecklistGone, reqID)
	case errors.Is(err, reports.ErrAuditNotFound):
		api.Fail(w, http.StatusNotFound, "audit_not_found", msgAuditGone, reqID)
	default:
		slog.Error("report request failed", "err", err, "path", r.URL.Path, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "report_failed", fallback, reqID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entity string, id int64, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.EmployeeID, action, entity, strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
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
