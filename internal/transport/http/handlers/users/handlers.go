package usershandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/domain/users"
	"poolops/internal/transport/http/api"
	"poolops/internal/transport/http/middleware"
	"poolops/internal/transport/http/shared"
)

type Handler struct {
	Service *users.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *users.Service, perms middleware.PermissionStore, auditSvc audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/pending", h.handleListPending)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreate)
		r.Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Delete("/{employeeID}", h.handleDelete)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/{employeeID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/{employeeID}/terminate", h.handleTerminate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/{employeeID}/reactivate", h.handleReactivate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}/position", h.handleAssignPosition)
	})
	r.Route("/invites", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermInvitesManage, h.Perms)).Post("/", h.handleIssueInvite)
		r.Get("/{code}", h.handleValidateInvite)
		r.Post("/{code}/redeem", h.handleRedeemInvite)
	})
}

type employeeRequest struct {
	FirstName        string `json:"firstName" validate:"required,max=100"`
	LastName         string `json:"lastName" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Phone            string `json:"phone" validate:"max=40"`
	Position         string `json:"position" validate:"max=100"`
	Address          string `json:"address" validate:"max=300"`
	EmergencyContact string `json:"emergencyContact" validate:"max=200"`
	EmergencyPhone   string `json:"emergencyPhone" validate:"max=40"`
	HireDate         string `json:"hireDate"`
	Notes            string `json:"notes" validate:"max=4000"`
	Role             string `json:"role"`
	Status           string `json:"status"`
	Password         string `json:"password" validate:"omitempty,min=8,max=128"`
}

func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request) (users.Employee, string, bool) {
	var payload employeeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return users.Employee{}, "", false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	validator.Enum("role", payload.Role, auth.Roles, "must be one of "+strings.Join(auth.Roles, ", "))
	var hireDate *time.Time
	if strings.TrimSpace(payload.HireDate) != "" {
		if parsed, ok := validator.Date("hireDate", payload.HireDate); ok {
			hireDate = &parsed
		}
	}
	var status users.Status
	if strings.TrimSpace(payload.Status) != "" {
		parsed, ok := users.ParseStatus(payload.Status)
		if !ok {
			validator.Add("status", "must be one of Pending, Approved, Terminated")
		}
		status = parsed
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return users.Employee{}, "", false
	}
	return users.Employee{
		FirstName:        payload.FirstName,
		LastName:         payload.LastName,
		Email:            payload.Email,
		Phone:            strings.TrimSpace(payload.Phone),
		Position:         strings.TrimSpace(payload.Position),
		Address:          strings.TrimSpace(payload.Address),
		EmergencyContact: strings.TrimSpace(payload.EmergencyContact),
		EmergencyPhone:   strings.TrimSpace(payload.EmergencyPhone),
		HireDate:         hireDate,
		Notes:            strings.TrimSpace(payload.Notes),
		Role:             strings.ToLower(strings.TrimSpace(payload.Role)),
		Status:           status,
	}, payload.Password, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := users.Filter{Search: q.Get("search"), Position: q.Get("position")}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, ok := users.ParseStatus(raw)
		if !ok {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "status", Reason: "must be one of Pending, Approved, Terminated"}})
			return
		}
		filter.Status = status
	}
	out, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to list employees")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.ListPending(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list pending employees")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employee, password, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			h.fail(w, r, err, "failed to create employee")
			return
		}
		employee.PasswordHash = hash
	}
	created, err := h.Service.Create(r.Context(), employee)
	if err != nil {
		h.fail(w, r, err, "failed to create employee")
		return
	}
	h.record(r, user, "employee.create", created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

// handleGet serves an employee's own profile to anyone and other profiles
// to callers who may read employees.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "employeeID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if id != user.EmployeeID && !h.can(r, user, auth.PermEmployeesRead) {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	employee, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to load employee")
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}
	employee, _, ok := h.decodeEmployee(w, r)
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to load employee")
		return
	}
	employee.ID = id
	if employee.Role == "" {
		employee.Role = before.Role
	}
	updated, err := h.Service.Update(r.Context(), employee)
	if err != nil {
		h.fail(w, r, err, "failed to update employee")
		return
	}
	h.record(r, user, "employee.update", id, before, updated)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if id == user.EmployeeID {
		api.Fail(w, http.StatusBadRequest, "validation_error", "you cannot delete your own account", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete employee")
		return
	}
	h.record(r, user, "employee.delete", id, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "employee.approve", users.StatusApproved, h.Service.Approve)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "employee.terminate", users.StatusTerminated, h.Service.Terminate)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "employee.reactivate", users.StatusApproved, h.Service.Reactivate)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, to users.Status, apply func(ctx context.Context, id int64) error) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if id == user.EmployeeID {
		api.Fail(w, http.StatusBadRequest, "validation_error", "you cannot change your own status", middleware.GetRequestID(r.Context()))
		return
	}
	if err := apply(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to change employee status")
		return
	}
	h.record(r, user, action, id, nil, map[string]any{"status": to})
	api.Success(w, map[string]any{"id": id, "status": to}, middleware.GetRequestID(r.Context()))
}

type positionRequest struct {
	Position string `json:"position" validate:"max=100"`
}

func (h *Handler) handleAssignPosition(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var payload positionRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if err := h.Service.AssignPosition(r.Context(), id, payload.Position); err != nil {
		h.fail(w, r, err, "failed to assign position")
		return
	}
	h.record(r, user, "employee.position", id, nil, payload)
	api.Success(w, map[string]any{"id": id, "position": strings.TrimSpace(payload.Position)}, middleware.GetRequestID(r.Context()))
}

type inviteRequest struct {
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Position string `json:"position" validate:"max=100"`
}

func (h *Handler) handleIssueInvite(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload inviteRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	createdBy := user.EmployeeID
	invite, link, err := h.Service.IssueInvite(r.Context(), payload.Email, payload.Position, &createdBy)
	if err != nil {
		h.fail(w, r, err, "failed to issue invite")
		return
	}
	h.record(r, user, "invite.issue", invite.ID, nil, map[string]any{"email": invite.Email, "position": invite.Position})
	api.Created(w, map[string]any{"invite": invite, "link": link}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleValidateInvite(w http.ResponseWriter, r *http.Request) {
	invite, err := h.Service.ValidateInvite(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err, "failed to load invite")
		return
	}
	api.Success(w, map[string]any{
		"email":     invite.Email,
		"position":  invite.Position,
		"expiresAt": invite.ExpiresAt,
	}, middleware.GetRequestID(r.Context()))
}

type redeemRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"max=40"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

func (h *Handler) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	var payload redeemRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	employee, err := h.Service.RedeemInvite(r.Context(), users.Registration{
		Code:      chi.URLParam(r, "code"),
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	})
	if err != nil {
		h.fail(w, r, err, "failed to register")
		return
	}
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), employee.ID, "invite.redeem", "employee", strconv.FormatInt(employee.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, employee); err != nil {
			slog.Warn("audit invite.redeem failed", "err", err)
		}
	}
	api.Created(w, employee, middleware.GetRequestID(r.Context()))
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (auth.UserContext, int64, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return auth.UserContext{}, 0, false
	}
	id, ok := shared.PathID(r, "employeeID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return auth.UserContext{}, 0, false
	}
	return user, id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, users.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, users.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.Is(err, users.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
	case errors.Is(err, users.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", "status change not allowed", reqID)
	case errors.Is(err, users.ErrInUse):
		api.Fail(w, http.StatusConflict, "employee_in_use", "employee has recorded activity; terminate instead", reqID)
	case errors.Is(err, users.ErrInviteNotFound):
		api.Fail(w, http.StatusNotFound, "invite_not_found", "invite not found", reqID)
	case errors.Is(err, users.ErrInviteUsed):
		api.Fail(w, http.StatusConflict, "invite_used", "invite already used", reqID)
	case errors.Is(err, users.ErrInviteExpired):
		api.Fail(w, http.StatusGone, "invite_expired", "invite expired", reqID)
	default:
		slog.Error("employee request failed", "err", err, "path", r.URL.Path, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "employee_failed", fallback, reqID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action string, id int64, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.EmployeeID, action, "employee", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
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
