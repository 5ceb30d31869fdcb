package locationshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/domain/locations"
	"poolops/internal/transport/http/api"
	"poolops/internal/transport/http/middleware"
	"poolops/internal/transport/http/shared"
)

type Handler struct {
	Service *locations.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *locations.Service, perms middleware.PermissionStore, auditSvc audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/locations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLocationsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermLocationsRead, h.Perms)).Get("/active", h.handleListActive)
		r.With(middleware.RequirePermission(auth.PermLocationsRead, h.Perms)).Get("/supervisor", h.handleListSupervised)
		r.With(middleware.RequirePermission(auth.PermLocationsWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermLocationsRead, h.Perms)).Get("/{locationID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermLocationsWrite, h.Perms)).Put("/{locationID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermLocationsWrite, h.Perms)).Put("/{locationID}/active", h.handleSetActive)
		r.With(middleware.RequirePermission(auth.PermLocationsWrite, h.Perms)).Put("/{locationID}/supervisor", h.handleAssignSupervisor)
		r.With(middleware.RequirePermission(auth.PermLocationsWrite, h.Perms)).Delete("/{locationID}", h.handleDelete)
	})
}

type contactRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Phone     string `json:"phone" validate:"max=40"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Role      string `json:"role" validate:"max=100"`
	IsPrimary bool   `json:"isPrimary"`
}

type locationRequest struct {
	Name              string           `json:"name" validate:"required,max=200"`
	Address           string           `json:"address" validate:"max=300"`
	City              string           `json:"city" validate:"max=100"`
	State             string           `json:"state" validate:"max=100"`
	Zip               string           `json:"zip" validate:"max=20"`
	Country           string           `json:"country" validate:"max=100"`
	Latitude          *decimal.Decimal `json:"latitude"`
	Longitude         *decimal.Decimal `json:"longitude"`
	RadiusMeters      int              `json:"radiusMeters" validate:"gte=0,lte=10000"`
	PoolType          string           `json:"poolType" validate:"max=100"`
	PoolSize          string           `json:"poolSize" validate:"max=100"`
	LockboxCode       string           `json:"lockboxCode" validate:"max=8"`
	SupervisorID      *int64           `json:"supervisorId"`
	DepthFeet         *int             `json:"depthFeet" validate:"omitempty,gte=0"`
	DepthInches       *int             `json:"depthInches" validate:"omitempty,gte=0,lt=12"`
	HasWadingPool     bool             `json:"hasWadingPool"`
	WadingPoolGallons *int             `json:"wadingPoolGallons" validate:"omitempty,gte=0"`
	HasSpa            bool             `json:"hasSpa"`
	SpaGallons        *int             `json:"spaGallons" validate:"omitempty,gte=0"`
	Notes             string           `json:"notes" validate:"max=4000"`
	Contacts          []contactRequest `json:"contacts" validate:"max=20,dive"`
}

func (p locationRequest) toLocation() locations.JobLocation {
	loc := locations.JobLocation{
		Name:              p.Name,
		Address:           p.Address,
		City:              p.City,
		State:             p.State,
		Zip:               p.Zip,
		Country:           p.Country,
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		RadiusMeters:      p.RadiusMeters,
		PoolType:          p.PoolType,
		PoolSize:          p.PoolSize,
		LockboxCode:       p.LockboxCode,
		SupervisorID:      p.SupervisorID,
		DepthFeet:         p.DepthFeet,
		DepthInches:       p.DepthInches,
		HasWadingPool:     p.HasWadingPool,
		WadingPoolGallons: p.WadingPoolGallons,
		HasSpa:            p.HasSpa,
		SpaGallons:        p.SpaGallons,
		Notes:             p.Notes,
		Contacts:          make([]locations.Contact, 0, len(p.Contacts)),
	}
	for _, c := range p.Contacts {
		loc.Contacts = append(loc.Contacts, locations.Contact{Name: c.Name, Phone: c.Phone, Email: c.Email, Role: c.Role, IsPrimary: c.IsPrimary})
	}
	return loc
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := locations.Filter{ActiveOnly: r.URL.Query().Get("active") == "true"}
	h.list(w, r, filter)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, locations.Filter{ActiveOnly: true})
}

// handleListSupervised lists the active sites the caller supervises.
func (h *Handler) handleListSupervised(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	h.list(w, r, locations.Filter{ActiveOnly: true, SupervisorID: user.EmployeeID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter locations.Filter) {
	out, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "failed to list locations")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.PathID(r, "locationID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "location_not_found", "location not found", middleware.GetRequestID(r.Context()))
		return
	}
	loc, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to load location")
		return
	}
	api.Success(w, loc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (locationRequest, bool) {
	var payload locationRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return payload, false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if (payload.Latitude == nil) != (payload.Longitude == nil) {
		validator.Add("latitude", "latitude and longitude must be set together")
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return payload, false
	}
	return payload, true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	loc, err := h.Service.Create(r.Context(), payload.toLocation())
	if err != nil {
		h.fail(w, r, err, "failed to create location")
		return
	}
	h.record(r, user, "location.create", loc.ID, nil, loc.ID)
	api.Created(w, loc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "locationID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "location_not_found", "location not found", middleware.GetRequestID(r.Context()))
		return
	}
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to load location")
		return
	}
	loc := payload.toLocation()
	loc.ID = id
	loc.IsActive = before.IsActive
	updated, err := h.Service.Update(r.Context(), loc)
	if err != nil {
		h.fail(w, r, err, "failed to update location")
		return
	}
	h.record(r, user, "location.update", id, before.Name, updated.Name)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

type activeRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "locationID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "location_not_found", "location not found", middleware.GetRequestID(r.Context()))
		return
	}
	var payload activeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if err := h.Service.SetActive(r.Context(), id, *payload.IsActive); err != nil {
		h.fail(w, r, err, "failed to update location")
		return
	}
	h.record(r, user, "location.set_active", id, nil, *payload.IsActive)
	api.Success(w, map[string]any{"id": id, "isActive": *payload.IsActive}, middleware.GetRequestID(r.Context()))
}

type supervisorRequest struct {
	SupervisorID *int64 `json:"supervisorId"`
}

func (h *Handler) handleAssignSupervisor(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "locationID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "location_not_found", "location not found", middleware.GetRequestID(r.Context()))
		return
	}
	var payload supervisorRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.AssignSupervisor(r.Context(), id, payload.SupervisorID); err != nil {
		h.fail(w, r, err, "failed to assign supervisor")
		return
	}
	h.record(r, user, "location.assign_supervisor", id, nil, payload.SupervisorID)
	api.Success(w, map[string]any{"id": id, "supervisorId": payload.SupervisorID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := shared.PathID(r, "locationID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "location_not_found", "location not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete location")
		return
	}
	h.record(r, user, "location.delete", id, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, locations.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, locations.ErrUnknownSupervisor):
		api.Fail(w, http.StatusBadRequest, "unknown_reference", err.Error(), reqID)
	case errors.Is(err, locations.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "location_not_found", "location not found", reqID)
	case errors.Is(err, locations.ErrInUse):
		api.Fail(w, http.StatusConflict, "location_in_use", "location has recorded activity; deactivate it instead", reqID)
	default:
		slog.Error("location request failed", "err", err, "path", r.URL.Path, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "location_failed", fallback, reqID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action string, id int64, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.EmployeeID, action, "job_location", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}
