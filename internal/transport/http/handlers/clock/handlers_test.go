package clockhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolops/internal/domain/attendance"
	"poolops/internal/domain/auth"
	"poolops/internal/transport/http/middleware"
)

const secret = "clock-test-secret"

type memStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]attendance.ClockRecord
}

func (m *memStore) openFor(employeeID, exceptID int64) bool {
	for id, rec := range m.records {
		if id != exceptID && rec.EmployeeID == employeeID && rec.IsOpen() {
			return true
		}
	}
	return false
}

func (m *memStore) InsertOpen(_ context.Context, rec attendance.ClockRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openFor(rec.EmployeeID, 0) {
		return 0, attendance.ErrAlreadyClockedIn
	}
	m.nextID++
	rec.ID = m.nextID
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memStore) Get(_ context.Context, id int64) (attendance.ClockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return attendance.ClockRecord{}, attendance.ErrRecordNotFound
	}
	return rec, nil
}

func (m *memStore) Close(_ context.Context, id int64, out time.Time, coord *attendance.Coordinate, hours decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[id]
	if !rec.IsOpen() {
		return attendance.ErrAlreadyClockedOut
	}
	rec.ClockOutTime = &out
	rec.ClockOutLocation = coord
	rec.TotalHours = &hours
	m.records[id] = rec
	return nil
}

func (m *memStore) Update(_ context.Context, rec attendance.ClockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.IsOpen() && m.openFor(rec.EmployeeID, rec.ID) {
		return attendance.ErrAlreadyClockedIn
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) list(keep func(attendance.ClockRecord) bool) []attendance.ClockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []attendance.ClockRecord{}
	for id := int64(1); id <= m.nextID; id++ {
		if rec, ok := m.records[id]; ok && keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func inRange(t, from, to time.Time) bool { return !t.Before(from) && t.Before(to) }

func (m *memStore) ListOpen(context.Context) ([]attendance.ClockRecord, error) {
	return m.list(func(r attendance.ClockRecord) bool { return r.IsOpen() }), nil
}

func (m *memStore) ListBetween(_ context.Context, from, to time.Time) ([]attendance.ClockRecord, error) {
	return m.list(func(r attendance.ClockRecord) bool { return inRange(r.ClockInTime, from, to) }), nil
}

func (m *memStore) ListByEmployee(_ context.Context, employeeID int64, from, to time.Time) ([]attendance.ClockRecord, error) {
	return m.list(func(r attendance.ClockRecord) bool {
		return r.EmployeeID == employeeID && inRange(r.ClockInTime, from, to)
	}), nil
}

func (m *memStore) SumClosedHours(_ context.Context, employeeID int64, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range m.list(func(r attendance.ClockRecord) bool {
		return r.EmployeeID == employeeID && !r.IsOpen() && inRange(r.ClockInTime, from, to)
	}) {
		total = total.Add(*r.TotalHours)
	}
	return total, nil
}

type auditSpy struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditSpy) Record(_ context.Context, _ int64, action, _, _, _, _ string, _, _ any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

type fixture struct {
	router http.Handler
	store  *memStore
	audit  *auditSpy
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: &memStore{records: map[int64]attendance.ClockRecord{}},
		audit: &auditSpy{},
		clock: time.Date(2025, 6, 2, 8, 40, 0, 0, time.UTC),
	}
	svc := attendance.NewService(f.store, nil, attendance.DefaultPolicy())
	svc.Now = func() time.Time { return f.clock }
	h := NewHandler(svc, auth.NewStaticPermissions(), f.audit)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(secret))
	h.RegisterForms(r)
	r.Route("/api", h.RegisterRoutes)
	f.router = r
	return f
}

func token(t *testing.T, employeeID int64, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(secret, auth.Claims{EmployeeID: employeeID, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) form(t *testing.T, tok, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tok})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) json(t *testing.T, tok, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func flashOf(t *testing.T, rec *httptest.ResponseRecorder) middleware.Flash {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/Clock", rec.Header().Get("Location"))
	req := httptest.NewRequest(http.MethodGet, "/Clock", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	flash, ok := middleware.PopFlash(httptest.NewRecorder(), req)
	require.True(t, ok, "expected a flash cookie")
	return flash
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestFormClockInAndOut(t *testing.T) {
	f := newFixture(t)
	tech := token(t, 7, auth.RoleTechnician)

	rec := f.form(t, tech, "/Clock/ClockIn", url.Values{"locationId": {"3"}, "latitude": {"29.7604"}, "longitude": {"-95.3698"}})
	assert.Equal(t, middleware.Flash{Kind: middleware.FlashSuccess, Message: "Clocked in successfully!"}, flashOf(t, rec))
	stored, err := f.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, stored.ClockInLocation)
	assert.Equal(t, "29.7604", stored.ClockInLocation.Latitude.String())

	rec = f.form(t, tech, "/Clock/ClockIn", url.Values{"locationId": {"3"}})
	assert.Equal(t, middleware.FlashError, flashOf(t, rec).Kind)

	f.clock = f.clock.Add(8*time.Hour + 20*time.Minute)
	rec = f.form(t, tech, "/Clock/ClockOut", url.Values{"clockRecordId": {"1"}})
	assert.Equal(t, "Clocked out successfully!", flashOf(t, rec).Message)

	closed, err := f.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, closed.TotalHours)
	assert.True(t, closed.TotalHours.Equal(decimal.NewFromInt(25).Div(decimal.NewFromInt(3))))
	assert.Equal(t, []string{"clock.in", "clock.out"}, f.audit.actions)
}

func TestFormClockInFailure(t *testing.T) {
	f := newFixture(t)
	rec := f.form(t, token(t, 7, auth.RoleTechnician), "/Clock/ClockIn", url.Values{})
	assert.Equal(t, middleware.Flash{Kind: middleware.FlashError, Message: "Failed to clock in. Please try again."}, flashOf(t, rec))
}

func TestFormClockOutOtherEmployeeHidden(t *testing.T) {
	f := newFixture(t)
	f.form(t, token(t, 7, auth.RoleTechnician), "/Clock/ClockIn", url.Values{"locationId": {"3"}})

	rec := f.form(t, token(t, 8, auth.RoleTechnician), "/Clock/ClockOut", url.Values{"clockRecordId": {"1"}})
	assert.Equal(t, "Record not found.", flashOf(t, rec).Message)

	f.clock = f.clock.Add(time.Hour)
	rec = f.form(t, token(t, 2, auth.RoleSupervisor), "/Clock/ClockOut", url.Values{"clockRecordId": {"1"}})
	assert.Equal(t, "Clocked out successfully!", flashOf(t, rec).Message)
}

func TestFormEditRecord(t *testing.T) {
	f := newFixture(t)
	f.form(t, token(t, 7, auth.RoleTechnician), "/Clock/ClockIn", url.Values{"locationId": {"3"}})
	sup := token(t, 2, auth.RoleSupervisor)

	rec := f.form(t, token(t, 7, auth.RoleTechnician), "/Clock/EditRecord/1", url.Values{"clockInTime": {"2025-06-02T08:00"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.form(t, sup, "/Clock/EditRecord/1", url.Values{"clockInTime": {"2025-06-02T08:00"}, "clockOutTime": {"2025-06-02T16:30"}})
	assert.Equal(t, "Clock record updated successfully.", flashOf(t, rec).Message)
	edited, err := f.store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), edited.LocationID)
	assert.Equal(t, "8.5", edited.TotalHours.String())

	rec = f.form(t, sup, "/Clock/EditRecord/99", url.Values{"clockInTime": {"2025-06-02T08:00"}})
	assert.Equal(t, "Record not found.", flashOf(t, rec).Message)
}

func TestDashboardShowsFlashAndOpenRecord(t *testing.T) {
	f := newFixture(t)
	tech := token(t, 7, auth.RoleTechnician)
	post := f.form(t, tech, "/Clock/ClockIn", url.Values{"locationId": {"3"}})

	req := httptest.NewRequest(http.MethodGet, "/Clock", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tech})
	for _, c := range post.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			ActiveShifts []json.RawMessage `json:"activeShifts"`
			MyOpenRecord *struct {
				ID int64 `json:"id"`
			} `json:"myOpenRecord"`
			Policy policyView        `json:"policy"`
			Flash  *middleware.Flash `json:"flash"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.ActiveShifts, 1)
	require.NotNil(t, body.Data.MyOpenRecord)
	assert.Equal(t, int64(1), body.Data.MyOpenRecord.ID)
	assert.Equal(t, 30, body.Data.Policy.GracePeriodMinutes)
	require.NotNil(t, body.Data.Flash)
	assert.Equal(t, "Clocked in successfully!", body.Data.Flash.Message)
}

func TestJSONConflicts(t *testing.T) {
	f := newFixture(t)
	tech := token(t, 7, auth.RoleTechnician)

	rec := f.json(t, tech, http.MethodPost, "/api/clock/clock-in", map[string]any{"locationId": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Clocked in successfully!", decode(t, rec).Message)

	rec = f.json(t, tech, http.MethodPost, "/api/clock/clock-in", map[string]any{"locationId": 3})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_clocked_in", decode(t, rec).Error.Code)

	f.clock = f.clock.Add(time.Hour)
	rec = f.json(t, tech, http.MethodPost, "/api/clock/clock-out", map[string]any{"clockRecordId": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.json(t, tech, http.MethodPost, "/api/clock/clock-out", map[string]any{"clockRecordId": 1})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_clocked_out", decode(t, rec).Error.Code)

	sup := token(t, 2, auth.RoleSupervisor)
	rec = f.json(t, sup, http.MethodPut, "/api/clock/records/1", map[string]any{
		"clockInTime":  "2025-06-02T10:00:00Z",
		"clockOutTime": "2025-06-02T09:00:00Z",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_time_range", decode(t, rec).Error.Code)
}

func TestJSONClockInValidation(t *testing.T) {
	f := newFixture(t)
	tech := token(t, 7, auth.RoleTechnician)

	rec := f.json(t, tech, http.MethodPost, "/api/clock/clock-in", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec).Error.Code)

	rec = f.json(t, tech, http.MethodPost, "/api/clock/clock-in", map[string]any{"locationId": 3, "employeeId": 9})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.json(t, token(t, 2, auth.RoleSupervisor), http.MethodPost, "/api/clock/clock-in", map[string]any{"locationId": 3, "employeeId": 9})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRecordVisibility(t *testing.T) {
	f := newFixture(t)
	f.json(t, token(t, 7, auth.RoleTechnician), http.MethodPost, "/api/clock/clock-in", map[string]any{"locationId": 3})

	assert.Equal(t, http.StatusOK, f.json(t, token(t, 7, auth.RoleTechnician), http.MethodGet, "/api/clock/records/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.json(t, token(t, 8, auth.RoleTechnician), http.MethodGet, "/api/clock/records/1", nil).Code)
	assert.Equal(t, http.StatusOK, f.json(t, token(t, 2, auth.RoleSupervisor), http.MethodGet, "/api/clock/records/1", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.json(t, token(t, 7, auth.RoleTechnician), http.MethodGet, "/api/clock/active", nil).Code)
}

func TestHistoryAndExport(t *testing.T) {
	f := newFixture(t)
	tech := token(t, 7, auth.RoleTechnician)
	f.json(t, tech, http.MethodPost, "/api/clock/clock-in", map[string]any{"locationId": 3})
	f.clock = f.clock.Add(8*time.Hour + 20*time.Minute)
	f.json(t, tech, http.MethodPost, "/api/clock/clock-out", map[string]any{"clockRecordId": 1})

	rec := f.json(t, tech, http.MethodGet, "/api/clock/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history attendance.WorkHistory
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &history))
	assert.Len(t, history.Records, 1)
	assert.Equal(t, 1, history.DaysWorked)

	rec = f.json(t, tech, http.MethodGet, "/api/clock/history?employeeId=8", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.json(t, tech, http.MethodGet, "/api/clock/history?startDate=2025-06-10&endDate=2025-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(t, tech, http.MethodGet, "/api/clock/history/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "work-history-7-")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestDayAndPunches(t *testing.T) {
	f := newFixture(t)
	f.json(t, token(t, 7, auth.RoleTechnician), http.MethodPost, "/api/clock/clock-in", map[string]any{"locationId": 3})
	sup := token(t, 2, auth.RoleSupervisor)

	rec := f.json(t, sup, http.MethodGet, "/api/clock/day?date=2025-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var day attendance.DaySummary
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &day))
	assert.Equal(t, 1, day.Workers)

	rec = f.json(t, sup, http.MethodGet, "/api/clock/punches?date=06/02/2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.json(t, sup, http.MethodGet, "/api/clock/punches", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
