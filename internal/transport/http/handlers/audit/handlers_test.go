package audithandler

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolops/internal/domain/audit"
	"poolops/internal/domain/auth"
	"poolops/internal/transport/http/middleware"
)

type fakeReader struct {
	events     []audit.Event
	lastFilter audit.Filter
	lastLimit  int
	lastOffset int
	err        error
}

func (f *fakeReader) matching(filter audit.Filter) []audit.Event {
	var out []audit.Event
	for _, e := range f.events {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.ActorID > 0 && (e.ActorID == nil || *e.ActorID != filter.ActorID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f *fakeReader) Count(_ context.Context, filter audit.Filter) (int, error) {
	return len(f.matching(filter)), nil
}

func (f *fakeReader) List(_ context.Context, filter audit.Filter, _ bool, limit, offset int) ([]audit.Event, error) {
	f.lastFilter, f.lastLimit, f.lastOffset = filter, limit, offset
	if f.err != nil {
		return nil, f.err
	}
	out := f.matching(filter)
	if offset >= len(out) {
		return []audit.Event{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func actor(id int64) *int64 { return &id }

func serve(t *testing.T, reader Reader, role, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(reader, auth.NewStaticPermissions())
	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{EmployeeID: 1, Role: role}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sampleEvents() []audit.Event {
	at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	return []audit.Event{
		{ID: 1, ActorID: actor(7), Action: "clock.in", EntityType: "clock_record", EntityID: "10", CreatedAt: at},
		{ID: 2, ActorID: actor(7), Action: "clock.out", EntityType: "clock_record", EntityID: "10", CreatedAt: at.Add(8 * time.Hour)},
		{ID: 3, ActorID: actor(2), Action: "clock.edit", EntityType: "clock_record", EntityID: "10", CreatedAt: at.Add(9 * time.Hour)},
		{ID: 4, Action: "employee.approve", EntityType: "employee", EntityID: "9", CreatedAt: at.Add(10 * time.Hour)},
	}
}

func TestListEventsFiltersAndCounts(t *testing.T) {
	reader := &fakeReader{events: sampleEvents()}

	rec := serve(t, reader, auth.RoleAdmin, "/api/audit/events?actorId=7&limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, int64(7), reader.lastFilter.ActorID)
	assert.Equal(t, 1, reader.lastLimit)
	assert.Equal(t, 1, reader.lastOffset)
	assert.Contains(t, rec.Body.String(), `"action":"clock.out"`)
	assert.NotContains(t, rec.Body.String(), `"action":"clock.in"`)
}

func TestListEventsRequiresAuditPermission(t *testing.T) {
	rec := serve(t, &fakeReader{}, auth.RoleSupervisor, "/api/audit/events")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListEventsStorageFailure(t *testing.T) {
	rec := serve(t, &fakeReader{err: errors.New("db down")}, auth.RoleAdmin, "/api/audit/events")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestExportEventsCSV(t *testing.T) {
	rec := serve(t, &fakeReader{events: sampleEvents()}, auth.RoleAdmin, "/api/audit/events/export?action=employee.approve")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "actor_id", rows[0][1])
	assert.Equal(t, []string{"4", "", "employee.approve", "employee", "9", "", "", "2025-06-02T19:00:00Z"}, rows[1])
}
