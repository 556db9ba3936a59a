package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicahq/platform/internal/availability"
	"github.com/practicahq/platform/internal/tenancy"
)

func testHandler(t *testing.T) (*Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	src := newStubSource()
	allWeek := weekdayTemplate(time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday)
	src.addResource(provider, allWeek)
	matcher := NewMatcher(availability.NewEngine(src, nil, nil), nil)

	return NewHandler(NewStore(mock), matcher, nil), mock
}

func doJSON(t *testing.T, h http.HandlerFunc, method, orgID string, body any, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/", &buf)
	ctx := req.Context()
	if orgID != "" {
		ctx = tenancy.WithOrgID(ctx, orgID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func TestHandlerCreate(t *testing.T) {
	h, mock := testHandler(t)

	mock.ExpectExec("INSERT INTO waitlist_entries").
		WithArgs(pgxmock.AnyArg(), testOrg, pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := doJSON(t, h.Create, http.MethodPost, testOrg, CreateEntryRequest{
		PatientID:       uuid.New(),
		Resources:       []availability.ResourceRef{provider},
		TimeBand:        availability.BandMorning,
		DurationMinutes: 30,
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var entry Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, testOrg, entry.OrgID)
	assert.True(t, entry.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreateValidation(t *testing.T) {
	h, _ := testHandler(t)

	rec := doJSON(t, h.Create, http.MethodPost, testOrg, CreateEntryRequest{
		Resources:       []availability.ResourceRef{provider},
		DurationMinutes: 30,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCreateMissingOrg(t *testing.T) {
	h, _ := testHandler(t)
	rec := doJSON(t, h.Create, http.MethodPost, "", CreateEntryRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerList(t *testing.T) {
	h, mock := testHandler(t)

	entry := testEntry()
	resources, err := json.Marshal(entry.Resources)
	require.NoError(t, err)
	mock.ExpectQuery("FROM waitlist_entries").
		WithArgs(testOrg).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "org_id", "patient_id", "resources", "preferred_days",
			"time_band", "duration_minutes", "priority", "active", "created_at", "updated_at",
		}).AddRow(entry.ID, testOrg, entry.PatientID, resources, []int32(nil),
			"", 30, 0, true, monday, monday))

	rec := doJSON(t, h.List, http.MethodGet, testOrg, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, entry.ID, resp.Entries[0].ID)
}

func TestHandlerDeactivate(t *testing.T) {
	h, mock := testHandler(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE waitlist_entries").
		WithArgs(id, testOrg, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := doJSON(t, h.Deactivate, http.MethodDelete, testOrg, nil,
		map[string]string{"entryID": id.String()})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h.Deactivate, http.MethodDelete, testOrg, nil,
		map[string]string{"entryID": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDeactivateNotFound(t *testing.T) {
	h, mock := testHandler(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE waitlist_entries").
		WithArgs(id, testOrg, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	rec := doJSON(t, h.Deactivate, http.MethodDelete, testOrg, nil,
		map[string]string{"entryID": id.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerMatches(t *testing.T) {
	h, mock := testHandler(t)

	entry := testEntry()
	resources, err := json.Marshal(entry.Resources)
	require.NoError(t, err)
	mock.ExpectQuery("FROM waitlist_entries").
		WithArgs(entry.ID, testOrg).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "org_id", "patient_id", "resources", "preferred_days",
			"time_band", "duration_minutes", "priority", "active", "created_at", "updated_at",
		}).AddRow(entry.ID, testOrg, entry.PatientID, resources, []int32(nil),
			"", 30, 0, true, monday, monday))

	rec := doJSON(t, h.Matches, http.MethodPost, testOrg, MatchRequest{MaxMatches: 2},
		map[string]string{"entryID": entry.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	var result Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, entry.ID, result.Entry.ID)
	assert.Len(t, result.Matches, 2)
}

func TestHandlerMatchesNotFound(t *testing.T) {
	h, mock := testHandler(t)

	id := uuid.New()
	mock.ExpectQuery("FROM waitlist_entries").
		WithArgs(id, testOrg).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "org_id", "patient_id", "resources", "preferred_days",
			"time_band", "duration_minutes", "priority", "active", "created_at", "updated_at",
		}))

	rec := doJSON(t, h.Matches, http.MethodPost, testOrg, nil,
		map[string]string{"entryID": id.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
