package availability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicahq/platform/internal/tenancy"
)

func postJSON(t *testing.T, h http.HandlerFunc, orgID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	if orgID != "" {
		req = req.WithContext(tenancy.WithOrgID(context.Background(), orgID))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandlerSearch(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate(),
		busyAt(provider, monday, 10, 0, 30*time.Minute, ReasonAppointment))
	h := NewHandler(NewEngine(src, nil, nil), nil, HandlerConfig{LocationTimeout: time.Second})

	rec := postJSON(t, h.Search, testOrg, SearchRequest{
		Resources:       []ResourceRef{provider},
		DurationMinutes: 30,
		GranularityMin:  30,
		WindowStart:     monday.Add(9 * time.Hour),
		WindowEnd:       monday.Add(12 * time.Hour),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 5, resp.Count)
	for _, slot := range resp.Slots {
		assert.NotEqual(t, "10:00", slot.Interval.Start.UTC().Format("15:04"))
	}
}

// A body that omits granularity and max results gets the handler's
// configured defaults, not the package constants.
func TestHandlerAppliesConfiguredDefaults(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate())
	h := NewHandler(NewEngine(src, nil, nil), nil, HandlerConfig{
		Granularity: 15 * time.Minute,
		MaxResults:  2,
	})

	rec := postJSON(t, h.Search, testOrg, SearchRequest{
		Resources:       []ResourceRef{provider},
		DurationMinutes: 30,
		WindowStart:     monday.Add(9 * time.Hour),
		WindowEnd:       monday.Add(10 * time.Hour),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	// Three 15-minute steps fit a 30-minute visit before 10:00; the
	// configured cap keeps the first two.
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "09:00", resp.Slots[0].Interval.Start.UTC().Format("15:04"))
	assert.Equal(t, "09:15", resp.Slots[1].Interval.Start.UTC().Format("15:04"))
}

func TestHandlerSearchMissingOrg(t *testing.T) {
	h := NewHandler(NewEngine(newStubSource(), nil, nil), nil, HandlerConfig{LocationTimeout: time.Second})
	rec := postJSON(t, h.Search, "", SearchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerSearchErrorMapping(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate())
	src.meta[provider.String()] = ResourceMetadata{Exists: true, Active: true, OrgID: "other-org"}
	h := NewHandler(NewEngine(src, nil, nil), nil, HandlerConfig{LocationTimeout: time.Second})

	valid := SearchRequest{
		Resources:       []ResourceRef{provider},
		DurationMinutes: 30,
		WindowStart:     monday,
		WindowEnd:       monday.Add(24 * time.Hour),
	}
	rec := postJSON(t, h.Search, testOrg, valid)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	empty := valid
	empty.Resources = nil
	rec = postJSON(t, h.Search, testOrg, empty)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	unknown := valid
	unknown.Resources = []ResourceRef{{Kind: KindProvider, ID: "ghost"}}
	rec = postJSON(t, h.Search, testOrg, unknown)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerMultiLocation(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate())
	src.addResource(locNorth, weekdayTemplate())
	h := NewHandler(NewEngine(src, nil, nil), nil, HandlerConfig{LocationTimeout: time.Second})

	rec := postJSON(t, h.SearchMultiLocation, testOrg, MultiLocationRequest{
		SearchRequest: SearchRequest{
			Resources:       []ResourceRef{provider},
			DurationMinutes: 30,
			GranularityMin:  30,
			WindowStart:     monday.Add(9 * time.Hour),
			WindowEnd:       monday.Add(11 * time.Hour),
		},
		LocationIDs: []string{locNorth.ID, locSouth.ID},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp MultiLocationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.ByLocation[locNorth.ID], 4)
	assert.Contains(t, resp.Errors, locSouth.ID, "unknown location reported per-branch")
	assert.Len(t, resp.Merged, 4)
}

func TestHandlerConflictCheck(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate(),
		busyAt(provider, monday, 10, 0, 30*time.Minute, ReasonAppointment))
	h := NewHandler(NewEngine(src, nil, nil), nil, HandlerConfig{LocationTimeout: time.Second})

	rec := postJSON(t, h.ConflictCheck, testOrg, ConflictCheckRequest{
		Resources: []ResourceRef{provider},
		Start:     monday.Add(10 * time.Hour),
		End:       monday.Add(10*time.Hour + 15*time.Minute),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ConflictCheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Conflict)
}
